package app

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"chat_server/internal/chat/domain"
	"chat_server/internal/chat/repository"
	"chat_server/pkg/logger"
	"chat_server/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatWebsocketHandler websocket 進入點，把 client signal 接到各 tracker
type ChatWebsocketHandler struct {
	presenceUC *PresenceUseCase
	typingUC   *TypingUseCase
	statusUC   *MessageStatusUseCase
	convRepo   repository.ConversationRepository
	pubSub     *repository.RedisPubSub
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	presenceUC *PresenceUseCase,
	typingUC *TypingUseCase,
	statusUC *MessageStatusUseCase,
	convRepo repository.ConversationRepository,
	pubSub *repository.RedisPubSub,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		presenceUC: presenceUC,
		typingUC:   typingUC,
		statusUC:   statusUC,
		convRepo:   convRepo,
		pubSub:     pubSub,
	}
}

// wsWriter websocket 連線的寫入面
type wsWriter interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
}

// wsConn 包一層 write lock，subscribe goroutine、action response 和 ping 會同時寫
// 所有寫入都必須走這裡，底層連線一次只能有一個 writer
type wsConn struct {
	mu   sync.Mutex
	conn wsWriter
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// HandleConnection 是 WebSocket 連線的進入點
// 一條連線等於一個 presence session，斷線時收掉 session 和 typing 狀態
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenUser := conn.Locals(middlewares.TokenMemberID)
	userID, ok := tokenUser.(string)
	if !ok || userID == "" {
		logger.Log.Warn("websocket connection without user id, closing")
		conn.Close()
		return
	}

	sessionID := uuid.New().String()
	logger.Log.Info("websocket session open",
		zap.String("userID", userID), zap.String("sessionID", sessionID))

	h.presenceUC.AddSession(userID, sessionID)

	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())
	wc := &wsConn{conn: conn}

	defer func() {
		ticker.Stop()
		logger.Log.Info("websocket session close",
			zap.String("userID", userID), zap.String("sessionID", sessionID))
		h.presenceUC.RemoveSession(userID, sessionID)
		h.typingUC.ClearUserTyping(userID)
		conn.Close()
		cancel()
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	//server發出ping之後client連線正常會回pong，pong 也算一次活動
	conn.SetPongHandler(func(appData string) error {
		h.presenceUC.RecordActivity(userID)
		return nil
	})

	// 訂閱自己的 private queue、presence channel 以及所屬 conversation 的 typing channel
	channels := []string{domain.UserChannel(userID), domain.PresenceChannel}
	if conversations, err := h.convRepo.FindUserConversations(ctx, userID); err == nil {
		for _, conv := range conversations {
			channels = append(channels, domain.TypingChannel(conv.ID))
		}
	} else {
		logger.Log.Errorf("Failed to load conversations for subscribe:", err)
	}
	h.pubSub.Subscribe(ctxClose, channels, func(channel string, payload []byte) {
		h.forwardBroadcast(wc, channel, payload)
	})

	// 重新上線補收 delivered ack
	go h.statusUC.HandleUserOnline(ctx, userID)

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := wc.writeMessage(websocket.PingMessage, []byte("ping")); err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Infof("Connection closed:", err)
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		// 任何 inbound frame 都算活動
		h.presenceUC.RecordActivity(userID)
		h.execWebsocketAction(ctx, wc, userID, mt, message)
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx context.Context, wc *wsConn, userID string, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, wc, userID, msg)
	default:
		h.sendError(wc, "unknown message type")
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, wc *wsConn, userID string, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		logger.Log.Errorf("json unmarshal error:", err)
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch req.Action {
	//正在輸入/停止輸入
	case string(domain.Typing):
		h.typingUC.HandleTyping(ctx, req.ConversationID, userID, req.IsTyping)
		resp.Success = true

	//收到訊息 ack
	case string(domain.MarkDelivered):
		if err := h.statusUC.MarkAsDelivered(ctx, req.MessageID, userID); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
		}

	//已讀 ack
	case string(domain.MarkRead):
		if err := h.statusUC.MarkAsRead(ctx, req.MessageID, userID); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
		}

	//整個 conversation 標記已讀
	case string(domain.ReadConversation):
		if err := h.statusUC.MarkConversationAsRead(ctx, req.ConversationID, userID); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
		}

	//reconnect 補收
	case string(domain.UserOnline):
		h.statusUC.HandleUserOnline(ctx, userID)
		resp.Success = true

	//批次查 presence
	case string(domain.GetPresence):
		resp.Success = true
		resp.Payload["presences"] = h.presenceUC.GetBulkPresence(req.UserIDs)

	//查 conversation typing set
	case string(domain.GetTyping):
		resp.Success = true
		resp.Payload["typing_users"] = h.typingUC.GetTypingUsers(req.ConversationID)

	default:
		resp.Error = "unknown action"
	}

	h.sendResponse(wc, resp)
}

// forwardBroadcast 把 pub/sub 收到的 update 轉給這條連線的 client
func (h *ChatWebsocketHandler) forwardBroadcast(wc *wsConn, channel string, payload []byte) {
	var action domain.Action
	switch {
	case channel == domain.PresenceChannel:
		action = domain.PresenceUpdated
	case strings.HasPrefix(channel, domain.TypingChannelPrefix):
		action = domain.TypingUpdated
	case strings.HasPrefix(channel, domain.UserChannelPrefix):
		action = domain.StatusUpdated
	default:
		return
	}

	resp := domain.WSResponse{
		Action:  string(action),
		Success: true,
		Payload: map[string]interface{}{
			"data": json.RawMessage(payload),
		},
	}
	if err := wc.writeJSON(resp); err != nil {
		logger.Log.Errorf("forward broadcast error:", err)
	}
}

func (h *ChatWebsocketHandler) sendResponse(wc *wsConn, resp domain.WSResponse) {
	if err := wc.writeJSON(resp); err != nil {
		logger.Log.Errorf("write response error:", err)
	}
}

func (h *ChatWebsocketHandler) sendError(wc *wsConn, errMsg string) {
	h.sendResponse(wc, domain.WSResponse{Success: false, Error: errMsg})
}
