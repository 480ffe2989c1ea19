package app

import (
	"context"
	"time"

	"chat_server/internal/chat/domain"
	"chat_server/internal/chat/repository"
	errprocess "chat_server/pkg/err"
	"chat_server/pkg/logger"
)

const (
	// groupSizeThreshold 超過這個人數改用 counter 記帳，不追蹤個別 id
	groupSizeThreshold = 20
	// batchUpdateSize markConversationAsRead 一批處理的訊息數
	batchUpdateSize = 50
	// deliveryCatchUpWindow 重新上線後補 delivered 的回溯範圍
	deliveryCatchUpWindow = 24 * time.Hour
)

// MessageStatusUseCase 負責 delivered/read receipt
// 狀態機 per message per recipient：SENT -> DELIVERED -> READ，只進不退
type MessageStatusUseCase struct {
	msgRepo     repository.MessageRepository
	convRepo    repository.ConversationRepository
	broadcaster Broadcaster
}

// NewMessageStatusUseCase init message status use case
func NewMessageStatusUseCase(
	msgRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	broadcaster Broadcaster,
) *MessageStatusUseCase {
	return &MessageStatusUseCase{
		msgRepo:     msgRepo,
		convRepo:    convRepo,
		broadcaster: broadcaster,
	}
}

// MarkAsDelivered 記錄 userID 已收到訊息
// 自己的訊息或查不到的 message/conversation 都是 no-op，receipt 不是業務交易
func (uc *MessageStatusUseCase) MarkAsDelivered(ctx context.Context, messageID, userID string) error {
	msg, conv := uc.resolve(ctx, messageID)
	if msg == nil || conv == nil {
		return nil
	}
	if msg.FromUserID == userID {
		return nil
	}

	isLargeGroup := len(conv.Members) > groupSizeThreshold

	var err error
	if isLargeGroup {
		// 重複 ack 在 counter 模式會多算一次，可接受的 over-count
		err = uc.msgRepo.IncrementDeliveredCount(ctx, messageID)
	} else {
		err = uc.msgRepo.AddToDeliveredIds(ctx, messageID, userID)
	}
	if err != nil {
		return err
	}

	uc.broadcastStatusUpdate(ctx, msg, len(conv.Members), isLargeGroup)
	return nil
}

// MarkAsRead 記錄 userID 已讀訊息
func (uc *MessageStatusUseCase) MarkAsRead(ctx context.Context, messageID, userID string) error {
	msg, conv := uc.resolve(ctx, messageID)
	if msg == nil || conv == nil {
		return nil
	}
	if msg.FromUserID == userID {
		return nil
	}

	isLargeGroup := len(conv.Members) > groupSizeThreshold

	var err error
	if isLargeGroup {
		err = uc.msgRepo.IncrementReadCount(ctx, messageID, userID)
	} else {
		err = uc.msgRepo.AddToReadIds(ctx, messageID, userID)
	}
	if err != nil {
		return err
	}

	uc.broadcastStatusUpdate(ctx, msg, len(conv.Members), isLargeGroup)
	return nil
}

// MarkConversationAsRead 一次把整個 conversation 標記已讀
// 分批(50)處理，避免長 backlog 一口氣打爆
func (uc *MessageStatusUseCase) MarkConversationAsRead(ctx context.Context, conversationID, userID string) error {
	unread, err := uc.msgRepo.FindUnreadMessages(ctx, conversationID, userID)
	if err != nil {
		logger.Log.Errorf("Failed to load unread messages:", err)
		return nil
	}

	for start := 0; start < len(unread); start += batchUpdateSize {
		end := start + batchUpdateSize
		if end > len(unread) {
			end = len(unread)
		}
		for _, msg := range unread[start:end] {
			if err := uc.MarkAsRead(ctx, msg.ID, userID); err != nil {
				logger.Log.Errorf("Failed to mark message read:", err)
			}
		}
	}
	return nil
}

// HandleUserOnline 重新上線補收 24h 內漏掉的 delivered ack
func (uc *MessageStatusUseCase) HandleUserOnline(ctx context.Context, userID string) {
	conversations, err := uc.convRepo.FindUserConversations(ctx, userID)
	if err != nil {
		logger.Log.Errorf("Failed to load user conversations:", err)
		return
	}
	cutoff := time.Now().Add(-deliveryCatchUpWindow)

	for _, conv := range conversations {
		recent, err := uc.msgRepo.FindRecentUndelivered(ctx, conv.ID, userID, cutoff)
		if err != nil {
			logger.Log.Errorf("Failed to load undelivered messages:", err)
			continue
		}
		for _, msg := range recent {
			if err := uc.MarkAsDelivered(ctx, msg.ID, userID); err != nil {
				logger.Log.Errorf("Failed to mark message delivered:", err)
			}
		}
	}
}

// GetMessageStatus 重新計算訊息當下的狀態，status 永遠是算出來的不落地
func (uc *MessageStatusUseCase) GetMessageStatus(ctx context.Context, messageID string) (*domain.MessageStatusUpdate, error) {
	msg, err := uc.msgRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, errprocess.Set("message not found: " + messageID)
	}
	conv, err := uc.convRepo.FindByID(ctx, msg.ConversationID)
	if err != nil {
		return nil, errprocess.Set("conversation not found: " + msg.ConversationID)
	}

	update := buildStatusUpdate(msg, len(conv.Members), len(conv.Members) > groupSizeThreshold)
	return &update, nil
}

func (uc *MessageStatusUseCase) resolve(ctx context.Context, messageID string) (*domain.Message, *domain.Conversation) {
	msg, err := uc.msgRepo.GetMessage(ctx, messageID)
	if err != nil {
		logger.Log.Debug("receipt skipped, message not found: " + messageID)
		return nil, nil
	}
	conv, err := uc.convRepo.FindByID(ctx, msg.ConversationID)
	if err != nil {
		logger.Log.Debug("receipt skipped, conversation not found: " + msg.ConversationID)
		return msg, nil
	}
	return msg, conv
}

// broadcastStatusUpdate 重新讀一次訊息算 aggregate，只發給原 sender 的 private queue
func (uc *MessageStatusUseCase) broadcastStatusUpdate(ctx context.Context, msg *domain.Message, totalMembers int, isLargeGroup bool) {
	updated, err := uc.msgRepo.GetMessage(ctx, msg.ID)
	if err != nil {
		logger.Log.Errorf("Failed to reload message for status update:", err)
		return
	}

	statusUpdate := buildStatusUpdate(updated, totalMembers, isLargeGroup)
	if err := uc.broadcaster.Publish(domain.UserChannel(msg.FromUserID), statusUpdate); err != nil {
		logger.Log.Errorf("Failed to broadcast status update:", err)
	}
}

func buildStatusUpdate(msg *domain.Message, totalMembers int, isLargeGroup bool) domain.MessageStatusUpdate {
	deliveredCount := len(msg.DeliveredIds)
	readCount := len(msg.ReadIds)
	if isLargeGroup {
		deliveredCount = msg.DeliveredCount
		readCount = msg.ReadCount
	}

	lastActivity := msg.LastReadAt
	if lastActivity == nil {
		lastActivity = msg.DeliveredAt
	}

	deliveryInfo := domain.MessageDeliveryInfo{
		TotalMembers:   totalMembers - 1,
		DeliveredCount: deliveredCount,
		ReadCount:      readCount,
		IsGroupChat:    totalMembers > 2,
		LastActivity:   lastActivity,
	}

	var status domain.MessageStatus
	switch {
	case deliveryInfo.ReadCount > 0:
		status = domain.StatusRead
	case deliveryInfo.DeliveredCount > 0:
		status = domain.StatusDelivered
	default:
		status = domain.StatusSent
	}

	return domain.MessageStatusUpdate{
		MessageID:    msg.ID,
		Status:       status,
		DeliveryInfo: deliveryInfo,
		Timestamp:    time.Now(),
	}
}
