package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"chat_server/internal/chat/app"
	"chat_server/internal/chat/domain"
	"chat_server/internal/chat/repository"
	"chat_server/internal/chat/router"
	"chat_server/pkg/database"
	"chat_server/pkg/logger"
	"chat_server/pkg/token"

	testtool "chat_server/pkg/test_tool"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
)

const integrationAddr = "127.0.0.1:18089"

// TestRealtimeFlowIntegration 端到端驗證：容器版 mongo/redis + fiber websocket
// 需要 docker，預設跳過，INTEGRATION_TEST=true 才跑
func TestRealtimeFlowIntegration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("set INTEGRATION_TEST=true to run container-backed tests")
	}
	logger.SetNewNop()
	ctx := context.Background()

	// 1. 啟動 mongo / redis 容器
	mongoContainer, mongoHost, mongoPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "mongo:6.0",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	})
	require.NoError(t, err)
	defer mongoContainer.Terminate(ctx)

	redisContainer, redisHost, redisPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "redis:7.0",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})
	require.NoError(t, err)
	defer redisContainer.Terminate(ctx)

	mongoDB, err := database.NewMongoDB(ctx, database.Connection{
		ConnectStr:    fmt.Sprintf("mongodb://%s:%s", mongoHost, mongoPort),
		RetryCount:    3,
		RetryInterval: time.Second,
	}, "chat_test")
	require.NoError(t, err)
	defer mongoDB.Close(ctx)

	// 測試直接連單機 redis，不走 sentinel
	redisClient := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", redisHost, redisPort)})
	require.NoError(t, redisClient.Ping(ctx).Err())
	defer redisClient.Close()

	// 2. 種子資料：兩個 user、一個 conversation、一則未 ack 的訊息
	_, err = mongoDB.Database.Collection("users").InsertMany(ctx, []interface{}{
		bson.M{"_id": "alice", "full_name": "Alice Chen"},
		bson.M{"_id": "bob", "full_name": "Bob Lin"},
	})
	require.NoError(t, err)
	_, err = mongoDB.Database.Collection("conversations").InsertOne(ctx, bson.M{
		"_id": "conv-1", "name": "daily", "members": []string{"alice", "bob"},
	})
	require.NoError(t, err)
	_, err = mongoDB.Database.Collection("messages").InsertOne(ctx, bson.M{
		"_id": "msg-1", "conversation_id": "conv-1", "from_user_id": "alice",
		"content": "hello", "sent_at": time.Now().Add(-time.Minute),
		"delivered_count": 0, "read_count": 0,
	})
	require.NoError(t, err)

	// 3. 組裝 service 並啟動 fiber
	msgRepo := repository.NewMongoMessageRepository(mongoDB.Database)
	convRepo := repository.NewMongoConversationRepository(mongoDB.Database)
	userRepo := repository.NewMongoUserRepository(mongoDB.Database)
	pub := repository.NewRedisPubSub(redisClient)

	presenceUC := app.NewPresenceUseCase(pub)
	typingUC := app.NewTypingUseCase(userRepo, pub)
	statusUC := app.NewMessageStatusUseCase(msgRepo, convRepo, pub)
	wsHandler := app.NewChatWebsocketHandler(presenceUC, typingUC, statusUC, convRepo, pub)

	r := fiber.New(fiber.Config{DisableStartupMessage: true})
	router.RegisterRoutes(r, wsHandler, presenceUC, typingUC, statusUC)
	go func() {
		_ = r.Listen(integrationAddr)
	}()
	defer r.Shutdown()
	time.Sleep(500 * time.Millisecond)

	aliceToken, err := token.GenerateJWT("alice", "user", "chat_test")
	require.NoError(t, err)
	bobToken, err := token.GenerateJWT("bob", "user", "chat_test")
	require.NoError(t, err)

	// 4. alice 先連線，訂閱自己的 private queue 和 conv-1 的 typing channel
	aliceConn := dialWS(t, aliceToken)
	defer aliceConn.Close()
	time.Sleep(500 * time.Millisecond)

	// 5. bob 連線，HandleUserOnline 會自動補 msg-1 的 delivered ack
	bobConn := dialWS(t, bobToken)
	defer bobConn.Close()

	update := waitForPush(t, aliceConn, string(domain.StatusUpdated))
	var statusUpdate domain.MessageStatusUpdate
	require.NoError(t, json.Unmarshal(update, &statusUpdate))
	assert.Equal(t, "msg-1", statusUpdate.MessageID)
	assert.Equal(t, domain.StatusDelivered, statusUpdate.Status)
	assert.Equal(t, 1, statusUpdate.DeliveryInfo.DeliveredCount)

	// 6. bob 開始輸入，alice 要收到完整 typing set
	require.NoError(t, bobConn.WriteJSON(domain.WSRequest{
		Action: string(domain.Typing), ConversationID: "conv-1", IsTyping: true,
	}))

	update = waitForPush(t, aliceConn, string(domain.TypingUpdated))
	var typingUpdate domain.TypingUpdateMessage
	require.NoError(t, json.Unmarshal(update, &typingUpdate))
	assert.Equal(t, "conv-1", typingUpdate.ConversationID)
	require.Len(t, typingUpdate.TypingUsers, 1)
	assert.Equal(t, "Bob Lin", typingUpdate.TypingUsers[0].UserName)

	// 7. bob 已讀，alice 要收到 READ
	require.NoError(t, bobConn.WriteJSON(domain.WSRequest{
		Action: string(domain.MarkRead), MessageID: "msg-1",
	}))

	update = waitForPush(t, aliceConn, string(domain.StatusUpdated))
	require.NoError(t, json.Unmarshal(update, &statusUpdate))
	assert.Equal(t, domain.StatusRead, statusUpdate.Status)
	assert.Equal(t, 1, statusUpdate.DeliveryInfo.ReadCount)

	// 8. presence 查詢，兩個 user 都在線
	online := presenceUC.GetBulkPresence([]string{"alice", "bob"})
	assert.Equal(t, domain.PresenceOnline, online["alice"])
	assert.Equal(t, domain.PresenceOnline, online["bob"])
}

func dialWS(t *testing.T, jwt string) *websocket.Conn {
	t.Helper()
	url := fmt.Sprintf("ws://%s/ws?auth=%s", integrationAddr, jwt)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

// waitForPush 讀到指定 action 的 push 為止，其他 push(例如 presence_updated)略過
func waitForPush(t *testing.T, conn *websocket.Conn, action string) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))

	for time.Now().Before(deadline) {
		var resp struct {
			Action  string `json:"action"`
			Success bool   `json:"success"`
			Payload struct {
				Data json.RawMessage `json:"data"`
			} `json:"payload"`
		}
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read websocket push: %v", err)
		}
		if resp.Action == action {
			return resp.Payload.Data
		}
	}
	t.Fatalf("no %s push before deadline", action)
	return nil
}
