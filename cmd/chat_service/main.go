package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"chat_server/internal/chat/app"
	"chat_server/internal/chat/repository"
	"chat_server/internal/chat/router"
	"chat_server/pkg/config"
	"chat_server/pkg/database"
	"chat_server/pkg/logger"
	testtool "chat_server/pkg/test_tool"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

const (
	presenceSweepInterval = 60 * time.Second
	typingSweepInterval   = 1 * time.Second
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	testtool.StartPprof()

	// 1. 建立 Mongo 連線 (messages / conversations / users)
	ctx := context.Background()
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// 2. 建立 Redis 連線 (Pub/Sub broadcast)
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// 3. 初始化 Repository
	msgRepo := repository.NewMongoMessageRepository(mongo.Database)
	convRepo := repository.NewMongoConversationRepository(mongo.Database)
	userRepo := repository.NewMongoUserRepository(mongo.Database)
	pub := repository.NewRedisPubSub(redisClient)

	// 4. 初始化 UseCases
	presenceUC := app.NewPresenceUseCase(pub)
	typingUC := app.NewTypingUseCase(userRepo, pub)
	statusUC := app.NewMessageStatusUseCase(msgRepo, convRepo, pub)

	// 5. 背景 sweep：presence 60s 降級/清除、typing 1s 過期
	presenceSweep := app.NewScheduler("presence", presenceSweepInterval, presenceUC.CheckStatuses)
	typingSweep := app.NewScheduler("typing", typingSweepInterval, typingUC.CleanupExpired)
	presenceSweep.Start()
	typingSweep.Start()
	defer presenceSweep.Stop()
	defer typingSweep.Stop()

	// 6. 啟動 Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	// 注册路由
	wsHandler := app.NewChatWebsocketHandler(presenceUC, typingUC, statusUC, convRepo, pub)
	router.RegisterRoutes(r, wsHandler, presenceUC, typingUC, statusUC)

	// Listen
	port := ":" + cfg.Port
	log.Printf("Chat Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
