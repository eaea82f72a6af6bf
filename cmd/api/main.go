package main

import (
	"context"
	"log"
	"time"

	"taskchat/config"
	"taskchat/internal/auth"
	"taskchat/internal/handler"
	"taskchat/internal/proxy"
	taskredis "taskchat/internal/redis"
	"taskchat/internal/relay"
	"taskchat/internal/repository"
	"taskchat/internal/server"
	"taskchat/internal/services"
	"taskchat/internal/storage"
	"taskchat/internal/websocket"
	"taskchat/pkg/crypto"
	"taskchat/pkg/database"
	"taskchat/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	logMode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		logMode = logger.ProductionMode
	}
	l := logger.New(logMode)
	logger.SetGlobalLogger(l)

	database.Connect(cfg)
	if err := database.Migrate(database.DB); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	redisClient := taskredis.NewClient(taskredis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})

	cipher, err := crypto.NewContentCipher(cfg.ContentKeyHex)
	if err != nil {
		log.Fatalf("Failed to build content cipher: %v", err)
	}

	messageRepo := repository.NewMessageRepository(database.DB)
	readStateRepo := repository.NewReadStateRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.DB)
	access := proxy.NewAccessControl(conversationRepo)

	sequencer := taskredis.NewSequencer(redisClient)
	limiter := taskredis.NewRateLimiter(redisClient, taskredis.RateLimitConfig{
		WindowSeconds: cfg.RateWindowSeconds,
		MaxMessages:   cfg.RateMaxMessages,
	})
	typing := taskredis.NewTypingTracker(redisClient)
	presence := taskredis.NewPresenceStore(redisClient,
		time.Duration(cfg.PresenceOnlineTTL)*time.Second,
		time.Duration(cfg.PresenceOfflineTTL)*time.Second,
	)

	hub := websocket.NewHub()
	rel := relay.New(cfg.InstanceID,
		taskredis.NewPublisher(redisClient),
		taskredis.NewSubscriber(redisClient),
		presence, hub, l,
	)

	var s3 *storage.Client
	if cfg.S3Bucket != "" {
		s3, err = storage.NewClient(context.Background(), storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PresignTTL: 15 * time.Minute,
		})
		if err != nil {
			log.Fatalf("Failed to build s3 client: %v", err)
		}
	}

	chatService := services.NewChatService(services.ChatServiceDeps{
		MessageRepo:      messageRepo,
		ReadStateRepo:    readStateRepo,
		ConversationRepo: conversationRepo,
		Access:           access,
		Sequencer:        sequencer,
		Limiter:          limiter,
		Typing:           typing,
		Presence:         presence,
		Cipher:           cipher,
		Hub:              hub,
		Relay:            rel,
		Previews:         services.NewLinkPreviewFetcher(10 * time.Second),
		Log:              l,
	})
	attachmentService := services.NewAttachmentService(s3)

	retention := services.NewRetentionWorker(messageRepo,
		time.Duration(cfg.RetentionDays)*24*time.Hour, l)
	retention.Start()
	defer retention.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)
	go func() {
		if err := rel.Run(ctx); err != nil && ctx.Err() == nil {
			l.Errorf("relay stopped: %v", err)
		}
	}()

	tokens := auth.NewTokenManager(cfg.JWTSecret, 24*time.Hour)
	wsHandler := websocket.NewHandler(tokens, hub,
		websocket.NewRoomAuthorizer(conversationRepo),
		presence, chatService, conversationRepo, cfg.InstanceID, l,
	)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Chat: handler.NewChatHandler(chatService, attachmentService),
		WS:   wsHandler,
	}, tokens)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
