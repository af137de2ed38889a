package main

import (
	"context"
	"log"

	"chatvault/config"
	"chatvault/internal/domain/file"
	"chatvault/internal/domain/message"
	"chatvault/internal/domain/outbox"
	"chatvault/internal/domain/room"
	"chatvault/internal/domain/user"
	"chatvault/internal/events"
	"chatvault/internal/handler"
	vaultredis "chatvault/internal/redis"
	"chatvault/internal/repository"
	"chatvault/internal/server"
	"chatvault/internal/services"
	"chatvault/internal/storage"
	"chatvault/internal/ws"
	"chatvault/pkg/database"
	"chatvault/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	appMode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		appMode = logger.ProductionMode
	}
	l := logger.New(appMode)
	logger.SetGlobalLogger(l)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&user.User{},
		&room.Room{},
		&room.Participant{},
		&message.Message{},
		&file.File{},
		&outbox.OutboxEvent{},
	); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	store, err := storage.NewLocal(cfg.StorageRoot, cfg.StagingDir)
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}

	redisClient := vaultredis.NewClient(vaultredis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	limiter := vaultredis.NewRateLimiter(redisClient, vaultredis.DefaultRateLimitConfig())
	bus := events.NewRedisBus(redisClient)

	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	fileRepo := repository.NewFileRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The S3 client is optional; without it the presign endpoints report
	// service unavailable and local uploads still work.
	var presigner services.Presigner
	if cfg.S3Bucket != "" {
		s3Client, err := storage.NewS3Client(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
			PresignTTL: cfg.S3PresignTTL,
		})
		if err != nil {
			log.Fatalf("Failed to initialize S3 client: %v", err)
		}
		presigner = s3Client
	}

	authService := services.NewAuthService(userRepo, cfg)
	publisher := services.NewEventPublisher(outboxRepo)
	fileService := services.NewFileService(fileRepo, messageRepo, roomRepo, store, storage.GenerateStorageID, publisher, l)
	presignService := services.NewPresignService(fileRepo, userRepo, presigner, storage.GenerateStorageID, l)
	messageService := services.NewMessageService(db, messageRepo, roomRepo, fileRepo, publisher)
	roomService := services.NewRoomService(roomRepo)

	hub := ws.NewHub()
	bridge := ws.NewBridge(bus, hub, l)
	go bridge.Run(ctx)

	worker := services.NewOutboxWorker(outboxRepo, bus, l)
	go worker.Run(ctx)

	srv := server.New(cfg, l, db)
	srv.SetupRoutes(&server.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		File:    handler.NewFileHandler(fileService, presignService, store, cfg.MaxUploadBytes, cfg.S3PresignTTL, l),
		Message: handler.NewMessageHandler(messageService),
		Room:    handler.NewRoomHandler(roomService),
		WS:      ws.NewHandler(hub, roomService, l),
	}, authService, limiter)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
