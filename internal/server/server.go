package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatvault/config"
	"chatvault/internal/handler"
	"chatvault/internal/middleware"
	"chatvault/internal/redis"
	"chatvault/internal/services"
	"chatvault/internal/transport/httpdto"
	"chatvault/internal/ws"
	"chatvault/pkg/database"
	"chatvault/pkg/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
	db         *gorm.DB
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	File    *handler.FileHandler
	Message *handler.MessageHandler
	Room    *handler.RoomHandler
	WS      *ws.Handler
}

func New(cfg *config.Config, l *logger.Logger, db *gorm.DB) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
		db:     db,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService, limiter *redis.RateLimiter) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(s.db); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	authRequired := middleware.AuthMiddleware(authService)

	auth := s.engine.Group("/v1/auth")
	if limiter != nil {
		auth.Use(middleware.AuthRateLimitMiddleware(limiter))
	}
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
	}

	files := s.engine.Group("/v1/files", authRequired)
	{
		upload := files.Group("")
		if limiter != nil {
			upload.Use(middleware.UploadRateLimitMiddleware(limiter))
		}
		upload.POST("/upload", handlers.File.Upload)
		upload.POST("/presign", handlers.File.Presign)
		upload.POST("/profile/presign", handlers.File.PresignProfile)
		upload.POST("/profile/complete", handlers.File.CompleteProfile)

		files.GET("", handlers.File.ListMine)
		files.GET("/download/:id", handlers.File.Download)
		files.GET("/view/:id", handlers.File.View)
		files.DELETE("/:id", handlers.File.Delete)
	}

	rooms := s.engine.Group("/v1/rooms", authRequired)
	{
		rooms.POST("", handlers.Room.Create)
		rooms.GET("", handlers.Room.ListMine)
		rooms.GET("/:id/participants", handlers.Room.ListParticipants)
		rooms.POST("/:id/participants", handlers.Room.AddParticipant)
		rooms.DELETE("/:id/participants/:userId", handlers.Room.RemoveParticipant)
		rooms.GET("/:id/messages", handlers.Message.ListRoom)
	}

	messages := s.engine.Group("/v1/messages", authRequired)
	{
		messages.POST("", handlers.Message.Send)
		messages.DELETE("/:id", handlers.Message.Delete)
	}

	s.engine.GET("/ws", authRequired, handlers.WS.Serve)
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
