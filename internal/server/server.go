package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskchat/config"
	"taskchat/internal/auth"
	"taskchat/internal/handler"
	"taskchat/internal/middleware"
	"taskchat/internal/transport/httpdto"
	"taskchat/internal/websocket"
	"taskchat/pkg/database"
	"taskchat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Chat *handler.ChatHandler
	WS   *websocket.Handler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
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
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, tokens *auth.TokenManager) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	// Token rides the query string on upgrade; browsers cannot set headers
	// on WebSocket requests.
	s.engine.GET("/ws", handlers.WS.Connect)

	authed := middleware.AuthMiddleware(tokens)

	chat := s.engine.Group("/v1/chat", authed)
	{
		chat.POST("/messages", handlers.Chat.Send)
		chat.PATCH("/messages/:id", handlers.Chat.Edit)
		chat.DELETE("/messages/:id", handlers.Chat.Delete)
		chat.POST("/messages/:id/reactions", handlers.Chat.React)
		chat.POST("/messages/:id/pin", handlers.Chat.Pin)
		chat.POST("/messages/:id/delivered", handlers.Chat.Delivered)

		chat.GET("/conversations/:id/messages", handlers.Chat.History)
		chat.GET("/conversations/:id/search", handlers.Chat.Search)
		chat.GET("/conversations/:id/pinned", handlers.Chat.Pinned)
		chat.GET("/conversations/:id/members", handlers.Chat.Members)
		chat.GET("/conversations/:id/sync", handlers.Chat.Sync)
		chat.GET("/conversations/:id/unread", handlers.Chat.Unread)
		chat.POST("/conversations/:id/read", handlers.Chat.MarkRead)

		chat.POST("/attachments/presign", handlers.Chat.PresignAttachment)
	}
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
