package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rancho-chat/config"
	"rancho-chat/internal/handler"
	"rancho-chat/internal/middleware"
	"rancho-chat/internal/transport/httpdto"
	"rancho-chat/internal/websocket"
	"rancho-chat/pkg/logger"

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
	Auth         *handler.AuthHandler
	Conversation *handler.ConversationHandler
	Message      *handler.MessageHandler
	Invitation   *handler.InvitationHandler
	WebSocket    *websocket.Handler
}

// HealthCheck probes one backing store for /health.
type HealthCheck func(ctx context.Context) error

type Dependencies struct {
	Auth middleware.Authenticator
	// RateLimiter is nil when redis is disabled.
	RateLimiter  middleware.RateLimiter
	HealthChecks map[string]HealthCheck
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	if l == nil {
		l = logger.NewNop()
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, deps Dependencies) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})
	s.engine.GET("/health", s.health(deps.HealthChecks))

	api := s.engine.Group("/api")
	if deps.RateLimiter != nil {
		api.Use(middleware.RateLimitMiddleware(deps.RateLimiter))
	}

	api.POST("/signup", handlers.Auth.Signup)
	api.POST("/login", handlers.Auth.Login)

	authed := api.Group("", middleware.AuthMiddleware(deps.Auth, "", s.logger))
	{
		sendLimit := []gin.HandlerFunc{}
		if deps.RateLimiter != nil {
			sendLimit = append(sendLimit, middleware.MessageRateLimitMiddleware(deps.RateLimiter))
		}

		authed.GET("/conversations", handlers.Conversation.List)
		authed.POST("/conversations", handlers.Conversation.Create)
		authed.DELETE("/conversations/:id", handlers.Conversation.Remove)
		authed.GET("/conversations/:id/messages", handlers.Conversation.ListMessages)
		authed.POST("/conversations/:id/messages", append(sendLimit, handlers.Message.Send)...)
		authed.GET("/conversations/:id/messages/:messageId", handlers.Message.Get)
		authed.DELETE("/conversations/:id/members/:userId", handlers.Conversation.RemoveParticipant)
		authed.POST("/conversations/:id/invitations", handlers.Invitation.AskToJoin)
		authed.GET("/conversations/:id/invitations", handlers.Invitation.ListForConversation)
		authed.POST("/conversations/:id/export", handlers.Conversation.Export)

		authed.GET("/invitations", handlers.Invitation.ListMine)
		authed.POST("/invitations/:id/accept", handlers.Invitation.Accept)
		authed.POST("/invitations/:id/decline", handlers.Invitation.Decline)
		authed.DELETE("/invitations/:id", handlers.Invitation.Remove)

		authed.DELETE("/messages/:id", handlers.Message.Remove)
	}

	// The websocket handler authenticates on its own so browsers can pass
	// the token as a query parameter.
	if handlers.WebSocket != nil {
		api.GET("/ws", handlers.WebSocket.Connect)
	}
}

func (s *Server) health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{}
		healthy := true
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				s.logger.WithContext(c.Request.Context()).Warnf("health check %s failed: %s", name, err)
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "up"
		}
		if !healthy {
			c.JSON(http.StatusServiceUnavailable, httpdto.Response[gin.H]{Success: false, Data: status, Error: "unhealthy", Code: "UNHEALTHY"})
			return
		}
		status["status"] = "healthy"
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(status))
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Errorf("Error in starting the server: %s", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		return err
	}

	s.logger.Infof("Server stopped gracefully")
	return nil
}
