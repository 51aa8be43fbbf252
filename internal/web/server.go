// Package web exposes the HTTP surface: the public escalation API consumed
// by the chatbot and its clients, and the admin API behind the staff UI.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/primary"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/version"
)

// Server is the supportd web server.
type Server struct {
	escalations primary.EscalationService
	faqs        primary.FAQService
	logger      *zap.Logger
	router      *gin.Engine
	httpServer  *http.Server
}

// NewServer creates a web server wired to the given services.
func NewServer(escalations primary.EscalationService, faqs primary.FAQService, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		escalations: escalations,
		faqs:        faqs,
		logger:      logger,
		router:      router,
	}
	router.Use(s.requestLogger())

	router.GET("/health", s.handleHealth)

	// Public API consumed by the chatbot pipeline and end-user clients.
	api := router.Group("/api/v1")
	{
		api.POST("/escalations", s.handleCreateEscalation)
		api.GET("/escalations/:message_id/response", s.handlePollResponse)
		api.POST("/escalations/:message_id/rate", s.handleRateStaffAnswer)
	}

	// Admin API behind the staff UI.
	admin := router.Group("/api/v1/admin")
	{
		admin.GET("/escalations", s.handleListEscalations)
		admin.GET("/escalations/:id", s.handleGetEscalation)
		admin.POST("/escalations/:id/claim", s.handleClaimEscalation)
		admin.POST("/escalations/:id/respond", s.handleRespondEscalation)
		admin.POST("/escalations/:id/close", s.handleCloseEscalation)
		admin.POST("/escalations/:id/promote", s.handlePromoteEscalation)
		admin.GET("/stats", s.handleStats)
		admin.GET("/faqs", s.handleListFAQs)
		admin.GET("/faqs/:id", s.handleGetFAQ)
		admin.DELETE("/faqs/:id", s.handleDeleteFAQ)
	}

	return s
}

// Run starts the web server and blocks until it stops.
func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("HTTP server listening", zap.String("addr", addr))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.String(),
	})
}
