// Package http provides the HTTP API for answerd.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/answerd/internal/responder"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Responder answers questions. Satisfied by *responder.Service.
type Responder interface {
	Respond(ctx context.Context, req responder.Request) (responder.Response, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server provides HTTP endpoints for answerd.
type Server struct {
	echo      *echo.Echo
	responder Responder
	logger    *zap.Logger
	config    *Config
}

// NewServer creates a new HTTP server.
func NewServer(resp Responder, logger *zap.Logger, cfg *Config) (*Server, error) {
	if resp == nil {
		return nil, fmt.Errorf("responder cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9180,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:      e,
		responder: resp,
		logger:    logger,
		config:    cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/respond", s.handleRespond)
}

// RespondRequest is the request body for POST /api/v1/respond.
type RespondRequest struct {
	Query    string                 `json:"query"`
	TaskType string                 `json:"task_type"`
	Metadata map[string]interface{} `json:"metadata"`
	Language string                 `json:"language"`
}

// RespondResponse is the response body for POST /api/v1/respond.
type RespondResponse struct {
	Text             string                 `json:"text,omitempty"`
	Status           string                 `json:"status"`
	MessageKey       string                 `json:"message_key,omitempty"`
	Detail           map[string]interface{} `json:"detail,omitempty"`
	ContextDocuments int                    `json:"context_documents"`
	PerCollection    map[string]int         `json:"per_collection"`
	PerDomain        map[string]int         `json:"per_domain"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleRespond runs one response cycle.
//
// Guardrail and empty-context outcomes return 200 with a distinguishable
// status so clients can branch on them; only configuration failures
// surface as 500.
func (s *Server) handleRespond(c echo.Context) error {
	var req RespondRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid respond request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}

	resp, err := s.responder.Respond(c.Request().Context(), responder.Request{
		Query:    req.Query,
		TaskType: req.TaskType,
		Metadata: req.Metadata,
		Language: req.Language,
	})
	if err != nil {
		s.logger.Error("respond failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, RespondResponse{
		Text:             resp.Text,
		Status:           string(resp.Status),
		MessageKey:       resp.MessageKey,
		Detail:           resp.Detail,
		ContextDocuments: resp.ContextDocuments,
		PerCollection:    resp.PerCollection,
		PerDomain:        resp.PerDomain,
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
