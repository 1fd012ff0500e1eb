// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes question answering and document management over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ErrAskerRequired is returned by NewServer when Services.Asker is nil.
	ErrAskerRequired = errors.New("asker is required")

	// ErrIndexerRequired is returned by NewServer when Services.Indexer is nil.
	ErrIndexerRequired = errors.New("indexer is required")

	// ErrStatusesRequired is returned by NewServer when Services.Statuses is nil.
	ErrStatusesRequired = errors.New("status source is required")

	// ErrCatalogRequired is returned by NewServer when Services.Catalog is nil.
	ErrCatalogRequired = errors.New("catalog repository is required")
)

const speechUnavailable = "speech requested but not enabled"

// Asker answers questions. Implemented by query.Engine.
type Asker interface {
	Ask(ctx context.Context, question string, filter core.QueryFilter, minRelevance float32) (*core.AnswerResult, error)
}

// Indexer enqueues documents. Implemented by dispatch.Dispatcher.
type Indexer interface {
	RequestIndexing(ctx context.Context, candidates []*core.Document) (int, error)
	ForceIndexing(ctx context.Context, candidates []*core.Document) (int, error)
}

// StatusSource reads pipeline statuses. Implemented by status.Tracker.
type StatusSource interface {
	GetRecord(ctx context.Context, id core.DocumentID) (*core.StatusRecord, error)
	GetStatuses(ctx context.Context, ids []core.DocumentID) (map[core.DocumentID]core.PipelineStatus, error)
	List(ctx context.Context) ([]*core.StatusRecord, error)
}

// Speaker renders answers to audio. Implemented by speech.Renderer.
type Speaker interface {
	Render(ctx context.Context, result *core.AnswerResult)
}

// Services are the collaborators behind the routes. Speech may be nil.
type Services struct {
	Asker    Asker
	Indexer  Indexer
	Statuses StatusSource
	Catalog  storage.CatalogRepository
	Speech   Speaker
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// DefaultMinRelevance applies when an ask request carries none.
	DefaultMinRelevance float32
}

// Server provides the HTTP API.
type Server struct {
	echo   *echo.Echo
	svc    Services
	config *Config
	logger *slog.Logger
}

// NewServer creates a new HTTP server. A nil config listens on
// localhost:8080 with a relevance floor of 0.8.
func NewServer(svc Services, cfg *Config, logger *slog.Logger) (*Server, error) {
	if svc.Asker == nil {
		return nil, ErrAskerRequired
	}
	if svc.Indexer == nil {
		return nil, ErrIndexerRequired
	}
	if svc.Statuses == nil {
		return nil, ErrStatusesRequired
	}
	if svc.Catalog == nil {
		return nil, ErrCatalogRequired
	}
	if cfg == nil {
		cfg = &Config{
			Host:                "localhost",
			Port:                8080,
			DefaultMinRelevance: 0.8,
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Info("http request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID))
			return nil
		}
	})

	s := &Server{
		echo:   e,
		svc:    svc,
		config: cfg,
		logger: logger,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/ask", s.handleAsk)

	docs := v1.Group("/documents")
	docs.GET("", s.handleListDocuments)
	docs.POST("/index", s.handleIndex)
	docs.POST("/status", s.handleStatuses)
	docs.GET("/:id/status", s.handleStatus)
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", "addr", addr)
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, ErrorResponse{Error: msg})
}

// askStatus maps an Ask error to an HTTP status.
func askStatus(err error) int {
	// Stage timeouts also wrap the stage error, so the deadline wins.
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrRetrievalFailed), errors.Is(err, core.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
