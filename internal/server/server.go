// Package server exposes the friction service over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/suykerbuyk/flywheel/internal/logging"
	"github.com/suykerbuyk/flywheel/internal/service"
	"github.com/suykerbuyk/flywheel/internal/store"
	"github.com/suykerbuyk/flywheel/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// Server serves the flywheel JSON API along with /health and /metrics.
type Server struct {
	app  *fiber.App
	svc  *service.Service
	log  *slog.Logger
	addr string
}

// New builds the fiber app and registers every route. A nil logger
// discards output.
func New(svc *service.Service, log *slog.Logger, addr string) *Server {
	if log == nil {
		log = logging.Discard()
	}

	s := &Server{svc: svc, log: log, addr: addr}
	s.app = fiber.New(fiber.Config{
		AppName:               "flywheel",
		BodyLimit:             1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(s.observe)
	s.registerRoutes()
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.app.ShutdownWithContext(shutdownCtx)
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.health)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api")
	api.Post("/classify", s.classify)
	api.Get("/summary", s.summary)

	frictions := api.Group("/frictions")
	frictions.Post("", s.createFriction)
	frictions.Get("", s.listFrictions)
	frictions.Get("/:id", s.showFriction)
	frictions.Delete("/:id", s.deleteFriction)

	analyses := api.Group("/analyses")
	analyses.Post("", s.createAnalysis)
	analyses.Get("", s.listAnalyses)
	analyses.Get("/:id", s.showAnalysis)
	analyses.Get("/:id/points", s.analysisPoints)
	analyses.Delete("/:id", s.deleteAnalysis)

	api.Get("/compare", s.compare)
}

// observe records request counts and latency per matched route.
func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}
	route := c.Route().Path
	telemetry.HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
	telemetry.HTTPLatency.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
	s.log.Debug("http request", "method", c.Method(), "path", c.Path(), "status", status,
		"duration", time.Since(start))
	return err
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	var verr *service.ValidationError
	var ferr *fiber.Error
	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound
	case errors.As(err, &ferr):
		return ferr.Code
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		s.log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		msg = "internal error"
	}
	return c.Status(status).JSON(errorResponse{Error: msg})
}
