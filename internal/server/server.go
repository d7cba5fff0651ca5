// Package server exposes the analysis pipeline and applicant sessions over
// HTTP.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/spigell/resume-gate/internal/extract"
	"github.com/spigell/resume-gate/internal/listing"
	"github.com/spigell/resume-gate/internal/pipeline"
	"github.com/spigell/resume-gate/internal/session"
	"github.com/spigell/resume-gate/internal/submission"
)

const (
	DefaultRateLimit  = 30
	DefaultRateWindow = time.Minute
	DefaultBodyLimit  = 6 * 1024 * 1024
)

// Submitter delivers applications. *submission.Client satisfies it.
type Submitter interface {
	Submit(ctx context.Context, app submission.Application) (*submission.Receipt, error)
}

type Config struct {
	RateLimit    int
	RateWindow   time.Duration
	BodyLimit    int
	MaxFileSize  int64
	AllowOrigins string
}

type Deps struct {
	Pipeline  *pipeline.Pipeline
	Sessions  *session.Store
	Submitter Submitter
	Listing   listing.Listing
	Logger    *zap.Logger
}

type Server struct {
	app         *fiber.App
	pipeline    *pipeline.Pipeline
	sessions    *session.Store
	submitter   Submitter
	job         listing.Listing
	maxFileSize int64
	logger      *zap.Logger
}

func New(cfg Config, deps Deps) *Server {
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = extract.DefaultMaxSize
	}
	if cfg.AllowOrigins == "" {
		cfg.AllowOrigins = "*"
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewStore(session.DefaultTTL)
	}

	s := &Server{
		pipeline:    deps.Pipeline,
		sessions:    deps.Sessions,
		submitter:   deps.Submitter,
		job:         deps.Listing,
		maxFileSize: cfg.MaxFileSize,
		logger:      deps.Logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "resume-gate",
		BodyLimit:             cfg.BodyLimit,
		Immutable:             true,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(requestid.New())
	s.app.Use(requestLogger(s.logger))
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	s.app.Use(rateLimiter(cfg.RateLimit, cfg.RateWindow))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.health)

	api := s.app.Group("/api/v1")
	api.Get("/job", s.getJob)
	api.Post("/analyze", s.analyze)

	sessions := api.Group("/sessions")
	sessions.Post("/", s.createSession)
	sessions.Get("/:id", s.getSession)
	sessions.Delete("/:id", s.deleteSession)
	sessions.Put("/:id/resume", s.uploadResume)
	sessions.Delete("/:id/resume", s.removeResume)
	sessions.Post("/:id/eligibility", s.updateEligibility)
	sessions.Post("/:id/submit", s.submit)
}

// App exposes the underlying fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status, message, details := classify(err)

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("handling request", zap.String("path", c.Path()), zap.Error(err))
	} else {
		s.logger.Debug("handling request", zap.String("path", c.Path()), zap.Error(err))
	}

	return failure(c, status, message, details)
}
