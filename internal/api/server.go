// Package api provides the HTTP API server and handlers for the event engine.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/retroarena/eventengine/internal/metrics"
	"github.com/retroarena/eventengine/internal/ratelimit"
	"github.com/retroarena/eventengine/internal/service"
	"github.com/retroarena/eventengine/internal/sse"
)

// Services groups the engine services exposed over HTTP.
type Services struct {
	Events        *service.EventService
	Participation *service.ParticipationService
	Teams         *service.TeamService
	Media         *service.MediaGate
	Moderation    *service.ModerationService
	Leaderboard   *service.LeaderboardService
}

// Pinger is a dependency the health check can ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the collaborators that are not services.
type Config struct {
	Tokens      TokenVerifier
	SSE         *sse.Manager
	Metrics     *metrics.Metrics
	RateLimiter *ratelimit.KeyedRateLimiter

	// Checks are pinged by GET /health, keyed by component name.
	Checks map[string]Pinger

	// DataPath is checked for free space by GET /health when non-empty.
	DataPath string

	// FilesRoot serves local blobs under /files/ when non-empty.
	FilesRoot string

	// MediaURL maps a blob reference to a client URL. Defaults to /files/ for
	// local references.
	MediaURL func(ref string) string

	CORSOrigins []string

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	cfg      Config
	router   *chi.Mux
	api      huma.API
	now      func() time.Time
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	s := &Server{
		services: services,
		cfg:      cfg,
		router:   chi.NewRouter(),
		now:      clock,
		logger:   logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Retro Arena Event Engine", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI generation.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if s.cfg.Tokens != nil {
		s.router.Use(authMiddleware(s.cfg.Tokens, s.now))
	}
	if s.cfg.RateLimiter != nil {
		s.router.Use(RateLimitMiddleware(s.cfg.RateLimiter, s.logger))
	}
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerEventRoutes()
	s.registerParticipationRoutes()
	s.registerTeamRoutes()
	s.registerMediaRoutes()
	s.registerLeaderboardRoutes()

	// Multipart uploads and streams bypass huma.
	s.router.Post("/api/v1/media", s.handleUploadMedia)

	if s.cfg.SSE != nil {
		s.router.Method(http.MethodGet, "/api/v1/events/stream", sse.NewHandler(s.cfg.SSE, streamIdentity, s.logger))
	}
	if s.cfg.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.cfg.Metrics.Handler())
	}
	if s.cfg.FilesRoot != "" {
		fs := http.StripPrefix("/files/", http.FileServer(http.Dir(s.cfg.FilesRoot)))
		s.router.Method(http.MethodGet, "/files/*", fs)
	}
}
