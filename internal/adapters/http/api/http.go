// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	service "github.com/okian/pong/internal/app"
	"github.com/okian/pong/internal/domain/model"
	"github.com/okian/pong/internal/domain/types"
	"github.com/okian/pong/pkg/logger"
)

const (
	defaultLeaderboardLimit = 10
	defaultMaxLimit         = 100
	defaultHistoryLimit     = 20
	requestTimeout          = 30 * time.Second
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PlayerDependencies
	MatchDependencies
	LeaderboardDependencies
	StatsProvider
}

// PlayerDependencies covers the player registry and per-player reads.
type PlayerDependencies interface {
	RegisterPlayer(ctx context.Context, name string) (model.Player, error)
	Player(ctx context.Context, id string) (model.Player, error)
	Players(ctx context.Context) ([]model.Player, error)
	MatchesFor(ctx context.Context, playerID string, limit int) ([]model.Match, error)
	RatingHistory(ctx context.Context, playerID string, limit int) ([]model.RatingChange, error)
}

// MatchDependencies scores matches.
type MatchDependencies interface {
	RecordMatch(ctx context.Context, req service.MatchRequest) (service.MatchResult, error)
	Preview(ctx context.Context, req service.MatchRequest) (service.MatchResult, error)
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	ops       *OpsHandler
	players   *PlayersHandler
	matches   *MatchesHandler
	standings *StandingsHandler

	corsOrigins []string
	logger      logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	maxLeaderboardLimit int
	maxHistoryLimit     int
	corsOrigins         []string
	logger              logger.Logger
}

// WithMaxLeaderboardLimit caps GET /leaderboard?limit.
func WithMaxLeaderboardLimit(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLeaderboardLimit = n
		}
	}
}

// WithMaxHistoryLimit caps the per-player history and match listings.
func WithMaxHistoryLimit(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxHistoryLimit = n
		}
	}
}

// WithCORSOrigins sets the origins allowed to call the API from a browser.
func WithCORSOrigins(origins []string) ServerOption {
	return func(c *serverConfig) {
		c.corsOrigins = origins
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	cfg := serverConfig{
		maxLeaderboardLimit: defaultMaxLimit,
		maxHistoryLimit:     defaultMaxLimit,
		logger:              logger.Named("api"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Server{
		ops:         NewOpsHandler(deps),
		players:     NewPlayersHandler(deps, cfg.maxHistoryLimit),
		matches:     NewMatchesHandler(deps),
		standings:   NewStandingsHandler(deps, cfg.maxLeaderboardLimit),
		corsOrigins: cfg.corsOrigins,
		logger:      cfg.logger,
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Idempotency-Key"},
			ExposedHeaders: []string{"Content-Length"},
			MaxAge:         300,
		}))
	}
	r.Use(s.requestLogger, MetricsMiddleware)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, NewKind("api.route", ErrNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})

	r.Get("/healthz", s.ops.HandleHealth)
	r.Get("/metrics", s.ops.HandleMetrics)
	r.Get("/stats", s.ops.HandleStats)

	r.Route("/players", func(r chi.Router) {
		r.Post("/", s.players.HandleCreate)
		r.Get("/", s.players.HandleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.players.HandleGet)
			r.Get("/rank", s.standings.HandleRank)
			r.Get("/history", s.players.HandleHistory)
			r.Get("/matches", s.players.HandleMatches)
		})
	})

	r.Post("/matches", s.matches.HandleRecord)
	r.Post("/matches/preview", s.matches.HandlePreview)

	r.Get("/leaderboard", s.standings.HandleTop)
}

// Handler returns a router with every API route registered.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	s.Register(ctx, r)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		fields := []logger.Field{
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Duration("duration", time.Since(start)),
			logger.String("requestID", middleware.GetReqID(r.Context())),
		}
		if ww.Status() >= http.StatusInternalServerError {
			s.logger.Error(r.Context(), "http request failed", fields...)
			return
		}
		s.logger.Debug(r.Context(), "http request", fields...)
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure classifies err and writes the matching error response.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}
