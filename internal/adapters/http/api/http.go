// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/okian/kira/internal/adapters/repository"
)

const (
	defaultLeaderboardLimit = 20
	defaultMaxLimit         = 1000
	defaultMaxBatch         = 1000
	defaultMaxBodyBytes     = 4 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	EventDependencies
	LeaderboardDependencies
	UserDependencies
	TierDependencies
	ClaimDependencies
	StatsProvider
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = repository.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	leaderboardHandler *LeaderboardHandler
	userHandler        *UserHandler
	tierHandler        *TierHandler
	claimHandler       *ClaimHandler
}

// Option configures the API server.
type Option func(*config)

type config struct {
	maxLimit     int
	maxBatch     int
	maxBodyBytes int64
}

// WithMaxLimit caps the leaderboard page size.
func WithMaxLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// WithMaxBatch caps the number of events accepted per batch request.
func WithMaxBatch(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBatch = n
		}
	}
}

// WithMaxBodyBytes caps request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := config{
		maxLimit:     defaultMaxLimit,
		maxBatch:     defaultMaxBatch,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		eventsHandler:      NewEventsHandler(deps, cfg.maxBatch, cfg.maxBodyBytes),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.maxLimit),
		userHandler:        NewUserHandler(deps),
		tierHandler:        NewTierHandler(deps),
		claimHandler:       NewClaimHandler(deps, cfg.maxBodyBytes),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/events/batch", MetricsMiddleware(s.eventsHandler.HandlePostBatch, "events_batch"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/users/", MetricsMiddleware(s.userHandler.HandleGetUser, "users"))
	mux.HandleFunc("/tiers", MetricsMiddleware(s.tierHandler.HandleGetTiers, "tiers"))
	mux.HandleFunc("/airdrop/claims", MetricsMiddleware(s.claimHandler.HandlePostClaim, "airdrop_claims"))
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

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	return dec.Decode(v)
}
