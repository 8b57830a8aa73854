// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"

	"github.com/okian/vor/internal/adapters/http/swagger"
	"github.com/okian/vor/internal/domain/dataset"
	"github.com/okian/vor/internal/domain/derive"
	"github.com/okian/vor/internal/domain/geo"
	"github.com/okian/vor/internal/domain/market"
	"github.com/okian/vor/internal/domain/model"
	"github.com/okian/vor/internal/domain/topic"
	"github.com/okian/vor/internal/domain/types"
	"github.com/okian/vor/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Recommend(ctx context.Context, q model.Query) ([]model.VenueSummary, error)
	Market(ctx context.Context, req market.Request) (market.Report, error)
	ScoreManual(ctx context.Context, in types.ManualInput) (types.ManualScore, error)
	StatsProvider
}

// Entry mirrors the read shape of one ranked venue.
type Entry = types.Entry

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS allow list.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithRequestTimeout bounds each query request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source for defaulting request dates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	recommendHandler *RecommendHandler
	marketHandler    *MarketHandler
	manualHandler    *ManualHandler

	origins []string
	timeout time.Duration
	now     func() time.Time
	logger  logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		origins: []string{"*"},
		timeout: 30 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("api")
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.recommendHandler = NewRecommendHandler(deps, s)
	s.marketHandler = NewMarketHandler(deps, s)
	s.manualHandler = NewManualHandler(deps, s)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", MetricsMiddleware(s.healthHandler.HandleRoot, "root"))
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /vor", MetricsMiddleware(s.recommendHandler.HandleRecommend, "vor"))
	mux.HandleFunc("POST /mar", MetricsMiddleware(s.marketHandler.HandleMarket, "mar"))
	mux.HandleFunc("POST /score_manual", MetricsMiddleware(s.manualHandler.HandleScoreManual, "score_manual"))
	swagger.Register(mux)
}

// Handler returns the routed mux behind request-id and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	c := cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	})
	return RequestID(c(mux))
}

func (s *Server) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
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

// decode reads a JSON body into v and runs its validation tags.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return WrapKind("api.decode", ErrBadRequest, err)
	}
	return validateStruct(v)
}

// noMatchCodes names the 404 body code for each empty stage.
var noMatchCodes = map[model.Stage]string{
	model.StageTopic:    "no_topic_data",
	model.StageLocation: "no_location_data",
	model.StageRadius:   "no_venues_in_radius",
	model.StageScoring:  "no_scorable_events",
}

// writeServiceError maps domain error kinds onto HTTP responses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var nm *model.NoMatchError
	switch {
	case errors.As(err, &nm):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Code:    noMatchCodes[nm.Stage],
			Message: nm.Error(),
			Stage:   string(nm.Stage),
		})
	case errors.Is(err, topic.ErrInvalidTopic):
		writeError(w, http.StatusBadRequest, "invalid_topic", err)
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrValidation):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, derive.ErrUndefinedMetric):
		writeError(w, http.StatusBadRequest, "undefined_metric", err)
	case errors.Is(err, geo.ErrLocationUnresolved):
		writeError(w, http.StatusUnprocessableEntity, "location_unresolved", err)
	case errors.Is(err, dataset.ErrNoSnapshot):
		writeError(w, http.StatusServiceUnavailable, "dataset_unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	default:
		s.logger.Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("request_id", RequestIDFrom(r.Context())),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", errors.New("internal error"))
	}
}
