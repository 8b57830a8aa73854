package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/vor/internal/domain/model"
	"github.com/okian/vor/internal/domain/normalize"
	"github.com/okian/vor/internal/domain/topic"
	"github.com/okian/vor/internal/domain/types"
)

// RecommendDependencies defines the interface for venue recommendations.
type RecommendDependencies interface {
	Recommend(ctx context.Context, q model.Query) ([]model.VenueSummary, error)
}

// RecommendHandler handles recommendation requests.
type RecommendHandler struct {
	deps RecommendDependencies
	srv  *Server
}

// NewRecommendHandler creates a new recommendation handler.
func NewRecommendHandler(deps RecommendDependencies, srv *Server) *RecommendHandler {
	return &RecommendHandler{deps: deps, srv: srv}
}

// recommendRequest is the body of POST /vor.
type recommendRequest struct {
	Topic      string  `json:"topic" validate:"required"`
	City       string  `json:"city" validate:"required_without=PostalCode"`
	State      string  `json:"state" validate:"required_without=PostalCode"`
	PostalCode string  `json:"postal_code" validate:"omitempty,max=10"`
	Miles      float64 `json:"miles" validate:"gte=0,lte=500"`
	// Now overrides the evaluation instant (RFC 3339 or a date).
	Now string `json:"now"`
}

func (req recommendRequest) query() (model.Query, error) {
	const op = "api.recommend"
	t, err := topic.Parse(req.Topic)
	if err != nil {
		return model.Query{}, err
	}
	q := model.Query{
		Topic:      t,
		City:       strings.TrimSpace(req.City),
		State:      strings.ToUpper(strings.TrimSpace(req.State)),
		PostalCode: normalize.PostalCode(req.PostalCode),
		Miles:      req.Miles,
	}
	if s := strings.TrimSpace(req.Now); s != "" {
		now, ok := parseInstant(s)
		if !ok {
			return model.Query{}, WrapKind(op, ErrBadRequest, &fieldError{Field: "now", Value: s})
		}
		q.Now = now
	}
	return q, nil
}

type recommendResponse struct {
	Topic    string        `json:"topic"`
	Location string        `json:"location"`
	Miles    float64       `json:"miles,omitempty"`
	Venues   []types.Entry `json:"venues"`
}

// HandleRecommend handles POST /vor requests.
func (h *RecommendHandler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommend"
	var req recommendRequest
	if err := decode(r, &req); err != nil {
		h.srv.writeServiceError(w, r, op, err)
		return
	}
	q, err := req.query()
	if err != nil {
		h.srv.writeServiceError(w, r, op, err)
		return
	}

	ctx, cancel := h.srv.withTimeout(r)
	defer cancel()
	ranked, err := h.deps.Recommend(ctx, q)
	if err != nil {
		h.srv.writeServiceError(w, r, op, err)
		return
	}

	loc := q.City + ", " + q.State
	if q.ByPostalCode() {
		loc = q.PostalCode
	}
	writeJSON(w, http.StatusOK, recommendResponse{
		Topic:    q.Topic.Code(),
		Location: loc,
		Miles:    q.Miles,
		Venues:   types.NewEntries(ranked),
	})
}

// parseInstant accepts RFC 3339 timestamps and the date layouts the
// normalizer understands.
func parseInstant(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return normalize.ParseDate(s)
}

type fieldError struct {
	Field string
	Value string
}

func (e *fieldError) Error() string {
	return e.Field + " " + strconv.Quote(e.Value) + " is not a valid value"
}
