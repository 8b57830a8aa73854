package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/vor/internal/domain/market"
	"github.com/okian/vor/internal/domain/topic"
	"github.com/okian/vor/internal/domain/types"
)

// MarketDependencies defines the interface for market reports.
type MarketDependencies interface {
	Market(ctx context.Context, req market.Request) (market.Report, error)
}

// MarketHandler handles market analysis requests.
type MarketHandler struct {
	deps MarketDependencies
	srv  *Server
}

// NewMarketHandler creates a new market analysis handler.
func NewMarketHandler(deps MarketDependencies, srv *Server) *MarketHandler {
	return &MarketHandler{deps: deps, srv: srv}
}

// marketRequest is the body of POST /mar.
type marketRequest struct {
	Topic     string `json:"topic" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	EventDate string `json:"event_date"`
}

func (req marketRequest) request() (market.Request, error) {
	const op = "api.market"
	t, err := topic.Parse(req.Topic)
	if err != nil {
		return market.Request{}, err
	}
	out := market.Request{
		Topic: t,
		City:  strings.TrimSpace(req.City),
		State: strings.TrimSpace(req.State),
	}
	if s := strings.TrimSpace(req.EventDate); s != "" {
		d, ok := parseInstant(s)
		if !ok {
			return market.Request{}, WrapKind(op, ErrBadRequest, &fieldError{Field: "event_date", Value: s})
		}
		out.Date = d
	}
	return out, nil
}

// HandleMarket handles POST /mar requests.
func (h *MarketHandler) HandleMarket(w http.ResponseWriter, r *http.Request) {
	const op = "api.market"
	var req marketRequest
	if err := decode(r, &req); err != nil {
		h.srv.writeServiceError(w, r, op, err)
		return
	}
	mreq, err := req.request()
	if err != nil {
		h.srv.writeServiceError(w, r, op, err)
		return
	}
	mreq.Now = h.srv.now()

	ctx, cancel := h.srv.withTimeout(r)
	defer cancel()
	rep, err := h.deps.Market(ctx, mreq)
	if err != nil {
		h.srv.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewMarketReport(rep))
}
