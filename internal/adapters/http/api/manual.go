package api

import (
	"bytes"
	"context"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/okian/vor/internal/domain/normalize"
	"github.com/okian/vor/internal/domain/types"
)

// ManualDependencies defines the interface for scoring a single event.
type ManualDependencies interface {
	ScoreManual(ctx context.Context, in types.ManualInput) (types.ManualScore, error)
}

// ManualHandler handles manual scoring requests.
type ManualHandler struct {
	deps ManualDependencies
	srv  *Server
}

// NewManualHandler creates a new manual scoring handler.
func NewManualHandler(deps ManualDependencies, srv *Server) *ManualHandler {
	return &ManualHandler{deps: deps, srv: srv}
}

// flexNumber accepts a JSON number or a string such as "$18.50" or "62%".
type flexNumber string

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexNumber(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexNumber(n.String())
	return nil
}

// manualRequest is the body of POST /score_manual.
type manualRequest struct {
	Venue              string     `json:"venue"`
	CPA                flexNumber `json:"cpa" validate:"required"`
	FulfillmentPercent flexNumber `json:"fulfillment_percent" validate:"required"`
	AttendanceRate     flexNumber `json:"attendance_rate" validate:"required"`
}

func (req manualRequest) input() (types.ManualInput, error) {
	const op = "api.score_manual"
	in := types.ManualInput{Venue: req.Venue}
	var ok bool
	if in.CPA, ok = normalize.ParseNumber(string(req.CPA)); !ok {
		return in, WrapKind(op, ErrBadRequest, &fieldError{Field: "cpa", Value: string(req.CPA)})
	}
	if in.FulfillmentRatio, ok = normalize.ParseRate(string(req.FulfillmentPercent)); !ok {
		return in, WrapKind(op, ErrBadRequest, &fieldError{Field: "fulfillment_percent", Value: string(req.FulfillmentPercent)})
	}
	if in.AttendanceRate, ok = normalize.ParseRate(string(req.AttendanceRate)); !ok {
		return in, WrapKind(op, ErrBadRequest, &fieldError{Field: "attendance_rate", Value: string(req.AttendanceRate)})
	}
	return in, nil
}

// HandleScoreManual handles POST /score_manual requests.
func (h *ManualHandler) HandleScoreManual(w http.ResponseWriter, r *http.Request) {
	const op = "api.score_manual"
	var req manualRequest
	if err := decode(r, &req); err != nil {
		h.srv.writeServiceError(w, r, op, err)
		return
	}
	in, err := req.input()
	if err != nil {
		h.srv.writeServiceError(w, r, op, err)
		return
	}
	out, err := h.deps.ScoreManual(r.Context(), in)
	if err != nil {
		h.srv.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
