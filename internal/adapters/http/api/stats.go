package api

import (
	"context"
	"net/http"

	"github.com/okian/vor/internal/domain/dataset"
)

// StatsProvider defines the interface for getting dataset statistics.
type StatsProvider interface {
	Stats(ctx context.Context) (dataset.Stats, error)
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsProvider.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "dataset_unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
