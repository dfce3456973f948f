package syncstatus

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/de-tools/emr-cost/pkg/models/api"
	"github.com/de-tools/emr-cost/pkg/models/store"
	"github.com/de-tools/emr-cost/pkg/services/workflow"
	"github.com/rs/zerolog"
)

// StatsReader reports what the cost store holds.
type StatsReader interface {
	Stats(ctx context.Context) (store.CostStats, error)
}

type Handler struct {
	ctrl  workflow.Controller
	stats StatsReader
}

// NewHandler builds the sync status handler. stats may be nil.
func NewHandler(ctrl workflow.Controller, stats StatsReader) *Handler {
	return &Handler{ctrl: ctrl, stats: stats}
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	progress, running := h.ctrl.Status()
	response := api.SyncStatus{
		Running:           running,
		ProcessedClusters: progress.ProcessedClusters,
		SkippedBatches:    progress.SkippedBatches,
		LastRunID:         progress.LastRunID,
	}
	if !progress.LastProcessedAt.IsZero() {
		response.LastProcessedAt = &progress.LastProcessedAt
	}

	if h.stats != nil {
		stats, err := h.stats.Stats(r.Context())
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to read cost store stats")
		} else {
			response.StoredRecords = stats.RecordsCount
			response.LastStoredAt = stats.LastComputedAt
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().
			Err(err).
			Msg("failed to encode sync status")
	}
}
