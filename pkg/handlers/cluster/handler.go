package cluster

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/de-tools/emr-cost/pkg/adapters"
	"github.com/de-tools/emr-cost/pkg/models/api"
	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/de-tools/emr-cost/pkg/services/cost"
	costsql "github.com/de-tools/emr-cost/pkg/store/sql"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// DateLayout is the date format used by the CLI, also accepted next to RFC3339.
const DateLayout = "2006-01-02 15:04"

type Handler struct {
	calculator cost.Calculator
	store      costsql.CostStore
}

// NewHandler creates the cluster cost handler. store may be nil, in which case
// the history endpoint answers 404 and nothing is persisted.
func NewHandler(calculator cost.Calculator, store costsql.CostStore) *Handler {
	return &Handler{
		calculator: calculator,
		store:      store,
	}
}

func (h *Handler) GetClusterCost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	clusterID := chi.URLParam(r, "clusterID")

	start, err := ParseTime(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid 'start': %v", err))
		return
	}
	end, err := ParseTime(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid 'end': %v", err))
		return
	}
	if start != nil && end != nil && end.Before(*start) {
		writeError(w, r, http.StatusBadRequest, "'end' is before 'start'")
		return
	}

	result, err := h.calculator.ComputeClusterCost(ctx, clusterID, start, end)
	if err != nil {
		logger.Error().Err(err).Str("cluster_id", clusterID).Msg("cluster cost computation failed")
		writeError(w, r, statusFor(err), err.Error())
		return
	}

	if h.store != nil && r.URL.Query().Get("save") == "true" {
		runID, err := h.store.Save(ctx, result)
		if err != nil {
			logger.Error().Err(err).Str("cluster_id", clusterID).Msg("failed to save cluster cost")
			writeError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("X-Run-Id", runID)
	}

	writeJSON(w, r, adapters.MapClusterCostDomainToApi(*result))
}

func (h *Handler) GetTotalCost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	after, err := ParseTime(r.URL.Query().Get("created_after"))
	if err != nil || after == nil {
		writeError(w, r, http.StatusBadRequest, "'created_after' is required in RFC3339 or YYYY-MM-DD HH:MM format")
		return
	}
	before, err := ParseTime(r.URL.Query().Get("created_before"))
	if err != nil || before == nil {
		writeError(w, r, http.StatusBadRequest, "'created_before' is required in RFC3339 or YYYY-MM-DD HH:MM format")
		return
	}

	total, costs, err := h.calculator.ComputeTotalCostByDates(ctx, *after, *before)
	if err != nil {
		logger.Error().Err(err).Msg("total cost computation failed")
		writeError(w, r, statusFor(err), err.Error())
		return
	}

	period := domain.TimePeriod{Start: after, End: before}
	writeJSON(w, r, adapters.MapTotalCostDomainToApi(total, costs, period))
}

// GetCostHistory lists the saved cost records of a cluster, newest run first.
func (h *Handler) GetCostHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	clusterID := chi.URLParam(r, "clusterID")

	if h.store == nil {
		writeError(w, r, http.StatusNotFound, "cost history storage is not configured")
		return
	}

	records, err := h.store.ListByCluster(ctx, clusterID)
	if err != nil {
		logger.Error().Err(err).Str("cluster_id", clusterID).Msg("failed to list cost history")
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	response := make([]api.CostRecord, 0, len(records))
	for _, rec := range records {
		response = append(response, adapters.MapCostRecordStoreToApi(rec))
	}
	writeJSON(w, r, response)
}

// ParseTime accepts an empty value (nil), RFC3339 or DateLayout in UTC.
func ParseTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("expected RFC3339 or %q, got %q", DateLayout, value)
	}
	return &t, nil
}

func statusFor(err error) int {
	if errors.Is(err, cost.ErrInvalidWindow) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(api.Error{Error: msg}); err != nil {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Msg("failed to encode error response")
	}
}
