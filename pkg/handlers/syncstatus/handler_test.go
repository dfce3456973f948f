package syncstatus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/de-tools/emr-cost/pkg/models/api"
	"github.com/de-tools/emr-cost/pkg/models/store"
	"github.com/de-tools/emr-cost/pkg/services/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubController struct {
	progress workflow.RunnerProgress
	running  bool
}

func (s stubController) Start(context.Context) error  { return nil }
func (s stubController) Cancel(context.Context) error { return nil }
func (s stubController) Status() (workflow.RunnerProgress, bool) {
	return s.progress, s.running
}

type stubStats struct {
	stats store.CostStats
	err   error
}

func (s stubStats) Stats(context.Context) (store.CostStats, error) {
	return s.stats, s.err
}

func TestHandler_GetStatus(t *testing.T) {
	last := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	h := NewHandler(stubController{
		progress: workflow.RunnerProgress{
			ProcessedClusters: 4,
			SkippedBatches:    1,
			LastProcessedAt:   last,
			LastRunID:         "run-9",
		},
		running: true,
	}, nil)

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sync", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got api.SyncStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Running)
	assert.Equal(t, int64(4), got.ProcessedClusters)
	assert.Equal(t, int64(1), got.SkippedBatches)
	assert.Equal(t, "run-9", got.LastRunID)
	require.NotNil(t, got.LastProcessedAt)
	assert.True(t, got.LastProcessedAt.Equal(last))
}

func TestHandler_GetStatus_NotStarted(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(stubController{}, nil).GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sync", nil))

	var got api.SyncStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Running)
	assert.Nil(t, got.LastProcessedAt)
}

func TestHandler_GetStatus_WithStoreStats(t *testing.T) {
	stored := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
	h := NewHandler(stubController{running: true}, stubStats{
		stats: store.CostStats{RecordsCount: 40, LastComputedAt: &stored},
	})

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sync", nil))

	var got api.SyncStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(40), got.StoredRecords)
	require.NotNil(t, got.LastStoredAt)
	assert.True(t, got.LastStoredAt.Equal(stored))
}

func TestHandler_GetStatus_StoreStatsError(t *testing.T) {
	h := NewHandler(stubController{running: true}, stubStats{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sync", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got api.SyncStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Running)
	assert.Zero(t, got.StoredRecords)
	assert.Nil(t, got.LastStoredAt)
}
