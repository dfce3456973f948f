package api

import "time"

// ClusterCost is the JSON view of a cluster cost computation. Amounts are
// decimal strings in USD.
type ClusterCost struct {
	ClusterID        string            `json:"cluster_id"`
	AvailabilityZone string            `json:"availability_zone"`
	Topology         string            `json:"topology"`
	WindowStart      *time.Time        `json:"window_start,omitempty"`
	WindowEnd        *time.Time        `json:"window_end,omitempty"`
	Breakdown        map[string]string `json:"breakdown"`
	Total            string            `json:"total"`
	Currency         string            `json:"currency"`
	SkippedInstances int               `json:"skipped_instances"`
	ComputedAt       time.Time         `json:"computed_at"`
}

type TotalCost struct {
	CreatedAfter  time.Time     `json:"created_after"`
	CreatedBefore time.Time     `json:"created_before"`
	Total         string        `json:"total"`
	Currency      string        `json:"currency"`
	Clusters      []ClusterCost `json:"clusters"`
}

type Error struct {
	Error string `json:"error"`
}

// CostRecord is one saved bucket of a past computation.
type CostRecord struct {
	RunID       string     `json:"run_id"`
	ClusterID   string     `json:"cluster_id"`
	Bucket      string     `json:"bucket"`
	Amount      string     `json:"amount"`
	Currency    string     `json:"currency"`
	WindowStart *time.Time `json:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty"`
	ComputedAt  time.Time  `json:"computed_at"`
}

type SyncStatus struct {
	Running           bool       `json:"running"`
	ProcessedClusters int64      `json:"processed_clusters"`
	SkippedBatches    int64      `json:"skipped_batches,omitempty"`
	LastProcessedAt   *time.Time `json:"last_processed_at,omitempty"`
	LastRunID         string     `json:"last_run_id,omitempty"`
	StoredRecords     int64      `json:"stored_records,omitempty"`
	LastStoredAt      *time.Time `json:"last_stored_at,omitempty"`
}
