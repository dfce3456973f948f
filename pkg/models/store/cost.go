package store

import "time"

// CostRecord is one persisted bucket amount of a cluster cost computation.
type CostRecord struct {
	ID          string
	RunID       string
	ClusterID   string
	Bucket      string
	Amount      string // decimal string, exact
	Currency    string
	WindowStart *time.Time
	WindowEnd   *time.Time
	ComputedAt  time.Time
}

type CostStats struct {
	RecordsCount   int64
	LastComputedAt *time.Time
}
