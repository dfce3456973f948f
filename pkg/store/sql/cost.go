package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/emr-cost/pkg/adapters"
	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/de-tools/emr-cost/pkg/models/store"
	"github.com/de-tools/emr-cost/pkg/store/duckdb"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

const duckDBScheme = "duckdb://"

const CostTableSchema = `
	CREATE TABLE IF NOT EXISTS cluster_costs (
		id UUID PRIMARY KEY,
		run_id UUID NOT NULL,
		cluster_id VARCHAR(64) NOT NULL,
		bucket VARCHAR(32) NOT NULL,
		amount NUMERIC(20, 10) NOT NULL,
		currency VARCHAR(3) NOT NULL DEFAULT 'USD',
		window_start TIMESTAMPTZ NULL,
		window_end TIMESTAMPTZ NULL,
		computed_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cluster_costs_cluster ON cluster_costs (cluster_id, computed_at DESC);
`

const insertCostRecord = `
	INSERT INTO cluster_costs (
		id, run_id, cluster_id, bucket, amount, currency, window_start, window_end, computed_at
	) VALUES ($1, $2, $3, $4, CAST($5 AS DECIMAL(20, 10)), $6, $7, $8, $9)
`

const selectCostRecords = `
	SELECT CAST(id AS VARCHAR), CAST(run_id AS VARCHAR), cluster_id, bucket, CAST(amount AS VARCHAR), currency,
		window_start, window_end, computed_at
	FROM cluster_costs
	WHERE cluster_id = $1
	ORDER BY computed_at DESC, bucket
`

const selectCostStats = `SELECT COUNT(*), MAX(computed_at) FROM cluster_costs`

// CostStore persists computed cluster cost breakdowns, one row per bucket.
type CostStore interface {
	// Save stores every bucket of cost under a new run id and returns it.
	Save(ctx context.Context, cost *domain.ClusterCost) (string, error)
	ListByCluster(ctx context.Context, clusterID string) ([]store.CostRecord, error)
	Stats(ctx context.Context) (store.CostStats, error)
}

type costStore struct {
	db    *sql.DB
	newID func() string
}

func NewCostStore(db *sql.DB) CostStore {
	return &costStore{db: db, newID: uuid.NewString}
}

// Open connects to the database at dsn and creates the schema. A duckdb://path
// dsn opens an embedded DuckDB file, anything else is handed to the Postgres driver.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if path, ok := strings.CutPrefix(dsn, duckDBScheme); ok {
		db, err := duckdb.NewDB(duckdb.Settings{DbPath: path})
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return db, nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, CostTableSchema); err != nil {
		return fmt.Errorf("failed to create cost schema: %w", err)
	}
	return nil
}

func (s *costStore) Save(ctx context.Context, cost *domain.ClusterCost) (string, error) {
	runID := s.newID()
	records := adapters.MapClusterCostDomainToStoreRecords(*cost, runID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, r := range records {
		_, err := tx.ExecContext(ctx, insertCostRecord,
			s.newID(), r.RunID, r.ClusterID, r.Bucket, r.Amount, r.Currency,
			r.WindowStart, r.WindowEnd, r.ComputedAt,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert %s cost of %s: %w", r.Bucket, r.ClusterID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit cost records: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("run_id", runID).
		Str("cluster_id", cost.ClusterID).
		Int("records", len(records)).
		Msg("cluster cost saved")
	return runID, nil
}

func (s *costStore) ListByCluster(ctx context.Context, clusterID string) ([]store.CostRecord, error) {
	logger := zerolog.Ctx(ctx)

	rows, err := s.db.QueryContext(ctx, selectCostRecords, clusterID)
	if err != nil {
		return nil, fmt.Errorf("cost records query failed: %w", err)
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			logger.Warn().Err(err).Msg("failed to close cost records rows")
		}
	}(rows)

	var records []store.CostRecord
	for rows.Next() {
		var (
			r                      store.CostRecord
			windowStart, windowEnd sql.NullTime
		)
		if err := rows.Scan(
			&r.ID, &r.RunID, &r.ClusterID, &r.Bucket, &r.Amount, &r.Currency,
			&windowStart, &windowEnd, &r.ComputedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cost record: %w", err)
		}
		if windowStart.Valid {
			r.WindowStart = &windowStart.Time
		}
		if windowEnd.Valid {
			r.WindowEnd = &windowEnd.Time
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cost records: %w", err)
	}
	return records, nil
}

func (s *costStore) Stats(ctx context.Context) (store.CostStats, error) {
	var (
		stats store.CostStats
		last  sql.NullTime
	)
	if err := s.db.QueryRowContext(ctx, selectCostStats).Scan(&stats.RecordsCount, &last); err != nil {
		return store.CostStats{}, fmt.Errorf("cost stats query failed: %w", err)
	}
	if last.Valid {
		stats.LastComputedAt = &last.Time
	}
	return stats, nil
}
