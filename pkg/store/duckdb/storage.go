package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

// CostTableSchema mirrors the Postgres cluster_costs table. Timestamps are
// stored as UTC TIMESTAMP values.
const CostTableSchema = `
	CREATE TABLE IF NOT EXISTS cluster_costs (
		id VARCHAR PRIMARY KEY,
		run_id VARCHAR NOT NULL,
		cluster_id VARCHAR NOT NULL,
		bucket VARCHAR NOT NULL,
		amount DECIMAL(20, 10) NOT NULL,
		currency VARCHAR NOT NULL DEFAULT 'USD',
		window_start TIMESTAMP NULL,
		window_end TIMESTAMP NULL,
		computed_at TIMESTAMP NOT NULL
	);
`

const costClusterIndex = `CREATE INDEX IF NOT EXISTS idx_cluster_costs_cluster ON cluster_costs (cluster_id);`

var bootQueries = []string{
	CostTableSchema,
	costClusterIndex,
}

type Settings struct {
	DbPath string
}

// NewDB opens the embedded database at settings.DbPath and creates the schema
// on every new connection.
func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb at %s: %w", settings.DbPath, err)
	}

	db := sql.OpenDB(c)
	return db, nil
}
