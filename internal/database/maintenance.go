package database

import (
	"context"
	"fmt"
)

// Optimize refreshes the query planner statistics after bulk writes.
// SQLite runs PRAGMA optimize, Postgres analyzes the timetable table.
func (db *DB) Optimize(ctx context.Context) error {
	stmt := "PRAGMA optimize"
	if db.driver == DriverPostgres {
		stmt = "ANALYZE " + TableName
	}

	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to optimize database: %w", err)
	}

	return nil
}
