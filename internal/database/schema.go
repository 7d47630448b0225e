package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// timetableSchema creates the table used by the seed command.
// %s is replaced with the driver specific primary key column type.
const timetableSchema = `
	-- One row per class slot
	CREATE TABLE IF NOT EXISTS timetable (
		id %s,
		level INTEGER NOT NULL,
		day TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		subject TEXT NOT NULL,
		teacher TEXT NOT NULL DEFAULT '',
		room TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_timetable_level ON timetable(level);
`

// EnsureTimetable creates the timetable table and its level index if missing
func (db *DB) EnsureTimetable(ctx context.Context) error {
	idType := "INTEGER PRIMARY KEY"
	if db.driver == DriverPostgres {
		idType = "SERIAL PRIMARY KEY"
	}

	return db.Transaction(ctx, func(tx *sql.Tx) error {
		statements := splitSQLStatements(fmt.Sprintf(timetableSchema, idType))
		for i, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("schema statement %d failed: %w", i+1, err)
			}
		}
		log.Debug().Int("statements", len(statements)).Msg("Timetable schema ensured")
		return nil
	})
}

// splitSQLStatements splits a SQL string into individual statements.
// It skips comment lines and only returns non-empty statements.
func splitSQLStatements(sql string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(sql, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" && stmt != ";" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	// Trailing statement without a semicolon
	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		statements = append(statements, remaining)
	}

	return statements
}
