package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// TableName is the table holding timetable rows
const TableName = "timetable"

// Postgres invalid_text_representation, raised when a level that is not a
// number is compared against an integer column
const pgInvalidTextRepresentation = "22P02"

// Table is a result set with every cell rendered as text.
// Column names come from the database; no schema beyond "level" is assumed.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the table has no rows
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// LevelArg converts a raw level string into the bound query argument.
// Integers are bound as int64 so numeric columns compare numerically on both drivers.
func LevelArg(level string) any {
	level = strings.TrimSpace(level)
	if n, err := strconv.ParseInt(level, 10, 64); err == nil {
		return n
	}
	return level
}

// isNoMatchErr reports whether err means the level cannot equal any stored
// level, as opposed to a failed query
func isNoMatchErr(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepresentation
}

// LookupLevel returns every timetable row whose level equals level.
// The value is always bound as a parameter, never spliced into the SQL text.
func (db *DB) LookupLevel(ctx context.Context, level string) (*Table, error) {
	query := "SELECT * FROM " + TableName + " WHERE level = " + db.placeholder(1)
	arg := LevelArg(level)

	log.Debug().Str("query", query).Interface("level", arg).Msg("Looking up timetable")

	rows, err := db.QueryContext(ctx, query, arg)
	if err != nil {
		if isNoMatchErr(err) {
			log.Debug().Str("level", level).Msg("Level does not match column type, treating as no rows")
			return &Table{}, nil
		}
		return nil, fmt.Errorf("failed to query timetable: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read timetable columns: %w", err)
	}

	table := &Table{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan timetable row: %w", err)
		}

		row := make([]string, len(values))
		for i, v := range values {
			row[i] = formatCell(v)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate timetable rows: %w", err)
	}

	log.Debug().Str("level", level).Int("rows", len(table.Rows)).Msg("Timetable lookup complete")

	return table, nil
}

// Levels lists the distinct levels present in the timetable
func (db *DB) Levels(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT DISTINCT level FROM "+TableName+" ORDER BY level")
	if err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	defer rows.Close()

	var levels []string
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		if v == nil {
			continue
		}
		levels = append(levels, formatCell(v))
	}

	return levels, rows.Err()
}

// formatCell renders a scanned value for display
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(val)
	}
}
