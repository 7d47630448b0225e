package database

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
)

// Entry is one timetable slot as read from a seed CSV file.
// The header row must name every column in SeedColumns; extra columns are ignored.
type Entry struct {
	Level     int    `csv:"level"`
	Day       string `csv:"day"`
	StartTime string `csv:"start_time"`
	EndTime   string `csv:"end_time"`
	Subject   string `csv:"subject"`
	Teacher   string `csv:"teacher"`
	Room      string `csv:"room"`
}

// SeedColumns lists the header names a seed CSV file must contain
var SeedColumns = []string{"level", "day", "start_time", "end_time", "subject", "teacher", "room"}

// LoadEntries parses seed CSV data. delim is the field separator, usually ','.
// Header names are matched exactly; a missing column is an error rather than
// a silently zeroed field.
func LoadEntries(in io.Reader, delim rune) ([]*Entry, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read timetable csv: %w", err)
	}

	header, err := newSeedReader(data, delim).Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("timetable csv is empty")
		}
		return nil, fmt.Errorf("failed to read timetable csv header: %w", err)
	}
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, fmt.Errorf("timetable csv header is missing columns: %s", strings.Join(missing, ", "))
	}

	entries := []*Entry{}
	if err := gocsv.UnmarshalCSV(newSeedReader(data, delim), &entries); err != nil {
		return nil, fmt.Errorf("failed to parse timetable csv: %w", err)
	}

	for i, e := range entries {
		if strings.TrimSpace(e.Day) == "" || strings.TrimSpace(e.Subject) == "" {
			// +2: header line plus 1-based numbering
			return nil, fmt.Errorf("timetable csv line %d: day and subject are required", i+2)
		}
	}

	return entries, nil
}

func newSeedReader(data []byte, delim rune) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.TrimLeadingSpace = true
	return r
}

func missingColumns(header []string) []string {
	var missing []string
	for _, col := range SeedColumns {
		if !slices.Contains(header, col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// InsertEntries writes entries in a single transaction and returns how many were inserted
func (db *DB) InsertEntries(ctx context.Context, entries []*Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	marks := make([]string, 7)
	for i := range marks {
		marks[i] = db.placeholder(i + 1)
	}
	query := "INSERT INTO " + TableName +
		" (level, day, start_time, end_time, subject, teacher, room) VALUES (" +
		strings.Join(marks, ", ") + ")"

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.Level, e.Day, e.StartTime, e.EndTime, e.Subject, e.Teacher, e.Room); err != nil {
				return fmt.Errorf("failed to insert entry %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Info().Int("entries", len(entries)).Msg("Timetable entries inserted")
	return len(entries), nil
}
