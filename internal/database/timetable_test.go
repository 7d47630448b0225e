package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(context.Background(), Options{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.EnsureTimetable(context.Background()); err != nil {
		t.Fatalf("failed to create timetable: %v", err)
	}
	return db
}

func seedTestDB(t *testing.T, db *DB) {
	t.Helper()

	entries := []*Entry{
		{Level: 10, Day: "Monday", StartTime: "08:30", EndTime: "09:15", Subject: "Algebra", Teacher: "Karimova", Room: "101"},
		{Level: 10, Day: "Monday", StartTime: "09:25", EndTime: "10:10", Subject: "Physics", Teacher: "Tursunov", Room: "204"},
		{Level: 11, Day: "Tuesday", StartTime: "08:30", EndTime: "09:15", Subject: "Chemistry", Teacher: "Aliev", Room: "305"},
	}
	if _, err := db.InsertEntries(context.Background(), entries); err != nil {
		t.Fatalf("failed to seed entries: %v", err)
	}
}

func columnIndex(t *testing.T, table *Table, name string) int {
	t.Helper()
	idx := slices.Index(table.Columns, name)
	if idx < 0 {
		t.Fatalf("column %q not found in %v", name, table.Columns)
	}
	return idx
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(context.Background(), Options{Driver: "mysql", DSN: "whatever"})
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestLookupLevel_ReturnsMatchingRows(t *testing.T) {
	db := newTestDB(t)
	seedTestDB(t, db)

	table, err := db.LookupLevel(context.Background(), "10")
	if err != nil {
		t.Fatalf("LookupLevel returned error: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}

	levelIdx := columnIndex(t, table, "level")
	subjectIdx := columnIndex(t, table, "subject")
	for _, row := range table.Rows {
		if row[levelIdx] != "10" {
			t.Fatalf("expected level 10, got %q", row[levelIdx])
		}
	}
	if table.Rows[0][subjectIdx] != "Algebra" {
		t.Fatalf("expected first subject Algebra, got %q", table.Rows[0][subjectIdx])
	}
}

func TestLookupLevel_NoMatch(t *testing.T) {
	db := newTestDB(t)
	seedTestDB(t, db)

	table, err := db.LookupLevel(context.Background(), "999")
	if err != nil {
		t.Fatalf("LookupLevel returned error: %v", err)
	}
	if !table.Empty() {
		t.Fatalf("expected no rows, got %d", len(table.Rows))
	}
}

func TestLookupLevel_InjectionIsBoundAsValue(t *testing.T) {
	db := newTestDB(t)
	seedTestDB(t, db)

	for _, level := range []string{
		"10; DROP TABLE timetable",
		"10 OR 1=1",
		"' OR '1'='1",
	} {
		table, err := db.LookupLevel(context.Background(), level)
		if err != nil {
			t.Fatalf("LookupLevel(%q) returned error: %v", level, err)
		}
		if !table.Empty() {
			t.Fatalf("LookupLevel(%q): expected no rows, got %d", level, len(table.Rows))
		}
	}

	// Table must survive
	table, err := db.LookupLevel(context.Background(), "11")
	if err != nil {
		t.Fatalf("LookupLevel after injection attempts returned error: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("expected 1 row for level 11, got %d", len(table.Rows))
	}
}

func TestLevels(t *testing.T) {
	db := newTestDB(t)

	levels, err := db.Levels(context.Background())
	if err != nil {
		t.Fatalf("Levels on empty table returned error: %v", err)
	}
	if len(levels) != 0 {
		t.Fatalf("expected no levels, got %v", levels)
	}

	seedTestDB(t, db)

	levels, err = db.Levels(context.Background())
	if err != nil {
		t.Fatalf("Levels returned error: %v", err)
	}
	if !slices.Equal(levels, []string{"10", "11"}) {
		t.Fatalf("expected [10 11], got %v", levels)
	}
}

func TestLevelArg(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"10", int64(10)},
		{" 7 ", int64(7)},
		{"-3", int64(-3)},
		{"B2", "B2"},
		{"10; DROP TABLE timetable", "10; DROP TABLE timetable"},
	}

	for _, tt := range tests {
		if got := LevelArg(tt.in); got != tt.want {
			t.Errorf("LevelArg(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestLoadEntries(t *testing.T) {
	data := strings.Join([]string{
		"level;day;start_time;end_time;subject;teacher;room",
		"10;Monday;08:30;09:15;Algebra;Karimova;101",
		"11; Friday; 13:00; 13:45; History; Rahimov; 12",
	}, "\n")

	entries, err := LoadEntries(strings.NewReader(data), ';')
	if err != nil {
		t.Fatalf("LoadEntries returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].Level != 11 || entries[1].Day != "Friday" || entries[1].Room != "12" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestLoadEntries_MissingSubject(t *testing.T) {
	data := "level,day,start_time,end_time,subject,teacher,room\n10,Monday,08:30,09:15,,Karimova,101\n"

	if _, err := LoadEntries(strings.NewReader(data), ','); err == nil {
		t.Fatal("expected error for missing subject")
	}
}

func TestLoadEntries_MissingLevelColumn(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		missing string
	}{
		{
			name:    "capitalised level",
			data:    "Level,day,start_time,end_time,subject,teacher,room\n10,Monday,08:30,09:15,Algebra,Karimova,101\n",
			missing: "level",
		},
		{
			name:    "no level column",
			data:    "day,start_time,end_time,subject,teacher,room\nMonday,08:30,09:15,Algebra,Karimova,101\n",
			missing: "level",
		},
		{
			name:    "no room column",
			data:    "level,day,start_time,end_time,subject,teacher\n10,Monday,08:30,09:15,Algebra,Karimova\n",
			missing: "room",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := LoadEntries(strings.NewReader(tt.data), ',')
			if err == nil {
				t.Fatalf("expected error, got entries %+v", entries)
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Fatalf("expected error to name %q, got %v", tt.missing, err)
			}
		})
	}
}

func TestLoadEntries_ExtraColumnsAndOrder(t *testing.T) {
	data := "room,notes,teacher,subject,end_time,start_time,day,level\n101,odd week,Karimova,Algebra,09:15,08:30,Monday,10\n"

	entries, err := LoadEntries(strings.NewReader(data), ',')
	if err != nil {
		t.Fatalf("LoadEntries returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Level != 10 || entries[0].Room != "101" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestLoadEntries_Empty(t *testing.T) {
	if _, err := LoadEntries(strings.NewReader(""), ','); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestIsNoMatchErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"invalid text representation", &pgconn.PgError{Code: "22P02"}, true},
		{"wrapped", fmt.Errorf("query: %w", &pgconn.PgError{Code: "22P02"}), true},
		{"other postgres error", &pgconn.PgError{Code: "42P01"}, false},
		{"plain error", errors.New("connection refused"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNoMatchErr(tt.err); got != tt.want {
				t.Fatalf("isNoMatchErr(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestInsertEntries_Empty(t *testing.T) {
	db := newTestDB(t)

	n, err := db.InsertEntries(context.Background(), nil)
	if err != nil {
		t.Fatalf("InsertEntries returned error: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 inserted, got %d", n)
	}
}

func TestSplitSQLStatements(t *testing.T) {
	sql := `
		-- comment
		CREATE TABLE a (id INTEGER);

		CREATE INDEX idx ON a(id);
		SELECT 1`

	got := splitSQLStatements(sql)
	if len(got) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(got), got)
	}
	if !strings.HasPrefix(got[0], "CREATE TABLE a") {
		t.Fatalf("unexpected first statement %q", got[0])
	}
	if got[2] != "SELECT 1" {
		t.Fatalf("unexpected trailing statement %q", got[2])
	}
}

func TestOptimize(t *testing.T) {
	db := newTestDB(t)
	seedTestDB(t, db)

	if err := db.Optimize(context.Background()); err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}
}
