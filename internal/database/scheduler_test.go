package database

import (
	"context"
	"testing"
	"time"
)

func TestScheduler_StartAndStop(t *testing.T) {
	s := NewScheduler(newTestDB(t))

	if err := s.Start("@every 1h"); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer s.Stop()

	next := s.NextRun()
	if next.IsZero() {
		t.Fatal("expected a next run time")
	}
	if until := time.Until(next); until <= 0 || until > time.Hour+time.Second {
		t.Fatalf("expected next run within the hour, got %s", until)
	}

	s.Stop()
	// Stopping twice is harmless
	s.Stop()
}

func TestScheduler_EmptyScheduleIsIdle(t *testing.T) {
	s := NewScheduler(newTestDB(t))

	if err := s.Start(""); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if !s.NextRun().IsZero() {
		t.Fatal("expected no next run for empty schedule")
	}
	s.Stop()
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := NewScheduler(newTestDB(t))

	if err := s.Start("every day"); err == nil {
		s.Stop()
		t.Fatal("expected error for invalid schedule")
	}
}

func TestScheduler_RunOptimizes(t *testing.T) {
	db := newTestDB(t)
	seedTestDB(t, db)

	// Runs synchronously; a failure only logs, the table must still answer
	NewScheduler(db).scheduledRun()

	table, err := db.LookupLevel(context.Background(), "10")
	if err != nil {
		t.Fatalf("LookupLevel after optimize returned error: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
}
