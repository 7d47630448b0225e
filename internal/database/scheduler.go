package database

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// optimizeTimeout bounds a single scheduled Optimize run
const optimizeTimeout = 5 * time.Minute

// Scheduler refreshes planner statistics on a cron schedule so long running
// servers keep good query plans between seeds.
type Scheduler struct {
	db      *DB
	cron    *cron.Cron
	entryID cron.EntryID
	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler for db. It does nothing until Start.
func NewScheduler(db *DB) *Scheduler {
	return &Scheduler{
		db:   db,
		cron: cron.New(),
	}
}

// Start registers schedule and starts the cron loop.
// An empty schedule leaves the scheduler idle.
func (s *Scheduler) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || schedule == "" {
		return nil
	}

	id, err := s.cron.AddFunc(schedule, s.scheduledRun)
	if err != nil {
		return err
	}
	s.entryID = id

	s.cron.Start()
	s.running = true

	log.Info().Str("schedule", schedule).Msg("Database maintenance scheduled")
	return nil
}

// Stop stops the cron loop and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
}

// NextRun returns the next scheduled run, or the zero time when idle
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// scheduledRun is called by cron
func (s *Scheduler) scheduledRun() {
	ctx, cancel := context.WithTimeout(context.Background(), optimizeTimeout)
	defer cancel()

	start := time.Now()
	if err := s.db.Optimize(ctx); err != nil {
		log.Warn().Err(err).Msg("Scheduled database optimize failed")
		return
	}
	log.Debug().Dur("duration", time.Since(start)).Msg("Scheduled database optimize complete")
}
