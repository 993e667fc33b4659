// Package scheduler runs the periodic recalibration batch on a cron cadence.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Recalibrator recomputes team calibrations for a sport over a lookback
// window, returning the number of rows updated.
type Recalibrator interface {
	UpdateTeamCalibrations(ctx context.Context, sport string, since time.Time) (int, error)
}

// Scheduler manages the scheduled recalibration jobs.
type Scheduler struct {
	cron         *cron.Cron
	recalibrator Recalibrator
	logger       *logrus.Logger
	mu           sync.RWMutex
	isRunning    bool
	jobIDs       []cron.EntryID
	jobTimeout   time.Duration
}

// NewScheduler creates a new scheduler.
func NewScheduler(recalibrator Recalibrator, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:         cron.New(cron.WithLocation(time.UTC)),
		recalibrator: recalibrator,
		logger:       logger,
		jobIDs:       make([]cron.EntryID, 0),
		jobTimeout:   30 * time.Minute,
	}
}

// ScheduleRecalibration schedules a recalibration batch for one sport.
func (s *Scheduler) ScheduleRecalibration(cronExpression, sport string, lookback time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()

		since := time.Now().UTC().Add(-lookback)
		s.logger.WithFields(logrus.Fields{
			"sport": sport,
			"since": since.Format("2006-01-02"),
		}).Info("Starting scheduled recalibration")

		updated, err := s.recalibrator.UpdateTeamCalibrations(ctx, sport, since)
		if err != nil {
			s.logger.WithError(err).WithField("sport", sport).Error("Scheduled recalibration failed")
			return
		}
		s.logger.WithFields(logrus.Fields{
			"sport":   sport,
			"updated": updated,
		}).Info("Scheduled recalibration completed")
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"sport": sport,
		"cron":  cronExpression,
	}).Info("Scheduled recalibration job")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}
