package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/justsurfingit/applytrail/internal/config"
	"github.com/justsurfingit/applytrail/internal/models"
	"go.uber.org/zap"
)

// ErrSchedulerRunning is returned by Start when the scheduler is already started.
var ErrSchedulerRunning = errors.New("scheduler already running")

// UserRepository is the read-only view of user accounts the pipeline needs.
type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListMailConnected(ctx context.Context) ([]models.User, error)
}

// UserSyncer runs the pipeline for a single user.
type UserSyncer interface {
	SyncUser(ctx context.Context, user *models.User) (*SyncResult, error)
}

// PassReport summarizes one fan-out pass.
type PassReport struct {
	Attempted  int
	Succeeded  int
	Failed     int
	NewRecords int
}

// Scheduler fans the sync out over every mailbox-connected user on a fixed interval,
// and runs single-user syncs on demand.
type Scheduler struct {
	users       UserRepository
	syncer      UserSyncer
	clock       Clock
	logger      *zap.Logger
	interval    time.Duration
	userTimeout time.Duration
	runOnStart  bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(users UserRepository, syncer UserSyncer, clock Clock, logger *zap.Logger, cfg config.SyncConfig) *Scheduler {
	return &Scheduler{
		users:       users,
		syncer:      syncer,
		clock:       clock,
		logger:      logger,
		interval:    cfg.Interval,
		userTimeout: cfg.UserTimeout,
		runOnStart:  cfg.RunOnStart,
	}
}

// Start begins the recurring fan-out. Passes run on the scheduler's goroutine, so a
// tick that arrives while a pass is still running is dropped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrSchedulerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	ticker := s.clock.NewTicker(s.interval)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		defer ticker.Stop()

		if s.runOnStart {
			s.pass(ctx)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				s.pass(ctx)
			}
		}
	}(s.done)

	s.logger.Info("Sync scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop cancels the running pass, if any, and waits for the scheduler goroutine to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("Sync scheduler stopped")
}

func (s *Scheduler) pass(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("Sync pass failed", zap.Error(err))
	}
}

// RunOnce performs one fan-out pass. Users are processed sequentially and a failure
// for one user never stops the pass; only failing to enumerate users is an error.
func (s *Scheduler) RunOnce(ctx context.Context) (PassReport, error) {
	var report PassReport

	users, err := s.users.ListMailConnected(ctx)
	if err != nil {
		return report, fmt.Errorf("list connected users: %w", err)
	}
	s.logger.Info("Running mailbox sync for connected users", zap.Int("users", len(users)))

	for i := range users {
		if ctx.Err() != nil {
			s.logger.Warn("Sync pass interrupted", zap.Int("remaining", len(users)-i))
			break
		}
		user := &users[i]
		report.Attempted++

		result, err := s.syncOne(ctx, user)
		if err != nil {
			report.Failed++
			s.logger.Error("Failed to sync user",
				zap.String("user_id", user.ID.String()),
				zap.Bool("auth_error", IsAuthError(err)),
				zap.Bool("transient", IsTransient(err)),
				zap.Error(err))
			continue
		}
		report.Succeeded++
		report.NewRecords += result.NewRecordsCount
	}

	s.logger.Info("Sync pass complete",
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("new_records", report.NewRecords))
	return report, nil
}

// SyncNow runs the pipeline synchronously for one user on behalf of that user.
func (s *Scheduler) SyncNow(ctx context.Context, userID uuid.UUID) (*SyncResult, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.syncOne(ctx, user)
}

func (s *Scheduler) syncOne(ctx context.Context, user *models.User) (result *SyncResult, err error) {
	if s.userTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.userTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("sync panicked: %v", r)
		}
	}()
	return s.syncer.SyncUser(ctx, user)
}
