package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/justsurfingit/applytrail/internal/config"
	"github.com/justsurfingit/applytrail/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUsers struct {
	users   []models.User
	listErr error
}

func (f *fakeUsers) Get(_ context.Context, id uuid.UUID) (*models.User, error) {
	for i := range f.users {
		if f.users[i].ID == id {
			u := f.users[i]
			return &u, nil
		}
	}
	return nil, errors.New("user not found")
}

func (f *fakeUsers) ListMailConnected(context.Context) ([]models.User, error) {
	return f.users, f.listErr
}

// scriptedSyncer returns a canned outcome per user and records call order.
type scriptedSyncer struct {
	mu       sync.Mutex
	outcomes map[uuid.UUID]error
	panics   map[uuid.UUID]bool
	calls    []uuid.UUID
	passes   chan struct{}
	lastUser uuid.UUID
}

func (s *scriptedSyncer) SyncUser(ctx context.Context, user *models.User) (*SyncResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, user.ID)
	s.mu.Unlock()
	if s.passes != nil && user.ID == s.lastUser {
		defer func() { s.passes <- struct{}{} }()
	}
	if s.panics[user.ID] {
		panic("unexpected")
	}
	if err := s.outcomes[user.ID]; err != nil {
		return nil, err
	}
	return &SyncResult{NewRecordsCount: 1}, nil
}

func (s *scriptedSyncer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newUsers(n int) []models.User {
	users := make([]models.User, n)
	for i := range users {
		users[i] = models.User{ID: uuid.New(), GoogleRefreshToken: "token"}
	}
	return users
}

func newTestScheduler(users UserRepository, syncer UserSyncer, clock Clock, runOnStart bool) *Scheduler {
	return NewScheduler(users, syncer, clock, zap.NewNop(), config.SyncConfig{
		Interval:    time.Hour,
		UserTimeout: time.Minute,
		RunOnStart:  runOnStart,
	})
}

func TestRunOnce_IsolatesUserFailures(t *testing.T) {
	users := newUsers(3)
	syncer := &scriptedSyncer{outcomes: map[uuid.UUID]error{
		users[1].ID: &AuthError{UserID: users[1].ID, Err: ErrNoRefreshToken},
	}}
	s := newTestScheduler(&fakeUsers{users: users}, syncer, newFakeClock(time.Now()), false)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PassReport{Attempted: 3, Succeeded: 2, Failed: 1, NewRecords: 2}, report)
	assert.Equal(t, []uuid.UUID{users[0].ID, users[1].ID, users[2].ID}, syncer.calls)
}

func TestRunOnce_RecoversFromPanickingUser(t *testing.T) {
	users := newUsers(2)
	syncer := &scriptedSyncer{panics: map[uuid.UUID]bool{users[0].ID: true}}
	s := newTestScheduler(&fakeUsers{users: users}, syncer, newFakeClock(time.Now()), false)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Succeeded)
}

func TestRunOnce_ListFailure(t *testing.T) {
	s := newTestScheduler(&fakeUsers{listErr: errors.New("db down")}, &scriptedSyncer{}, newFakeClock(time.Now()), false)

	_, err := s.RunOnce(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestScheduler_TickTriggersPass(t *testing.T) {
	users := newUsers(2)
	syncer := &scriptedSyncer{passes: make(chan struct{}, 1), lastUser: users[1].ID}
	clock := newFakeClock(time.Now())
	s := newTestScheduler(&fakeUsers{users: users}, syncer, clock, false)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	ticker := <-clock.tickers
	assert.Equal(t, 0, syncer.callCount())

	ticker.ch <- time.Now()
	select {
	case <-syncer.passes:
	case <-time.After(5 * time.Second):
		t.Fatal("pass did not run after tick")
	}
	assert.Equal(t, 2, syncer.callCount())
}

func TestScheduler_RunOnStart(t *testing.T) {
	users := newUsers(1)
	syncer := &scriptedSyncer{passes: make(chan struct{}, 1), lastUser: users[0].ID}
	s := newTestScheduler(&fakeUsers{users: users}, syncer, newFakeClock(time.Now()), true)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case <-syncer.passes:
	case <-time.After(5 * time.Second):
		t.Fatal("startup pass did not run")
	}
}

func TestScheduler_StartTwice(t *testing.T) {
	s := newTestScheduler(&fakeUsers{}, &scriptedSyncer{}, newFakeClock(time.Now()), false)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerRunning)
}

func TestScheduler_StopReleasesTicker(t *testing.T) {
	clock := newFakeClock(time.Now())
	s := newTestScheduler(&fakeUsers{}, &scriptedSyncer{}, clock, false)

	require.NoError(t, s.Start(context.Background()))
	ticker := <-clock.tickers
	s.Stop()

	select {
	case <-ticker.stopped:
	default:
		t.Fatal("ticker not stopped")
	}

	// Stop is idempotent and the scheduler can be started again.
	s.Stop()
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}

func TestSyncNow(t *testing.T) {
	users := newUsers(2)
	syncer := &scriptedSyncer{}
	s := newTestScheduler(&fakeUsers{users: users}, syncer, newFakeClock(time.Now()), false)

	result, err := s.SyncNow(context.Background(), users[1].ID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.NewRecordsCount)
	assert.Equal(t, []uuid.UUID{users[1].ID}, syncer.calls)
}

func TestSyncNow_PropagatesAuthError(t *testing.T) {
	users := newUsers(1)
	syncer := &scriptedSyncer{outcomes: map[uuid.UUID]error{
		users[0].ID: &AuthError{UserID: users[0].ID, Err: ErrNoRefreshToken},
	}}
	s := newTestScheduler(&fakeUsers{users: users}, syncer, newFakeClock(time.Now()), false)

	_, err := s.SyncNow(context.Background(), users[0].ID)
	assert.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestSyncNow_UnknownUser(t *testing.T) {
	syncer := &scriptedSyncer{}
	s := newTestScheduler(&fakeUsers{}, syncer, newFakeClock(time.Now()), false)

	_, err := s.SyncNow(context.Background(), uuid.New())
	assert.Error(t, err)
	assert.Equal(t, 0, syncer.callCount())
}
