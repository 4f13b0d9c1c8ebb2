package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/justsurfingit/applytrail/internal/models"
)

type fakeClock struct {
	now     time.Time
	tickers chan *fakeTicker
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, tickers: make(chan *fakeTicker, 4)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	t := &fakeTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	c.tickers <- t
	return t
}

type fakeTicker struct {
	ch       chan time.Time
	stopped  chan struct{}
	stopOnce sync.Once
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() { t.stopOnce.Do(func() { close(t.stopped) }) }

type fakeNER struct {
	byText map[string][]TaggedToken
	err    error
}

func (f *fakeNER) Tag(_ context.Context, text string) ([]TaggedToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byText[text], nil
}

type fakeMailbox struct {
	ids       []string
	searchErr error
	messages  map[string]*CandidateMessage
	fetchErr  map[string]error

	mu      sync.Mutex
	queries []string
}

func (m *fakeMailbox) Search(_ context.Context, query string, _ int) ([]string, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.ids, nil
}

func (m *fakeMailbox) Fetch(_ context.Context, id string) (*CandidateMessage, error) {
	if err := m.fetchErr[id]; err != nil {
		return nil, err
	}
	msg, ok := m.messages[id]
	if !ok {
		return nil, errors.New("message not found")
	}
	return msg, nil
}

type fakeConnector struct {
	mailbox Mailbox
	err     error
	calls   int
}

func (c *fakeConnector) Connect(context.Context, string) (Mailbox, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.mailbox, nil
}

type jobKey struct {
	owner    uuid.UUID
	company  string
	position string
}

// memoryJobs honors the (owner, company, position) uniqueness of the real store.
type memoryJobs struct {
	mu   sync.Mutex
	rows map[jobKey]models.JobApplication
	err  error
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{rows: make(map[jobKey]models.JobApplication)}
}

func (m *memoryJobs) InsertIfAbsent(_ context.Context, job *models.JobApplication) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	key := jobKey{job.UserID, job.Company, job.Position}
	if _, ok := m.rows[key]; ok {
		return false, nil
	}
	m.rows[key] = *job
	return true, nil
}

func (m *memoryJobs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memoryJobs) get(owner uuid.UUID, company, position string) (models.JobApplication, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[jobKey{owner, company, position}]
	return row, ok
}

func tokens(pairs ...any) []TaggedToken {
	var out []TaggedToken
	for i := 0; i+2 < len(pairs); i += 3 {
		out = append(out, TaggedToken{Tag: pairs[i].(string), Token: pairs[i+1].(string), Score: pairs[i+2].(float64)})
	}
	return out
}
