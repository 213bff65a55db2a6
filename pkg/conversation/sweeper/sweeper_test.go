package sweeper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/internal/repository/memory"
	"ai-networking-be/pkg/conversation/lifecycle"
	"ai-networking-be/pkg/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingCommitter struct {
	mu      sync.Mutex
	commits map[string]int
	fail    bool
}

func (c *countingCommitter) Commit(_ context.Context, userID string, d *store.Draft) (lifecycle.CommitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return lifecycle.CommitResult{}, errors.New("db down")
	}
	c.commits[userID]++
	return lifecycle.CommitResult{Ref: "ref-" + userID, Created: true}, nil
}

func (c *countingCommitter) Lookup(context.Context, string, string) (*store.Draft, error) {
	return nil, store.ErrContactNotFound
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type fixture struct {
	repo       *memory.SessionRepository
	controller *lifecycle.Controller
	committer  *countingCommitter
	clock      *fakeClock
	sweeper    *Sweeper
}

func newFixture() *fixture {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	log := logger.NewNopLogger()
	committer := &countingCommitter{commits: map[string]int{}}
	repo := memory.NewSessionRepository(log, memory.WithClock(clock.Now))
	controller := lifecycle.NewController(committer, nil, lifecycle.Config{AutoCommitAfter: 2 * time.Minute}, log)
	return &fixture{
		repo:       repo,
		controller: controller,
		committer:  committer,
		clock:      clock,
		sweeper:    New(repo, controller, time.Millisecond, clock.Now, log),
	}
}

func (f *fixture) start(t *testing.T, userID string, fields map[string]string) {
	t.Helper()
	require.NoError(t, f.repo.WithSession(context.Background(), userID, func(s *store.UserSession) error {
		_, err := f.controller.Start(context.Background(), s, fields, f.clock.Now())
		return err
	}))
}

func TestTickCommitsOncePerBreach(t *testing.T) {
	f := newFixture()
	f.start(t, "u1", map[string]string{"name": "Sarah"})
	f.start(t, "u2", map[string]string{"title": "CEO"})
	require.NoError(t, f.repo.WithSession(context.Background(), "idle", func(*store.UserSession) error { return nil }))

	res := f.sweeper.Tick(context.Background())
	assert.Equal(t, Result{Checked: 3}, res, "nothing is due yet")

	f.clock.Advance(3 * time.Minute)
	res = f.sweeper.Tick(context.Background())
	assert.Equal(t, Result{Checked: 3, Committed: 1, Skipped: 1}, res)

	for i := 0; i < 5; i++ {
		f.clock.Advance(time.Minute)
		res = f.sweeper.Tick(context.Background())
		assert.Equal(t, Result{Checked: 3}, res)
	}
	assert.Equal(t, 1, f.committer.commits["u1"])

	snap, _, err := f.repo.Snapshot(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, store.StateIdle, snap.State)
	assert.Equal(t, "I saved Sarah while you were away.", snap.Notice)

	snap, _, err = f.repo.Snapshot(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, store.StateCollecting, snap.State, "nameless drafts are left pending")
}

func TestMessageBeforeDeadlineWins(t *testing.T) {
	f := newFixture()
	f.start(t, "u1", map[string]string{"name": "Sarah"})

	f.clock.Advance(90 * time.Second)
	require.NoError(t, f.repo.WithSession(context.Background(), "u1", func(s *store.UserSession) error {
		_, err := f.controller.Update(context.Background(), s, map[string]string{"title": "CTO"}, f.clock.Now())
		return err
	}))

	f.clock.Advance(90 * time.Second)
	res := f.sweeper.Tick(context.Background())
	assert.Zero(t, res.Committed)
	assert.Zero(t, f.committer.commits["u1"])
}

func TestFailureIsReportedAndNotRetried(t *testing.T) {
	f := newFixture()
	f.committer.fail = true
	f.start(t, "u1", map[string]string{"name": "Sarah"})

	f.clock.Advance(3 * time.Minute)
	res := f.sweeper.Tick(context.Background())
	assert.Equal(t, 1, res.Failed)

	res = f.sweeper.Tick(context.Background())
	assert.Zero(t, res.Failed)

	snap, _, _ := f.repo.Snapshot(context.Background(), "u1")
	assert.Equal(t, "Sarah", snap.Subject(), "draft is preserved")
}

type panickyHandler struct{ calls atomic.Int64 }

func (p *panickyHandler) AutoCommitIfDue(_ context.Context, s *store.UserSession, _ time.Time) (*lifecycle.Outcome, error) {
	p.calls.Add(1)
	if s.UserID == "bad" {
		panic("corrupt session")
	}
	return nil, nil
}

func TestPanicForOneUserDoesNotStopSweep(t *testing.T) {
	log := logger.NewNopLogger()
	repo := memory.NewSessionRepository(log)
	for _, id := range []string{"a", "bad", "c"} {
		require.NoError(t, repo.WithSession(context.Background(), id, func(*store.UserSession) error { return nil }))
	}
	h := &panickyHandler{}

	res := New(repo, h, time.Second, nil, log).Tick(context.Background())

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, int64(3), h.calls.Load())

	// the panicking user's slot was released
	require.NoError(t, repo.WithSession(context.Background(), "bad", func(*store.UserSession) error { return nil }))
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() { done <- f.sweeper.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

type snapshotStore struct {
	mu    sync.Mutex
	saved map[string]*store.UserSession
}

func (s *snapshotStore) Save(_ context.Context, sess *store.UserSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[sess.UserID] = sess.Clone()
	return nil
}

func (s *snapshotStore) Load(_ context.Context, userID string) (*store.UserSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.saved[userID]; ok {
		return sess.Clone(), nil
	}
	return nil, nil
}

func (s *snapshotStore) List(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.saved))
	for id := range s.saved {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestRestoredDraftIsAutoCommitted(t *testing.T) {
	snaps := &snapshotStore{saved: map[string]*store.UserSession{}}
	f := newFixture()
	log := logger.NewNopLogger()
	f.repo = memory.NewSessionRepository(log, memory.WithClock(f.clock.Now), memory.WithPersister(snaps))
	f.start(t, "u1", map[string]string{"name": "John"})

	restarted := memory.NewSessionRepository(log, memory.WithClock(f.clock.Now), memory.WithPersister(snaps))
	n, err := restarted.Restore(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	sw := New(restarted, f.controller, time.Millisecond, f.clock.Now, log)
	f.clock.Advance(3 * time.Minute)
	res := sw.Tick(context.Background())
	assert.Equal(t, Result{Checked: 1, Committed: 1}, res)
	assert.Equal(t, 1, f.committer.commits["u1"])

	res = sw.Tick(context.Background())
	assert.Zero(t, res.Committed)
}
