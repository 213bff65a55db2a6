package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/internal/repository/memory"
	"ai-networking-be/pkg/classifier"
	"ai-networking-be/pkg/conversation/continuity"
	"ai-networking-be/pkg/conversation/intent"
	"ai-networking-be/pkg/conversation/lifecycle"
	"ai-networking-be/pkg/conversation/sweeper"
	"ai-networking-be/pkg/store"
)

type memCommitter struct {
	mu      sync.Mutex
	fail    error
	seq     int
	commits []string
	saved   map[string]map[string]string
}

func newMemCommitter() *memCommitter {
	return &memCommitter{saved: map[string]map[string]string{}}
}

func (m *memCommitter) Commit(_ context.Context, userID string, d *store.Draft) (lifecycle.CommitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return lifecycle.CommitResult{}, m.fail
	}
	ref, created := d.Ref, false
	if ref == "" {
		m.seq++
		ref, created = fmt.Sprintf("%s-c%d", userID, m.seq), true
	}
	m.commits = append(m.commits, ref)
	m.saved[ref] = d.ToMap()
	return lifecycle.CommitResult{Ref: ref, Created: created}, nil
}

func (m *memCommitter) Lookup(_ context.Context, _ string, ref string) (*store.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fields, ok := m.saved[ref]
	if !ok {
		return nil, store.ErrContactNotFound
	}
	d := store.NewDraft()
	for k, v := range fields {
		d.Fields[store.Field(k)] = v
	}
	return d, nil
}

func (m *memCommitter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commits)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	engine     *Engine
	repo       *memory.SessionRepository
	committer  *memCommitter
	controller *lifecycle.Controller
	clock      *clock
}

func newHarness(cfg lifecycle.Config) *harness {
	log := logger.NewNopLogger()
	clk := &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	committer := newMemCommitter()
	repo := memory.NewSessionRepository(log, memory.WithClock(clk.Now))
	controller := lifecycle.NewController(committer, nil, cfg, log)
	e := New(Deps{
		Sessions:   repo,
		Classifier: classifier.NewRuleClassifier(),
		Detector:   continuity.NewDetector(continuity.DefaultConfig()),
		Resolver:   intent.NewResolver(10*time.Minute, log),
		Controller: controller,
		Clock:      clk.Now,
		Logger:     log,
	})
	return &harness{engine: e, repo: repo, committer: committer, controller: controller, clock: clk}
}

func (h *harness) say(t *testing.T, userID, text string) *Reply {
	t.Helper()
	h.clock.Advance(3 * time.Second)
	r, err := h.engine.HandleMessage(context.Background(), userID, text)
	require.NoError(t, err)
	return r
}

func TestScenarioAddContinueDone(t *testing.T) {
	h := newHarness(lifecycle.Config{})

	r := h.say(t, "u1", "Add John Smith")
	assert.Equal(t, intent.KindStart, r.Action)
	assert.Equal(t, store.StateCollecting, r.State)
	assert.Contains(t, r.Text, "John Smith")

	r = h.say(t, "u1", "He's the CEO")
	assert.Equal(t, intent.KindUpdate, r.Action)
	assert.Equal(t, "CEO", r.Draft["title"])

	r = h.say(t, "u1", "john@acme.io")
	assert.Equal(t, intent.KindUpdate, r.Action)
	assert.NotContains(t, r.Missing, "email")

	r = h.say(t, "u1", "done")
	assert.Equal(t, intent.KindFinish, r.Action)
	assert.Equal(t, store.StateIdle, r.State)
	assert.Equal(t, "Saved John Smith.", r.Text)

	require.Equal(t, 1, h.committer.count())
	assert.Equal(t, map[string]string{"name": "John Smith", "title": "CEO", "email": "john@acme.io"}, h.committer.saved[r.Ref])
}

func TestScenarioAddThenCancel(t *testing.T) {
	h := newHarness(lifecycle.Config{})

	h.say(t, "u1", "Add Mike")
	r := h.say(t, "u1", "never mind")

	assert.Equal(t, intent.KindCancel, r.Action)
	assert.Equal(t, store.StateIdle, r.State)
	assert.Equal(t, "Discarded Mike.", r.Text)
	assert.Zero(t, h.committer.count())
}

func TestScenarioDifferentSubjectAsks(t *testing.T) {
	h := newHarness(lifecycle.Config{})

	h.say(t, "u1", "Add Mike")
	h.say(t, "u1", "mike@pearson.com")
	r := h.say(t, "u1", "Add Lisa instead")

	assert.Equal(t, intent.KindUnknown, r.Action)
	assert.Equal(t, "different-subject", r.Rule)
	assert.Contains(t, r.Text, "Lisa")
	assert.Equal(t, map[string]string{"name": "Mike", "email": "mike@pearson.com"}, r.Draft, "draft untouched")
	assert.Zero(t, h.committer.count())
}

func TestNewPersonIsNeverFoldedIntoDraft(t *testing.T) {
	tests := []struct {
		text    string
		mention string
	}{
		{"Add new contact Lisa Chen", "Lisa Chen"},
		{"I also met Lisa Chen", "Lisa Chen"},
		{"add someone else", "Mike"},
		{"another person: Raj Iyer", "Raj Iyer"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			h := newHarness(lifecycle.Config{})
			h.say(t, "u1", "Add Mike")

			r := h.say(t, "u1", tt.text)
			assert.Equal(t, intent.KindUnknown, r.Action)
			assert.Equal(t, "different-subject", r.Rule)
			assert.Contains(t, r.Text, tt.mention)
			assert.Equal(t, map[string]string{"name": "Mike"}, r.Draft)
			assert.Zero(t, h.committer.count())
		})
	}
}

func TestStaleDraftAsksBeforeApplying(t *testing.T) {
	h := newHarness(lifecycle.Config{})
	h.say(t, "u1", "Add Mike")

	h.clock.Advance(2 * time.Hour)
	r := h.say(t, "u1", "mike@pearson.com")
	assert.Equal(t, intent.KindUnknown, r.Action)
	assert.Equal(t, "stale-draft", r.Rule)
	assert.Contains(t, r.Text, "still working on Mike")
	assert.Equal(t, map[string]string{"name": "Mike"}, r.Draft)

	r = h.say(t, "u1", "mike@pearson.com")
	assert.Equal(t, intent.KindUpdate, r.Action)
	assert.Equal(t, "mike@pearson.com", r.Draft["email"])
}

func TestBareWaitReopensLastContact(t *testing.T) {
	h := newHarness(lifecycle.Config{})

	h.say(t, "u1", "Add Ahmed Khan")
	first := h.say(t, "u1", "done")
	require.NotEmpty(t, first.Ref)

	r := h.say(t, "u1", "wait")
	assert.Equal(t, "post-commit-correction", r.Rule)
	assert.Equal(t, first.Ref, r.Ref)
	assert.Equal(t, store.StateCollecting, r.State)
	assert.Equal(t, "Reopened Ahmed Khan. What should I add or change?", r.Text)

	r = h.say(t, "u1", "add his email ahmed@x.com")
	assert.Equal(t, intent.KindUpdate, r.Action)
	assert.Equal(t, map[string]string{"name": "Ahmed Khan", "email": "ahmed@x.com"}, r.Draft)

	r = h.say(t, "u1", "done")
	assert.Equal(t, first.Ref, r.Ref)
	assert.Len(t, h.committer.saved, 1)
	assert.Equal(t, "ahmed@x.com", h.committer.saved[first.Ref]["email"])
}

func TestScenarioPostCommitCorrection(t *testing.T) {
	h := newHarness(lifecycle.Config{})

	h.say(t, "u1", "Add Ahmed Khan")
	first := h.say(t, "u1", "done")
	require.NotEmpty(t, first.Ref)

	r := h.say(t, "u1", "Oh wait, add his email ahmed@x.com")
	assert.Equal(t, intent.KindUpdate, r.Action)
	assert.Equal(t, "post-commit-correction", r.Rule)
	assert.Equal(t, first.Ref, r.Ref)

	r = h.say(t, "u1", "done")
	assert.Equal(t, first.Ref, r.Ref)
	assert.Equal(t, "Updated the saved contact Ahmed Khan.", r.Text)

	assert.Len(t, h.committer.saved, 1)
	assert.Equal(t, "ahmed@x.com", h.committer.saved[first.Ref]["email"])
}

func TestCorrectionWindowCoversOnlyNextMessage(t *testing.T) {
	h := newHarness(lifecycle.Config{})

	h.say(t, "u1", "Add Ahmed Khan")
	h.say(t, "u1", "done")
	h.say(t, "u1", "what's the weather")
	r := h.say(t, "u1", "Oh wait, add his email ahmed@x.com")

	assert.NotEqual(t, "post-commit-correction", r.Rule)
}

func TestDoubleFinishCommitsOnce(t *testing.T) {
	h := newHarness(lifecycle.Config{})

	h.say(t, "u1", "Add John")
	h.say(t, "u1", "done")
	r := h.say(t, "u1", "done")

	assert.Equal(t, replyNothingSave, r.Text)
	assert.Equal(t, 1, h.committer.count())
}

func TestStorageFailureKeepsDraft(t *testing.T) {
	h := newHarness(lifecycle.Config{})
	h.committer.fail = errors.New("db down")

	h.say(t, "u1", "Add John")
	r := h.say(t, "u1", "done")
	assert.Equal(t, store.StateCollecting, r.State)
	assert.Contains(t, r.Text, "couldn't save John")
	assert.Equal(t, "John", r.Draft["name"])

	h.committer.fail = nil
	r = h.say(t, "u1", "done")
	assert.Equal(t, store.StateIdle, r.State)
	assert.Equal(t, 1, h.committer.count())
}

func TestFinishWithoutNameAsksForOne(t *testing.T) {
	h := newHarness(lifecycle.Config{})

	r := h.say(t, "u1", "CTO at Acme")
	assert.Equal(t, store.StateCollecting, r.State)

	r = h.say(t, "u1", "done")
	assert.Equal(t, replyNeedIdentity, r.Text)
	assert.Zero(t, h.committer.count())
}

func TestConfirmationFlow(t *testing.T) {
	h := newHarness(lifecycle.Config{ConfirmBeforeCommit: true})

	h.say(t, "u1", "Add Sarah Chen")
	r := h.say(t, "u1", "done")
	assert.Equal(t, store.StateConfirming, r.State)
	assert.Contains(t, r.Text, "Save it?")

	r = h.say(t, "u1", "no")
	assert.Equal(t, store.StateCollecting, r.State)

	h.say(t, "u1", "sarah@chen.dev")
	h.say(t, "u1", "done")
	r = h.say(t, "u1", "yes")
	assert.Equal(t, store.StateIdle, r.State)
	assert.Equal(t, 1, h.committer.count())
}

func TestConcurrentUsersAreIsolated(t *testing.T) {
	h := newHarness(lifecycle.Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i)
			for _, msg := range []string{"Add Person Number", fmt.Sprintf("p%d@example.com", i), "done"} {
				_, err := h.engine.HandleMessage(ctx, user, msg)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, h.committer.count())
	for ref, fields := range h.committer.saved {
		assert.Contains(t, ref, "-c")
		assert.Equal(t, "Person Number", fields["name"])
	}
}

func TestRapidFireUpdatesAreNotLost(t *testing.T) {
	h := newHarness(lifecycle.Config{})
	ctx := context.Background()
	h.say(t, "u1", "Add John Smith")

	messages := []string{"john@acme.io", "+1 415 555 0134", "https://linkedin.com/in/jsmith", "https://acme.io", "CTO"}
	var wg sync.WaitGroup
	for _, msg := range messages {
		wg.Add(1)
		go func(msg string) {
			defer wg.Done()
			_, err := h.engine.HandleMessage(ctx, "u1", msg)
			assert.NoError(t, err)
		}(msg)
	}
	wg.Wait()

	r := h.say(t, "u1", "done")
	require.Equal(t, 1, h.committer.count())
	assert.Equal(t, map[string]string{
		"name":         "John Smith",
		"email":        "john@acme.io",
		"phone":        "+1 415 555 0134",
		"linkedin_url": "https://linkedin.com/in/jsmith",
		"website":      "https://acme.io",
		"title":        "CTO",
	}, h.committer.saved[r.Ref])
}

func TestTimeoutAutoCommitAndLateCorrection(t *testing.T) {
	h := newHarness(lifecycle.Config{AutoCommitAfter: 2 * time.Minute})
	sw := sweeper.New(h.repo, h.controller, time.Second, h.clock.Now, logger.NewNopLogger())

	h.say(t, "u1", "Add Priya Patel")
	h.say(t, "u1", "priya@patel.io")

	h.clock.Advance(5 * time.Minute)
	for i := 0; i < 3; i++ {
		sw.Tick(context.Background())
		h.clock.Advance(time.Minute)
	}
	require.Equal(t, 1, h.committer.count())

	r := h.say(t, "u1", "oh wait, add her phone +44 20 7946 0958")
	assert.Contains(t, r.Text, "I saved Priya Patel while you were away.")
	assert.Equal(t, "post-commit-correction", r.Rule)

	h.say(t, "u1", "done")
	assert.Len(t, h.committer.saved, 1)
	for _, fields := range h.committer.saved {
		assert.Equal(t, "+44 20 7946 0958", fields["phone"])
	}
}

func TestIdleChatterGetsHelp(t *testing.T) {
	h := newHarness(lifecycle.Config{})
	r := h.say(t, "u1", "how are you")

	assert.Equal(t, intent.KindUnknown, r.Action)
	assert.Equal(t, replyIdleHelp, r.Text)
	assert.Equal(t, store.StateIdle, r.State)
}
