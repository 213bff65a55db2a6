package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/pkg/classifier"
	"ai-networking-be/pkg/conversation/continuity"
	"ai-networking-be/pkg/store"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func idle() *store.UserSession {
	return store.NewUserSession("u1")
}

func drafting(name string, state store.State) *store.UserSession {
	s := store.NewUserSession("u1")
	s.State = state
	s.PendingDraft = store.NewDraft()
	s.PendingDraft.Fields[store.FieldName] = name
	return s
}

func justCommitted(name string, at time.Time) *store.UserSession {
	s := store.NewUserSession("u1")
	s.LastCommittedRef = "c-1"
	s.LastCommittedSubject = name
	s.LastCommittedAt = at
	s.CorrectionWindowOpen = true
	return s
}

func out(label classifier.Label, target string, fields map[string]string) *classifier.Output {
	return &classifier.Output{Label: label, TargetSubject: target, Fields: fields, Source: "llm"}
}

var strong = continuity.Signal{Continuation: true, Strength: continuity.Strong}

func TestResolve(t *testing.T) {
	r := NewResolver(10*time.Minute, logger.NewNopLogger())

	tests := []struct {
		name    string
		session *store.UserSession
		text    string
		out     *classifier.Output
		sig     continuity.Signal
		kind    Kind
		rule    string
		subject string
		reopen  bool
		stale   bool
	}{
		{
			name:    "finish phrase beats classifier",
			session: drafting("John", store.StateCollecting),
			text:    "ok done",
			out:     out(classifier.LabelUpdate, "", nil),
			sig:     strong,
			kind:    KindFinish,
			rule:    "explicit-finish",
		},
		{
			name:    "cancel phrase beats classifier",
			session: drafting("John", store.StateCollecting),
			text:    "Actually, cancel",
			out:     out(classifier.LabelStart, "", nil),
			sig:     strong,
			kind:    KindCancel,
			rule:    "explicit-cancel",
		},
		{
			name:    "strong continuation turns start into update",
			session: drafting("John Smith", store.StateCollecting),
			text:    "He's the CEO",
			out:     out(classifier.LabelStart, "", map[string]string{"title": "CEO"}),
			sig:     strong,
			kind:    KindUpdate,
			rule:    "continuation-overrides-start",
			subject: "John Smith",
		},
		{
			name:    "stale draft asks before applying",
			session: drafting("Mike", store.StateCollecting),
			text:    "mike@pearson.com",
			out:     out(classifier.LabelUpdate, "", map[string]string{"email": "mike@pearson.com"}),
			sig:     continuity.Signal{NewTopic: true},
			kind:    KindUnknown,
			rule:    "stale-draft",
			subject: "Mike",
			stale:   true,
		},
		{
			name:    "stale draft still honours a classified finish",
			session: drafting("Mike", store.StateCollecting),
			text:    "that's him, save",
			out:     out(classifier.LabelFinish, "", nil),
			sig:     continuity.Signal{NewTopic: true},
			kind:    KindFinish,
			rule:    "classifier",
		},
		{
			name:    "unnamed new person is not merged",
			session: drafting("Mike", store.StateCollecting),
			text:    "add someone else",
			out:     out(classifier.LabelUnknown, "", nil),
			sig:     continuity.Signal{Strength: continuity.Strong, NewPerson: true},
			kind:    KindUnknown,
			rule:    "different-subject",
		},
		{
			name:    "new person cue beats a start label",
			session: drafting("Mike", store.StateCollecting),
			text:    "I also met Lisa Chen",
			out:     out(classifier.LabelStart, "Lisa Chen", nil),
			sig:     continuity.Signal{Strength: continuity.Strong, NewPerson: true, DifferentSubject: "Lisa Chen"},
			kind:    KindUnknown,
			rule:    "different-subject",
			subject: "Lisa Chen",
		},
		{
			name:    "different subject asks for disambiguation",
			session: drafting("Mike", store.StateCollecting),
			text:    "Add Lisa instead",
			out:     out(classifier.LabelStart, "Lisa", nil),
			sig:     continuity.Signal{Strength: continuity.Strong, DifferentSubject: "Lisa"},
			kind:    KindUnknown,
			rule:    "different-subject",
			subject: "Lisa",
		},
		{
			name:    "classifier naming someone else is not merged",
			session: drafting("Mike", store.StateCollecting),
			text:    "also met lisa",
			out:     out(classifier.LabelStart, "Lisa", nil),
			sig:     strong,
			kind:    KindUnknown,
			rule:    "different-subject",
			subject: "Lisa",
		},
		{
			name:    "idle keeps classifier label",
			session: idle(),
			text:    "Add John Smith",
			out:     out(classifier.LabelStart, "", map[string]string{"name": "John Smith"}),
			kind:    KindStart,
			rule:    "idle",
			subject: "John Smith",
		},
		{
			name:    "confirming yes finishes",
			session: drafting("John", store.StateConfirming),
			text:    "yes",
			out:     out(classifier.LabelUnknown, "", nil),
			kind:    KindFinish,
			rule:    "confirming",
		},
		{
			name:    "confirming no goes back to collecting",
			session: drafting("John", store.StateConfirming),
			text:    "no",
			out:     out(classifier.LabelUnknown, "", nil),
			kind:    KindUpdate,
			rule:    "confirming",
		},
		{
			name:    "confirming unknown collapses to update",
			session: drafting("John", store.StateConfirming),
			text:    "his number is 555 123 4567",
			out:     out(classifier.LabelUnknown, "", map[string]string{"phone": "555 123 4567"}),
			kind:    KindUpdate,
			rule:    "confirming",
			subject: "John",
		},
		{
			name:    "post-commit correction reopens",
			session: justCommitted("Ahmed Khan", now.Add(-time.Minute)),
			text:    "Oh wait, add his email ahmed@x.com",
			out:     out(classifier.LabelUpdate, "", map[string]string{"email": "ahmed@x.com"}),
			kind:    KindUpdate,
			rule:    "post-commit-correction",
			subject: "Ahmed Khan",
			reopen:  true,
		},
		{
			name:    "naming the committed subject reopens",
			session: justCommitted("Ahmed Khan", now.Add(-time.Minute)),
			text:    "Ahmed's number is +1 415 555 0134",
			out:     out(classifier.LabelUpdate, "Ahmed", map[string]string{"phone": "+1 415 555 0134"}),
			kind:    KindUpdate,
			rule:    "post-commit-correction",
			subject: "Ahmed Khan",
			reopen:  true,
		},
		{
			name:    "bare wait reopens the contact just saved",
			session: justCommitted("Ahmed Khan", now.Add(-time.Minute)),
			text:    "wait",
			out:     out(classifier.LabelUnknown, "", nil),
			kind:    KindUpdate,
			rule:    "post-commit-correction",
			subject: "Ahmed Khan",
			reopen:  true,
		},
		{
			name:    "correction window expires",
			session: justCommitted("Ahmed Khan", now.Add(-time.Hour)),
			text:    "Oh wait, add his email ahmed@x.com",
			out:     out(classifier.LabelUpdate, "", map[string]string{"email": "ahmed@x.com"}),
			kind:    KindUpdate,
			rule:    "idle",
		},
		{
			name:    "new person after commit is a start",
			session: justCommitted("Ahmed Khan", now.Add(-time.Minute)),
			text:    "Add Sarah Chen",
			out:     out(classifier.LabelStart, "Sarah Chen", nil),
			kind:    KindStart,
			rule:    "idle",
			subject: "Sarah Chen",
		},
		{
			name:    "unknown detail while collecting lands in notes",
			session: drafting("John", store.StateCollecting),
			text:    "met at the summit",
			out:     out(classifier.LabelUnknown, "", nil),
			sig:     strong,
			kind:    KindUpdate,
			rule:    "continuation-captures-details",
			subject: "John",
		},
		{
			name:    "missing classifier output is unknown",
			session: idle(),
			text:    "hmm",
			kind:    KindUnknown,
			rule:    "idle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := r.Resolve(tt.session, tt.text, tt.out, tt.sig, now)
			assert.Equal(t, tt.kind, a.Kind, a.Reason)
			assert.Equal(t, tt.rule, a.Rule)
			assert.Equal(t, tt.subject, a.Subject)
			assert.Equal(t, tt.reopen, a.Reopen)
			assert.Equal(t, tt.stale, a.Stale)
		})
	}
}

func TestContinuationCapturesTextAsNotes(t *testing.T) {
	r := NewResolver(0, logger.NewNopLogger())
	a := r.Resolve(drafting("John", store.StateCollecting), "met at the summit", out(classifier.LabelUnknown, "", nil), strong, now)

	assert.Equal(t, map[string]string{"notes": "met at the summit"}, a.Fields)
}

func TestRulesAreIndependentlyTestable(t *testing.T) {
	byName := map[string]Rule{}
	for _, rule := range DefaultRules() {
		byName[rule.Name] = rule
	}

	finish := byName["explicit-finish"]
	assert.True(t, finish.When(&Input{Text: "that's all"}))
	assert.False(t, finish.When(&Input{Text: "that's all I know about him"}))

	override := byName["continuation-overrides-start"]
	in := &Input{
		Session: drafting("John", store.StateCollecting),
		Output:  out(classifier.LabelStart, "", nil),
		Signal:  continuity.Signal{Continuation: true, Strength: continuity.Moderate},
	}
	assert.False(t, override.When(in), "moderate continuity does not override")
}

func TestWithRulesReplacesTable(t *testing.T) {
	r := NewResolver(0, logger.NewNopLogger()).WithRules([]Rule{})
	a := r.Resolve(idle(), "done", nil, continuity.Signal{}, now)

	assert.Equal(t, KindUnknown, a.Kind)
	assert.Equal(t, "none", a.Rule)
}
