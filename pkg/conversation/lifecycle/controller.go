// Package lifecycle owns a session's state transitions: starting a draft, merging into
// it, committing it to storage (explicitly or on inactivity) and discarding it.
//
// Every method expects the caller to hold the user's session slot.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/pkg/conversation/merge"
	"ai-networking-be/pkg/events"
	"ai-networking-be/pkg/store"
)

var (
	ErrNoDraft         = errors.New("no draft in progress")
	ErrNotIdentifiable = errors.New("draft has no name or email")
	ErrDraftPending    = errors.New("another draft is in progress")
	ErrNothingToReopen = errors.New("no recently committed contact")
)

type CommitResult struct {
	Ref     string
	Created bool
}

// Committer persists drafts. Commit is create-or-update; it is never retried here.
type Committer interface {
	Commit(ctx context.Context, userID string, draft *store.Draft) (CommitResult, error)
	Lookup(ctx context.Context, userID, ref string) (*store.Draft, error)
}

type OutcomeKind string

const (
	OutcomeStarted          OutcomeKind = "started"
	OutcomeUpdated          OutcomeKind = "updated"
	OutcomeReopened         OutcomeKind = "reopened"
	OutcomeConfirmRequested OutcomeKind = "confirm_requested"
	OutcomeCommitted        OutcomeKind = "committed"
	OutcomeDiscarded        OutcomeKind = "discarded"
	OutcomeSkipped          OutcomeKind = "skipped"
)

// Outcome describes what a transition did. Draft is a copy taken after the transition
// (or the committed/discarded draft for terminal outcomes).
type Outcome struct {
	Kind          OutcomeKind
	Subject       string
	Ref           string
	Created       bool
	Auto          bool
	ImplicitStart bool
	Draft         *store.Draft
	Report        merge.Report
}

type Config struct {
	AutoCommitAfter     time.Duration
	ConfirmBeforeCommit bool
	RecentSubjects      int
}

type Controller struct {
	committer Committer
	publisher events.Publisher
	cfg       Config
	logger    logger.ILogger
}

func NewController(committer Committer, publisher events.Publisher, cfg Config, log logger.ILogger) *Controller {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if cfg.AutoCommitAfter <= 0 {
		cfg.AutoCommitAfter = 120 * time.Second
	}
	if cfg.RecentSubjects <= 0 {
		cfg.RecentSubjects = store.DefaultRecentSubjects
	}
	return &Controller{
		committer: committer,
		publisher: publisher,
		cfg:       cfg,
		logger:    log,
	}
}

// Start opens a new draft. It refuses to overwrite a pending one.
func (c *Controller) Start(ctx context.Context, s *store.UserSession, fields map[string]string, now time.Time) (*Outcome, error) {
	if s.HasDraft() {
		return nil, fmt.Errorf("start for %s: %w", s.UserID, ErrDraftPending)
	}

	draft, report := merge.Merge(nil, fields)
	c.openDraft(s, draft, now)

	c.logger.Info(logger.ModuleLifecycle, "Draft started", map[string]interface{}{
		"user_id": s.UserID,
		"subject": draft.Subject(),
		"fields":  len(draft.Fields),
	})
	c.publish(ctx, s.UserID, events.TypeDraftStarted, map[string]interface{}{
		"subject": draft.Subject(),
		"fields":  draft.ToMap(),
	}, now)

	return &Outcome{Kind: OutcomeStarted, Subject: draft.Subject(), Draft: draft.Clone(), Report: report}, nil
}

// Update merges fields into the pending draft. An update without a draft is an
// invariant violation; it is logged and handled as an implicit start.
func (c *Controller) Update(ctx context.Context, s *store.UserSession, fields map[string]string, now time.Time) (*Outcome, error) {
	if !s.HasDraft() {
		c.logger.Error(logger.ModuleLifecycle, "Update without a draft, starting one", map[string]interface{}{
			"user_id": s.UserID,
			"state":   s.State,
		})
		out, err := c.Start(ctx, s, fields, now)
		if err != nil {
			return nil, err
		}
		out.ImplicitStart = true
		return out, nil
	}

	before := s.PendingDraft.Subject()
	merged, report := merge.Merge(s.PendingDraft, fields)
	s.PendingDraft = merged
	s.State = store.StateCollecting
	s.Touch(now)

	if subject := merged.Subject(); subject != "" && subject != before {
		s.RememberSubject(subject, c.cfg.RecentSubjects)
	}
	if len(report.Rejected) > 0 {
		c.logger.Warn(logger.ModuleMerge, "Rejected field values", map[string]interface{}{
			"user_id":  s.UserID,
			"rejected": report.Rejected,
		})
	}
	c.logger.Debug(logger.ModuleMerge, "Draft updated", map[string]interface{}{
		"user_id":   s.UserID,
		"applied":   report.Applied,
		"unchanged": report.Unchanged,
	})

	return &Outcome{Kind: OutcomeUpdated, Subject: merged.Subject(), Draft: merged.Clone(), Report: report}, nil
}

// Reopen seeds a new draft from the most recently committed contact so that the
// next commit updates it instead of creating a duplicate.
func (c *Controller) Reopen(ctx context.Context, s *store.UserSession, fields map[string]string, now time.Time) (*Outcome, error) {
	if s.HasDraft() {
		return nil, fmt.Errorf("reopen for %s: %w", s.UserID, ErrDraftPending)
	}
	if s.LastCommittedRef == "" {
		return nil, fmt.Errorf("reopen for %s: %w", s.UserID, ErrNothingToReopen)
	}

	seed, err := c.committer.Lookup(ctx, s.UserID, s.LastCommittedRef)
	if err != nil {
		return nil, fmt.Errorf("reopen %s: %w", s.LastCommittedRef, err)
	}
	seed.Ref = s.LastCommittedRef

	draft, report := merge.Merge(seed, fields)
	c.openDraft(s, draft, now)

	c.logger.Info(logger.ModuleLifecycle, "Committed contact reopened", map[string]interface{}{
		"user_id": s.UserID,
		"ref":     draft.Ref,
		"applied": report.Applied,
	})
	c.publish(ctx, s.UserID, events.TypeDraftStarted, map[string]interface{}{
		"subject":  draft.Subject(),
		"ref":      draft.Ref,
		"reopened": true,
	}, now)

	return &Outcome{Kind: OutcomeReopened, Subject: draft.Subject(), Ref: draft.Ref, Draft: draft.Clone(), Report: report}, nil
}

// Finish commits the pending draft, or moves it to CONFIRMING first when
// confirmation is configured. Storage failures leave the draft in place.
func (c *Controller) Finish(ctx context.Context, s *store.UserSession, now time.Time) (*Outcome, error) {
	if !s.HasDraft() {
		return nil, fmt.Errorf("finish for %s: %w", s.UserID, ErrNoDraft)
	}
	if !s.PendingDraft.Identifiable() {
		return nil, fmt.Errorf("finish for %s: %w", s.UserID, ErrNotIdentifiable)
	}

	if c.cfg.ConfirmBeforeCommit && s.State == store.StateCollecting {
		s.State = store.StateConfirming
		s.Touch(now)
		return &Outcome{Kind: OutcomeConfirmRequested, Subject: s.Subject(), Draft: s.PendingDraft.Clone()}, nil
	}

	s.Touch(now)
	return c.commit(ctx, s, now, false)
}

// Cancel discards the pending draft without touching storage.
func (c *Controller) Cancel(ctx context.Context, s *store.UserSession, now time.Time) (*Outcome, error) {
	if !s.HasDraft() {
		return nil, fmt.Errorf("cancel for %s: %w", s.UserID, ErrNoDraft)
	}

	draft := s.PendingDraft
	if draft.Ref == "" {
		s.ForgetSubject(draft.Subject())
	}
	s.PendingDraft = nil
	s.State = store.StateIdle
	s.CorrectionWindowOpen = false
	s.Touch(now)

	c.logger.Info(logger.ModuleLifecycle, "Draft discarded", map[string]interface{}{
		"user_id": s.UserID,
		"subject": draft.Subject(),
	})
	c.publish(ctx, s.UserID, events.TypeDraftDiscarded, map[string]interface{}{
		"subject": draft.Subject(),
		"ref":     draft.Ref,
	}, now)

	return &Outcome{Kind: OutcomeDiscarded, Subject: draft.Subject(), Ref: draft.Ref, Draft: draft}, nil
}

// Due reports whether the session's draft has been idle past the auto-commit
// threshold and that breach has not been handled yet.
func (c *Controller) Due(s *store.UserSession, now time.Time) bool {
	if !s.HasDraft() {
		return false
	}
	if s.Elapsed(now) <= c.cfg.AutoCommitAfter {
		return false
	}
	return !s.AutoCommitHandledAt.Equal(s.LastActivityAt)
}

// AutoCommitIfDue is the timeout path. It commits like Finish (never cancels) and
// handles each inactivity breach once: a failed or skipped attempt is not retried
// until the user is active again. A nil outcome means nothing was due.
func (c *Controller) AutoCommitIfDue(ctx context.Context, s *store.UserSession, now time.Time) (*Outcome, error) {
	if !c.Due(s, now) {
		return nil, nil
	}
	s.AutoCommitHandledAt = s.LastActivityAt

	if !s.PendingDraft.Identifiable() {
		c.logger.Warn(logger.ModuleLifecycle, "Auto-commit skipped, draft has no name or email", map[string]interface{}{
			"user_id": s.UserID,
			"fields":  s.PendingDraft.Len(),
		})
		return &Outcome{Kind: OutcomeSkipped, Draft: s.PendingDraft.Clone()}, nil
	}

	subject := s.Subject()
	out, err := c.commit(ctx, s, now, true)
	if err != nil {
		s.Notice = fmt.Sprintf("I couldn't save %s automatically. Say \"done\" to try again.", displayName(subject))
		return nil, err
	}
	s.Notice = fmt.Sprintf("I saved %s while you were away.", displayName(subject))
	return out, nil
}

func (c *Controller) commit(ctx context.Context, s *store.UserSession, now time.Time, auto bool) (*Outcome, error) {
	draft := s.PendingDraft.Clone()
	subject := draft.Subject()
	if subject == "" {
		subject = draft.Get(store.FieldEmail)
	}

	result, err := c.committer.Commit(ctx, s.UserID, draft)
	if err != nil {
		c.logger.Error(logger.ModuleLifecycle, "Commit failed, draft kept", map[string]interface{}{
			"user_id": s.UserID,
			"subject": subject,
			"auto":    auto,
			"error":   err.Error(),
		})
		c.publish(ctx, s.UserID, events.TypeCommitFailed, map[string]interface{}{
			"subject": subject,
			"auto":    auto,
			"error":   err.Error(),
		}, now)
		// a failed confirmed save goes back to editing; the next finish asks again
		if s.State == store.StateConfirming {
			s.State = store.StateCollecting
		}
		return nil, fmt.Errorf("commit %s: %w", subject, err)
	}

	s.PendingDraft = nil
	s.State = store.StateIdle
	s.LastCommittedRef = result.Ref
	s.LastCommittedSubject = subject
	s.LastCommittedAt = now
	s.CorrectionWindowOpen = true
	s.RememberSubject(subject, c.cfg.RecentSubjects)

	c.logger.Info(logger.ModuleLifecycle, "Draft committed", map[string]interface{}{
		"user_id": s.UserID,
		"ref":     result.Ref,
		"subject": subject,
		"auto":    auto,
		"created": result.Created,
	})
	c.publish(ctx, s.UserID, events.TypeCommitted, map[string]interface{}{
		"ref":     result.Ref,
		"subject": subject,
		"auto":    auto,
		"updated": !result.Created,
		"fields":  draft.ToMap(),
	}, now)

	draft.Ref = result.Ref
	return &Outcome{
		Kind:    OutcomeCommitted,
		Subject: subject,
		Ref:     result.Ref,
		Created: result.Created,
		Auto:    auto,
		Draft:   draft,
	}, nil
}

func (c *Controller) openDraft(s *store.UserSession, draft *store.Draft, now time.Time) {
	s.PendingDraft = draft
	s.State = store.StateCollecting
	s.CreatedAt = now
	s.CorrectionWindowOpen = false
	s.AutoCommitHandledAt = time.Time{}
	s.Touch(now)
	if subject := draft.Subject(); subject != "" {
		s.RememberSubject(subject, c.cfg.RecentSubjects)
	}
}

func (c *Controller) publish(ctx context.Context, userID, eventType string, data map[string]interface{}, now time.Time) {
	ev := events.NewContactEvent(eventType, userID, data, now)
	if err := c.publisher.Publish(ctx, ev); err != nil {
		c.logger.Warn(logger.ModuleEvents, "Failed to publish lifecycle event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}

func displayName(subject string) string {
	if subject == "" {
		return "your contact"
	}
	return subject
}
