package store

import (
	"fmt"
	"strings"
	"time"
)

// State is the conversation state of a single user.
type State string

const (
	StateIdle       State = "IDLE"
	StateCollecting State = "COLLECTING"
	StateConfirming State = "CONFIRMING"
)

// DefaultRecentSubjects bounds the recent subject window handed to the classifier.
const DefaultRecentSubjects = 10

// UserSession represents the conversation state of one user.
// It is only mutated while the user's slot in the session repository is held.
type UserSession struct {
	UserID string `json:"user_id"`
	State  State  `json:"state"`

	// THE WORKBENCH (the contact being assembled, nil while idle)
	PendingDraft *Draft `json:"pending_draft,omitempty"`

	// Most recent commit, kept for "oh wait, also add X" corrections
	LastCommittedRef     string    `json:"last_committed_ref,omitempty"`
	LastCommittedSubject string    `json:"last_committed_subject,omitempty"`
	LastCommittedAt      time.Time `json:"last_committed_at,omitempty"`
	CorrectionWindowOpen bool      `json:"correction_window_open"`

	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`

	// Activity stamp whose inactivity breach was already handled by the sweeper
	AutoCommitHandledAt time.Time `json:"auto_commit_handled_at,omitempty"`

	RecentSubjects []string `json:"recent_subjects,omitempty"`
	Notice         string   `json:"notice,omitempty"`
	MessageCount   int      `json:"message_count"`
}

// NewUserSession returns an idle session with no draft.
func NewUserSession(userID string) *UserSession {
	return &UserSession{
		UserID: userID,
		State:  StateIdle,
	}
}

func (s *UserSession) HasDraft() bool {
	return s.PendingDraft != nil
}

// Subject is the name of the person the pending draft is about, if any.
func (s *UserSession) Subject() string {
	return s.PendingDraft.Subject()
}

// Touch advances LastActivityAt. It never moves backwards.
func (s *UserSession) Touch(now time.Time) {
	if now.After(s.LastActivityAt) {
		s.LastActivityAt = now
	}
}

// Elapsed is the time since the last activity, zero for untouched sessions.
func (s *UserSession) Elapsed(now time.Time) time.Duration {
	if s.LastActivityAt.IsZero() || now.Before(s.LastActivityAt) {
		return 0
	}
	return now.Sub(s.LastActivityAt)
}

// RememberSubject moves name to the end of the recent subject window.
func (s *UserSession) RememberSubject(name string, max int) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if max <= 0 {
		max = DefaultRecentSubjects
	}
	kept := s.RecentSubjects[:0:0]
	for _, n := range s.RecentSubjects {
		if !strings.EqualFold(n, name) {
			kept = append(kept, n)
		}
	}
	kept = append(kept, name)
	if len(kept) > max {
		kept = kept[len(kept)-max:]
	}
	s.RecentSubjects = kept
}

// ForgetSubject drops name from the recent window (used when a draft is discarded).
func (s *UserSession) ForgetSubject(name string) {
	if name == "" {
		return
	}
	kept := s.RecentSubjects[:0:0]
	for _, n := range s.RecentSubjects {
		if !strings.EqualFold(n, name) {
			kept = append(kept, n)
		}
	}
	s.RecentSubjects = kept
}

// TakeNotice returns and clears the pending one-shot notice.
func (s *UserSession) TakeNotice() string {
	n := s.Notice
	s.Notice = ""
	return n
}

// Validate checks the draft/state invariant.
func (s *UserSession) Validate() error {
	switch s.State {
	case StateIdle:
		if s.PendingDraft != nil {
			return fmt.Errorf("session %s: idle with pending draft", s.UserID)
		}
	case StateCollecting, StateConfirming:
		if s.PendingDraft == nil {
			return fmt.Errorf("session %s: %s without pending draft", s.UserID, s.State)
		}
	default:
		return fmt.Errorf("session %s: unknown state %q", s.UserID, s.State)
	}
	return nil
}

// Clone returns a deep copy safe to hand outside the session repository.
func (s *UserSession) Clone() *UserSession {
	if s == nil {
		return nil
	}
	c := *s
	c.PendingDraft = s.PendingDraft.Clone()
	if s.RecentSubjects != nil {
		c.RecentSubjects = append([]string(nil), s.RecentSubjects...)
	}
	return &c
}
