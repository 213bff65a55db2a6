// Package engine handles one inbound message end to end: it serializes on the
// user's session, classifies, resolves the intent and applies the transition.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/pkg/classifier"
	"ai-networking-be/pkg/conversation/continuity"
	"ai-networking-be/pkg/conversation/intent"
	"ai-networking-be/pkg/conversation/lifecycle"
	"ai-networking-be/pkg/store"
)

type Sessions interface {
	WithSession(ctx context.Context, userID string, fn func(*store.UserSession) error) error
}

// Reply is what the caller shows the user after a message.
type Reply struct {
	Text    string            `json:"text"`
	Action  intent.Kind       `json:"action"`
	Rule    string            `json:"rule"`
	State   store.State       `json:"state"`
	Draft   map[string]string `json:"draft,omitempty"`
	Ref     string            `json:"ref,omitempty"`
	Missing []string          `json:"missing,omitempty"`
}

type Engine struct {
	sessions   Sessions
	classifier classifier.Classifier
	fallback   classifier.Classifier
	detector   *continuity.Detector
	resolver   *intent.Resolver
	controller *lifecycle.Controller
	clock      func() time.Time
	logger     logger.ILogger
}

type Deps struct {
	Sessions   Sessions
	Classifier classifier.Classifier
	Detector   *continuity.Detector
	Resolver   *intent.Resolver
	Controller *lifecycle.Controller
	Clock      func() time.Time
	Logger     logger.ILogger
}

func New(d Deps) *Engine {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Classifier == nil {
		d.Classifier = classifier.NewRuleClassifier()
	}
	return &Engine{
		sessions:   d.Sessions,
		classifier: d.Classifier,
		fallback:   classifier.NewRuleClassifier(),
		detector:   d.Detector,
		resolver:   d.Resolver,
		controller: d.Controller,
		clock:      d.Clock,
		logger:     d.Logger,
	}
}

// HandleMessage applies one message to the user's session. Domain failures
// (storage down, ambiguous intent) become reply text; only a cancelled context
// or a missing user id is returned as an error.
func (e *Engine) HandleMessage(ctx context.Context, userID, text string) (*Reply, error) {
	var reply *Reply
	err := e.sessions.WithSession(ctx, userID, func(s *store.UserSession) error {
		reply = e.handle(ctx, s, strings.TrimSpace(text))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (e *Engine) handle(ctx context.Context, s *store.UserSession, text string) *Reply {
	now := e.clock()
	s.MessageCount++
	notice := s.TakeNotice()

	sig := e.detector.Detect(s, text, s.Elapsed(now))
	out := e.classify(ctx, s, text)
	action := e.resolver.Resolve(s, text, out, sig, now)

	// The correction window only covers the message right after a commit.
	s.CorrectionWindowOpen = false

	reply := e.dispatch(ctx, s, action, now)
	reply.Action = action.Kind
	reply.Rule = action.Rule
	reply.State = s.State
	if s.HasDraft() {
		reply.Draft = s.PendingDraft.ToMap()
		for _, f := range s.PendingDraft.MissingHints() {
			reply.Missing = append(reply.Missing, string(f))
		}
	}
	if notice != "" {
		reply.Text = notice + "\n" + reply.Text
	}

	e.logger.Info(logger.ModuleSession, "Message handled", map[string]interface{}{
		"user_id":    s.UserID,
		"action":     action.Kind,
		"rule":       action.Rule,
		"state":      s.State,
		"continuity": sig.Strength.String(),
	})
	return reply
}

func (e *Engine) classify(ctx context.Context, s *store.UserSession, text string) *classifier.Output {
	req := classifier.Request{
		Text:           text,
		Subject:        s.Subject(),
		State:          s.State,
		RecentSubjects: append([]string(nil), s.RecentSubjects...),
	}
	out, err := e.classifier.Classify(ctx, req)
	if err == nil && out != nil {
		return out
	}
	if err != nil {
		e.logger.Warn(logger.ModuleClassifier, "Classifier failed, using rules", map[string]interface{}{
			"user_id": s.UserID,
			"error":   err.Error(),
		})
	}
	out, _ = e.fallback.Classify(ctx, req)
	return out
}

func (e *Engine) dispatch(ctx context.Context, s *store.UserSession, a intent.Action, now time.Time) *Reply {
	switch a.Kind {
	case intent.KindStart:
		return e.start(ctx, s, a, now)
	case intent.KindUpdate:
		return e.update(ctx, s, a, now)
	case intent.KindFinish:
		return e.finish(ctx, s, now)
	case intent.KindCancel:
		return e.cancel(ctx, s, now)
	default:
		if a.Stale && s.HasDraft() {
			// the reminder counts as activity, so a repeat of the message goes through
			s.Touch(now)
			return &Reply{Text: describeStale(s.PendingDraft)}
		}
		return e.unknown(s, a)
	}
}

func (e *Engine) start(ctx context.Context, s *store.UserSession, a intent.Action, now time.Time) *Reply {
	fields := withName(a.Fields, a.Subject)
	if s.HasDraft() {
		return &Reply{Text: describePending(label(s.PendingDraft), a.Subject)}
	}
	out, err := e.controller.Start(ctx, s, fields, now)
	if err != nil {
		return e.failed(s, err)
	}
	return &Reply{Text: describeStarted(out.Draft)}
}

func (e *Engine) update(ctx context.Context, s *store.UserSession, a intent.Action, now time.Time) *Reply {
	if a.Reopen {
		out, err := e.controller.Reopen(ctx, s, a.Fields, now)
		if err == nil {
			if len(a.Fields) == 0 {
				return &Reply{Text: describeReopenedEmpty(out.Draft), Ref: out.Ref}
			}
			return &Reply{Text: describeReopened(out.Draft), Ref: out.Ref}
		}
		e.logger.Warn(logger.ModuleLifecycle, "Reopen failed, starting a fresh draft", map[string]interface{}{
			"user_id": s.UserID,
			"ref":     s.LastCommittedRef,
			"error":   err.Error(),
		})
		// Storage dedupes by email and name, so this still updates the same contact.
		a.Fields = withName(a.Fields, s.LastCommittedSubject)
	}

	if s.State == store.StateConfirming && len(a.Fields) == 0 {
		out, err := e.controller.Update(ctx, s, nil, now)
		if err != nil {
			return e.failed(s, err)
		}
		return &Reply{Text: "OK, not saved yet. What should I change about " + label(out.Draft) + "?"}
	}

	out, err := e.controller.Update(ctx, s, a.Fields, now)
	if err != nil {
		return e.failed(s, err)
	}
	if out.ImplicitStart {
		return &Reply{Text: describeStarted(out.Draft)}
	}
	return &Reply{Text: describeUpdated(out.Draft, out.Report.Applied)}
}

func (e *Engine) finish(ctx context.Context, s *store.UserSession, now time.Time) *Reply {
	out, err := e.controller.Finish(ctx, s, now)
	switch {
	case errors.Is(err, lifecycle.ErrNoDraft):
		return &Reply{Text: replyNothingSave}
	case errors.Is(err, lifecycle.ErrNotIdentifiable):
		return &Reply{Text: replyNeedIdentity}
	case err != nil:
		return &Reply{Text: describeCommitFailed(s.PendingDraft)}
	}

	if out.Kind == lifecycle.OutcomeConfirmRequested {
		return &Reply{Text: describeConfirm(out.Draft)}
	}
	return &Reply{Text: describeCommitted(out.Subject, out.Created), Ref: out.Ref}
}

func (e *Engine) cancel(ctx context.Context, s *store.UserSession, now time.Time) *Reply {
	out, err := e.controller.Cancel(ctx, s, now)
	if errors.Is(err, lifecycle.ErrNoDraft) {
		return &Reply{Text: replyNothingDrop}
	}
	if err != nil {
		return e.failed(s, err)
	}
	return &Reply{Text: describeDiscarded(out.Subject)}
}

func (e *Engine) unknown(s *store.UserSession, a intent.Action) *Reply {
	if !s.HasDraft() {
		return &Reply{Text: replyIdleHelp}
	}
	if a.Subject != "" {
		return &Reply{Text: describePending(label(s.PendingDraft), a.Subject)}
	}
	return &Reply{Text: describeUnclear(s.PendingDraft)}
}

func (e *Engine) failed(s *store.UserSession, err error) *Reply {
	e.logger.Error(logger.ModuleLifecycle, "Transition failed", map[string]interface{}{
		"user_id": s.UserID,
		"error":   err.Error(),
	})
	if s.HasDraft() {
		return &Reply{Text: describeUnclear(s.PendingDraft)}
	}
	return &Reply{Text: replyIdleHelp}
}

func withName(fields map[string]string, subject string) map[string]string {
	out := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	if subject != "" && strings.TrimSpace(out[string(store.FieldName)]) == "" {
		out[string(store.FieldName)] = subject
	}
	return out
}
