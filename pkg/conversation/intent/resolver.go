// Package intent decides what a message does to a user's session. It combines the
// classifier's advisory label with session state and the continuity signal through
// a priority-ordered rule table.
package intent

import (
	"time"

	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/pkg/classifier"
	"ai-networking-be/pkg/conversation/continuity"
	"ai-networking-be/pkg/store"
)

type Kind string

const (
	KindStart   Kind = "start"
	KindUpdate  Kind = "update"
	KindFinish  Kind = "finish"
	KindCancel  Kind = "cancel"
	KindUnknown Kind = "unknown"
)

// Action is the resolved decision for one message.
type Action struct {
	Kind    Kind
	Fields  map[string]string
	Subject string
	// Reopen asks the controller to seed a new draft from the last committed contact.
	Reopen bool
	// Stale marks a message that arrived after the draft sat untouched past the
	// inactivity threshold.
	Stale  bool
	Rule   string
	Reason string
}

type Resolver struct {
	rules            []Rule
	correctionWindow time.Duration
	logger           logger.ILogger
}

func NewResolver(correctionWindow time.Duration, log logger.ILogger) *Resolver {
	return &Resolver{
		rules:            DefaultRules(),
		correctionWindow: correctionWindow,
		logger:           log,
	}
}

// WithRules replaces the rule table.
func (r *Resolver) WithRules(rules []Rule) *Resolver {
	r.rules = rules
	return r
}

func (r *Resolver) Resolve(session *store.UserSession, text string, out *classifier.Output, sig continuity.Signal, now time.Time) Action {
	in := &Input{
		Session:          session,
		Text:             text,
		Output:           out,
		Signal:           sig,
		Now:              now,
		correctionWindow: r.correctionWindow,
	}

	for _, rule := range r.rules {
		if !rule.When(in) {
			continue
		}
		action := rule.Then(in)
		action.Rule = rule.Name

		details := map[string]interface{}{
			"rule":       rule.Name,
			"kind":       action.Kind,
			"reason":     action.Reason,
			"continuity": sig.Strength.String(),
		}
		if out != nil {
			details["classifier_label"] = out.Label
			details["classifier_source"] = out.Source
		}
		if session != nil {
			details["user_id"] = session.UserID
			details["state"] = session.State
		}
		r.logger.Debug(logger.ModuleIntent, "Intent resolved", details)
		return action
	}

	return Action{Kind: KindUnknown, Rule: "none"}
}
