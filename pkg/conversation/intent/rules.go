package intent

import (
	"time"

	"ai-networking-be/pkg/classifier"
	"ai-networking-be/pkg/conversation/continuity"
	"ai-networking-be/pkg/conversation/shape"
	"ai-networking-be/pkg/store"
)

// Input is everything a rule may look at. Rules never mutate it.
type Input struct {
	Session *store.UserSession
	Text    string
	Output  *classifier.Output
	Signal  continuity.Signal
	Now     time.Time

	correctionWindow time.Duration
}

func (in *Input) label() classifier.Label {
	if in.Output == nil {
		return classifier.LabelUnknown
	}
	return in.Output.Label
}

func (in *Input) fields() map[string]string {
	if in.Output == nil {
		return nil
	}
	return in.Output.Fields
}

func (in *Input) hasDraft() bool {
	return in.Session != nil && in.Session.HasDraft()
}

func (in *Input) state() store.State {
	if in.Session == nil {
		return store.StateIdle
	}
	return in.Session.State
}

// targetDiffers reports whether the classifier names someone other than the draft's subject.
func (in *Input) targetDiffers() bool {
	if in.Output == nil || in.Output.TargetSubject == "" || !in.hasDraft() {
		return false
	}
	subject := in.Session.Subject()
	return subject != "" && !shape.SameSubject(in.Output.TargetSubject, subject)
}

func (in *Input) inCorrectionWindow() bool {
	s := in.Session
	if s == nil || s.HasDraft() || !s.CorrectionWindowOpen || s.LastCommittedRef == "" {
		return false
	}
	return in.correctionWindow <= 0 || in.Now.Sub(s.LastCommittedAt) <= in.correctionWindow
}

// Rule is one (predicate, action) pair of the resolution table.
type Rule struct {
	Name string
	When func(in *Input) bool
	Then func(in *Input) Action
}

// DefaultRules is the resolution table in priority order. The first rule whose
// predicate holds decides the action.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "explicit-finish",
			When: func(in *Input) bool { return shape.IsFinishPhrase(in.Text) },
			Then: func(in *Input) Action {
				return Action{Kind: KindFinish, Reason: "finish phrase"}
			},
		},
		{
			Name: "explicit-cancel",
			When: func(in *Input) bool { return shape.IsCancelPhrase(in.Text) },
			Then: func(in *Input) Action {
				return Action{Kind: KindCancel, Reason: "cancel phrase"}
			},
		},
		{
			Name: "stale-draft",
			When: func(in *Input) bool {
				if !in.hasDraft() || !in.Signal.NewTopic {
					return false
				}
				l := in.label()
				return l != classifier.LabelFinish && l != classifier.LabelCancel
			},
			Then: func(in *Input) Action {
				return Action{
					Kind:    KindUnknown,
					Fields:  in.fields(),
					Subject: in.Session.Subject(),
					Stale:   true,
					Reason:  "draft idle beyond the inactivity threshold",
				}
			},
		},
		{
			Name: "post-commit-correction",
			When: func(in *Input) bool {
				if !in.inCorrectionWindow() {
					return false
				}
				if shape.HasCorrectionMarker(in.Text) {
					return true
				}
				committed := in.Session.LastCommittedSubject
				declared := shape.DeclaredSubject(in.Text)
				if declared != "" && !shape.SameSubject(declared, committed) {
					return false
				}
				return shape.MentionsName(in.Text, committed)
			},
			Then: func(in *Input) Action {
				return Action{
					Kind:    KindUpdate,
					Fields:  in.fields(),
					Subject: in.Session.LastCommittedSubject,
					Reopen:  true,
					Reason:  "follow-up to the contact just saved",
				}
			},
		},
		{
			Name: "continuation-overrides-start",
			When: func(in *Input) bool {
				return in.hasDraft() &&
					in.label() == classifier.LabelStart &&
					in.Signal.Continuation && in.Signal.Strength == continuity.Strong &&
					in.Signal.DifferentSubject == "" && !in.Signal.NewPerson &&
					!in.targetDiffers()
			},
			Then: func(in *Input) Action {
				return Action{
					Kind:    KindUpdate,
					Fields:  in.fields(),
					Subject: in.Session.Subject(),
					Reason:  "continues the current draft",
				}
			},
		},
		{
			Name: "different-subject",
			When: func(in *Input) bool {
				if !in.hasDraft() {
					return false
				}
				if (in.Signal.DifferentSubject != "" || in.Signal.NewPerson) && !in.Signal.Continuation {
					return true
				}
				return in.label() == classifier.LabelStart && in.targetDiffers()
			},
			Then: func(in *Input) Action {
				target := in.Signal.DifferentSubject
				if target == "" && in.Output != nil {
					target = in.Output.TargetSubject
				}
				return Action{
					Kind:    KindUnknown,
					Fields:  in.fields(),
					Subject: target,
					Reason:  "names someone other than " + in.Session.Subject(),
				}
			},
		},
		{
			Name: "confirming",
			When: func(in *Input) bool { return in.state() == store.StateConfirming },
			Then: func(in *Input) Action {
				switch {
				case shape.IsAffirmative(in.Text):
					return Action{Kind: KindFinish, Reason: "confirmed"}
				case shape.IsNegative(in.Text):
					return Action{Kind: KindUpdate, Reason: "declined confirmation"}
				}
				switch in.label() {
				case classifier.LabelFinish:
					return Action{Kind: KindFinish, Reason: "classifier"}
				case classifier.LabelCancel:
					return Action{Kind: KindCancel, Reason: "classifier"}
				}
				return Action{Kind: KindUpdate, Fields: in.fields(), Subject: in.Session.Subject(), Reason: "change while confirming"}
			},
		},
		{
			Name: "continuation-captures-details",
			When: func(in *Input) bool {
				return in.state() == store.StateCollecting &&
					in.label() == classifier.LabelUnknown && !in.Signal.NewPerson &&
					in.Signal.Continuation && in.Signal.Strength == continuity.Strong
			},
			Then: func(in *Input) Action {
				fields := in.fields()
				if len(fields) == 0 {
					fields = map[string]string{string(store.FieldNotes): in.Text}
				}
				return Action{Kind: KindUpdate, Fields: fields, Subject: in.Session.Subject(), Reason: "detail about the current draft"}
			},
		},
		{
			Name: "idle",
			When: func(in *Input) bool { return in.state() == store.StateIdle },
			Then: classifierAction,
		},
		{
			Name: "classifier",
			When: func(in *Input) bool { return true },
			Then: classifierAction,
		},
	}
}

func classifierAction(in *Input) Action {
	a := Action{Kind: kindOf(in.label()), Fields: in.fields(), Reason: "classifier"}
	if in.Output != nil {
		a.Subject = in.Output.TargetSubject
	}
	if a.Kind == KindStart && a.Subject == "" {
		a.Subject = a.Fields[string(store.FieldName)]
	}
	return a
}

func kindOf(l classifier.Label) Kind {
	switch l {
	case classifier.LabelStart:
		return KindStart
	case classifier.LabelUpdate:
		return KindUpdate
	case classifier.LabelFinish:
		return KindFinish
	case classifier.LabelCancel:
		return KindCancel
	default:
		return KindUnknown
	}
}
