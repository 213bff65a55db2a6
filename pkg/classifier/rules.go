package classifier

import (
	"context"

	"ai-networking-be/pkg/conversation/shape"
	"ai-networking-be/pkg/store"
)

// RuleClassifier is the deterministic classifier used when the model is unreachable.
// It never returns an error.
type RuleClassifier struct{}

var _ Classifier = RuleClassifier{}

func NewRuleClassifier() RuleClassifier {
	return RuleClassifier{}
}

func (RuleClassifier) Classify(_ context.Context, req Request) (*Output, error) {
	return classifyByRules(req), nil
}

func classifyByRules(req Request) *Output {
	out := &Output{Label: LabelUnknown, Source: "rules"}

	switch {
	case shape.IsCancelPhrase(req.Text):
		out.Label = LabelCancel
		return out
	case shape.IsFinishPhrase(req.Text):
		out.Label = LabelFinish
		return out
	case req.State == store.StateConfirming && shape.IsAffirmative(req.Text):
		out.Label = LabelFinish
		return out
	}

	fields := shape.ExtractFields(req.Text)
	if len(fields) > 0 {
		out.Fields = fields
	}

	if name := shape.DeclaredSubject(req.Text); name != "" {
		out.Label = LabelStart
		out.TargetSubject = name
		return out
	}
	if len(fields) > 0 || (req.State != store.StateIdle && req.State != "" && shape.HasPronoun(req.Text)) {
		out.Label = LabelUpdate
		out.TargetSubject = req.Subject
	}
	return out
}
