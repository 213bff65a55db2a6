// Package classifier turns a free-form message into an intent label plus extracted fields.
// Its output is advisory: the intent resolver may override it.
package classifier

import (
	"context"
	"strings"

	"ai-networking-be/pkg/store"
)

type Label string

const (
	LabelStart   Label = "start"
	LabelUpdate  Label = "update"
	LabelFinish  Label = "finish"
	LabelCancel  Label = "cancel"
	LabelUnknown Label = "unknown"
)

// ParseLabel maps loose classifier vocabulary onto a Label. Anything unrecognised is unknown.
func ParseLabel(raw string) Label {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "start", "add", "add_contact", "new", "new_contact", "create":
		return LabelStart
	case "update", "update_contact", "edit", "continue", "add_info":
		return LabelUpdate
	case "finish", "done", "save", "commit", "finish_contact":
		return LabelFinish
	case "cancel", "discard", "abort":
		return LabelCancel
	default:
		return LabelUnknown
	}
}

type Request struct {
	Text           string
	Subject        string
	State          store.State
	RecentSubjects []string
}

type Output struct {
	Label         Label             `json:"label"`
	TargetSubject string            `json:"target_subject,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	// Source is "llm" or "rules".
	Source string `json:"source"`
}

type Classifier interface {
	Classify(ctx context.Context, req Request) (*Output, error)
}
