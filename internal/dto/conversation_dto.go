package dto

import "time"

type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

type MessageResponse struct {
	Reply   string            `json:"reply"`
	Action  string            `json:"action"`
	Rule    string            `json:"rule"`
	State   string            `json:"state"`
	Draft   map[string]string `json:"draft,omitempty"`
	Ref     string            `json:"ref,omitempty"`
	Missing []string          `json:"missing,omitempty"`
}

type SessionResponse struct {
	UserId               string            `json:"user_id"`
	State                string            `json:"state"`
	Draft                map[string]string `json:"draft,omitempty"`
	DraftRef             string            `json:"draft_ref,omitempty"`
	LastCommittedRef     string            `json:"last_committed_ref,omitempty"`
	LastCommittedSubject string            `json:"last_committed_subject,omitempty"`
	LastCommittedAt      *time.Time        `json:"last_committed_at,omitempty"`
	LastActivityAt       *time.Time        `json:"last_activity_at,omitempty"`
	RecentSubjects       []string          `json:"recent_subjects"`
	MessageCount         int               `json:"message_count"`
}
