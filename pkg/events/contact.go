package events

import "time"

// Contact lifecycle event types.
const (
	TypeDraftStarted   = "contact.draft_started"
	TypeCommitted      = "contact.committed"
	TypeDraftDiscarded = "contact.draft_discarded"
	TypeCommitFailed   = "contact.commit_failed"
)

// NewContactEvent stamps data with the owning user.
func NewContactEvent(eventType, userID string, data map[string]interface{}, at time.Time) BaseEvent {
	payload := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["user_id"] = userID
	return BaseEvent{Type: eventType, Data: payload, OccurredAt: at}
}
