package entity

import (
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	Id                 uuid.UUID
	UserId             string
	Name               string
	FirstName          string
	LastName           string
	Title              string
	Company            string
	Industry           string
	CompanyDescription string
	ContactType        string
	Email              string
	Phone              string
	LinkedInURL        string
	CompanyLinkedIn    string
	Website            string
	Location           string
	Notes              string
	ResearchSummary    string
	Source             string
	// Snapshot is the draft as last committed, kept for auditing corrections.
	Snapshot  map[string]string
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
