package dto

import (
	"time"

	"github.com/google/uuid"
)

type ContactResponse struct {
	Id                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	FirstName          string     `json:"first_name,omitempty"`
	LastName           string     `json:"last_name,omitempty"`
	Title              string     `json:"title,omitempty"`
	Company            string     `json:"company,omitempty"`
	Industry           string     `json:"industry,omitempty"`
	CompanyDescription string     `json:"company_description,omitempty"`
	ContactType        string     `json:"contact_type,omitempty"`
	Email              string     `json:"email,omitempty"`
	Phone              string     `json:"phone,omitempty"`
	LinkedInURL        string     `json:"linkedin_url,omitempty"`
	CompanyLinkedIn    string     `json:"company_linkedin,omitempty"`
	Website            string     `json:"website,omitempty"`
	Location           string     `json:"location,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	ResearchSummary    string     `json:"research_summary,omitempty"`
	Source             string     `json:"source"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at"`
}

type ListContactsRequest struct {
	Limit  int `query:"limit" validate:"min=0,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

type ListContactsResponse struct {
	Items []*ContactResponse `json:"items"`
	Total int64              `json:"total"`
}
