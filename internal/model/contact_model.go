package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Contact struct {
	Id                 uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId             string            `gorm:"type:varchar(128);not null;index"`
	Name               string            `gorm:"type:varchar(255);index"`
	FirstName          string            `gorm:"type:varchar(128)"`
	LastName           string            `gorm:"type:varchar(128)"`
	Title              string            `gorm:"type:varchar(255)"`
	Company            string            `gorm:"type:varchar(255)"`
	Industry           string            `gorm:"type:varchar(255)"`
	CompanyDescription string            `gorm:"type:text"`
	ContactType        string            `gorm:"type:varchar(64)"`
	Email              string            `gorm:"type:varchar(255);index"`
	Phone              string            `gorm:"type:varchar(64)"`
	LinkedInURL        string            `gorm:"column:linkedin_url;type:varchar(512)"`
	CompanyLinkedIn    string            `gorm:"column:company_linkedin;type:varchar(512)"`
	Website            string            `gorm:"type:varchar(512)"`
	Location           string            `gorm:"type:varchar(255)"`
	Notes              string            `gorm:"type:text"`
	ResearchSummary    string            `gorm:"type:text"`
	Source             string            `gorm:"type:varchar(32);not null;default:'chat'"`
	Snapshot           datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt          time.Time         `gorm:"autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"autoUpdateTime"`
	DeletedAt          gorm.DeletedAt    `gorm:"index"`
}

func (Contact) TableName() string {
	return "contacts"
}
