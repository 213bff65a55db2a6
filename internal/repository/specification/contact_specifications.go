package specification

import (
	"strings"

	"ai-networking-be/internal/entity"

	"gorm.io/gorm"
)

// ContactMatcher is implemented by specifications that can also be evaluated
// against an already loaded contact. The in-memory repository relies on it.
type ContactMatcher interface {
	MatchContact(c *entity.Contact) bool
}

func (s ByID) MatchContact(c *entity.Contact) bool {
	return c.Id == s.ID
}

// ByUserID scopes contacts to their owner
type ByUserID struct {
	UserID string
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

func (s ByUserID) MatchContact(c *entity.Contact) bool {
	return c.UserId == s.UserID
}

// EmailEqualsFold matches an email address case-insensitively
type EmailEqualsFold struct {
	Email string
}

func (s EmailEqualsFold) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(s.Email)))
}

func (s EmailEqualsFold) MatchContact(c *entity.Contact) bool {
	return c.Email != "" && strings.EqualFold(c.Email, strings.TrimSpace(s.Email))
}

// NameEqualsFold matches the full display name case-insensitively
type NameEqualsFold struct {
	Name string
}

func (s NameEqualsFold) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(s.Name)))
}

func (s NameEqualsFold) MatchContact(c *entity.Contact) bool {
	return c.Name != "" && strings.EqualFold(c.Name, strings.TrimSpace(s.Name))
}
