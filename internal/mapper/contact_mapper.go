package mapper

import (
	"time"

	"ai-networking-be/internal/entity"
	"ai-networking-be/internal/model"
	"ai-networking-be/pkg/store"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ContactMapper struct{}

func NewContactMapper() *ContactMapper {
	return &ContactMapper{}
}

func (m *ContactMapper) ToEntity(c *model.Contact) *entity.Contact {
	if c == nil {
		return nil
	}

	var deletedAt *time.Time
	if c.DeletedAt.Valid {
		t := c.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	var snapshot map[string]string
	if len(c.Snapshot) > 0 {
		snapshot = make(map[string]string, len(c.Snapshot))
		for k, v := range c.Snapshot {
			if s, ok := v.(string); ok {
				snapshot[k] = s
			}
		}
	}

	return &entity.Contact{
		Id:                 c.Id,
		UserId:             c.UserId,
		Name:               c.Name,
		FirstName:          c.FirstName,
		LastName:           c.LastName,
		Title:              c.Title,
		Company:            c.Company,
		Industry:           c.Industry,
		CompanyDescription: c.CompanyDescription,
		ContactType:        c.ContactType,
		Email:              c.Email,
		Phone:              c.Phone,
		LinkedInURL:        c.LinkedInURL,
		CompanyLinkedIn:    c.CompanyLinkedIn,
		Website:            c.Website,
		Location:           c.Location,
		Notes:              c.Notes,
		ResearchSummary:    c.ResearchSummary,
		Source:             c.Source,
		Snapshot:           snapshot,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          updatedAt,
		DeletedAt:          deletedAt,
		IsDeleted:          c.DeletedAt.Valid,
	}
}

func (m *ContactMapper) ToModel(c *entity.Contact) *model.Contact {
	if c == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if c.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *c.DeletedAt, Valid: true}
	} else if c.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	var snapshot datatypes.JSONMap
	if len(c.Snapshot) > 0 {
		snapshot = make(datatypes.JSONMap, len(c.Snapshot))
		for k, v := range c.Snapshot {
			snapshot[k] = v
		}
	}

	return &model.Contact{
		Id:                 c.Id,
		UserId:             c.UserId,
		Name:               c.Name,
		FirstName:          c.FirstName,
		LastName:           c.LastName,
		Title:              c.Title,
		Company:            c.Company,
		Industry:           c.Industry,
		CompanyDescription: c.CompanyDescription,
		ContactType:        c.ContactType,
		Email:              c.Email,
		Phone:              c.Phone,
		LinkedInURL:        c.LinkedInURL,
		CompanyLinkedIn:    c.CompanyLinkedIn,
		Website:            c.Website,
		Location:           c.Location,
		Notes:              c.Notes,
		ResearchSummary:    c.ResearchSummary,
		Source:             c.Source,
		Snapshot:           snapshot,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          updatedAt,
		DeletedAt:          deletedAt,
	}
}

func (m *ContactMapper) ToEntities(contacts []*model.Contact) []*entity.Contact {
	entities := make([]*entity.Contact, len(contacts))
	for i, c := range contacts {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

// ToDraft seeds a draft from a committed contact. The draft carries no Ref;
// callers set it when the draft is meant to update this contact. First and
// last name are left out when they were derived from the full name, so a
// corrected name derives them again.
func (m *ContactMapper) ToDraft(c *entity.Contact) *store.Draft {
	d := store.NewDraft()
	for f, v := range m.fieldValues(c) {
		if *v != "" {
			d.Fields[f] = *v
		}
	}
	if first, last := store.SplitName(c.Name); c.Name != "" && first == c.FirstName && last == c.LastName {
		delete(d.Fields, store.FieldFirstName)
		delete(d.Fields, store.FieldLastName)
	}
	return d
}

// ApplyDraft copies every populated draft field onto the contact and derives
// first/last name from the full name when they were not given.
func (m *ContactMapper) ApplyDraft(c *entity.Contact, d *store.Draft) {
	for f, v := range m.fieldValues(c) {
		if value := d.Get(f); value != "" {
			*v = value
		}
	}
	if d.Has(store.FieldName) && !d.Has(store.FieldFirstName) && !d.Has(store.FieldLastName) {
		c.FirstName, c.LastName = store.SplitName(c.Name)
	}
	if c.Name == "" && (c.FirstName != "" || c.LastName != "") {
		c.Name = d.Subject()
	}
	c.Snapshot = d.ToMap()
}

func (m *ContactMapper) fieldValues(c *entity.Contact) map[store.Field]*string {
	return map[store.Field]*string{
		store.FieldName:               &c.Name,
		store.FieldFirstName:          &c.FirstName,
		store.FieldLastName:           &c.LastName,
		store.FieldTitle:              &c.Title,
		store.FieldCompany:            &c.Company,
		store.FieldIndustry:           &c.Industry,
		store.FieldCompanyDescription: &c.CompanyDescription,
		store.FieldContactType:        &c.ContactType,
		store.FieldEmail:              &c.Email,
		store.FieldPhone:              &c.Phone,
		store.FieldLinkedInURL:        &c.LinkedInURL,
		store.FieldCompanyLinkedIn:    &c.CompanyLinkedIn,
		store.FieldWebsite:            &c.Website,
		store.FieldLocation:           &c.Location,
		store.FieldNotes:              &c.Notes,
		store.FieldResearchSummary:    &c.ResearchSummary,
	}
}
