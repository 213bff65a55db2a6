package store

import (
	"sort"
	"strings"
)

// Field is a known contact attribute. Drafts only ever carry fields from this set.
type Field string

const (
	FieldName               Field = "name"
	FieldFirstName          Field = "first_name"
	FieldLastName           Field = "last_name"
	FieldTitle              Field = "title"
	FieldCompany            Field = "company"
	FieldIndustry           Field = "industry"
	FieldCompanyDescription Field = "company_description"
	FieldContactType        Field = "contact_type"
	FieldEmail              Field = "email"
	FieldPhone              Field = "phone"
	FieldLinkedInURL        Field = "linkedin_url"
	FieldCompanyLinkedIn    Field = "company_linkedin"
	FieldWebsite            Field = "website"
	FieldLocation           Field = "location"
	FieldNotes              Field = "notes"
	FieldResearchSummary    Field = "research_summary"
)

// Schema lists every field in display order.
var Schema = []Field{
	FieldName,
	FieldFirstName,
	FieldLastName,
	FieldTitle,
	FieldCompany,
	FieldIndustry,
	FieldCompanyDescription,
	FieldContactType,
	FieldEmail,
	FieldPhone,
	FieldLinkedInURL,
	FieldCompanyLinkedIn,
	FieldWebsite,
	FieldLocation,
	FieldNotes,
	FieldResearchSummary,
}

var schemaIndex = func() map[Field]int {
	idx := make(map[Field]int, len(Schema))
	for i, f := range Schema {
		idx[f] = i
	}
	return idx
}()

// fieldAliases maps names classifiers commonly emit onto schema fields.
var fieldAliases = map[string]Field{
	"full_name": FieldName,
	"fullname":  FieldName,
	"linkedin":  FieldLinkedInURL,
	"address":   FieldLocation,
	"city":      FieldLocation,
	"role":      FieldTitle,
	"position":  FieldTitle,
	"job_title": FieldTitle,
	"url":       FieldWebsite,
	"mobile":    FieldPhone,
	"note":      FieldNotes,
}

// ParseField resolves a raw field name (case and separator insensitive) to a schema field.
func ParseField(raw string) (Field, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if key == "" {
		return "", false
	}
	if _, ok := schemaIndex[Field(key)]; ok {
		return Field(key), true
	}
	if f, ok := fieldAliases[key]; ok {
		return f, true
	}
	return "", false
}

// IdentifyingFields are the fields a committed contact can be found by, in priority order.
var IdentifyingFields = []Field{FieldName, FieldEmail}

// Draft is a partially assembled contact. Ref is set when the draft was seeded
// from an already committed contact, so committing it produces an update.
type Draft struct {
	Ref    string           `json:"ref,omitempty"`
	Fields map[Field]string `json:"fields"`
}

func NewDraft() *Draft {
	return &Draft{Fields: make(map[Field]string)}
}

func (d *Draft) Get(f Field) string {
	if d == nil {
		return ""
	}
	return d.Fields[f]
}

func (d *Draft) Has(f Field) bool {
	return d.Get(f) != ""
}

// Subject is the display name of the person the draft is about.
func (d *Draft) Subject() string {
	if d == nil {
		return ""
	}
	if name := d.Fields[FieldName]; name != "" {
		return name
	}
	first, last := d.Fields[FieldFirstName], d.Fields[FieldLastName]
	return strings.TrimSpace(first + " " + last)
}

// Identifiable reports whether the draft carries enough to be committed.
func (d *Draft) Identifiable() bool {
	if d == nil {
		return false
	}
	if d.Subject() != "" {
		return true
	}
	return d.Has(FieldEmail)
}

func (d *Draft) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Fields)
}

func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	c := &Draft{Ref: d.Ref, Fields: make(map[Field]string, len(d.Fields))}
	for k, v := range d.Fields {
		c.Fields[k] = v
	}
	return c
}

// Equal compares reference and field values.
func (d *Draft) Equal(o *Draft) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Ref != o.Ref || len(d.Fields) != len(o.Fields) {
		return false
	}
	for k, v := range d.Fields {
		if o.Fields[k] != v {
			return false
		}
	}
	return true
}

// SortedFields returns the populated fields in schema order.
func (d *Draft) SortedFields() []Field {
	if d == nil {
		return nil
	}
	fields := make([]Field, 0, len(d.Fields))
	for f := range d.Fields {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool {
		return schemaIndex[fields[i]] < schemaIndex[fields[j]]
	})
	return fields
}

// ToMap flattens the draft for transport and persistence.
func (d *Draft) ToMap() map[string]string {
	out := make(map[string]string, d.Len())
	if d == nil {
		return out
	}
	for k, v := range d.Fields {
		out[string(k)] = v
	}
	return out
}

// MissingHints lists the commonly wanted fields that are still empty.
func (d *Draft) MissingHints() []Field {
	var missing []Field
	for _, f := range []Field{FieldEmail, FieldPhone, FieldLinkedInURL, FieldCompany} {
		if !d.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// SplitName derives first and last name from a full name.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
