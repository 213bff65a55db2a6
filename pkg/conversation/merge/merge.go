// Package merge applies partial field updates to a draft.
package merge

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"ai-networking-be/pkg/conversation/shape"
	"ai-networking-be/pkg/store"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const notesSeparator = "\n"

type Rejection struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// Report describes what a merge did to each incoming field.
type Report struct {
	Applied   []store.Field `json:"applied,omitempty"`
	Unchanged []store.Field `json:"unchanged,omitempty"`
	Rejected  []Rejection   `json:"rejected,omitempty"`
}

func (r Report) Changed() bool {
	return len(r.Applied) > 0
}

// Merge returns a copy of draft with updates applied. Empty values are ignored,
// invalid values are rejected without touching the existing value, and notes are
// appended rather than replaced. Applying the same updates twice is a no-op.
func Merge(draft *store.Draft, updates map[string]string) (*store.Draft, Report) {
	next := draft.Clone()
	if next == nil {
		next = store.NewDraft()
	}

	var report Report
	// Deterministic order keeps reports stable and lets aliases lose to canonical names.
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := strings.TrimSpace(updates[key])
		if raw == "" {
			continue
		}
		field, ok := store.ParseField(key)
		if !ok {
			report.Rejected = append(report.Rejected, Rejection{Field: key, Value: raw, Reason: "unknown field"})
			continue
		}

		value, err := Normalize(field, raw)
		if err != nil {
			report.Rejected = append(report.Rejected, Rejection{Field: string(field), Value: raw, Reason: err.Error()})
			continue
		}

		if field == store.FieldNotes {
			merged, changed := appendNote(next.Fields[field], value)
			if !changed {
				report.Unchanged = appendOnce(report.Unchanged, field)
				continue
			}
			next.Fields[field] = merged
			report.Applied = appendOnce(report.Applied, field)
			continue
		}

		if next.Fields[field] == value {
			report.Unchanged = appendOnce(report.Unchanged, field)
			continue
		}
		next.Fields[field] = value
		report.Applied = appendOnce(report.Applied, field)
	}

	return next, report
}

// Normalize cleans a value for field and rejects values that cannot be right.
func Normalize(field store.Field, value string) (string, error) {
	value = strings.Join(strings.Fields(value), " ")

	switch field {
	case store.FieldEmail:
		value = strings.ToLower(strings.TrimRight(value, ".,;"))
		if !emailPattern.MatchString(value) {
			return "", fmt.Errorf("not a valid email address")
		}
	case store.FieldPhone:
		if shape.CountDigits(value) < 7 {
			return "", fmt.Errorf("phone needs at least 7 digits")
		}
	case store.FieldLinkedInURL, store.FieldCompanyLinkedIn:
		if !strings.Contains(strings.ToLower(value), "linkedin.com") {
			return "", fmt.Errorf("not a LinkedIn URL")
		}
		value = withScheme(strings.TrimRight(value, ".,;"))
	case store.FieldWebsite:
		if !strings.Contains(value, ".") || strings.Contains(value, " ") {
			return "", fmt.Errorf("not a website")
		}
		value = withScheme(strings.TrimRight(value, ".,;"))
	case store.FieldName, store.FieldFirstName, store.FieldLastName:
		if shape.CountDigits(value) > 0 || strings.Contains(value, "@") {
			return "", fmt.Errorf("not a person's name")
		}
	}
	return value, nil
}

func appendNote(existing, note string) (string, bool) {
	if existing == "" {
		return note, true
	}
	for _, line := range strings.Split(existing, notesSeparator) {
		if strings.EqualFold(strings.TrimSpace(line), note) {
			return existing, false
		}
	}
	return existing + notesSeparator + note, true
}

func withScheme(u string) string {
	lower := strings.ToLower(u)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return u
	}
	return "https://" + u
}

func appendOnce(fields []store.Field, f store.Field) []store.Field {
	for _, existing := range fields {
		if existing == f {
			return fields
		}
	}
	return append(fields, f)
}
