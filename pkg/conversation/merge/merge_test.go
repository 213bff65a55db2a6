package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"ai-networking-be/pkg/store"
)

func draftOf(fields map[store.Field]string) *store.Draft {
	d := store.NewDraft()
	for k, v := range fields {
		d.Fields[k] = v
	}
	return d
}

func TestMergeNewerNonEmptyWins(t *testing.T) {
	d := draftOf(map[store.Field]string{store.FieldName: "John Smith", store.FieldTitle: "CTO"})

	next, report := Merge(d, map[string]string{
		"title":   "CEO",
		"company": "Acme",
		"email":   "",
	})

	want := draftOf(map[store.Field]string{
		store.FieldName:    "John Smith",
		store.FieldTitle:   "CEO",
		store.FieldCompany: "Acme",
	})
	if diff := cmp.Diff(want, next); diff != "" {
		t.Fatalf("merged draft mismatch (-want +got):\n%s", diff)
	}
	assert.ElementsMatch(t, []store.Field{store.FieldTitle, store.FieldCompany}, report.Applied)
	assert.Equal(t, "CTO", d.Fields[store.FieldTitle], "input draft is not mutated")
}

func TestMergeIsIdempotent(t *testing.T) {
	updates := map[string]string{"email": "John@Acme.io", "notes": "Met at the summit", "linkedin": "linkedin.com/in/js"}

	once, _ := Merge(store.NewDraft(), updates)
	twice, report := Merge(once, updates)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("second merge changed the draft (-once +twice):\n%s", diff)
	}
	assert.False(t, report.Changed())
	assert.ElementsMatch(t, []store.Field{store.FieldEmail, store.FieldNotes, store.FieldLinkedInURL}, report.Unchanged)
}

func TestMergeRejectsInvalidWithoutClearing(t *testing.T) {
	d := draftOf(map[store.Field]string{store.FieldEmail: "john@acme.io", store.FieldPhone: "+1 415 555 0134"})

	next, report := Merge(d, map[string]string{
		"email":    "john at acme",
		"phone":    "12345",
		"linkedin": "twitter.com/js",
		"shoe":     "42",
	})

	assert.Equal(t, "john@acme.io", next.Get(store.FieldEmail))
	assert.Equal(t, "+1 415 555 0134", next.Get(store.FieldPhone))
	assert.False(t, next.Has(store.FieldLinkedInURL))
	assert.Len(t, report.Rejected, 4)
	assert.Empty(t, report.Applied)
}

func TestMergeAppendsNotes(t *testing.T) {
	d := draftOf(map[store.Field]string{store.FieldNotes: "Likes golf"})

	next, _ := Merge(d, map[string]string{"note": "Has two kids"})
	next, report := Merge(next, map[string]string{"notes": "likes golf"})

	assert.Equal(t, "Likes golf\nHas two kids", next.Get(store.FieldNotes))
	assert.Equal(t, []store.Field{store.FieldNotes}, report.Unchanged)
}

func TestMergeNormalizesValues(t *testing.T) {
	next, report := Merge(nil, map[string]string{
		"full_name":    "  Sarah   Chen ",
		"email":        "Sarah@Example.COM.",
		"linkedin_url": "www.linkedin.com/in/sarahchen",
		"website":      "sarahchen.dev",
		"address":      "Berlin",
	})

	assert.Empty(t, report.Rejected)
	assert.Equal(t, map[string]string{
		"name":         "Sarah Chen",
		"email":        "sarah@example.com",
		"linkedin_url": "https://www.linkedin.com/in/sarahchen",
		"website":      "https://sarahchen.dev",
		"location":     "Berlin",
	}, next.ToMap())
}

func TestNormalizeRejectsNamesWithDigits(t *testing.T) {
	_, err := Normalize(store.FieldName, "John 2")
	assert.Error(t, err)

	v, err := Normalize(store.FieldPhone, "(415) 555-0134")
	assert.NoError(t, err)
	assert.Equal(t, "(415) 555-0134", v)
}
