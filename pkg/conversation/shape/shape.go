// Package shape holds the lexical heuristics used to judge what a message looks like:
// a bare field value, a reference to the current subject, or a new person being declared.
package shape

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern    = regexp.MustCompile(`\+?\(?\d{1,4}\)?[\s.\-]?\d{2,4}[\s.\-]?\d{3,4}(?:[\s.\-]?\d{2,4})?`)
	urlPattern      = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"']+`)
	linkedInPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:[a-z]{2,3}\.)?linkedin\.com/(?:in|company|pub)/[^\s<>"']+`)
	companyPattern  = regexp.MustCompile(`\b(?:[Ww]orks at|[Ww]orking at|[Ww]orks for|at)\s+([A-Z][\w&.\-]*(?:\s+[A-Z][\w&.\-]*){0,3})`)
)

// longer lead-ins come first so "add new contact Lisa" yields Lisa, not "new"
var declarePattern = regexp.MustCompile(`(?i)^(?:please\s+)?(?:` +
	`add\s+(?:a\s+)?new\s+(?:contact|person)(?:\s+(?:for|named|called))?` +
	`|add\s+(?:another|a\s+different)\s+(?:contact|person)(?:\s+(?:named|called))?` +
	`|new\s+(?:contact|person)(?:\s+(?:for|named|called))?` +
	`|another\s+(?:contact|person)(?:\s+(?:is|named|called))?` +
	`|create contact(?:\s+for)?|save contact(?:\s+for)?` +
	`|(?:i\s+)?(?:also\s+|just\s+)?met(?:\s+(?:with|someone\s+(?:named|called)))?` +
	`|meet|add)\s*:?\s+(.+)$`)

// titleKeywords are job titles recognised without any surrounding context.
var titleKeywords = []string{
	"cofounder", "founder", "ceo", "cto", "cfo", "coo", "cmo", "vp",
	"vice president", "president", "director", "head of", "manager", "engineer",
	"developer", "partner", "investor", "lead",
}

var acronymTitles = map[string]bool{"ceo": true, "cto": true, "cfo": true, "coo": true, "cmo": true, "vp": true}

var pronouns = map[string]bool{
	"he": true, "she": true, "they": true, "him": true, "her": true, "them": true,
	"his": true, "hers": true, "their": true, "theirs": true,
	"he's": true, "she's": true, "they're": true, "he'll": true, "she'll": true,
}

// declaration words that end a name ("Add Lisa instead", "Add Mike to my contacts")
var nameStopWords = map[string]bool{
	"instead": true, "too": true, "also": true, "please": true, "to": true, "from": true,
	"at": true, "as": true, "the": true, "a": true, "an": true, "and": true, "who": true,
	"he": true, "she": true, "they": true, "his": true, "her": true, "their": true,
}

// Words splits text on whitespace.
func Words(text string) []string {
	return strings.Fields(text)
}

// WordCount counts whitespace separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Normalize lowercases text and strips punctuation other than apostrophes,
// collapsing whitespace. "Actually, CANCEL!" becomes "actually cancel".
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '\'':
			b.WriteRune(r)
		case r == '’':
			b.WriteRune('\'')
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func FindEmail(text string) string {
	return emailPattern.FindString(text)
}

// FindPhone returns the first phone-like run with at least seven digits.
func FindPhone(text string) string {
	stripped := emailPattern.ReplaceAllString(text, " ")
	stripped = urlPattern.ReplaceAllString(stripped, " ")
	for _, candidate := range phonePattern.FindAllString(stripped, -1) {
		if CountDigits(candidate) >= 7 {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}

func FindLinkedIn(text string) string {
	return strings.TrimRight(linkedInPattern.FindString(text), ".,;)")
}

// FindWebsite returns the first URL that is not a LinkedIn profile.
func FindWebsite(text string) string {
	for _, u := range urlPattern.FindAllString(text, -1) {
		if strings.Contains(strings.ToLower(u), "linkedin.com") {
			continue
		}
		return strings.TrimRight(u, ".,;)")
	}
	return ""
}

// FindTitle returns a recognised job title phrase, e.g. "CEO" or "Head of Sales".
func FindTitle(text string) string {
	lower := " " + Normalize(text) + " "
	for _, kw := range titleKeywords {
		idx := strings.Index(lower, " "+kw+" ")
		if idx < 0 {
			continue
		}
		phrase := kw
		rest := strings.Fields(lower[idx+len(kw)+1:])
		if strings.HasSuffix(kw, " of") && len(rest) > 0 {
			phrase = kw + " " + rest[0]
		} else if len(rest) >= 2 && rest[0] == "of" {
			phrase = kw + " of " + rest[1]
		}
		return formatTitle(phrase)
	}
	return ""
}

func formatTitle(phrase string) string {
	words := strings.Fields(phrase)
	for i, w := range words {
		switch {
		case acronymTitles[w]:
			words[i] = strings.ToUpper(w)
		case w == "of" && i > 0:
		default:
			words[i] = capitalize(w)
		}
	}
	return strings.Join(words, " ")
}

// FindCompany returns a capitalised organisation named after "at" / "works at".
func FindCompany(text string) string {
	m := companyPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimRight(m[1], ".,;!")
}

// HasFieldToken reports whether text carries a bare field-shaped value.
func HasFieldToken(text string) bool {
	return FindEmail(text) != "" ||
		FindPhone(text) != "" ||
		urlPattern.MatchString(text) ||
		FindTitle(text) != ""
}

// HasPronoun reports whether text contains a third-person pronoun.
func HasPronoun(text string) bool {
	for _, w := range strings.Fields(Normalize(text)) {
		if pronouns[w] {
			return true
		}
	}
	return false
}

// DeclaredSubject returns the person explicitly introduced by text, such as
// "Lisa" in "Add Lisa instead" or "John Smith" in "I met John Smith at ...".
// Pronoun-led phrases ("add his email") declare nobody.
func DeclaredSubject(text string) string {
	line := strings.TrimSpace(firstLine(text))
	m := declarePattern.FindStringSubmatch(line)
	if len(m) < 2 {
		return ""
	}
	var name []string
	for _, raw := range strings.Fields(m[1]) {
		w := strings.Trim(raw, ".,;:!?\"()")
		lower := strings.ToLower(w)
		if w == "" || nameStopWords[lower] || acronymTitles[lower] {
			break
		}
		r := []rune(w)
		if !unicode.IsUpper(r[0]) {
			break
		}
		name = append(name, w)
		if len(name) == 3 || strings.ContainsAny(raw[len(raw)-1:], ",;:!?") {
			break
		}
	}
	return strings.Join(name, " ")
}

// SameSubject reports whether two names plausibly refer to the same person:
// equal ignoring case, or one is a whole-word part of the other ("Mike" / "Mike Ross").
func SameSubject(a, b string) bool {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return containsWords(a, b) || containsWords(b, a)
}

// MentionsName reports whether text contains name (or its first word) as whole words.
func MentionsName(text, name string) bool {
	n := Normalize(name)
	if n == "" {
		return false
	}
	t := strings.TrimSpace(strings.ReplaceAll(Normalize(text)+" ", "'s ", " "))
	if containsWords(t, n) {
		return true
	}
	first := strings.Fields(n)[0]
	return len(first) > 2 && containsWords(t, first)
}

// ExtractFields pulls every recognisable field out of a (possibly multi-line)
// message as a single batch. Later lines win for the same field.
func ExtractFields(text string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if v := FindEmail(line); v != "" {
			fields["email"] = v
		}
		if v := FindPhone(line); v != "" {
			fields["phone"] = v
		}
		if v := FindLinkedIn(line); v != "" {
			fields["linkedin_url"] = v
		}
		if v := FindWebsite(line); v != "" {
			fields["website"] = v
		}
		if v := FindTitle(line); v != "" {
			fields["title"] = v
		}
		if v := FindCompany(line); v != "" {
			fields["company"] = v
		}
		if v := DeclaredSubject(line); v != "" {
			fields["name"] = v
		}
	}
	return fields
}

func CountDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func containsWords(haystack, needle string) bool {
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

func capitalize(w string) string {
	r := []rune(w)
	if len(r) == 0 {
		return w
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
