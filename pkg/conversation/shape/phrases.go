package shape

import "strings"

var finishPhrases = setOf(
	"done", "finished", "finish", "complete", "completed", "that's all", "thats all",
	"that's it", "thats it", "save", "save it", "save contact", "save this", "all done",
	"i'm done", "im done", "that is all", "wrap it up",
)

var cancelPhrases = setOf(
	"cancel", "cancel it", "cancel that", "nevermind", "never mind", "forget it",
	"forget that", "discard", "discard it", "abort", "scratch that", "don't save", "dont save",
	"stop",
)

var affirmPhrases = setOf(
	"yes", "y", "yep", "yeah", "yup", "ok", "okay", "sure", "confirm", "confirmed",
	"correct", "looks good", "go ahead", "yes save", "yes save it", "yes please",
)

var denyPhrases = setOf(
	"no", "n", "nope", "not yet", "hold on", "wait", "change it", "not quite",
)

// filler words that may surround a command ("ok done thanks", "actually, cancel").
var fillerWords = setOf(
	"ok", "okay", "alright", "actually", "please", "so", "oh", "well", "thanks", "thx", "now", "and",
)

// bare follow-ups that announce a correction before saying what it is
var correctionPrompts = setOf(
	"wait", "wait a sec", "wait a second", "hold on", "hang on", "one more thing",
)

var correctionMarkers = []string{
	"add his ", "add her ", "add their ", "you forgot", "i forgot", "forgot to",
	"also add", "also include", "update his ", "update her ", "update their ",
	"his email", "her email", "his phone", "her phone", "his number", "her number",
	"his linkedin", "her linkedin", "change his ", "change her ", "fix his ", "fix her ",
}

// phrases announcing a person other than the one being drafted
var newPersonCues = []string{
	"new contact", "new person", "another person", "another contact", "someone else",
	"somebody else", "different person", "also met",
}

var contactInfoWords = []string{
	"email", "phone", "number", "linkedin", "title", "company", "website", "role", "notes", "address",
}

// IsFinishPhrase reports whether text is an explicit request to save the draft.
func IsFinishPhrase(text string) bool {
	return finishPhrases[stripFiller(Normalize(text))]
}

// IsCancelPhrase reports whether text is an explicit request to throw the draft away.
func IsCancelPhrase(text string) bool {
	return cancelPhrases[stripFiller(Normalize(text))]
}

// IsAffirmative matches a confirmation answer such as "yes" or "looks good".
func IsAffirmative(text string) bool {
	n := Normalize(text)
	return affirmPhrases[n] || affirmPhrases[stripFiller(n)]
}

func IsNegative(text string) bool {
	n := Normalize(text)
	return denyPhrases[n] || denyPhrases[stripFiller(n)]
}

// HasCorrectionMarker recognises follow-ups to a contact that was just saved,
// e.g. "oh wait, add his email", "you forgot her phone" or a bare "wait".
func HasCorrectionMarker(text string) bool {
	lower := " " + strings.Join(strings.Fields(strings.ToLower(text)), " ") + " "
	for _, m := range correctionMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	n := Normalize(text)
	if correctionPrompts[stripFiller(n)] {
		return true
	}
	if !(strings.HasPrefix(n, "wait ") || strings.HasPrefix(n, "oh wait") || strings.HasPrefix(n, "actually ")) {
		return false
	}
	if HasFieldToken(text) {
		return true
	}
	for _, w := range contactInfoWords {
		if containsWords(n, w) {
			return true
		}
	}
	return false
}

// HasNewPersonCue reports whether text announces a different person, e.g.
// "add someone else" or "I also met Lisa". "add new email ..." is not a cue.
func HasNewPersonCue(text string) bool {
	n := Normalize(text)
	for _, cue := range newPersonCues {
		if containsWords(n, cue) {
			return true
		}
	}
	words := strings.Fields(n)
	for i := 0; i+1 < len(words); i++ {
		if words[i] != "add" || words[i+1] != "new" {
			continue
		}
		if i+2 == len(words) || !isContactInfoWord(words[i+2]) {
			return true
		}
	}
	return false
}

func isContactInfoWord(w string) bool {
	for _, c := range contactInfoWords {
		if w == c {
			return true
		}
	}
	return false
}

func stripFiller(n string) string {
	words := strings.Fields(n)
	for len(words) > 0 && fillerWords[words[0]] {
		words = words[1:]
	}
	for len(words) > 0 && fillerWords[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	if l := len(words); l >= 2 && words[l-2] == "thank" && words[l-1] == "you" {
		words = words[:l-2]
	}
	return strings.Join(words, " ")
}

func setOf(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
