// Package continuity estimates whether a message extends the draft a user is building.
package continuity

import (
	"time"

	"ai-networking-be/pkg/conversation/shape"
	"ai-networking-be/pkg/store"
)

type Strength int

const (
	None Strength = iota
	Weak
	Moderate
	Strong
)

func (s Strength) String() string {
	switch s {
	case Weak:
		return "weak"
	case Moderate:
		return "moderate"
	case Strong:
		return "strong"
	default:
		return "none"
	}
}

// Signal is the detector's verdict for one message.
type Signal struct {
	Continuation bool
	Strength     Strength
	// NewTopic is set when the user has been away longer than the inactivity threshold.
	NewTopic bool
	// DifferentSubject is the person named by the message when it is not the draft's subject.
	DifferentSubject string
	// NewPerson is set when the message announces someone new ("add someone else"),
	// whether or not it names them.
	NewPerson bool
	Reasons   []string
}

type Config struct {
	ShortMessageWords   int
	SameBreathWindow    time.Duration
	InactivityThreshold time.Duration
}

func DefaultConfig() Config {
	return Config{
		ShortMessageWords:   8,
		SameBreathWindow:    30 * time.Second,
		InactivityThreshold: 60 * time.Minute,
	}
}

type Detector struct {
	cfg Config
}

func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.ShortMessageWords <= 0 {
		cfg.ShortMessageWords = def.ShortMessageWords
	}
	if cfg.SameBreathWindow <= 0 {
		cfg.SameBreathWindow = def.SameBreathWindow
	}
	if cfg.InactivityThreshold <= 0 {
		cfg.InactivityThreshold = def.InactivityThreshold
	}
	return &Detector{cfg: cfg}
}

// Detect is pure: it reads the session but never changes it.
func (d *Detector) Detect(session *store.UserSession, text string, elapsed time.Duration) Signal {
	var sig Signal
	if session == nil || !session.HasDraft() {
		return sig
	}

	subject := session.Subject()
	declared := shape.DeclaredSubject(text)

	if declared != "" && subject != "" && !shape.SameSubject(declared, subject) {
		sig.DifferentSubject = declared
		sig.Strength = Strong
		sig.add("names a different person")
		return sig
	}
	if shape.HasNewPersonCue(text) && (declared == "" || !shape.SameSubject(declared, subject)) {
		sig.NewPerson = true
		sig.DifferentSubject = declared
		sig.Strength = Strong
		sig.add("announces a new person")
		return sig
	}

	if elapsed > d.cfg.InactivityThreshold {
		sig.NewTopic = true
		sig.add("inactive beyond threshold")
		return sig
	}

	switch {
	case declared != "" && subject != "":
		sig.raise(Strong, "names the current subject")
	case subject != "" && shape.MentionsName(text, subject):
		sig.raise(Strong, "mentions the current subject")
	}
	if shape.HasPronoun(text) {
		sig.raise(Strong, "third-person pronoun")
	}
	if declared == "" && shape.HasFieldToken(text) {
		sig.raise(Strong, "bare field value")
	}
	if shape.WordCount(text) <= d.cfg.ShortMessageWords {
		sig.raise(Strong, "short message")
	}
	if elapsed < d.cfg.SameBreathWindow {
		sig.raise(Moderate, "same breath")
	}
	if sig.Strength == None {
		sig.raise(Weak, "draft open")
	}

	sig.Continuation = sig.Strength >= Moderate
	return sig
}

func (s *Signal) raise(to Strength, reason string) {
	if to > s.Strength {
		s.Strength = to
	}
	s.add(reason)
}

func (s *Signal) add(reason string) {
	s.Reasons = append(s.Reasons, reason)
}
