package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinishAndCancelPhrases(t *testing.T) {
	finish := []string{"done", "Done!", "ok done thanks", "That's all", "save it", "all done, thank you"}
	for _, text := range finish {
		assert.True(t, IsFinishPhrase(text), text)
		assert.False(t, IsCancelPhrase(text), text)
	}

	cancel := []string{"cancel", "Actually, cancel.", "never mind", "forget it", "discard", "abort"}
	for _, text := range cancel {
		assert.True(t, IsCancelPhrase(text), text)
		assert.False(t, IsFinishPhrase(text), text)
	}

	neither := []string{"done deal with Acme", "cancel his meeting and add his email", "Add John"}
	for _, text := range neither {
		assert.False(t, IsFinishPhrase(text), text)
		assert.False(t, IsCancelPhrase(text), text)
	}
}

func TestAffirmativeAndNegative(t *testing.T) {
	assert.True(t, IsAffirmative("Yes"))
	assert.True(t, IsAffirmative("ok"))
	assert.True(t, IsAffirmative("looks good!"))
	assert.False(t, IsAffirmative("yes he is the CTO"))

	assert.True(t, IsNegative("no"))
	assert.True(t, IsNegative("not yet"))
	assert.False(t, IsNegative("no email yet, add phone"))
}

func TestHasCorrectionMarker(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Oh wait, add his email ahmed@x.com", true},
		{"you forgot her phone", true},
		{"also add that he likes golf", true},
		{"wait, the email is a@b.co", true},
		{"wait what", false},
		{"Add Lisa", false},
		{"his email is ahmed@x.com", true},
		{"wait", true},
		{"Wait!", true},
		{"oh wait", true},
		{"actually, wait", true},
		{"hold on", true},
		{"one more thing", true},
		{"wait for me", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, HasCorrectionMarker(tt.text))
		})
	}
}

func TestHasNewPersonCue(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Add new contact Lisa Chen", true},
		{"add someone else", true},
		{"I also met Lisa Chen", true},
		{"another person: Raj", true},
		{"add a different person", true},
		{"add new", true},
		{"add new email mike@pearson.com", false},
		{"also add his phone", false},
		{"He's the CEO", false},
		{"Add Lisa instead", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, HasNewPersonCue(tt.text))
		})
	}
}
