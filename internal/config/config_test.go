package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 120*time.Second, cfg.Session.AutoCommitAfter)
	assert.Equal(t, 30*time.Second, cfg.Session.SameBreathWindow)
	assert.Equal(t, 60*time.Minute, cfg.Session.InactivityThreshold)
	assert.Equal(t, 8, cfg.Session.ShortMessageWords)
	assert.Equal(t, 10, cfg.Session.RecentSubjects)
	assert.False(t, cfg.Session.ConfirmBeforeCommit)
	assert.Equal(t, 8*time.Second, cfg.Ai.ClassifierTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_AUTO_COMMIT_AFTER", "90s")
	t.Setenv("SESSION_SAME_BREATH_WINDOW", "15")
	t.Setenv("SESSION_CONFIRM_BEFORE_COMMIT", "true")
	t.Setenv("SESSION_SHORT_MESSAGE_WORDS", "not-a-number")

	cfg := Load()

	assert.Equal(t, 90*time.Second, cfg.Session.AutoCommitAfter)
	assert.Equal(t, 15*time.Second, cfg.Session.SameBreathWindow)
	assert.True(t, cfg.Session.ConfirmBeforeCommit)
	assert.Equal(t, 8, cfg.Session.ShortMessageWords)
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero auto commit", func(c *Config) { c.Session.AutoCommitAfter = 0 }},
		{"inactivity below same breath", func(c *Config) { c.Session.InactivityThreshold = time.Second }},
		{"negative sweep interval", func(c *Config) { c.Session.SweepInterval = -time.Second }},
		{"zero classifier timeout", func(c *Config) { c.Ai.ClassifierTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
