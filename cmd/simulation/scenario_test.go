package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-networking-be/internal/config"
	"ai-networking-be/pkg/classifier"
)

func testConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{
			AutoCommitAfter:     2 * time.Minute,
			SameBreathWindow:    30 * time.Second,
			InactivityThreshold: 60 * time.Minute,
			ShortMessageWords:   8,
			SweepInterval:       5 * time.Second,
			CorrectionWindow:    10 * time.Minute,
			RecentSubjects:      10,
		},
		Ai: config.AIConfig{LLMProvider: "rules", ClassifierTimeout: time.Second},
	}
}

func TestScenariosPass(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			sc, err := LoadScenario(path)
			require.NoError(t, err)

			var out bytes.Buffer
			failures, err := NewRunner(testConfig(), classifier.NewRuleClassifier(), &out).Run(context.Background(), sc)
			require.NoError(t, err)
			assert.Empty(t, failures, out.String())
		})
	}
}

func TestRunnerReportsBrokenExpectations(t *testing.T) {
	sc := &Scenario{
		Name: "wrong",
		User: "u1",
		Steps: []Step{
			{Say: "Add Mike", Expect: &Expectation{Action: "finish", Draft: map[string]string{"name": "Lisa"}}},
		},
	}
	zero := 0
	sc.Contacts = &zero

	failures, err := NewRunner(testConfig(), classifier.NewRuleClassifier(), &bytes.Buffer{}).Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Len(t, failures, 2)
}

func TestLoadScenarioRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: empty\n"), 0o600))

	_, err := LoadScenario(path)
	assert.Error(t, err)
}
