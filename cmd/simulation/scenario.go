package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"ai-networking-be/internal/bootstrap"
	"ai-networking-be/internal/config"
	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/internal/repository/memory"
	"ai-networking-be/internal/repository/specification"
	"ai-networking-be/pkg/classifier"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted conversation. Steps run in order against a fresh
// in-memory stack whose clock only moves when a step says so.
type Scenario struct {
	Name  string `yaml:"name"`
	User  string `yaml:"user"`
	Steps []Step `yaml:"steps"`
	// Contacts is the number of stored contacts expected at the end, if set.
	Contacts *int `yaml:"contacts"`
}

type Step struct {
	Wait   time.Duration `yaml:"wait"`
	Say    string        `yaml:"say"`
	Sweep  bool          `yaml:"sweep"`
	Expect *Expectation  `yaml:"expect"`
}

type Expectation struct {
	Action   string            `yaml:"action"`
	Rule     string            `yaml:"rule"`
	State    string            `yaml:"state"`
	Contains string            `yaml:"contains"`
	Draft    map[string]string `yaml:"draft"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if sc.User == "" {
		sc.User = "sim-user"
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("%s has no steps", path)
	}
	return &sc, nil
}

// Runner replays scenarios and reports every expectation that did not hold.
type Runner struct {
	cfg        *config.Config
	classifier classifier.Classifier
	out        io.Writer
	log        logger.ILogger
}

func NewRunner(cfg *config.Config, cls classifier.Classifier, out io.Writer) *Runner {
	return &Runner{cfg: cfg, classifier: cls, out: out, log: logger.NewNopLogger()}
}

func (r *Runner) Run(ctx context.Context, sc *Scenario) ([]string, error) {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	contacts := memory.NewContactRepository(clock)
	stack := bootstrap.NewConversationStack(r.cfg, memory.NewRepositoryFactory(contacts), bootstrap.StackOptions{
		Classifier: r.classifier,
		Clock:      clock,
	}, r.log)

	header := color.New(color.FgCyan, color.Bold)
	user := color.New(color.FgYellow)
	bot := color.New(color.FgGreen)
	dim := color.New(color.Faint)
	bad := color.New(color.FgRed)

	header.Fprintf(r.out, "=== %s ===\n", sc.Name)

	var failures []string
	for i, step := range sc.Steps {
		if step.Wait > 0 {
			now = now.Add(step.Wait)
			dim.Fprintf(r.out, "   ... %s later\n", step.Wait)
		}

		if step.Sweep {
			res := stack.Sweeper.Tick(ctx)
			dim.Fprintf(r.out, "   [sweep] checked=%d committed=%d skipped=%d failed=%d\n",
				res.Checked, res.Committed, res.Skipped, res.Failed)
		}

		if step.Say == "" {
			if step.Expect != nil && step.Expect.State != "" {
				snap, _, err := stack.Sessions.Snapshot(ctx, sc.User)
				if err != nil {
					return failures, err
				}
				if snap != nil && string(snap.State) != step.Expect.State {
					failures = append(failures, fmt.Sprintf("step %d: state %s, want %s", i+1, snap.State, step.Expect.State))
				}
			}
			continue
		}

		user.Fprintf(r.out, "USER: %s\n", step.Say)
		reply, err := stack.Engine.HandleMessage(ctx, sc.User, step.Say)
		if err != nil {
			return failures, fmt.Errorf("step %d: %w", i+1, err)
		}
		bot.Fprintf(r.out, "BOT:  %s\n", strings.ReplaceAll(reply.Text, "\n", "\n      "))
		dim.Fprintf(r.out, "      action=%s rule=%s state=%s\n", reply.Action, reply.Rule, reply.State)

		if step.Expect == nil {
			continue
		}
		for _, msg := range check(step.Expect, string(reply.Action), reply.Rule, string(reply.State), reply.Text, reply.Draft) {
			failures = append(failures, fmt.Sprintf("step %d: %s", i+1, msg))
			bad.Fprintf(r.out, "  ✗ %s\n", msg)
		}
	}

	if sc.Contacts != nil {
		n, err := contacts.Count(ctx, specification.ByUserID{UserID: sc.User})
		if err != nil {
			return failures, err
		}
		if int(n) != *sc.Contacts {
			failures = append(failures, fmt.Sprintf("stored %d contacts, want %d", n, *sc.Contacts))
		}
	}

	all, err := contacts.FindAll(ctx, specification.ByUserID{UserID: sc.User})
	if err != nil {
		return failures, err
	}
	for _, c := range all {
		header.Fprintf(r.out, "saved: %s", c.Name)
		keys := make([]string, 0, len(c.Snapshot))
		for k := range c.Snapshot {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if k != "name" {
				fmt.Fprintf(r.out, " %s=%q", k, c.Snapshot[k])
			}
		}
		fmt.Fprintln(r.out)
	}
	return failures, nil
}

func check(exp *Expectation, action, rule, state, text string, draft map[string]string) []string {
	var out []string
	if exp.Action != "" && exp.Action != action {
		out = append(out, fmt.Sprintf("action %s, want %s", action, exp.Action))
	}
	if exp.Rule != "" && exp.Rule != rule {
		out = append(out, fmt.Sprintf("rule %s, want %s", rule, exp.Rule))
	}
	if exp.State != "" && exp.State != state {
		out = append(out, fmt.Sprintf("state %s, want %s", state, exp.State))
	}
	if exp.Contains != "" && !strings.Contains(strings.ToLower(text), strings.ToLower(exp.Contains)) {
		out = append(out, fmt.Sprintf("reply %q does not mention %q", text, exp.Contains))
	}
	for k, v := range exp.Draft {
		if draft[k] != v {
			out = append(out, fmt.Sprintf("draft %s=%q, want %q", k, draft[k], v))
		}
	}
	return out
}
