// Package sweeper periodically drives the inactivity auto-commit path for every session.
package sweeper

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/pkg/conversation/lifecycle"
	"ai-networking-be/pkg/store"
)

// Sessions is the slice of the session repository the sweeper needs.
type Sessions interface {
	UserIDs() []string
	WithSession(ctx context.Context, userID string, fn func(*store.UserSession) error) error
}

type TimeoutHandler interface {
	AutoCommitIfDue(ctx context.Context, s *store.UserSession, now time.Time) (*lifecycle.Outcome, error)
}

// Result summarises one tick.
type Result struct {
	Checked   int
	Committed int
	Skipped   int
	Failed    int
}

type Sweeper struct {
	sessions    Sessions
	handler     TimeoutHandler
	interval    time.Duration
	concurrency int
	clock       func() time.Time
	logger      logger.ILogger
}

func New(sessions Sessions, handler TimeoutHandler, interval time.Duration, clock func() time.Time, log logger.ILogger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if clock == nil {
		clock = time.Now
	}
	return &Sweeper{
		sessions:    sessions,
		handler:     handler,
		interval:    interval,
		concurrency: 8,
		clock:       clock,
		logger:      log,
	}
}

// Run ticks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info(logger.ModuleSweeper, "Sweeper started", map[string]interface{}{"interval": s.interval.String()})
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(logger.ModuleSweeper, "Sweeper stopped", nil)
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick checks every session once. Each user is handled under that user's slot,
// and the deadline is re-checked there, so a message that arrived in between wins.
// A failure or panic for one user never stops the sweep.
func (s *Sweeper) Tick(ctx context.Context) Result {
	var committed, skipped, failed atomic.Int64
	ids := s.sessions.UserIDs()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, id := range ids {
		userID := id
		g.Go(func() error {
			out, err := s.sweepOne(gctx, userID)
			switch {
			case err != nil:
				failed.Add(1)
			case out == nil:
			case out.Kind == lifecycle.OutcomeCommitted:
				committed.Add(1)
			case out.Kind == lifecycle.OutcomeSkipped:
				skipped.Add(1)
			}
			// never abort siblings
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		Checked:   len(ids),
		Committed: int(committed.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
	}
	if res.Committed+res.Skipped+res.Failed > 0 {
		s.logger.Info(logger.ModuleSweeper, "Sweep finished", map[string]interface{}{
			"checked":   res.Checked,
			"committed": res.Committed,
			"skipped":   res.Skipped,
			"failed":    res.Failed,
		})
	}
	return res
}

func (s *Sweeper) sweepOne(ctx context.Context, userID string) (out *lifecycle.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweeper panic for %s: %v", userID, r)
			s.logger.Error(logger.ModuleSweeper, "Recovered panic while sweeping", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}()

	err = s.sessions.WithSession(ctx, userID, func(session *store.UserSession) error {
		var herr error
		out, herr = s.handler.AutoCommitIfDue(ctx, session, s.clock())
		return herr
	})
	if err != nil {
		s.logger.Error(logger.ModuleSweeper, "Auto-commit failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
	return out, err
}
