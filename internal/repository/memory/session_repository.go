package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionPersister stores session snapshots outside the process so that drafts
// survive a restart. Load returns nil, nil for unknown users; List returns every
// user with a snapshot.
type SessionPersister interface {
	Save(ctx context.Context, session *store.UserSession) error
	Load(ctx context.Context, userID string) (*store.UserSession, error)
	List(ctx context.Context) ([]string, error)
}

// slot is one user's session plus the lock serializing everything done to it.
type slot struct {
	lock    fifoLock
	session *store.UserSession
}

// SessionRepository keeps one session per user. There is no global lock on the
// hot path: each user has a slot with its own lock.
type SessionRepository struct {
	slots     *cache.Cache
	persister SessionPersister
	clock     func() time.Time
	logger    logger.ILogger
}

type Option func(*SessionRepository)

func WithPersister(p SessionPersister) Option {
	return func(r *SessionRepository) {
		r.persister = p
	}
}

func WithClock(clock func() time.Time) Option {
	return func(r *SessionRepository) {
		r.clock = clock
	}
}

func NewSessionRepository(log logger.ILogger, opts ...Option) *SessionRepository {
	// Sessions live for the life of the process; no janitor goroutine.
	r := &SessionRepository{
		slots:  cache.New(cache.NoExpiration, 0),
		clock:  time.Now,
		logger: log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SessionRepository) slot(userID string) *slot {
	if x, found := r.slots.Get(userID); found {
		return x.(*slot)
	}
	s := &slot{}
	// Add fails when another goroutine created the slot first; use theirs.
	if err := r.slots.Add(userID, s, cache.NoExpiration); err != nil {
		x, _ := r.slots.Get(userID)
		return x.(*slot)
	}
	return s
}

// WithSession runs fn with exclusive access to the user's session, creating the
// session on first use. Calls for the same user run one at a time in arrival order.
func (r *SessionRepository) WithSession(ctx context.Context, userID string, fn func(*store.UserSession) error) error {
	if userID == "" {
		return fmt.Errorf("session: empty user id")
	}

	sl := r.slot(userID)
	if err := sl.lock.Lock(ctx); err != nil {
		return fmt.Errorf("session %s: %w", userID, err)
	}
	defer sl.lock.Unlock()

	if sl.session == nil {
		sl.session = r.load(ctx, userID)
	}

	var before *store.UserSession
	if r.persister != nil {
		before = sl.session.Clone()
	}

	err := fn(sl.session)

	if verr := sl.session.Validate(); verr != nil {
		r.logger.Error(logger.ModuleSession, "Session invariant violated", map[string]interface{}{
			"user_id": userID,
			"error":   verr.Error(),
		})
	}
	// Unchanged sessions are not rewritten, so sweeps stay read-only and the
	// snapshot TTL keeps counting from the last real change.
	if before != nil && !reflect.DeepEqual(before, sl.session.Clone()) {
		r.persist(ctx, sl.session)
	}
	return err
}

// Restore loads every persisted session that still holds a draft so the
// sweeper can see it after a restart. It returns how many were restored.
func (r *SessionRepository) Restore(ctx context.Context) (int, error) {
	if r.persister == nil {
		return 0, nil
	}
	ids, err := r.persister.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("session: list snapshots: %w", err)
	}

	restored := 0
	for _, userID := range ids {
		snap, err := r.persister.Load(ctx, userID)
		if err != nil {
			r.logger.Warn(logger.ModuleSession, "Failed to restore session snapshot", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
			continue
		}
		if snap == nil || !snap.HasDraft() || snap.Validate() != nil {
			continue
		}

		sl := r.slot(userID)
		if err := sl.lock.Lock(ctx); err != nil {
			return restored, fmt.Errorf("session %s: %w", userID, err)
		}
		if sl.session == nil {
			sl.session = snap
			restored++
		}
		sl.lock.Unlock()
	}

	r.logger.Info(logger.ModuleSession, "Session snapshots restored", map[string]interface{}{
		"snapshots": len(ids),
		"drafts":    restored,
	})
	return restored, nil
}

// Snapshot returns a copy of the user's session without creating one.
func (r *SessionRepository) Snapshot(ctx context.Context, userID string) (*store.UserSession, bool, error) {
	x, found := r.slots.Get(userID)
	if !found {
		return nil, false, nil
	}
	sl := x.(*slot)
	if err := sl.lock.Lock(ctx); err != nil {
		return nil, false, fmt.Errorf("session %s: %w", userID, err)
	}
	defer sl.lock.Unlock()

	if sl.session == nil {
		return nil, false, nil
	}
	return sl.session.Clone(), true, nil
}

// UserIDs lists every user with a session slot, sorted.
func (r *SessionRepository) UserIDs() []string {
	items := r.slots.Items()
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *SessionRepository) Count() int {
	return r.slots.ItemCount()
}

func (r *SessionRepository) load(ctx context.Context, userID string) *store.UserSession {
	if r.persister != nil {
		restored, err := r.persister.Load(ctx, userID)
		if err != nil {
			r.logger.Warn(logger.ModuleSession, "Failed to restore session snapshot", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		} else if restored != nil {
			if verr := restored.Validate(); verr == nil {
				r.logger.Info(logger.ModuleSession, "Session restored", map[string]interface{}{
					"user_id": userID,
					"state":   restored.State,
				})
				return restored
			}
		}
	}

	s := store.NewUserSession(userID)
	s.CreatedAt = r.clock()
	r.logger.Debug(logger.ModuleSession, "Session created", map[string]interface{}{"user_id": userID})
	return s
}

func (r *SessionRepository) persist(ctx context.Context, s *store.UserSession) {
	if r.persister == nil {
		return
	}
	if err := r.persister.Save(ctx, s.Clone()); err != nil {
		r.logger.Warn(logger.ModuleSession, "Failed to save session snapshot", map[string]interface{}{
			"user_id": s.UserID,
			"error":   err.Error(),
		})
	}
}
