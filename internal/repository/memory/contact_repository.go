package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ai-networking-be/internal/entity"
	"ai-networking-be/internal/repository/contract"
	"ai-networking-be/internal/repository/specification"
	"ai-networking-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ContactRepository keeps committed contacts in process memory. It backs the
// simulator and tests, and the server when no database is configured.
type ContactRepository struct {
	items *cache.Cache
	clock func() time.Time
}

func NewContactRepository(clock func() time.Time) *ContactRepository {
	if clock == nil {
		clock = time.Now
	}
	return &ContactRepository{
		items: cache.New(cache.NoExpiration, 0),
		clock: clock,
	}
}

var _ contract.ContactRepository = (*ContactRepository)(nil)

func (r *ContactRepository) Create(ctx context.Context, contact *entity.Contact) error {
	if contact.Id == uuid.Nil {
		contact.Id = uuid.New()
	}
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = r.clock()
	}
	if err := r.items.Add(contact.Id.String(), clone(contact), cache.NoExpiration); err != nil {
		return fmt.Errorf("contact %s already exists", contact.Id)
	}
	return nil
}

func (r *ContactRepository) Update(ctx context.Context, contact *entity.Contact) error {
	if _, ok := r.items.Get(contact.Id.String()); !ok {
		return fmt.Errorf("contact %s not found", contact.Id)
	}
	now := r.clock()
	contact.UpdatedAt = &now
	r.items.Set(contact.Id.String(), clone(contact), cache.NoExpiration)
	return nil
}

// Delete soft deletes, matching the gorm repository.
func (r *ContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	v, ok := r.items.Get(id.String())
	if !ok {
		return nil
	}
	c := clone(v.(*entity.Contact))
	now := r.clock()
	c.DeletedAt = &now
	c.IsDeleted = true
	r.items.Set(id.String(), c, cache.NoExpiration)
	return nil
}

func (r *ContactRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Contact, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *ContactRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Contact, error) {
	var (
		matchers []specification.ContactMatcher
		order    *specification.OrderBy
		page     *specification.Pagination
	)
	for _, s := range specs {
		switch v := s.(type) {
		case specification.ContactMatcher:
			matchers = append(matchers, v)
		case specification.OrderBy:
			order = &v
		case specification.Pagination:
			page = &v
		default:
			return nil, fmt.Errorf("specification %T is not supported in memory", s)
		}
	}

	var out []*entity.Contact
	for _, item := range r.items.Items() {
		c := item.Object.(*entity.Contact)
		if c.IsDeleted || !matchAll(c, matchers) {
			continue
		}
		out = append(out, clone(c))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if order != nil && order.Field == "name" {
			if order.Desc {
				return a.Name > b.Name
			}
			return a.Name < b.Name
		}
		if order != nil && !order.Desc {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	if page != nil {
		if page.Offset >= len(out) {
			return nil, nil
		}
		out = out[page.Offset:]
		if page.Limit > 0 && page.Limit < len(out) {
			out = out[:page.Limit]
		}
	}
	return out, nil
}

func (r *ContactRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func matchAll(c *entity.Contact, matchers []specification.ContactMatcher) bool {
	for _, m := range matchers {
		if !m.MatchContact(c) {
			return false
		}
	}
	return true
}

func clone(c *entity.Contact) *entity.Contact {
	cp := *c
	if c.Snapshot != nil {
		cp.Snapshot = make(map[string]string, len(c.Snapshot))
		for k, v := range c.Snapshot {
			cp.Snapshot[k] = v
		}
	}
	return &cp
}

// RepositoryFactory hands out units of work over a ContactRepository. Begin
// takes a process wide mutex so that find-then-write sequences do not
// interleave; there is no rollback of writes already made.
type RepositoryFactory struct {
	contacts *ContactRepository
	mu       sync.Mutex
}

func NewRepositoryFactory(contacts *ContactRepository) *RepositoryFactory {
	return &RepositoryFactory{contacts: contacts}
}

func (f *RepositoryFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{factory: f}
}

type unitOfWork struct {
	factory *RepositoryFactory
	active  bool
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.active {
		return fmt.Errorf("transaction already started")
	}
	u.factory.mu.Lock()
	u.active = true
	return nil
}

func (u *unitOfWork) Commit() error {
	if !u.active {
		return fmt.Errorf("no transaction to commit")
	}
	u.active = false
	u.factory.mu.Unlock()
	return nil
}

func (u *unitOfWork) Rollback() error {
	if !u.active {
		return fmt.Errorf("no transaction to rollback")
	}
	u.active = false
	u.factory.mu.Unlock()
	return nil
}

func (u *unitOfWork) ContactRepository() contract.ContactRepository {
	return u.factory.contacts
}
