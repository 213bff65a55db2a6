package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-networking-be/internal/entity"
	"ai-networking-be/internal/mapper"
	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/internal/repository/contract"
	"ai-networking-be/internal/repository/specification"
	"ai-networking-be/internal/repository/unitofwork"
	"ai-networking-be/pkg/conversation/lifecycle"
	"ai-networking-be/pkg/conversation/merge"
	"ai-networking-be/pkg/store"

	"github.com/google/uuid"
)

const contactSourceChat = "chat"

// ContactCommitter writes finished drafts to contact storage. A draft updates
// the contact it was reopened from; otherwise it updates the owner's contact
// with the same email or, failing that, the same name, and only then creates one.
type ContactCommitter struct {
	uowFactory unitofwork.RepositoryFactory
	mapper     *mapper.ContactMapper
	clock      func() time.Time
	logger     logger.ILogger
}

var _ lifecycle.Committer = (*ContactCommitter)(nil)

func NewContactCommitter(uowFactory unitofwork.RepositoryFactory, clock func() time.Time, log logger.ILogger) *ContactCommitter {
	if clock == nil {
		clock = time.Now
	}
	return &ContactCommitter{
		uowFactory: uowFactory,
		mapper:     mapper.NewContactMapper(),
		clock:      clock,
		logger:     log,
	}
}

func (c *ContactCommitter) Commit(ctx context.Context, userID string, draft *store.Draft) (lifecycle.CommitResult, error) {
	if !draft.Identifiable() {
		return lifecycle.CommitResult{}, fmt.Errorf("draft has neither name nor email")
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return lifecycle.CommitResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer uow.Rollback()

	repo := uow.ContactRepository()
	existing, matchedBy, err := c.match(ctx, repo, userID, draft)
	if err != nil {
		return lifecycle.CommitResult{}, err
	}

	if existing == nil {
		contact := &entity.Contact{
			Id:        uuid.New(),
			UserId:    userID,
			Source:    contactSourceChat,
			CreatedAt: c.clock(),
		}
		c.mapper.ApplyDraft(contact, draft)
		if err := repo.Create(ctx, contact); err != nil {
			return lifecycle.CommitResult{}, fmt.Errorf("create contact: %w", err)
		}
		if err := uow.Commit(); err != nil {
			return lifecycle.CommitResult{}, fmt.Errorf("commit transaction: %w", err)
		}
		c.logger.Info(logger.ModuleLifecycle, "Contact created", map[string]interface{}{
			"user_id": userID,
			"ref":     contact.Id.String(),
		})
		return lifecycle.CommitResult{Ref: contact.Id.String(), Created: true}, nil
	}

	if matchedBy == "ref" {
		c.mapper.ApplyDraft(existing, draft)
	} else {
		c.mapper.ApplyDraft(existing, combine(c.mapper.ToDraft(existing), draft))
	}
	now := c.clock()
	existing.UpdatedAt = &now
	if err := repo.Update(ctx, existing); err != nil {
		return lifecycle.CommitResult{}, fmt.Errorf("update contact: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return lifecycle.CommitResult{}, fmt.Errorf("commit transaction: %w", err)
	}

	c.logger.Info(logger.ModuleLifecycle, "Contact updated", map[string]interface{}{
		"user_id":    userID,
		"ref":        existing.Id.String(),
		"matched_by": matchedBy,
	})
	return lifecycle.CommitResult{Ref: existing.Id.String(), Created: false}, nil
}

// Lookup loads a committed contact as a draft ready for reopening.
func (c *ContactCommitter) Lookup(ctx context.Context, userID, ref string) (*store.Draft, error) {
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil, store.ErrContactNotFound
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	contact, err := uow.ContactRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.ByUserID{UserID: userID},
	)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, store.ErrContactNotFound
	}

	d := c.mapper.ToDraft(contact)
	d.Ref = contact.Id.String()
	return d, nil
}

func (c *ContactCommitter) match(ctx context.Context, repo contract.ContactRepository, userID string, draft *store.Draft) (*entity.Contact, string, error) {
	owner := specification.ByUserID{UserID: userID}

	if draft.Ref != "" {
		if id, err := uuid.Parse(draft.Ref); err == nil {
			found, err := repo.FindOne(ctx, specification.ByID{ID: id}, owner)
			if err != nil {
				return nil, "", err
			}
			if found != nil {
				return found, "ref", nil
			}
		}
	}

	if email := draft.Get(store.FieldEmail); email != "" {
		found, err := repo.FindOne(ctx, owner, specification.EmailEqualsFold{Email: email})
		if err != nil {
			return nil, "", err
		}
		if found != nil {
			return found, "email", nil
		}
	}

	if name := draft.Subject(); name != "" {
		found, err := repo.FindOne(ctx, owner, specification.NameEqualsFold{Name: name})
		if err != nil {
			return nil, "", err
		}
		if found != nil {
			return found, "name", nil
		}
	}

	return nil, "", nil
}

// combine layers a fresh draft over a stored contact: newer values win and
// notes are appended line by line.
func combine(stored, fresh *store.Draft) *store.Draft {
	updates := fresh.ToMap()
	notes := updates[string(store.FieldNotes)]
	delete(updates, string(store.FieldNotes))

	out, _ := merge.Merge(stored, updates)
	for _, line := range strings.Split(notes, "\n") {
		out, _ = merge.Merge(out, map[string]string{string(store.FieldNotes): line})
	}
	return out
}
