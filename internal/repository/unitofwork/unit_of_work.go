package unitofwork

import (
	"context"

	"ai-networking-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ContactRepository() contract.ContactRepository
}
