package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no account matches the lookup.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateKey is returned when a write would give two accounts the same email.
	ErrDuplicateKey = errors.New("duplicate key")
)

// AccountUpdate lists the fields UpdateByID should change; nil fields are left alone.
type AccountUpdate struct {
	Email         *string
	FirstName     *string
	LastName      *string
	PasswordHash  *string
	AvatarURL     *string
	IsDeactivated *bool
}

// AccountRepository defines the persistence operations for accounts.
// The store's unique constraint on email is the authoritative duplicate check.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	FindByID(ctx context.Context, id string) (*entity.Account, error)
	// ListExcludingEmail returns every account except the one holding email.
	ListExcludingEmail(ctx context.Context, email string) ([]*entity.Account, error)
	// Insert assigns ID and timestamps on a.
	Insert(ctx context.Context, a *entity.Account) error
	// UpdateByID applies upd and returns the account as stored afterwards.
	UpdateByID(ctx context.Context, id string, upd AccountUpdate) (*entity.Account, error)
	// DeleteByID removes the account and returns what was removed.
	DeleteByID(ctx context.Context, id string) (*entity.Account, error)
}
