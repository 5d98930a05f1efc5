// Package repotest provides an in-memory AccountRepository for tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
	"github.com/oksasatya/go-account-service/internal/domain/repository"
)

// Memory keeps accounts in a map and enforces the unique email constraint
// the way the accounts table does. It is safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	seq      int
	accounts map[string]*entity.Account

	// BlindPrecheck makes FindByEmail always miss, so concurrent creates all
	// pass the advisory check and only the constraint can stop them.
	BlindPrecheck bool
	// FailWith, when set, is returned from every lookup.
	FailWith error
}

var _ repository.AccountRepository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{accounts: map[string]*entity.Account{}}
}

func clone(a *entity.Account) *entity.Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.OTP != nil {
		otp := *a.OTP
		c.OTP = &otp
	}
	return &c
}

func (m *Memory) FindByEmail(_ context.Context, email string) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	if m.BlindPrecheck {
		return nil, repository.ErrNotFound
	}
	for _, a := range m.accounts {
		if a.Email == email {
			return clone(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *Memory) FindByID(_ context.Context, id string) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	a, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(a), nil
}

func (m *Memory) ListExcludingEmail(_ context.Context, email string) ([]*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	out := make([]*entity.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		if a.Email != email {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) emailTaken(email, exceptID string) bool {
	for id, a := range m.accounts {
		if a.Email == email && id != exceptID {
			return true
		}
	}
	return false
}

func (m *Memory) Insert(_ context.Context, a *entity.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(a.Email, "") {
		return fmt.Errorf("%w: accounts_email_address_key", repository.ErrDuplicateKey)
	}
	m.seq++
	now := time.Now().UTC()
	a.ID = fmt.Sprintf("acc-%03d", m.seq)
	a.CreatedAt, a.UpdatedAt = now, now
	m.accounts[a.ID] = clone(a)
	return nil
}

func (m *Memory) UpdateByID(_ context.Context, id string, upd repository.AccountUpdate) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.Email != nil && m.emailTaken(*upd.Email, id) {
		return nil, fmt.Errorf("%w: accounts_email_address_key", repository.ErrDuplicateKey)
	}
	next := clone(a)
	if upd.Email != nil {
		next.Email = *upd.Email
	}
	if upd.FirstName != nil {
		next.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		next.LastName = *upd.LastName
	}
	if upd.PasswordHash != nil {
		next.PasswordHash = *upd.PasswordHash
	}
	if upd.AvatarURL != nil {
		next.AvatarURL = *upd.AvatarURL
	}
	// one-way, like is_deactivated OR $n in the table
	if upd.IsDeactivated != nil && *upd.IsDeactivated {
		next.IsDeactivated = true
	}
	next.UpdatedAt = time.Now().UTC()
	m.accounts[id] = next
	return clone(next), nil
}

func (m *Memory) DeleteByID(_ context.Context, id string) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(m.accounts, id)
	return a, nil
}

// Count returns how many accounts are stored.
func (m *Memory) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}

// Stored returns a copy of the stored account, or nil.
func (m *Memory) Stored(id string) *entity.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.accounts[id])
}
