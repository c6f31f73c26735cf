// Package memory holds the in-process account registry that request handlers
// read from while collaborators update runtime state.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/token-pool-router/internal/domain"
	"github.com/bnema/token-pool-router/internal/ports"
)

// Registry owns the pool. Every read returns deep copies taken under the read
// lock, so a caller never sees one entity half-updated. Consistency across
// entities is not guaranteed between calls.
type Registry struct {
	mu       sync.RWMutex
	order    []domain.AccountID
	accounts map[domain.AccountID]domain.Account
}

var _ ports.AccountRepository = (*Registry)(nil)

func NewRegistry(accounts ...domain.Account) *Registry {
	r := &Registry{accounts: make(map[domain.AccountID]domain.Account, len(accounts))}
	for _, account := range accounts {
		r.put(account)
	}
	return r
}

// Load replaces the registry contents with accounts, keeping their order.
func (r *Registry) Load(ctx context.Context, accounts []domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = r.order[:0]
	r.accounts = make(map[domain.AccountID]domain.Account, len(accounts))
	for _, account := range accounts {
		r.put(account)
	}
	return nil
}

func (r *Registry) List(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]domain.Account, 0, len(r.order))
	for _, id := range r.order {
		accounts = append(accounts, r.accounts[id].Clone())
	}
	return accounts, nil
}

func (r *Registry) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account.Clone(), nil
}

func (r *Registry) Save(ctx context.Context, account domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := account.Validate(); err != nil {
		return fmt.Errorf("validate account %s: %w", account.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.put(account)
	return nil
}

func (r *Registry) Delete(ctx context.Context, id domain.AccountID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(r.accounts, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Update applies fn to one account under the write lock. The change is
// discarded if fn returns an error or leaves the account invalid.
func (r *Registry) Update(ctx context.Context, id domain.AccountID, fn func(*domain.Account) error) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	updated := current.Clone()
	if err := fn(&updated); err != nil {
		return domain.Account{}, err
	}
	updated.ID = id
	if err := updated.Validate(); err != nil {
		return domain.Account{}, fmt.Errorf("validate account %s: %w", id, err)
	}

	r.accounts[id] = updated.Clone()
	return updated, nil
}

// DecrementQuota is called by quota accounting after a successful upstream
// call. Unknown quota stays unknown and known quota never drops below zero.
func (r *Registry) DecrementQuota(ctx context.Context, id domain.AccountID, by int) (domain.Account, error) {
	return r.Update(ctx, id, func(account *domain.Account) error {
		if account.Runtime.RemainingQuota == nil {
			return nil
		}
		remaining := *account.Runtime.RemainingQuota - by
		if remaining < 0 {
			remaining = 0
		}
		account.Runtime.RemainingQuota = &remaining
		return nil
	})
}

func (r *Registry) SetHealth(ctx context.Context, id domain.AccountID, score float64) (domain.Account, error) {
	return r.Update(ctx, id, func(account *domain.Account) error {
		account.Runtime.HealthScore = score
		return nil
	})
}

func (r *Registry) Block(ctx context.Context, id domain.AccountID, until time.Time) (domain.Account, error) {
	return r.Update(ctx, id, func(account *domain.Account) error {
		account.Runtime.Blocked = true
		account.Runtime.BlockedUntil = until
		return nil
	})
}

func (r *Registry) Unblock(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	return r.Update(ctx, id, func(account *domain.Account) error {
		account.Runtime.Blocked = false
		account.Runtime.BlockedUntil = time.Time{}
		return nil
	})
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) put(account domain.Account) {
	if _, ok := r.accounts[account.ID]; !ok {
		r.order = append(r.order, account.ID)
	}
	r.accounts[account.ID] = account.Clone()
}
