package ports

import (
	"context"

	"github.com/bnema/token-pool-router/internal/domain"
)

// AccountSnapshotter hands out per-entity consistent copies of the pool.
type AccountSnapshotter interface {
	List(ctx context.Context) ([]domain.Account, error)
}

type AccountRepository interface {
	AccountSnapshotter
	GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error)
	Save(ctx context.Context, account domain.Account) error
	Delete(ctx context.Context, id domain.AccountID) error
}
