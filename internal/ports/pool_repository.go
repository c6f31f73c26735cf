package ports

import (
	"context"

	"github.com/bnema/token-pool-router/internal/domain"
)

type PoolRepository interface {
	GetByID(ctx context.Context, id domain.PoolID) (domain.Pool, error)
	List(ctx context.Context) ([]domain.Pool, error)
	Save(ctx context.Context, pool domain.Pool) error
}
