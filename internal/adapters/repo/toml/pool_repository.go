package toml

import (
	"context"
	"fmt"

	"github.com/bnema/token-pool-router/internal/domain"
	"github.com/bnema/token-pool-router/internal/ports"
)

// PoolRepository stores pools as [[pools]] tables next to the accounts they
// reference. Get it from Repository.Pools.
type PoolRepository struct {
	file *Repository
}

var _ ports.PoolRepository = (*PoolRepository)(nil)

// Save writes the pool after dropping members the accounts file does not
// hold, so a stale ID cannot be ranked later.
func (r *PoolRepository) Save(ctx context.Context, pool domain.Pool) error {
	pool.NormalizeMembers()
	if err := pool.Validate(); err != nil {
		return fmt.Errorf("validate pool %s: %w", pool.ID, err)
	}

	return r.file.mutate(ctx, func(file *fileSchema) error {
		encoded := toPoolSchema(pool)
		members := encoded.Members[:0]
		for _, member := range encoded.Members {
			if file.hasAccount(member) {
				members = append(members, member)
			}
		}
		encoded.Members = members

		for i := range file.Pools {
			if file.Pools[i].ID == encoded.ID {
				file.Pools[i] = encoded
				return nil
			}
		}
		file.Pools = append(file.Pools, encoded)
		return nil
	})
}

func (r *PoolRepository) GetByID(ctx context.Context, id domain.PoolID) (domain.Pool, error) {
	var pool domain.Pool
	err := r.file.view(ctx, func(file fileSchema) error {
		for _, entry := range file.Pools {
			if entry.ID == string(id) {
				pool = fromPoolSchema(entry)
				return nil
			}
		}
		return domain.ErrPoolNotFound
	})
	if err != nil {
		return domain.Pool{}, err
	}

	return pool, nil
}

func (r *PoolRepository) List(ctx context.Context) ([]domain.Pool, error) {
	var pools []domain.Pool
	err := r.file.view(ctx, func(file fileSchema) error {
		pools = make([]domain.Pool, 0, len(file.Pools))
		for _, entry := range file.Pools {
			pools = append(pools, fromPoolSchema(entry))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pools, nil
}

func toPoolSchema(pool domain.Pool) poolSchema {
	members := make([]string, len(pool.Members))
	for i, member := range pool.Members {
		members[i] = string(member)
	}

	return poolSchema{
		ID:              string(pool.ID),
		Name:            pool.Name,
		Strategy:        string(pool.Strategy),
		Active:          pool.Active,
		AutoSyncMembers: pool.AutoSyncMembers,
		Members:         members,
		UpdatedAt:       formatTime(pool.UpdatedAt),
	}
}

func fromPoolSchema(entry poolSchema) domain.Pool {
	members := make([]domain.AccountID, len(entry.Members))
	for i, member := range entry.Members {
		members[i] = domain.AccountID(member)
	}

	return domain.Pool{
		ID:              domain.PoolID(entry.ID),
		Name:            entry.Name,
		Strategy:        domain.PoolStrategy(entry.Strategy),
		Active:          entry.Active,
		AutoSyncMembers: entry.AutoSyncMembers,
		Members:         members,
		UpdatedAt:       parseTime(entry.UpdatedAt),
	}
}
