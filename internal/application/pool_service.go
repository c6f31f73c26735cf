package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/token-pool-router/internal/domain"
	"github.com/bnema/token-pool-router/internal/ports"
)

const DefaultPoolID domain.PoolID = "default"

type PoolService struct {
	accounts ports.AccountSnapshotter
	pools    ports.PoolRepository
	selector *SelectionService
	clock    ports.Clock
}

func NewPoolService(accounts ports.AccountSnapshotter, pools ports.PoolRepository, selector *SelectionService, clock ports.Clock) *PoolService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if selector == nil {
		selector = NewSelectionService(accounts, clock, nil)
	}

	return &PoolService{accounts: accounts, pools: pools, selector: selector, clock: clock}
}

func (s *PoolService) ActivateDefaultPool(ctx context.Context) (domain.Pool, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return domain.Pool{}, fmt.Errorf("list accounts: %w", err)
	}

	pool, err := s.pools.GetByID(ctx, DefaultPoolID)
	if err != nil {
		if !errors.Is(err, domain.ErrPoolNotFound) {
			return domain.Pool{}, fmt.Errorf("load default pool: %w", err)
		}
		pool = domain.Pool{
			ID:              DefaultPoolID,
			Name:            "default",
			Strategy:        domain.PoolStrategyTierAware,
			AutoSyncMembers: true,
		}
	}

	if pool.AutoSyncMembers {
		pool.Members = accountIDs(accounts)
	}
	pool.Active = true
	pool.UpdatedAt = s.clock.Now()
	pool.NormalizeMembers()

	if err := pool.Validate(); err != nil {
		return domain.Pool{}, err
	}

	if err := s.pools.Save(ctx, pool); err != nil {
		return domain.Pool{}, fmt.Errorf("save pool: %w", err)
	}

	return pool, nil
}

func (s *PoolService) DeactivatePool(ctx context.Context, poolID domain.PoolID) (domain.Pool, error) {
	pool, err := s.pools.GetByID(ctx, poolID)
	if err != nil {
		return domain.Pool{}, err
	}

	pool.Active = false
	pool.UpdatedAt = s.clock.Now()
	if err := s.pools.Save(ctx, pool); err != nil {
		return domain.Pool{}, fmt.Errorf("save pool: %w", err)
	}

	return pool, nil
}

// RankPool ranks the members of an active pool for model.
func (s *PoolService) RankPool(ctx context.Context, poolID domain.PoolID, model string) (Ranking, error) {
	members, err := s.activeMembers(ctx, poolID)
	if err != nil {
		return Ranking{}, err
	}

	return s.selector.RankAccounts(members, model), nil
}

// PickAccount returns the best member of the pool for model, followed by the
// remaining eligible members in rank order as the failover chain.
func (s *PoolService) PickAccount(ctx context.Context, poolID domain.PoolID, model string) (domain.AccountID, []domain.AccountID, error) {
	members, err := s.activeMembers(ctx, poolID)
	if err != nil {
		return "", nil, err
	}

	ranking := s.selector.RankAccounts(members, model)
	if _, err := ranking.Best(); err != nil {
		return "", nil, fmt.Errorf("pick account from pool %s: %w", poolID, err)
	}

	ids := ranking.IDs()
	return ids[0], ids[1:], nil
}

func (s *PoolService) GetPool(ctx context.Context, poolID domain.PoolID) (domain.Pool, error) {
	pool, err := s.pools.GetByID(ctx, poolID)
	if err != nil {
		return domain.Pool{}, err
	}

	if pool.AutoSyncMembers {
		accounts, err := s.accounts.List(ctx)
		if err != nil {
			return domain.Pool{}, fmt.Errorf("list accounts: %w", err)
		}
		pool.Members = accountIDs(accounts)
		pool.NormalizeMembers()
	}

	return pool, nil
}

// PoolStatus is a pool with its members resolved against the current
// snapshot. Members the snapshot no longer holds are listed in Missing.
type PoolStatus struct {
	Pool    domain.Pool
	Members []Status
	Missing []domain.AccountID
}

func (st PoolStatus) Blocked() int {
	blocked := 0
	for _, member := range st.Members {
		if member.Blocked {
			blocked++
		}
	}
	return blocked
}

// Status reports the pool and the runtime state of every member at the same
// instant. Inactive pools are reported, not rejected.
func (s *PoolService) Status(ctx context.Context, poolID domain.PoolID) (PoolStatus, error) {
	pool, err := s.GetPool(ctx, poolID)
	if err != nil {
		return PoolStatus{}, err
	}

	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return PoolStatus{}, fmt.Errorf("list accounts: %w", err)
	}

	now := s.clock.Now()
	members := pool.MembersOf(accounts)
	status := PoolStatus{Pool: pool, Members: make([]Status, 0, len(members))}
	for _, account := range members {
		status.Members = append(status.Members, statusFromAccount(account, now))
	}

	if len(members) < len(pool.Members) {
		present := make(map[domain.AccountID]struct{}, len(members))
		for _, account := range members {
			present[account.ID] = struct{}{}
		}
		for _, id := range pool.Members {
			if _, ok := present[id]; !ok {
				status.Missing = append(status.Missing, id)
			}
		}
	}

	return status, nil
}

func (s *PoolService) activeMembers(ctx context.Context, poolID domain.PoolID) ([]domain.Account, error) {
	pool, err := s.GetPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if !pool.Active {
		return nil, fmt.Errorf("pool %s: %w", poolID, domain.ErrPoolInactive)
	}

	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	return pool.MembersOf(accounts), nil
}

func accountIDs(accounts []domain.Account) []domain.AccountID {
	ids := make([]domain.AccountID, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.ID)
	}
	return ids
}
