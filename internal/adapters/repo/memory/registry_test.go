package memory

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bnema/token-pool-router/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededRegistry() *Registry {
	return NewRegistry(
		domain.Account{ID: "ultra", Entitlement: domain.Entitlement{SubscriptionTier: "ULTRA"}, Runtime: domain.RuntimeState{RemainingQuota: domain.QuotaPtr(10), HealthScore: 1}},
		domain.Account{ID: "pro", Entitlement: domain.Entitlement{SubscriptionTier: "PRO"}, Runtime: domain.RuntimeState{HealthScore: 0.5}},
	)
}

func TestRegistryListPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	registry := seededRegistry()
	require.NoError(t, registry.Save(context.Background(), domain.Account{ID: "free"}))
	require.NoError(t, registry.Save(context.Background(), domain.Account{ID: "ultra", Email: "renamed@test.com"}))

	accounts, err := registry.List(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, domain.AccountID("ultra"), accounts[0].ID)
	assert.Equal(t, "renamed@test.com", accounts[0].Email)
	assert.Equal(t, domain.AccountID("pro"), accounts[1].ID)
	assert.Equal(t, domain.AccountID("free"), accounts[2].ID)
}

func TestRegistryReadsReturnCopies(t *testing.T) {
	t.Parallel()

	registry := seededRegistry()

	accounts, err := registry.List(context.Background())
	require.NoError(t, err)
	*accounts[0].Runtime.RemainingQuota = 0

	got, err := registry.GetByID(context.Background(), "ultra")
	require.NoError(t, err)
	assert.Equal(t, 10, *got.Runtime.RemainingQuota)
}

func TestRegistryGetAndDeleteMissing(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	_, err := registry.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
	require.ErrorIs(t, registry.Delete(context.Background(), "missing"), domain.ErrAccountNotFound)
}

func TestRegistryDelete(t *testing.T) {
	t.Parallel()

	registry := seededRegistry()
	require.NoError(t, registry.Delete(context.Background(), "ultra"))

	accounts, err := registry.List(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, domain.AccountID("pro"), accounts[0].ID)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistrySaveRejectsInvalidAccount(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	err := registry.Save(context.Background(), domain.Account{ID: "a", Runtime: domain.RuntimeState{RemainingQuota: domain.QuotaPtr(-5)}})
	require.Error(t, err)
	assert.ErrorContains(t, err, "remaining quota must not be negative")
	assert.Zero(t, registry.Len())
}

func TestRegistryDecrementQuotaClampsAtZero(t *testing.T) {
	t.Parallel()

	registry := seededRegistry()

	updated, err := registry.DecrementQuota(context.Background(), "ultra", 4)
	require.NoError(t, err)
	assert.Equal(t, 6, *updated.Runtime.RemainingQuota)

	updated, err = registry.DecrementQuota(context.Background(), "ultra", 100)
	require.NoError(t, err)
	assert.Equal(t, 0, *updated.Runtime.RemainingQuota)

	unknown, err := registry.DecrementQuota(context.Background(), "pro", 1)
	require.NoError(t, err)
	assert.Nil(t, unknown.Runtime.RemainingQuota)
}

func TestRegistryBlockUnblockAndHealth(t *testing.T) {
	t.Parallel()

	registry := seededRegistry()
	until := time.Date(2026, 10, 14, 13, 0, 0, 0, time.UTC)

	blocked, err := registry.Block(context.Background(), "pro", until)
	require.NoError(t, err)
	assert.True(t, blocked.IsBlocked(until.Add(-time.Minute)))

	unblocked, err := registry.Unblock(context.Background(), "pro")
	require.NoError(t, err)
	assert.False(t, unblocked.Runtime.Blocked)
	assert.True(t, unblocked.Runtime.BlockedUntil.IsZero())

	healthy, err := registry.SetHealth(context.Background(), "pro", 0.75)
	require.NoError(t, err)
	assert.Equal(t, 0.75, healthy.Runtime.HealthScore)

	_, err = registry.SetHealth(context.Background(), "pro", 2)
	require.Error(t, err)

	got, err := registry.GetByID(context.Background(), "pro")
	require.NoError(t, err)
	assert.Equal(t, 0.75, got.Runtime.HealthScore)
}

func TestRegistryCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := seededRegistry().List(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRegistryConcurrentUpdatesKeepEntitiesConsistent(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	for i := 0; i < 10; i++ {
		require.NoError(t, registry.Save(context.Background(), domain.Account{
			ID:      domain.AccountID("acc-" + strconv.Itoa(i)),
			Runtime: domain.RuntimeState{RemainingQuota: domain.QuotaPtr(1000), HealthScore: 1},
		}))
	}

	const writers = 8
	const writesPerWriter = 200
	var wg sync.WaitGroup
	wg.Add(writers + 1)

	for w := 0; w < writers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < writesPerWriter; i++ {
				id := domain.AccountID("acc-" + strconv.Itoa((w+i)%10))
				_, _ = registry.Update(context.Background(), id, func(account *domain.Account) error {
					quota := *account.Runtime.RemainingQuota - 1
					account.Runtime.RemainingQuota = &quota
					account.Runtime.HealthScore = float64(quota) / 1000
					return nil
				})
			}
		}(w)
	}

	go func() {
		defer wg.Done()
		for i := 0; i < writesPerWriter; i++ {
			accounts, err := registry.List(context.Background())
			if err != nil {
				return
			}
			for _, account := range accounts {
				assert.InDelta(t, float64(*account.Runtime.RemainingQuota)/1000, account.Runtime.HealthScore, 1e-9)
			}
		}
	}()

	wg.Wait()

	accounts, err := registry.List(context.Background())
	require.NoError(t, err)
	total := 0
	for _, account := range accounts {
		total += 1000 - *account.Runtime.RemainingQuota
	}
	assert.Equal(t, writers*writesPerWriter, total)
}
