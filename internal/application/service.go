package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/token-pool-router/internal/domain"
	"github.com/bnema/token-pool-router/internal/ports"
)

// Service is the account-management side of the pool: it creates and removes
// accounts and applies runtime updates reported by quota accounting, health
// checks and credential renewal.
type Service struct {
	repo  ports.AccountRepository
	store ports.CredentialStore
	clock ports.Clock
}

func NewService(repo ports.AccountRepository, store ports.CredentialStore, clock ports.Clock) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Service{
		repo:  repo,
		store: store,
		clock: clock,
	}
}

func (s *Service) AddAccount(ctx context.Context, cmd AddAccountCommand) (domain.Account, error) {
	id := domain.AccountID(strings.TrimSpace(string(cmd.ID)))

	_, err := s.repo.GetByID(ctx, id)
	switch {
	case err == nil:
		return domain.Account{}, fmt.Errorf("add account %s: %w", id, domain.ErrAccountExists)
	case !errors.Is(err, domain.ErrAccountNotFound):
		return domain.Account{}, fmt.Errorf("get account by id: %w", err)
	}

	account := domain.Account{
		ID:    id,
		Email: strings.TrimSpace(cmd.Email),
		Entitlement: domain.Entitlement{
			SubscriptionTier: strings.TrimSpace(cmd.SubscriptionTier),
			ModelQuotas:      cmd.ModelQuotas,
			ProtectedModels:  cmd.ProtectedModels,
		},
		Runtime: domain.RuntimeState{
			RemainingQuota: cmd.RemainingQuota,
			HealthScore:    cmd.HealthScore,
		},
	}
	if err := account.Validate(); err != nil {
		return domain.Account{}, fmt.Errorf("validate account %s: %w", id, err)
	}

	if err := s.repo.Save(ctx, account); err != nil {
		return domain.Account{}, fmt.Errorf("save account: %w", err)
	}

	return account, nil
}

// RemoveAccount deletes the account and its stored credential. If the
// credential cannot be deleted the account is restored.
func (s *Service) RemoveAccount(ctx context.Context, id domain.AccountID) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if account.CredentialRef == "" || s.store == nil {
		return nil
	}

	if err := s.store.Delete(ctx, account.CredentialRef); err != nil {
		if restoreErr := s.repo.Save(ctx, account); restoreErr != nil {
			return fmt.Errorf("delete account credential and restore account: %w", errors.Join(err, restoreErr))
		}
		return fmt.Errorf("delete account credential: %w", err)
	}

	return nil
}

func (s *Service) SetTier(ctx context.Context, id domain.AccountID, tier string) error {
	return s.update(ctx, id, "tier", func(account *domain.Account) {
		account.Entitlement.SubscriptionTier = strings.TrimSpace(tier)
	})
}

// SetQuota records the remaining quota. A nil quota marks it unknown. A zero
// resetAt leaves the previous reset time untouched.
func (s *Service) SetQuota(ctx context.Context, id domain.AccountID, quota *int, resetAt time.Time) error {
	return s.update(ctx, id, "quota", func(account *domain.Account) {
		account.Runtime.RemainingQuota = quota
		if !resetAt.IsZero() {
			account.Runtime.QuotaResetAt = resetAt
		}
	})
}

func (s *Service) SetModelQuota(ctx context.Context, id domain.AccountID, model string, quota int) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return fmt.Errorf("model is required")
	}

	return s.update(ctx, id, "model quota", func(account *domain.Account) {
		if account.Entitlement.ModelQuotas == nil {
			account.Entitlement.ModelQuotas = map[string]int{}
		}
		account.Entitlement.ModelQuotas[model] = quota
	})
}

func (s *Service) SetHealth(ctx context.Context, id domain.AccountID, score float64) error {
	return s.update(ctx, id, "health", func(account *domain.Account) {
		account.Runtime.HealthScore = score
	})
}

// Block excludes the account from selection for d, starting now.
func (s *Service) Block(ctx context.Context, id domain.AccountID, d time.Duration) (time.Time, error) {
	if d <= 0 {
		return time.Time{}, fmt.Errorf("block duration must be positive, got %s", d)
	}

	until := s.clock.Now().Add(d)
	err := s.update(ctx, id, "block", func(account *domain.Account) {
		account.Runtime.Blocked = true
		account.Runtime.BlockedUntil = until
	})
	if err != nil {
		return time.Time{}, err
	}

	return until, nil
}

func (s *Service) Unblock(ctx context.Context, id domain.AccountID) error {
	return s.update(ctx, id, "unblock", func(account *domain.Account) {
		account.Runtime.Blocked = false
		account.Runtime.BlockedUntil = time.Time{}
	})
}

// SetCredential stores the credential and points the account at it. A
// previous credential under a different ref is deleted afterwards. If any step
// fails, whatever was at ref before the call is put back.
func (s *Service) SetCredential(ctx context.Context, cmd SetCredentialCommand) error {
	account, err := s.repo.GetByID(ctx, cmd.ID)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}
	originalAccount := account

	ref := strings.TrimSpace(cmd.Ref)
	if ref == "" {
		ref = DefaultCredentialRef(cmd.ID)
	}
	previousRef := account.CredentialRef

	restore, err := s.credentialRestorer(ctx, ref)
	if err != nil {
		return err
	}

	if err := s.store.Put(ctx, ref, cmd.Credential); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}

	account.CredentialRef = ref
	if err := s.repo.Save(ctx, account); err != nil {
		if rollbackErr := restore(); rollbackErr != nil {
			return fmt.Errorf("save account credential and rollback stored credential: %w", errors.Join(err, rollbackErr))
		}
		return fmt.Errorf("save account credential: %w", err)
	}

	if previousRef == "" || previousRef == ref {
		return nil
	}

	if err := s.store.Delete(ctx, previousRef); err != nil {
		var rollbackErr error
		if restoreErr := s.repo.Save(ctx, originalAccount); restoreErr != nil {
			rollbackErr = errors.Join(rollbackErr, restoreErr)
		}
		if credentialErr := restore(); credentialErr != nil {
			rollbackErr = errors.Join(rollbackErr, credentialErr)
		}
		if rollbackErr != nil {
			return fmt.Errorf("delete previous credential and rollback credential update: %w", errors.Join(err, rollbackErr))
		}
		return fmt.Errorf("delete previous credential: %w", err)
	}

	return nil
}

// credentialRestorer captures the credential currently stored at ref and
// returns a func that puts it back, or deletes ref when nothing was there.
func (s *Service) credentialRestorer(ctx context.Context, ref string) (func() error, error) {
	existing, err := s.store.Get(ctx, ref)
	switch {
	case err == nil:
		return func() error { return s.store.Put(ctx, ref, existing) }, nil
	case errors.Is(err, domain.ErrCredentialNotFound):
		return func() error { return s.store.Delete(ctx, ref) }, nil
	default:
		return nil, fmt.Errorf("read existing credential: %w", err)
	}
}

func (s *Service) GetStatus(ctx context.Context, id domain.AccountID) (Status, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Status{}, fmt.Errorf("get account by id: %w", err)
	}

	return statusFromAccount(account, s.clock.Now()), nil
}

func (s *Service) GetStatusAll(ctx context.Context) ([]Status, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	now := s.clock.Now()
	statuses := make([]Status, 0, len(accounts))
	for _, account := range accounts {
		statuses = append(statuses, statusFromAccount(account, now))
	}

	return statuses, nil
}

func DefaultCredentialRef(id domain.AccountID) string {
	return "accounts/" + string(id)
}

func (s *Service) update(ctx context.Context, id domain.AccountID, field string, apply func(*domain.Account)) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}

	apply(&account)
	if err := account.Validate(); err != nil {
		return fmt.Errorf("validate account %s: %w", id, err)
	}

	if err := s.repo.Save(ctx, account); err != nil {
		return fmt.Errorf("save account %s: %w", field, err)
	}

	return nil
}
