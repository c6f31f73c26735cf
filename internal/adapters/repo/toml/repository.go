package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	appconfig "github.com/bnema/token-pool-router/internal/adapters/config"
	"github.com/bnema/token-pool-router/internal/domain"
	"github.com/bnema/token-pool-router/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	accountsFileMode = 0o600
	accountsDirMode  = 0o700
	accountsFile     = "accounts.toml"
	tempFilePattern  = ".tpr-*.toml.tmp"
)

// Repository persists accounts and pools in one versioned TOML file, so a
// pool can never name an account the file does not hold.
type Repository struct {
	accountsPath string
	mu           *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.AccountRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	path, err := resolveAccountsPath(cfg)
	if err != nil {
		return nil, err
	}

	return &Repository{accountsPath: path, mu: lockForPath(path)}, nil
}

func (r *Repository) Path() string {
	return r.accountsPath
}

// Pools returns the pool view of the same file.
func (r *Repository) Pools() *PoolRepository {
	return &PoolRepository{file: r}
}

func (r *Repository) Save(ctx context.Context, account domain.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("validate account %s: %w", account.ID, err)
	}

	return r.mutate(ctx, func(file *fileSchema) error {
		encoded := toSchema(account)
		for i := range file.Accounts {
			if file.Accounts[i].ID == encoded.ID {
				file.Accounts[i] = encoded
				return nil
			}
		}
		file.Accounts = append(file.Accounts, encoded)
		return nil
	})
}

// Delete removes the account and drops it from every pool in the same write.
func (r *Repository) Delete(ctx context.Context, id domain.AccountID) error {
	return r.mutate(ctx, func(file *fileSchema) error {
		kept := file.Accounts[:0]
		found := false
		for _, entry := range file.Accounts {
			if entry.ID == string(id) {
				found = true
				continue
			}
			kept = append(kept, entry)
		}
		if !found {
			return domain.ErrAccountNotFound
		}
		file.Accounts = kept

		for i := range file.Pools {
			file.Pools[i].Members = slices.DeleteFunc(file.Pools[i].Members, func(member string) bool {
				return member == string(id)
			})
		}
		return nil
	})
}

func (r *Repository) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	var account domain.Account
	err := r.view(ctx, func(file fileSchema) error {
		for _, entry := range file.Accounts {
			if entry.ID == string(id) {
				account = fromSchema(entry)
				return nil
			}
		}
		return domain.ErrAccountNotFound
	})
	if err != nil {
		return domain.Account{}, err
	}

	return account, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	err := r.view(ctx, func(file fileSchema) error {
		accounts = make([]domain.Account, 0, len(file.Accounts))
		for _, entry := range file.Accounts {
			accounts = append(accounts, fromSchema(entry))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return accounts, nil
}

// view decodes the file under the read lock and hands it to fn.
func (r *Repository) view(ctx context.Context, fn func(fileSchema) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	return fn(file)
}

// mutate applies fn to the decoded file under the write lock and writes the
// result back atomically. Nothing is written when fn fails.
func (r *Repository) mutate(ctx context.Context, fn func(*fileSchema) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	if err := fn(&file); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return writeTOMLFile(r.accountsPath, file)
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.accountsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{Version: currentSchemaVersion}, nil
		}
		return fileSchema{}, fmt.Errorf("read accounts file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode accounts file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func resolveAccountsPath(cfg *viper.Viper) (string, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	path := cfg.GetString(appconfig.KeyAccountsPath)
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, appconfig.DirName, accountsFile)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", appconfig.KeyAccountsPath, err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func writeTOMLFile(path string, file any) error {
	if err := os.MkdirAll(filepath.Dir(path), accountsDirMode); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tempFile.Chmod(accountsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(path, accountsFileMode); err != nil {
		return fmt.Errorf("chmod file: %w", err)
	}

	return nil
}

func toSchema(account domain.Account) accountSchema {
	var quota *int
	if account.Runtime.RemainingQuota != nil {
		quota = domain.QuotaPtr(*account.Runtime.RemainingQuota)
	}

	return accountSchema{
		ID:            string(account.ID),
		Email:         account.Email,
		CredentialRef: account.CredentialRef,
		Entitlement: entitlementSchema{
			SubscriptionTier: account.Entitlement.SubscriptionTier,
			ModelQuotas:      account.Entitlement.ModelQuotas,
			ProtectedModels:  account.Entitlement.ProtectedModels,
		},
		Runtime: runtimeSchema{
			RemainingQuota: quota,
			HealthScore:    account.Runtime.HealthScore,
			QuotaResetAt:   formatTime(account.Runtime.QuotaResetAt),
			Blocked:        account.Runtime.Blocked,
			BlockedUntil:   formatTime(account.Runtime.BlockedUntil),
		},
	}
}

func fromSchema(account accountSchema) domain.Account {
	return domain.Account{
		ID:            domain.AccountID(account.ID),
		Email:         account.Email,
		CredentialRef: account.CredentialRef,
		Entitlement: domain.Entitlement{
			SubscriptionTier: account.Entitlement.SubscriptionTier,
			ModelQuotas:      account.Entitlement.ModelQuotas,
			ProtectedModels:  account.Entitlement.ProtectedModels,
		},
		Runtime: domain.RuntimeState{
			RemainingQuota: account.Runtime.RemainingQuota,
			HealthScore:    account.Runtime.HealthScore,
			QuotaResetAt:   parseTime(account.Runtime.QuotaResetAt),
			Blocked:        account.Runtime.Blocked,
			BlockedUntil:   parseTime(account.Runtime.BlockedUntil),
		},
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339)
}
