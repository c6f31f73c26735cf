package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
	Pools    []poolSchema    `toml:"pools,omitempty"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) hasAccount(id string) bool {
	for _, account := range s.Accounts {
		if account.ID == id {
			return true
		}
	}
	return false
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID            string            `toml:"id"`
	Email         string            `toml:"email"`
	CredentialRef string            `toml:"credential_ref,omitempty"`
	Entitlement   entitlementSchema `toml:"entitlement"`
	Runtime       runtimeSchema     `toml:"runtime"`
}

type entitlementSchema struct {
	SubscriptionTier string         `toml:"subscription_tier"`
	ModelQuotas      map[string]int `toml:"model_quotas,omitempty"`
	ProtectedModels  []string       `toml:"protected_models,omitempty"`
}

type runtimeSchema struct {
	RemainingQuota *int    `toml:"remaining_quota,omitempty"`
	HealthScore    float64 `toml:"health_score"`
	QuotaResetAt   string  `toml:"quota_reset_at,omitempty"`
	Blocked        bool    `toml:"blocked"`
	BlockedUntil   string  `toml:"blocked_until,omitempty"`
}

type poolSchema struct {
	ID              string   `toml:"id"`
	Name            string   `toml:"name"`
	Strategy        string   `toml:"strategy"`
	Active          bool     `toml:"active"`
	AutoSyncMembers bool     `toml:"auto_sync_members"`
	Members         []string `toml:"members"`
	UpdatedAt       string   `toml:"updated_at,omitempty"`
}
