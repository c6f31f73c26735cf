package domain

import (
	"fmt"
	"strings"
	"time"
)

type AccountID string

type Account struct {
	ID    AccountID
	Email string
	// CredentialRef points to the credential-store entry holding the token pair.
	CredentialRef string
	Entitlement   Entitlement
	Runtime       RuntimeState
}

// Credential is opaque to ranking. Only the renewal collaborator writes it.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type Entitlement struct {
	SubscriptionTier string
	ModelQuotas      map[string]int
	ProtectedModels  []string
}

type RuntimeState struct {
	// RemainingQuota is nil when unknown; ranking treats that as zero.
	RemainingQuota *int
	HealthScore    float64
	QuotaResetAt   time.Time
	Blocked        bool
	BlockedUntil   time.Time
}

func (a Account) Tier() Tier {
	return ParseTier(a.Entitlement.SubscriptionTier)
}

// IsBlocked reports whether the account is excluded from selection at now.
// A block whose expiry has passed no longer applies.
func (a Account) IsBlocked(now time.Time) bool {
	return a.Runtime.Blocked && now.Before(a.Runtime.BlockedUntil)
}

func (a Account) Label() string {
	if strings.TrimSpace(a.Email) != "" {
		return a.Email
	}
	return string(a.ID)
}

func (a Account) IsProtected(model string) bool {
	needle := strings.ToLower(strings.TrimSpace(model))
	if needle == "" {
		return false
	}
	for _, protected := range a.Entitlement.ProtectedModels {
		if strings.ToLower(strings.TrimSpace(protected)) == needle {
			return true
		}
	}
	return false
}

func (a Account) QuotaOverride(model string) (int, bool) {
	quota, ok := a.Entitlement.ModelQuotas[model]
	return quota, ok
}

func (r RuntimeState) Quota() int {
	if r.RemainingQuota == nil {
		return 0
	}
	return *r.RemainingQuota
}

func (a Account) Validate() error {
	if strings.TrimSpace(string(a.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if a.Runtime.RemainingQuota != nil && *a.Runtime.RemainingQuota < 0 {
		return fmt.Errorf("remaining quota must not be negative")
	}
	if a.Runtime.HealthScore < 0 || a.Runtime.HealthScore > 1 {
		return fmt.Errorf("health score %v out of range [0, 1]", a.Runtime.HealthScore)
	}
	for model, quota := range a.Entitlement.ModelQuotas {
		if quota < 0 {
			return fmt.Errorf("quota override for %q must not be negative", model)
		}
	}

	return nil
}

// Clone returns a deep copy that shares no maps, slices or pointers with a.
func (a Account) Clone() Account {
	clone := a
	if a.Runtime.RemainingQuota != nil {
		quota := *a.Runtime.RemainingQuota
		clone.Runtime.RemainingQuota = &quota
	}
	if a.Entitlement.ModelQuotas != nil {
		clone.Entitlement.ModelQuotas = make(map[string]int, len(a.Entitlement.ModelQuotas))
		for model, quota := range a.Entitlement.ModelQuotas {
			clone.Entitlement.ModelQuotas[model] = quota
		}
	}
	if a.Entitlement.ProtectedModels != nil {
		clone.Entitlement.ProtectedModels = append([]string(nil), a.Entitlement.ProtectedModels...)
	}
	return clone
}

func QuotaPtr(v int) *int {
	return &v
}
