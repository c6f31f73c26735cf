package application

import (
	"github.com/bnema/token-pool-router/internal/domain"
)

type AddAccountCommand struct {
	ID               domain.AccountID
	Email            string
	SubscriptionTier string
	// RemainingQuota is nil when the quota is not known yet.
	RemainingQuota  *int
	HealthScore     float64
	ModelQuotas     map[string]int
	ProtectedModels []string
}

type SetCredentialCommand struct {
	ID         domain.AccountID
	Ref        string
	Credential domain.Credential
}
