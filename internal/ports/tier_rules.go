package ports

import "github.com/bnema/token-pool-router/internal/domain"

type TierRuleSource interface {
	TierRules() ([]domain.TierRule, error)
	// OnChange registers fn to run after the underlying rules change.
	OnChange(fn func())
}
