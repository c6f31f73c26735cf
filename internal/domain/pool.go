package domain

import (
	"fmt"
	"strings"
	"time"
)

type PoolID string
type PoolStrategy string

const (
	// PoolStrategyTierAware ranks members with CompareForModel.
	PoolStrategyTierAware PoolStrategy = "tier_aware"
)

type Pool struct {
	ID              PoolID
	Name            string
	Strategy        PoolStrategy
	Active          bool
	AutoSyncMembers bool
	Members         []AccountID
	UpdatedAt       time.Time
}

func (p Pool) Validate() error {
	if strings.TrimSpace(string(p.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if p.Strategy == "" {
		return fmt.Errorf("strategy is required")
	}
	if p.Strategy != PoolStrategyTierAware {
		return fmt.Errorf("unsupported strategy %q", p.Strategy)
	}

	return nil
}

func (p *Pool) NormalizeMembers() {
	if p == nil {
		return
	}

	members := make([]AccountID, 0, len(p.Members))
	seen := make(map[AccountID]struct{}, len(p.Members))
	for _, member := range p.Members {
		trimmed := AccountID(strings.TrimSpace(string(member)))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		members = append(members, trimmed)
	}

	p.Members = members
}

// MembersOf returns the accounts listed in the pool, in member order.
// Members with no matching account are skipped.
func (p Pool) MembersOf(accounts []Account) []Account {
	byID := make(map[AccountID]Account, len(accounts))
	for _, account := range accounts {
		byID[account.ID] = account
	}

	members := make([]Account, 0, len(p.Members))
	for _, id := range p.Members {
		if account, ok := byID[id]; ok {
			members = append(members, account)
		}
	}
	return members
}
