package application

import (
	"time"

	"github.com/bnema/token-pool-router/internal/domain"
)

type Status struct {
	Account domain.Account
	Tier    domain.Tier
	Blocked bool
	// Quota is the remaining quota used for ranking; KnownQuota is false when
	// the account has not reported one.
	Quota      int
	KnownQuota bool
	CapturedAt time.Time
}

func statusFromAccount(account domain.Account, now time.Time) Status {
	return Status{
		Account:    account,
		Tier:       account.Tier(),
		Blocked:    account.IsBlocked(now),
		Quota:      account.Runtime.Quota(),
		KnownQuota: account.Runtime.RemainingQuota != nil,
		CapturedAt: now,
	}
}
