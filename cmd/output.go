package cmd

import (
	"encoding/json"
	"math"
	"time"

	"github.com/bnema/token-pool-router/internal/application"
	"github.com/bnema/token-pool-router/internal/domain"
	"github.com/spf13/cobra"
)

type accountJSON struct {
	ID             string     `json:"id"`
	Email          string     `json:"email,omitempty"`
	Tier           string     `json:"tier"`
	RemainingQuota *int       `json:"remaining_quota"`
	HealthScore    *float64   `json:"health_score"`
	QuotaResetAt   *time.Time `json:"quota_reset_at,omitempty"`
	Blocked        bool       `json:"blocked"`
	BlockedUntil   *time.Time `json:"blocked_until,omitempty"`
}

type rankingOutput struct {
	Model    string        `json:"model"`
	TopTier  bool          `json:"top_tier"`
	At       time.Time     `json:"at"`
	Accounts []accountJSON `json:"accounts"`
	Blocked  []accountJSON `json:"blocked"`
}

type poolStatusOutput struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Strategy        string        `json:"strategy"`
	Active          bool          `json:"active"`
	AutoSyncMembers bool          `json:"auto_sync_members"`
	Members         []accountJSON `json:"members"`
	Missing         []string      `json:"missing,omitempty"`
}

func writeJSON(cmd *cobra.Command, value any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func rankingJSON(ranking application.Ranking) rankingOutput {
	return rankingOutput{
		Model:    ranking.Model,
		TopTier:  ranking.TopTier,
		At:       ranking.At,
		Accounts: accountsJSON(ranking.Accounts),
		Blocked:  accountsJSON(ranking.Blocked),
	}
}

func poolStatusJSON(status application.PoolStatus) poolStatusOutput {
	out := poolStatusOutput{
		ID:              string(status.Pool.ID),
		Name:            status.Pool.Name,
		Strategy:        string(status.Pool.Strategy),
		Active:          status.Pool.Active,
		AutoSyncMembers: status.Pool.AutoSyncMembers,
		Members:         statusesJSON(status.Members),
	}
	for _, id := range status.Missing {
		out.Missing = append(out.Missing, string(id))
	}
	return out
}

func statusesJSON(statuses []application.Status) []accountJSON {
	accounts := make([]domain.Account, 0, len(statuses))
	for _, status := range statuses {
		accounts = append(accounts, status.Account)
	}
	return accountsJSON(accounts)
}

func accountsJSON(accounts []domain.Account) []accountJSON {
	out := make([]accountJSON, 0, len(accounts))
	for _, account := range accounts {
		entry := accountJSON{
			ID:             string(account.ID),
			Email:          account.Email,
			Tier:           account.Tier().String(),
			RemainingQuota: account.Runtime.RemainingQuota,
			Blocked:        account.Runtime.Blocked,
		}
		// encoding/json rejects NaN, so an unusable health score is null.
		if health := account.Runtime.HealthScore; !math.IsNaN(health) {
			entry.HealthScore = &health
		}
		if !account.Runtime.QuotaResetAt.IsZero() {
			resetAt := account.Runtime.QuotaResetAt
			entry.QuotaResetAt = &resetAt
		}
		if !account.Runtime.BlockedUntil.IsZero() {
			until := account.Runtime.BlockedUntil
			entry.BlockedUntil = &until
		}
		out = append(out, entry)
	}
	return out
}
