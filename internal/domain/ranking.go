package domain

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"
)

// candidate caches the derived ranking keys so the tier label is parsed once
// per selection, not once per comparison.
type candidate struct {
	account Account
	tier    Tier
	quota   int
	health  float64
}

func newCandidate(account Account) candidate {
	return candidate{
		account: account,
		tier:    account.Tier(),
		quota:   account.Runtime.Quota(),
		health:  account.Runtime.HealthScore,
	}
}

// CompareForModel orders two accounts for one request. It returns a negative
// value when a ranks before b, positive when after, and zero when tied.
//
// For tier-sensitive models the tier dominates: quota and health only order
// accounts of the same tier. Otherwise remaining quota then health decide, and
// tier only breaks exact ties.
func CompareForModel(a, b Account, needsTopTier bool) int {
	return compareCandidates(newCandidate(a), newCandidate(b), needsTopTier)
}

func compareCandidates(a, b candidate, needsTopTier bool) int {
	if needsTopTier {
		if c := cmp.Compare(a.tier.Rank(), b.tier.Rank()); c != 0 {
			return c
		}
	}

	if c := cmp.Compare(b.quota, a.quota); c != 0 {
		return c
	}

	if c := compareHealth(a.health, b.health); c != 0 {
		return c
	}

	if !needsTopTier {
		if c := cmp.Compare(a.tier.Rank(), b.tier.Rank()); c != 0 {
			return c
		}
	}

	return 0
}

// compareHealth sorts higher health first. NaN on either side compares equal.
func compareHealth(a, b float64) int {
	if math.IsNaN(a) || math.IsNaN(b) {
		return 0
	}
	return cmp.Compare(b, a)
}

// Rank returns the eligible accounts at now, best first. Full ties are broken
// by account ID and then by pool position, so the order is reproducible.
func Rank(accounts []Account, model string, classifier *ModelClassifier, now time.Time) []Account {
	eligible, _ := PartitionEligible(accounts, now)
	return rankEligible(eligible, classifier.RequiresTopTier(model))
}

// Select returns the top-ranked eligible account, or an *ExhaustionError when
// none is eligible. It never mutates the accounts it is given.
func Select(accounts []Account, model string, classifier *ModelClassifier, now time.Time) (Account, error) {
	eligible, blocked := PartitionEligible(accounts, now)
	if len(eligible) == 0 {
		return Account{}, &ExhaustionError{Model: model, PoolSize: len(accounts), Blocked: len(blocked)}
	}

	return rankEligible(eligible, classifier.RequiresTopTier(model))[0], nil
}

func rankEligible(eligible []Account, needsTopTier bool) []Account {
	candidates := make([]candidate, 0, len(eligible))
	for _, account := range eligible {
		candidates = append(candidates, newCandidate(account))
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		if c := compareCandidates(a, b, needsTopTier); c != 0 {
			return c
		}
		return strings.Compare(string(a.account.ID), string(b.account.ID))
	})

	ranked := make([]Account, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, c.account)
	}
	return ranked
}
