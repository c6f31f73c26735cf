package domain

import "time"

// PartitionEligible splits accounts into those available at now and those
// currently blocked. Input order is preserved in both results. Quota
// exhaustion does not make an account ineligible.
func PartitionEligible(accounts []Account, now time.Time) (eligible []Account, blocked []Account) {
	eligible = make([]Account, 0, len(accounts))
	for _, account := range accounts {
		if account.IsBlocked(now) {
			blocked = append(blocked, account)
			continue
		}
		eligible = append(eligible, account)
	}
	return eligible, blocked
}
