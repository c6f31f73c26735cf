package domain

import "strings"

// Tier is the closed entitlement category derived from a free-text
// subscription label. Lower values rank first.
type Tier int

const (
	TierUltra Tier = iota
	TierPro
	TierFree
	TierUnknown
)

// ParseTier classifies a label by case-insensitive containment, so
// "ultra-plus" and "ULTRA" are both Ultra.
func ParseTier(label string) Tier {
	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "ultra"):
		return TierUltra
	case strings.Contains(lower, "pro"):
		return TierPro
	case strings.Contains(lower, "free"):
		return TierFree
	default:
		return TierUnknown
	}
}

func (t Tier) Rank() int {
	if t < TierUltra || t > TierUnknown {
		return int(TierUnknown)
	}
	return int(t)
}

func (t Tier) String() string {
	switch t {
	case TierUltra:
		return "Ultra"
	case TierPro:
		return "Pro"
	case TierFree:
		return "Free"
	default:
		return "Unknown"
	}
}
