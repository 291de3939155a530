package ratelimit

// Tier is the rate limit bucket a run submission falls into
type Tier string

const (
	TierLight Tier = "light" // generic container smoke runs
	TierHeavy Tier = "heavy" // named nf-core pipeline runs
)

// TierForTarget maps a workflow dispatch target onto a tier. Unknown targets
// get the most restrictive tier.
func TierForTarget(target string) Tier {
	switch target {
	case "generic_smoke":
		return TierLight
	default:
		return TierHeavy
	}
}

// String returns the tier name
func (t Tier) String() string {
	switch t {
	case TierLight:
		return "light"
	case TierHeavy:
		return "heavy"
	default:
		return "unknown"
	}
}
