package ratelimit

// TierConfig defines the submission limit for one tier
type TierConfig struct {
	Tier          Tier
	Limit         int64 // Requests allowed per window
	WindowSeconds int
	Description   string
}

// Tiers holds the per-tier limits in effect
type Tiers map[Tier]TierConfig

// DefaultTiers returns the limits used when nothing is configured
func DefaultTiers() Tiers {
	return NewTiers(5, 30)
}

// NewTiers builds one-minute windows from per-minute limits
func NewTiers(heavyPerMin, lightPerMin int64) Tiers {
	return Tiers{
		TierHeavy: {
			Tier:          TierHeavy,
			Limit:         heavyPerMin,
			WindowSeconds: 60,
			Description:   "Named nf-core pipeline runs",
		},
		TierLight: {
			Tier:          TierLight,
			Limit:         lightPerMin,
			WindowSeconds: 60,
			Description:   "Container smoke runs",
		},
	}
}

// For returns the config of a tier, falling back to the heavy tier
func (t Tiers) For(tier Tier) TierConfig {
	if cfg, ok := t[tier]; ok {
		return cfg
	}
	return t[TierHeavy]
}
