package removal

import (
	"time"

	"licensepurge/pkg/config"
	"licensepurge/pkg/retry"
)

// Policy holds the timing rules applied between attempts
type Policy struct {
	// MinSpacing is the least time between two request starts
	MinSpacing time.Duration
	// FailureCooldown is the fixed wait after a failed request
	FailureCooldown time.Duration
	// Cooldown adapts the wait after rate limiting
	Cooldown retry.AdaptiveCooldown
}

// DefaultPolicy returns the stock timing rules
func DefaultPolicy() Policy {
	return PolicyFromConfig(config.DefaultConfig().Removal)
}

// PolicyFromConfig builds a Policy from the removal configuration
func PolicyFromConfig(cfg config.RemovalConfig) Policy {
	return Policy{
		MinSpacing:      cfg.MinSpacing,
		FailureCooldown: cfg.FailureCooldown,
		Cooldown: retry.AdaptiveCooldown{
			Min:    cfg.MinCooldown,
			Max:    cfg.MaxCooldown,
			Growth: cfg.GrowthFactor,
			Shrink: cfg.ShrinkFactor,
		},
	}
}

// InitialCooldown is the cooldown a fresh run starts with
func (p Policy) InitialCooldown() time.Duration {
	return p.Cooldown.Min
}
