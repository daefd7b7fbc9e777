package retry

import "time"

// AdaptiveCooldown is a bounded multiplicative-increase / multiplicative-decrease
// controller. Values it returns always lie within [Min, Max].
type AdaptiveCooldown struct {
	Min    time.Duration
	Max    time.Duration
	Growth float64
	Shrink float64
}

// Grow multiplies current by Growth, capped at Max.
func (a AdaptiveCooldown) Grow(current time.Duration) time.Duration {
	return a.Clamp(time.Duration(float64(current) * a.Growth))
}

// ShrinkFrom divides current by Shrink, floored at Min.
func (a AdaptiveCooldown) ShrinkFrom(current time.Duration) time.Duration {
	return a.Clamp(time.Duration(float64(current) / a.Shrink))
}

// Clamp forces d into [Min, Max].
func (a AdaptiveCooldown) Clamp(d time.Duration) time.Duration {
	if d < a.Min {
		return a.Min
	}
	if d > a.Max {
		return a.Max
	}
	return d
}
