package removal

import "time"

// Step applies outcome to state and returns the next state together with
// the delay before the next attempt. spacingDelay is what remains of the
// minimum spacing since the request started.
//
// A fatal outcome leaves state untouched; the caller stops the run.
func Step(state State, outcome Outcome, spacingDelay time.Duration, policy Policy) (State, time.Duration) {
	next := state
	delay := spacingDelay
	if delay < 0 {
		delay = 0
	}

	switch outcome.Kind {
	case KindFatal:
		return state, 0

	case KindFail:
		if state.Index > 0 {
			delay = policy.FailureCooldown
		} else {
			next.Index++
		}

	case KindRateLimited:
		next.Cooldown = policy.Cooldown.Grow(state.Cooldown)
		delay = next.Cooldown

	case KindSuccess:
		next.RemovedCount++
		next.Index++
		next.Cooldown = policy.Cooldown.ShrinkFrom(state.Cooldown)

	default:
		// undefined_id, skipped and transport errors are final for the item
		next.Index++
	}

	return next, delay
}

// Drops reports whether applying outcome at state advances past an item
// that was never removed or rejected by the storefront.
func Drops(state State, outcome Outcome) bool {
	switch outcome.Kind {
	case KindTransportError:
		return true
	case KindFail:
		return state.Index == 0
	default:
		return false
	}
}
