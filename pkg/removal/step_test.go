package removal

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"licensepurge/pkg/licenses"
	"licensepurge/pkg/retry"
)

func testPolicy() Policy {
	return Policy{
		MinSpacing:      time.Second,
		FailureCooldown: 3 * time.Minute,
		Cooldown: retry.AdaptiveCooldown{
			Min:    time.Minute,
			Max:    30 * time.Minute,
			Growth: 1.5,
			Shrink: 1.2,
		},
	}
}

func TestStepTransitions(t *testing.T) {
	policy := testPolicy()
	queue := []licenses.PackageID{101, 102, 103}
	spacing := 400 * time.Millisecond

	tests := []struct {
		name        string
		index       int
		cooldown    time.Duration
		outcome     Outcome
		wantIndex   int
		wantRemoved int
		wantCool    time.Duration
		wantDelay   time.Duration
	}{
		{"success shrinks cooldown", 1, 2 * time.Minute, Success(), 2, 1, 100 * time.Second, spacing},
		{"success floors cooldown", 1, time.Minute, Success(), 2, 1, time.Minute, spacing},
		{"undefined id advances", 1, 2 * time.Minute, UndefinedID(), 2, 0, 2 * time.Minute, spacing},
		{"skipped advances", 1, 2 * time.Minute, Skipped(2), 2, 0, 2 * time.Minute, spacing},
		{"rate limited grows cooldown", 1, 2 * time.Minute, RateLimited(2), 1, 0, 3 * time.Minute, 3 * time.Minute},
		{"rate limited caps cooldown", 1, 25 * time.Minute, RateLimited(2), 1, 0, 30 * time.Minute, 30 * time.Minute},
		{"fail keeps index", 1, 2 * time.Minute, Fail(502), 1, 0, 2 * time.Minute, 3 * time.Minute},
		{"fail on first item advances", 0, 2 * time.Minute, Fail(502), 1, 0, 2 * time.Minute, spacing},
		{"transport error advances", 1, 2 * time.Minute, TransportError(errors.New("timeout")), 2, 0, 2 * time.Minute, spacing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := State{Queue: queue, Index: tt.index, Cooldown: tt.cooldown}
			next, delay := Step(state, tt.outcome, spacing, policy)

			assert.Equal(t, tt.wantIndex, next.Index)
			assert.Equal(t, tt.wantRemoved, next.RemovedCount)
			assert.Equal(t, tt.wantCool, next.Cooldown)
			assert.Equal(t, tt.wantDelay, delay)
			assert.Equal(t, queue, next.Queue)
		})
	}
}

func TestStepFatalLeavesStateUntouched(t *testing.T) {
	state := State{Queue: []licenses.PackageID{101}, Index: 0, RemovedCount: 0, Cooldown: 2 * time.Minute}
	next, delay := Step(state, Fatal("<html>"), time.Second, testPolicy())
	assert.Equal(t, state, next)
	assert.Zero(t, delay)
}

func TestStepNegativeSpacing(t *testing.T) {
	state := State{Queue: []licenses.PackageID{1, 2}, Cooldown: time.Minute}
	_, delay := Step(state, UndefinedID(), -time.Second, testPolicy())
	assert.Zero(t, delay)
}

func TestDrops(t *testing.T) {
	first := State{Queue: []licenses.PackageID{1, 2}, Index: 0}
	later := State{Queue: []licenses.PackageID{1, 2}, Index: 1}

	assert.True(t, Drops(first, Fail(500)))
	assert.False(t, Drops(later, Fail(500)))
	assert.True(t, Drops(later, TransportError(errors.New("reset"))))
	assert.False(t, Drops(later, Success()))
	assert.False(t, Drops(later, Skipped(42)))
}

func randomOutcome(rng *rand.Rand) Outcome {
	switch rng.Intn(6) {
	case 0:
		return Success()
	case 1:
		return UndefinedID()
	case 2:
		return Skipped(rng.Intn(100))
	case 3:
		return RateLimited(rng.Intn(100))
	case 4:
		return Fail(500 + rng.Intn(4))
	default:
		return TransportError(errors.New("connection reset"))
	}
}

// Randomized outcome sequences must keep every state invariant.
func TestStepInvariants(t *testing.T) {
	policy := testPolicy()
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		queue := make([]licenses.PackageID, 1+rng.Intn(12))
		for i := range queue {
			queue[i] = licenses.PackageID(1000 + i)
		}
		original := append([]licenses.PackageID(nil), queue...)

		state := NewState(queue, policy.InitialCooldown())
		for attempt := 0; attempt < 100 && !state.Done(); attempt++ {
			outcome := randomOutcome(rng)
			next, delay := Step(state, outcome, time.Duration(rng.Intn(1000))*time.Millisecond, policy)

			// Queue never changes length or order
			assert.Equal(t, original, next.Queue)

			// Index is monotonic and moves by at most one
			assert.GreaterOrEqual(t, next.Index, state.Index)
			assert.LessOrEqual(t, next.Index-state.Index, 1)

			// Cooldown stays within bounds
			assert.GreaterOrEqual(t, next.Cooldown, policy.Cooldown.Min)
			assert.LessOrEqual(t, next.Cooldown, policy.Cooldown.Max)

			switch outcome.Kind {
			case KindSuccess:
				assert.True(t, next.Cooldown < state.Cooldown || next.Cooldown == policy.Cooldown.Min)
				assert.Equal(t, state.RemovedCount+1, next.RemovedCount)
			case KindRateLimited:
				assert.True(t, next.Cooldown > state.Cooldown || next.Cooldown == policy.Cooldown.Max)
				assert.Equal(t, next.Cooldown, delay)
			default:
				assert.Equal(t, state.Cooldown, next.Cooldown)
				assert.Equal(t, state.RemovedCount, next.RemovedCount)
			}

			assert.GreaterOrEqual(t, delay, time.Duration(0))
			state = next
		}
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", Success().String())
	assert.Equal(t, "skipped(5)", Skipped(5).String())
	assert.Equal(t, "rate_limited(0)", RateLimited(0).String())
	assert.Equal(t, "fail(http 503)", Fail(503).String())
	assert.Equal(t, "transport_error(eof)", TransportError(errors.New("eof")).String())
	assert.Equal(t, "fatal", Fatal("<html>").String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}

func TestStateHelpers(t *testing.T) {
	s := NewState([]licenses.PackageID{7, 8}, time.Minute)
	id, ok := s.Current()
	assert.True(t, ok)
	assert.Equal(t, licenses.PackageID(7), id)
	assert.Equal(t, 2, s.Total())

	s.Index = 2
	assert.True(t, s.Done())
	_, ok = s.Current()
	assert.False(t, ok)
}

func TestPolicyFromDefaults(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, time.Second, p.MinSpacing)
	assert.Equal(t, 3*time.Minute, p.FailureCooldown)
	assert.Equal(t, time.Minute, p.InitialCooldown())
	assert.Equal(t, 30*time.Minute, p.Cooldown.Max)
	assert.Equal(t, 1.5, p.Cooldown.Growth)
	assert.Equal(t, 1.2, p.Cooldown.Shrink)
}
