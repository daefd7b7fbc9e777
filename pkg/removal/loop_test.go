package removal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensepurge/pkg/licenses"
	"licensepurge/pkg/logger"
	"licensepurge/pkg/ratelimit"
)

// memStore keeps state in memory and records every write
type memStore struct {
	state   *State
	loadErr error
	saves   []State
	clears  int
}

func (m *memStore) Load() (*State, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.state == nil {
		return nil, nil
	}
	s := *m.state
	s.Queue = append([]licenses.PackageID(nil), m.state.Queue...)
	return &s, nil
}

func (m *memStore) Save(state State) error {
	s := state
	s.Queue = append([]licenses.PackageID(nil), state.Queue...)
	m.state = &s
	m.saves = append(m.saves, s)
	return nil
}

func (m *memStore) Clear() error {
	m.state = nil
	m.clears++
	return nil
}

// scriptedRemover replays outcomes per package ID
type scriptedRemover struct {
	script map[licenses.PackageID][]Outcome
	calls  []licenses.PackageID
	onCall func(id licenses.PackageID)
}

func (r *scriptedRemover) Remove(ctx context.Context, id licenses.PackageID) Outcome {
	r.calls = append(r.calls, id)
	if r.onCall != nil {
		r.onCall(id)
	}
	outcomes := r.script[id]
	if len(outcomes) == 0 {
		return Success()
	}
	o := outcomes[0]
	r.script[id] = outcomes[1:]
	return o
}

type harness struct {
	runner  *Runner
	store   *memStore
	remover *scriptedRemover
	delays  []time.Duration
	log     *logger.TestLogger
}

func newHarness(page []licenses.PackageID, allowed []int, script map[licenses.PackageID][]Outcome) *harness {
	h := &harness{
		store:   &memStore{},
		remover: &scriptedRemover{script: script},
		log:     logger.NewTestLogger(),
	}
	if h.remover.script == nil {
		h.remover.script = map[licenses.PackageID][]Outcome{}
	}

	frozen := time.Unix(1700000000, 0)
	policy := testPolicy()
	h.runner = NewRunner(h.remover, licenses.StaticSource(page), licenses.NewAllowList(allowed), h.store, policy, h.log).
		WithSpacer(ratelimit.NewSpacer(policy.MinSpacing).WithClock(func() time.Time { return frozen })).
		WithWait(func(ctx context.Context, d time.Duration) error {
			h.delays = append(h.delays, d)
			return ctx.Err()
		})
	return h
}

func TestRunScenario(t *testing.T) {
	h := newHarness(
		[]licenses.PackageID{101, 102, 999},
		[]int{101, 102},
		map[licenses.PackageID][]Outcome{
			101: {Success()},
			102: {UndefinedID()},
		},
	)

	summary, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	// Queue was filtered to the allow-list
	require.NotEmpty(t, h.store.saves)
	assert.Equal(t, []licenses.PackageID{101, 102}, h.store.saves[0].Queue)
	assert.Equal(t, []licenses.PackageID{101, 102}, h.remover.calls)

	// After 101: removed 1, index 1
	assert.Equal(t, 1, h.store.saves[1].Index)
	assert.Equal(t, 1, h.store.saves[1].RemovedCount)

	// After 102: index 2, removed unchanged, cooldown unchanged
	assert.Equal(t, 2, h.store.saves[2].Index)
	assert.Equal(t, 1, h.store.saves[2].RemovedCount)
	assert.Equal(t, h.store.saves[1].Cooldown, h.store.saves[2].Cooldown)

	// Queue consumed: state cleared and summary reported
	assert.Nil(t, h.store.state)
	assert.Equal(t, 1, h.store.clears)
	assert.Equal(t, StatusCompleted, summary.Status)
	assert.Equal(t, "removed 1 of 2", summary.String())
	assert.Empty(t, summary.Dropped)
	assert.True(t, h.log.HasMessage("Removed 1 of 2"))

	// One spacing wait between the two requests, none after the last
	assert.Equal(t, []time.Duration{time.Second}, h.delays)
}

func TestRunSuccessShrinksRestoredCooldown(t *testing.T) {
	h := newHarness(nil, []int{101, 102}, map[licenses.PackageID][]Outcome{101: {Success()}})
	h.store.state = &State{Queue: []licenses.PackageID{101, 102}, Cooldown: 2 * time.Minute}

	_, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 100*time.Second, h.store.saves[0].Cooldown)
	assert.Equal(t, 1, h.store.saves[0].RemovedCount)
}

func TestRunFatalAbortsWithoutSaving(t *testing.T) {
	h := newHarness(nil, []int{101, 102}, map[licenses.PackageID][]Outcome{
		102: {Fatal("<!DOCTYPE html><html>Sign In</html>")},
	})
	restored := State{Queue: []licenses.PackageID{101, 102}, Index: 1, RemovedCount: 1, Cooldown: 2 * time.Minute}
	h.store.state = &restored

	summary, err := h.runner.Run(context.Background())

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, licenses.PackageID(102), fatal.ID)
	assert.Contains(t, fatal.Body, "Sign In")
	assert.Equal(t, StatusAborted, summary.Status)

	// Persisted state untouched
	assert.Empty(t, h.store.saves)
	assert.Equal(t, restored, *h.store.state)
	assert.True(t, h.log.HasError())
}

func TestRunRateLimitedRetriesSameItem(t *testing.T) {
	h := newHarness([]licenses.PackageID{101, 102}, []int{101, 102}, map[licenses.PackageID][]Outcome{
		101: {RateLimited(2), RateLimited(2), Success()},
	})

	summary, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []licenses.PackageID{101, 101, 101, 102}, h.remover.calls)
	// Index held during rate limiting
	assert.Equal(t, 0, h.store.saves[1].Index)
	assert.Equal(t, 0, h.store.saves[2].Index)
	// Delays: 1m×1.5, then ×1.5 again, then spacing after success
	assert.Equal(t, []time.Duration{90 * time.Second, 135 * time.Second, time.Second}, h.delays)
	assert.Equal(t, 2, summary.Removed)
}

func TestRunFailureCooldownAndFirstItemDrop(t *testing.T) {
	h := newHarness([]licenses.PackageID{101, 102}, []int{101, 102}, map[licenses.PackageID][]Outcome{
		101: {Fail(500)},
		102: {Fail(500), Success()},
	})

	summary, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []licenses.PackageID{101, 102, 102}, h.remover.calls)
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Minute}, h.delays)
	assert.Equal(t, []licenses.PackageID{101}, summary.Dropped)
	assert.Equal(t, 1, summary.Removed)
	assert.True(t, h.log.HasMessage("re-run to retry"))
}

func TestRunTransportErrorAdvances(t *testing.T) {
	h := newHarness([]licenses.PackageID{101, 102}, []int{101, 102}, map[licenses.PackageID][]Outcome{
		101: {TransportError(errors.New("i/o timeout"))},
	})

	summary, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []licenses.PackageID{101}, summary.Dropped)
	assert.Equal(t, "removed 1 of 2", summary.String())
}

func TestRunNoMatchingItems(t *testing.T) {
	h := newHarness([]licenses.PackageID{999}, []int{101}, nil)

	summary, err := h.runner.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoMatchingItems)
	assert.Equal(t, StatusNoItems, summary.Status)
	assert.Equal(t, 1, h.store.clears)
	assert.Empty(t, h.remover.calls)
}

func TestRunCorruptStateStartsFresh(t *testing.T) {
	h := newHarness([]licenses.PackageID{101}, []int{101}, nil)
	h.store.loadErr = fmt.Errorf("decode: %w", ErrCorruptState)

	summary, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, summary.Status)
	assert.True(t, h.log.HasMessage("starting fresh"))
}

func TestRunLoadErrorAborts(t *testing.T) {
	h := newHarness([]licenses.PackageID{101}, []int{101}, nil)
	h.store.loadErr = errors.New("permission denied")

	summary, err := h.runner.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusAborted, summary.Status)
	assert.Empty(t, h.remover.calls)
}

func TestRunResumesRestoredState(t *testing.T) {
	h := newHarness([]licenses.PackageID{555}, []int{101, 102, 103}, nil)
	h.store.state = &State{Queue: []licenses.PackageID{101, 102, 103}, Index: 2, RemovedCount: 2, Cooldown: time.Hour}

	summary, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	// The saved queue wins over the page and the cooldown is clamped
	assert.Equal(t, []licenses.PackageID{103}, h.remover.calls)
	assert.Equal(t, 3, summary.Removed)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 25*time.Minute, h.store.saves[0].Cooldown)
}

func TestRunRestoredQueueOutsideAllowListStartsFresh(t *testing.T) {
	h := newHarness([]licenses.PackageID{101, 555}, []int{101}, nil)
	h.store.state = &State{Queue: []licenses.PackageID{101, 555}, Cooldown: time.Minute}

	summary, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []licenses.PackageID{101}, h.remover.calls)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, []licenses.PackageID{101}, h.store.saves[0].Queue)
	assert.True(t, h.log.HasMessage("outside the allow-list"))
}

func TestStateOutside(t *testing.T) {
	s := NewState([]licenses.PackageID{101, 555, 102, 777}, time.Minute)
	assert.Equal(t, []licenses.PackageID{555, 777}, s.Outside(licenses.NewAllowList([]int{101, 102})))
	assert.Empty(t, s.Outside(licenses.NewAllowList([]int{101, 102, 555, 777})))
}

func TestRunCancelDuringWaitKeepsLastSave(t *testing.T) {
	h := newHarness([]licenses.PackageID{101, 102}, []int{101, 102}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	h.runner.WithWait(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})

	summary, err := h.runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCanceled, summary.Status)

	require.NotNil(t, h.store.state)
	assert.Equal(t, 1, h.store.state.Index)
	assert.Equal(t, 1, h.store.state.RemovedCount)
	assert.Equal(t, []licenses.PackageID{101}, h.remover.calls)
}

func TestRunCancelDuringRequestDiscardsAttempt(t *testing.T) {
	h := newHarness([]licenses.PackageID{101}, []int{101}, map[licenses.PackageID][]Outcome{
		101: {TransportError(context.Canceled)},
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.remover.onCall = func(licenses.PackageID) { cancel() }

	_, err := h.runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// Only the initial queue was saved
	require.Len(t, h.store.saves, 1)
	assert.Equal(t, 0, h.store.state.Index)
}

func TestRunOnAttempt(t *testing.T) {
	h := newHarness([]licenses.PackageID{101, 102}, []int{101, 102}, map[licenses.PackageID][]Outcome{
		102: {Skipped(17)},
	})

	var seen []string
	h.runner.OnAttempt = func(id licenses.PackageID, outcome Outcome, state State, delay time.Duration) {
		seen = append(seen, fmt.Sprintf("%d:%s:%d", id, outcome, state.Index))
	}

	_, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"101:success:1", "102:skipped(17):2"}, seen)
}
