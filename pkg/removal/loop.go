package removal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"licensepurge/pkg/licenses"
	"licensepurge/pkg/logger"
	"licensepurge/pkg/ratelimit"
	"licensepurge/pkg/retry"
)

// Remover issues one removal request and classifies the response.
// Implementations never return errors; every failure maps to an Outcome.
type Remover interface {
	Remove(ctx context.Context, id licenses.PackageID) Outcome
}

// StateStore persists run state between process restarts. Load returns
// nil, nil when nothing is saved and an error wrapping ErrCorruptState when
// the saved state cannot be read.
type StateStore interface {
	Load() (*State, error)
	Save(state State) error
	Clear() error
}

// Status describes how a run ended
type Status string

const (
	StatusCompleted Status = "completed"
	StatusNoItems   Status = "no_items"
	StatusAborted   Status = "aborted"
	StatusCanceled  Status = "canceled"
)

// Summary is reported when a run ends
type Summary struct {
	Removed int
	Total   int
	// Dropped lists packages passed over after a transport error or a
	// failure on the first item. They may still be removable.
	Dropped []licenses.PackageID
	Status  Status
}

func (s Summary) String() string {
	return fmt.Sprintf("removed %d of %d", s.Removed, s.Total)
}

// Runner drives the removal loop
type Runner struct {
	remover Remover
	source  licenses.Source
	allow   *licenses.AllowList
	store   StateStore
	policy  Policy
	spacer  *ratelimit.Spacer
	wait    func(ctx context.Context, d time.Duration) error
	logger  logger.Logger

	// OnAttempt, if set, is called after every persisted attempt
	OnAttempt func(id licenses.PackageID, outcome Outcome, state State, delay time.Duration)
}

// NewRunner creates a Runner
func NewRunner(remover Remover, source licenses.Source, allow *licenses.AllowList, store StateStore, policy Policy, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Runner{
		remover: remover,
		source:  source,
		allow:   allow,
		store:   store,
		policy:  policy,
		spacer:  ratelimit.NewSpacer(policy.MinSpacing),
		wait:    retry.Wait,
		logger:  log,
	}
}

// WithSpacer replaces the request spacer
func (r *Runner) WithSpacer(s *ratelimit.Spacer) *Runner {
	r.spacer = s
	return r
}

// WithWait replaces the function used to sleep between attempts
func (r *Runner) WithWait(wait func(ctx context.Context, d time.Duration) error) *Runner {
	r.wait = wait
	return r
}

// Run processes the queue until it is exhausted, a fatal response arrives
// or ctx is canceled. Saved state from a previous run is resumed.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	state, err := r.start(ctx)
	if err != nil {
		if errors.Is(err, ErrNoMatchingItems) {
			return Summary{Status: StatusNoItems}, err
		}
		return Summary{Status: StatusAborted}, err
	}

	summary := Summary{Total: state.Total(), Status: StatusCanceled}

	for {
		summary.Removed = state.RemovedCount

		id, ok := state.Current()
		if !ok {
			if err := r.store.Clear(); err != nil {
				summary.Status = StatusAborted
				return summary, fmt.Errorf("failed to clear state: %w", err)
			}
			summary.Status = StatusCompleted
			r.logger.InfoWithFields(fmt.Sprintf("Done! Removed %d of %d matching packages", state.RemovedCount, state.Total()), map[string]interface{}{
				"removed": state.RemovedCount,
				"total":   state.Total(),
				"dropped": len(summary.Dropped),
			})
			return summary, nil
		}

		if err := ctx.Err(); err != nil {
			return summary, err
		}

		r.logger.WithField("package_id", int(id)).Info(fmt.Sprintf("Removing package %d (#%d of %d)", id, state.Index+1, state.Total()))
		logger.LogRemovalProgress(r.logger, state.Index, state.Total(), state.RemovedCount)

		r.spacer.Mark()
		outcome := r.remover.Remove(ctx, id)

		// A request cut short by cancellation says nothing about the package
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if outcome.Kind == KindFatal {
			summary.Status = StatusAborted
			r.logger.ErrorWithFields("Fatal response, stopping without saving state", map[string]interface{}{
				"package_id": int(id),
				"index":      state.Index,
				"body":       outcome.Body,
			})
			return summary, &FatalError{ID: id, Body: outcome.Body}
		}

		dropped := Drops(state, outcome)
		next, delay := Step(state, outcome, r.spacer.Remaining(), r.policy)
		r.logTransition(id, state, next, outcome, delay)

		if dropped {
			summary.Dropped = append(summary.Dropped, id)
			r.logger.WarnWithFields("Package passed over without confirmation, re-run to retry it", map[string]interface{}{
				"package_id": int(id),
				"outcome":    outcome.String(),
			})
		}

		if err := r.store.Save(next); err != nil {
			summary.Status = StatusAborted
			return summary, fmt.Errorf("failed to save state: %w", err)
		}
		state = next
		summary.Removed = state.RemovedCount

		if r.OnAttempt != nil {
			r.OnAttempt(id, outcome, state, delay)
		}

		if state.Done() {
			continue
		}
		if err := r.wait(ctx, delay); err != nil {
			return summary, err
		}
	}
}

// start restores saved state or builds a new queue from the source
func (r *Runner) start(ctx context.Context) (State, error) {
	saved, err := r.store.Load()
	if err != nil {
		if !errors.Is(err, ErrCorruptState) {
			return State{}, fmt.Errorf("failed to load state: %w", err)
		}
		r.logger.WithError(err).Warn("Failed to parse saved state, starting fresh")
		saved = nil
	}

	if saved != nil && len(saved.Queue) > 0 {
		if outside := saved.Outside(r.allow); len(outside) > 0 {
			r.logger.WarnWithFields("Saved queue has packages outside the allow-list, starting fresh", map[string]interface{}{
				"outside": outside,
				"total":   saved.Total(),
			})
			saved = nil
		}
	}

	if saved != nil && len(saved.Queue) > 0 {
		state := *saved
		state.Cooldown = r.policy.Cooldown.Clamp(state.Cooldown)
		r.logger.InfoWithFields("Resuming from saved state", map[string]interface{}{
			"index":    state.Index,
			"removed":  state.RemovedCount,
			"total":    state.Total(),
			"cooldown": state.Cooldown,
		})
		return state, nil
	}

	candidates, err := r.source.Candidates(ctx)
	if err != nil {
		return State{}, fmt.Errorf("failed to collect candidates: %w", err)
	}

	queue := r.allow.Filter(candidates)
	if len(queue) == 0 {
		r.logger.WarnWithFields("No matching package IDs found on the licenses page", map[string]interface{}{
			"candidates": len(candidates),
			"allowed":    r.allow.Len(),
		})
		if err := r.store.Clear(); err != nil {
			return State{}, fmt.Errorf("failed to clear state: %w", err)
		}
		return State{}, ErrNoMatchingItems
	}

	state := NewState(queue, r.policy.InitialCooldown())
	if err := r.store.Save(state); err != nil {
		return State{}, fmt.Errorf("failed to save state: %w", err)
	}

	r.logger.InfoWithFields("Starting removal of matching packages", map[string]interface{}{
		"candidates": len(candidates),
		"queued":     len(queue),
	})
	return state, nil
}

func (r *Runner) logTransition(id licenses.PackageID, prev, next State, outcome Outcome, delay time.Duration) {
	fields := map[string]interface{}{
		"package_id": int(id),
		"index":      next.Index,
		"total":      next.Total(),
		"outcome":    outcome.Kind.String(),
		"code":       outcome.Code,
		"delay":      delay,
		"cooldown":   next.Cooldown,
	}
	log := r.logger
	if outcome.Err != nil {
		log = log.WithError(outcome.Err)
	}

	switch outcome.Kind {
	case KindSuccess:
		log.InfoWithFields(fmt.Sprintf("Removed package %d. Total removed: %d", id, next.RemovedCount), fields)
	case KindUndefinedID:
		log.InfoWithFields(fmt.Sprintf("Package %d skipped, no package is associated with the id", id), fields)
	case KindSkipped:
		log.InfoWithFields(fmt.Sprintf("Package %d skipped (success code %d)", id, outcome.Code), fields)
	case KindRateLimited:
		log.WarnWithFields(fmt.Sprintf("Rate limited on package %d (success code %d)", id, outcome.Code), fields)
		logger.LogCooldown(r.logger, int(id), "rate_limited", delay)
	case KindFail:
		fields["status"] = outcome.Status
		if next.Index == prev.Index {
			log.WarnWithFields(fmt.Sprintf("Request for package %d failed", id), fields)
			logger.LogCooldown(r.logger, int(id), "failure", delay)
		} else {
			log.WarnWithFields(fmt.Sprintf("Request for package %d failed on the first item, moving on", id), fields)
		}
	default:
		log.ErrorWithFields(fmt.Sprintf("Error removing package %d", id), fields)
	}
}
