package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is implemented by request pacers
type Limiter interface {
	// Mark records that a request started now
	Mark()
	// Remaining returns how long to wait before the next request may start
	Remaining() time.Duration
	// Wait blocks until the next request may start
	Wait(ctx context.Context) error
	// Reset forgets the last request
	Reset()
}

// Spacer enforces a minimum interval between request starts. The interval is
// measured from the start of the previous request, so time spent waiting on
// a response counts towards it.
type Spacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewSpacer creates a Spacer with the given minimum interval
func NewSpacer(interval time.Duration) *Spacer {
	return &Spacer{
		interval: interval,
		now:      time.Now,
	}
}

// WithClock replaces the time source, for tests
func (s *Spacer) WithClock(now func() time.Time) *Spacer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Interval returns the configured minimum interval
func (s *Spacer) Interval() time.Duration {
	return s.interval
}

// Mark records the start of a request
func (s *Spacer) Mark() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = s.now()
}

// Remaining returns interval minus the time since the last Mark, or zero
func (s *Spacer) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last.IsZero() {
		return 0
	}
	remaining := s.interval - s.now().Sub(s.last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Wait blocks until Remaining reaches zero or ctx is done
func (s *Spacer) Wait(ctx context.Context) error {
	delay := s.Remaining()
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset forgets the last request
func (s *Spacer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = time.Time{}
}
