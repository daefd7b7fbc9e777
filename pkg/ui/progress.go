package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// StatusTracker keeps track of removal progress for the status line
type StatusTracker struct {
	Index     int
	Total     int
	Removed   int
	Attempts  int
	StartTime time.Time
	now       func() time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		StartTime: time.Now(),
		now:       time.Now,
	}
}

// Update records the position after one attempt
func (st *StatusTracker) Update(index, total, removed int) {
	st.Attempts++
	st.Index = index
	st.Total = total
	st.Removed = removed
}

// GetProgress returns a formatted progress bar over the queue
func (st *StatusTracker) GetProgress() string {
	filled := 0
	if st.Total > 0 {
		filled = st.Index * barWidth / st.Total
	}
	if filled > barWidth {
		filled = barWidth
	}

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, barWidth-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, st.Index, st.Total)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return st.now().Sub(st.StartTime)
}

// GetRemovalRate returns the average removal rate (items per hour)
func (st *StatusTracker) GetRemovalRate() float64 {
	elapsed := st.GetElapsedTime().Hours()
	if elapsed <= 0 {
		return 0
	}
	return float64(st.Removed) / elapsed
}

// Line renders the one-line status
func (st *StatusTracker) Line() string {
	return fmt.Sprintf("%s %s removed: %d | attempts: %d | %.1f/h",
		Green("[PURGING]"),
		st.GetProgress(),
		st.Removed,
		st.Attempts,
		st.GetRemovalRate())
}

// PrintProgress prints the current status line
func (st *StatusTracker) PrintProgress() {
	fmt.Fprintln(Output, st.Line())
}
