package removal

import (
	"time"

	"licensepurge/pkg/licenses"
)

// State is the resumable progress of a run. Queue is fixed once populated;
// only Index, RemovedCount and Cooldown change between attempts.
type State struct {
	Queue        []licenses.PackageID
	Index        int
	RemovedCount int
	Cooldown     time.Duration
}

// NewState starts a run over queue
func NewState(queue []licenses.PackageID, cooldown time.Duration) State {
	return State{
		Queue:    queue,
		Cooldown: cooldown,
	}
}

// Total is the queue length
func (s State) Total() int {
	return len(s.Queue)
}

// Done reports whether every queued package has been attempted
func (s State) Done() bool {
	return s.Index >= len(s.Queue)
}

// Outside returns the queued packages the allow-list does not admit
func (s State) Outside(allow *licenses.AllowList) []licenses.PackageID {
	var out []licenses.PackageID
	for _, id := range s.Queue {
		if !allow.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// Current returns the package at Index
func (s State) Current() (licenses.PackageID, bool) {
	if s.Index < 0 || s.Done() {
		return 0, false
	}
	return s.Queue[s.Index], true
}
