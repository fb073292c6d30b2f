package main

import (
	"sort"
	"sync"
	"time"
)

const defaultThrottleWindow = 60 * time.Second

// groupThrottle remembers when each group last had an update attempt.
//
// shouldUpdate and record are separate calls with no check-and-set between
// them. Two triggers for the same group that both check before either
// records will both proceed; only the spacing between recorded attempts is
// enforced. The mutex protects the map, not that sequence.
type groupThrottle struct {
	window time.Duration

	mu   sync.Mutex
	last map[int64]time.Time
}

func newGroupThrottle(window time.Duration) *groupThrottle {
	if window <= 0 {
		window = defaultThrottleWindow
	}
	return &groupThrottle{
		window: window,
		last:   make(map[int64]time.Time),
	}
}

func (g *groupThrottle) shouldUpdate(groupID int64, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.last[groupID]
	return !ok || now.Sub(last) >= g.window
}

func (g *groupThrottle) record(groupID int64, at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last[groupID] = at
}

func (g *groupThrottle) lastAttempt(groupID int64) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.last[groupID]
	return t, ok
}

type groupAttempt struct {
	GroupID int64
	At      time.Time
}

// snapshot returns all recorded attempts ordered by group id.
func (g *groupThrottle) snapshot() []groupAttempt {
	g.mu.Lock()
	result := make([]groupAttempt, 0, len(g.last))
	for id, at := range g.last {
		result = append(result, groupAttempt{GroupID: id, At: at})
	}
	g.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].GroupID < result[j].GroupID
	})
	return result
}
