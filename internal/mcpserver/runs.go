package mcpserver

import (
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
)

// runLimiter caps the number of tool calls talking to the model at once.
type runLimiter struct {
	mu      sync.Mutex
	maxRuns int
	running int
}

func newRunLimiter(maxRuns int) *runLimiter {
	if maxRuns <= 0 {
		maxRuns = 5
	}
	return &runLimiter{maxRuns: maxRuns}
}

// acquire reserves a slot and returns its run ID and release func. It does
// not queue: a full limiter fails fast so the caller can retry.
func (l *runLimiter) acquire() (string, func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running >= l.maxRuns {
		return "", nil, fmt.Errorf("max concurrent runs reached (%d)", l.maxRuns)
	}
	l.running++

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			l.running--
			l.mu.Unlock()
		})
	}
	return ulid.Make().String(), release, nil
}

func (l *runLimiter) inFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
