package engine

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout bounds a run when the config leaves it unset.
const DefaultTimeout = 5 * time.Second

// evalResult passes a run's outcome back from its goroutine.
type evalResult struct {
	report *Report
	err    error
}

// waitWithTimeout waits for a result from ch, but returns a timeout error
// once timeout elapses. A result whose generation is no longer current is
// discarded.
//
// On timeout the goroutine may still be running; the caller cancels its
// context so the next builtin call stops the script.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	timeout time.Duration,
	mu *sync.Mutex,
	currentGen *uint64,
) (*Report, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, fmt.Errorf("evaluation superseded by newer request")
		}
		return res.report, res.err

	case <-timer.C:
		return nil, fmt.Errorf("evaluation timed out after %s", timeout)
	}
}
