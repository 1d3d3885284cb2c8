package viewer

import (
	"fmt"
	"sync"

	"github.com/chazu/pointyard/pkg/scene"
)

// Recorder is an in-memory Renderer. It backs headless runs and tests and
// counts every call it receives.
type Recorder struct {
	mu      sync.Mutex
	entries map[Handle]Entry
	Adds    int
	Removes int
}

// Entry is what a Recorder holds for one handle.
type Entry struct {
	Key      scene.Key
	Geometry scene.Geometry
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{entries: make(map[Handle]Entry)}
}

// Add records g as displayed under h. A handle can be added once.
func (r *Recorder) Add(h Handle, key scene.Key, g scene.Geometry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[h]; ok {
		return fmt.Errorf("handle %s already displayed", h)
	}
	r.entries[h] = Entry{Key: key, Geometry: g}
	r.Adds++
	return nil
}

// Remove forgets h. Removing an unknown handle is an error.
func (r *Recorder) Remove(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[h]; !ok {
		return fmt.Errorf("handle %s not displayed", h)
	}
	delete(r.entries, h)
	r.Removes++
	return nil
}

// Len returns the number of displayed handles.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Lookup finds the entry displayed for key.
func (r *Recorder) Lookup(key scene.Key) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}
