// Package viewer mirrors the visible part of a workspace into a renderer.
// The binding owns one opaque handle per displayed item and never touches
// geometry itself.
package viewer

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/chazu/pointyard/pkg/scene"
	"github.com/google/uuid"
)

// Handle is the renderer-side identity of a displayed item.
type Handle string

// NewHandle returns a fresh random handle.
func NewHandle() Handle {
	return Handle(uuid.NewString())
}

// Renderer is the live viewer. Implementations may keep a reference to
// the geometry, which is why changed geometry is always re-added.
type Renderer interface {
	Add(h Handle, key scene.Key, g scene.Geometry) error
	Remove(h Handle) error
}

// Binding tracks which items are registered with the renderer.
type Binding struct {
	mu       sync.Mutex
	renderer Renderer
	handles  map[scene.Key]Handle
	log      *slog.Logger
}

// NewBinding returns a binding that drives r. A nil logger discards.
func NewBinding(r Renderer, log *slog.Logger) *Binding {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Binding{
		renderer: r,
		handles:  make(map[scene.Key]Handle),
		log:      log,
	}
}

// Bind registers key with the renderer unless it is already bound.
func (b *Binding) Bind(key scene.Key, g scene.Geometry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bind(key, g)
}

func (b *Binding) bind(key scene.Key, g scene.Geometry) error {
	if _, ok := b.handles[key]; ok {
		return nil
	}
	h := NewHandle()
	if err := b.renderer.Add(h, key, g); err != nil {
		return fmt.Errorf("viewer: bind %s: %w", key, err)
	}
	b.handles[key] = h
	return nil
}

// Unbind removes key from the renderer. Unbinding an unbound key is a
// no-op.
func (b *Binding) Unbind(key scene.Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unbind(key)
}

func (b *Binding) unbind(key scene.Key) error {
	h, ok := b.handles[key]
	if !ok {
		return nil
	}
	delete(b.handles, key)
	if err := b.renderer.Remove(h); err != nil {
		b.log.Warn("renderer refused removal", "item", key.String(), "err", err)
	}
	return nil
}

// Rebind replaces the displayed geometry for key.
func (b *Binding) Rebind(key scene.Key, g scene.Geometry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.unbind(key); err != nil {
		return err
	}
	return b.bind(key, g)
}

// Bound reports whether key currently has a handle.
func (b *Binding) Bound(key scene.Key) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.handles[key]
	return ok
}

// Handle returns the handle for key.
func (b *Binding) Handle(key scene.Key) (Handle, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.handles[key]
	return h, ok
}

// Keys returns the bound keys sorted by dataset then item.
func (b *Binding) Keys() []scene.Key {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]scene.Key, 0, len(b.handles))
	for k := range b.handles {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// Len returns the number of bound items.
func (b *Binding) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handles)
}

// SortKeys orders keys by dataset then item.
func SortKeys(keys []scene.Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Dataset != keys[j].Dataset {
			return keys[i].Dataset < keys[j].Dataset
		}
		return keys[i].Item < keys[j].Item
	})
}
