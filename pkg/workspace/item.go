package workspace

import (
	"github.com/chazu/pointyard/pkg/scene"
)

// Item is one geometry entry in a dataset. Its kind never changes; an
// operation that produces a different kind creates a new item.
type Item struct {
	key      scene.Key
	geom     scene.Geometry
	visible  bool
	original []scene.Color
	cached   bool
}

// Key returns the item's address.
func (i *Item) Key() scene.Key { return i.key }

// Kind returns the geometry kind.
func (i *Item) Kind() scene.Kind { return i.geom.Kind() }

// Geometry returns the live geometry. Callers that mutate it must call
// Workspace.Refresh afterwards.
func (i *Item) Geometry() scene.Geometry { return i.geom }

// Visible reports whether the item is displayed.
func (i *Item) Visible() bool { return i.visible }

// SnapshotColors stores the current colors as the revert target the first
// time it is called. Geometry without colors is cached as all white. It
// reports whether a snapshot was taken by this call.
func (i *Item) SnapshotColors() bool {
	if i.cached {
		return false
	}
	i.original = scene.FillColors(i.geom)
	i.cached = true
	return true
}

// OriginalColors returns a copy of the cached colors.
func (i *Item) OriginalColors() ([]scene.Color, bool) {
	if !i.cached {
		return nil, false
	}
	out := make([]scene.Color, len(i.original))
	copy(out, i.original)
	return out, true
}
