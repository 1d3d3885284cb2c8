package workspace

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chazu/pointyard/pkg/scene"
	"github.com/chazu/pointyard/pkg/viewer"
	mapset "github.com/deckarep/golang-set/v2"
)

var (
	// ErrNotFound is returned for a dataset or item that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when adding an item whose key is taken.
	ErrExists = errors.New("already exists")
	// ErrKindMismatch is returned when replacing geometry with another kind.
	ErrKindMismatch = errors.New("geometry kind mismatch")
)

// Workspace owns all datasets. It is not safe for concurrent use; the
// operation engine serializes access.
type Workspace struct {
	datasets map[string]*Dataset
	order    []string
	binding  *viewer.Binding
	log      *slog.Logger
}

// New returns an empty workspace mirrored into b. A nil logger discards.
func New(b *viewer.Binding, log *slog.Logger) *Workspace {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Workspace{
		datasets: make(map[string]*Dataset),
		binding:  b,
		log:      log,
	}
}

// Binding returns the viewer binding.
func (w *Workspace) Binding() *viewer.Binding {
	return w.binding
}

// AddItem inserts g under dataset/name, creating the dataset if needed.
// The new item is visible and bound.
func (w *Workspace) AddItem(dataset, name string, g scene.Geometry) (*Item, error) {
	key := scene.Key{Dataset: dataset, Item: name}
	if g == nil {
		return nil, fmt.Errorf("workspace: add %s: no geometry", key)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("workspace: add %s: %w", key, err)
	}
	d, ok := w.datasets[dataset]
	if ok {
		if _, taken := d.items[name]; taken {
			return nil, fmt.Errorf("workspace: add %s: %w", key, ErrExists)
		}
	}

	if err := w.binding.Bind(key, g); err != nil {
		return nil, fmt.Errorf("workspace: add %s: %w", key, err)
	}

	if !ok {
		d = newDataset(dataset)
		w.datasets[dataset] = d
		w.order = append(w.order, dataset)
	}
	it := &Item{key: key, geom: g, visible: true}
	d.items[name] = it
	d.children = append(d.children, name)
	w.log.Debug("item added", "item", key.String(), "kind", g.Kind().String(), "size", len(g.Positions()))
	return it, nil
}

// RemoveItem deletes an item and unbinds it. A dataset left empty is
// removed as well.
func (w *Workspace) RemoveItem(dataset, name string) error {
	d, ok := w.datasets[dataset]
	if !ok {
		return fmt.Errorf("workspace: dataset %q: %w", dataset, ErrNotFound)
	}
	it, ok := d.items[name]
	if !ok {
		return fmt.Errorf("workspace: item %s/%s: %w", dataset, name, ErrNotFound)
	}
	if err := w.binding.Unbind(it.key); err != nil {
		return err
	}
	d.remove(name)
	if d.Len() == 0 {
		w.dropDataset(dataset)
	}
	w.log.Debug("item removed", "item", it.key.String())
	return nil
}

// RemoveDataset deletes every item in the dataset, then the dataset.
func (w *Workspace) RemoveDataset(name string) error {
	d, ok := w.datasets[name]
	if !ok {
		return fmt.Errorf("workspace: dataset %q: %w", name, ErrNotFound)
	}
	for _, child := range d.Children() {
		if err := w.RemoveItem(name, child); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workspace) dropDataset(name string) {
	delete(w.datasets, name)
	for i, n := range w.order {
		if n == name {
			w.order = append(w.order[:i], w.order[i+1:]...)
			return
		}
	}
}

// Item returns the item at dataset/name, or nil when either is missing.
func (w *Workspace) Item(dataset, name string) *Item {
	d, ok := w.datasets[dataset]
	if !ok {
		return nil
	}
	return d.items[name]
}

// Get returns the item at key, or nil.
func (w *Workspace) Get(key scene.Key) *Item {
	return w.Item(key.Dataset, key.Item)
}

// Dataset returns the named dataset, or nil.
func (w *Workspace) Dataset(name string) *Dataset {
	return w.datasets[name]
}

// Datasets returns datasets in creation order.
func (w *Workspace) Datasets() []*Dataset {
	out := make([]*Dataset, 0, len(w.order))
	for _, n := range w.order {
		out = append(out, w.datasets[n])
	}
	return out
}

// Items returns every item, datasets in creation order and children in
// insertion order.
func (w *Workspace) Items() []*Item {
	var out []*Item
	for _, d := range w.Datasets() {
		for _, c := range d.children {
			out = append(out, d.items[c])
		}
	}
	return out
}

// Len returns the total number of items.
func (w *Workspace) Len() int {
	n := 0
	for _, d := range w.datasets {
		n += d.Len()
	}
	return n
}

// ItemNames returns the item names in a dataset; empty if it is missing.
func (w *Workspace) ItemNames(dataset string) mapset.Set[string] {
	names := mapset.NewThreadUnsafeSet[string]()
	if d, ok := w.datasets[dataset]; ok {
		names.Append(d.children...)
	}
	return names
}

// DatasetNames returns the names of all datasets.
func (w *Workspace) DatasetNames() mapset.Set[string] {
	return mapset.NewThreadUnsafeSet(w.order...)
}

// SetVisibility shows or hides one item.
func (w *Workspace) SetVisibility(key scene.Key, visible bool) error {
	it := w.Get(key)
	if it == nil {
		return fmt.Errorf("workspace: item %s: %w", key, ErrNotFound)
	}
	if visible {
		if err := w.binding.Bind(key, it.geom); err != nil {
			return err
		}
	} else if err := w.binding.Unbind(key); err != nil {
		return err
	}
	it.visible = visible
	return nil
}

// SetDatasetVisibility applies visibility to every child of the dataset.
func (w *Workspace) SetDatasetVisibility(name string, visible bool) error {
	d, ok := w.datasets[name]
	if !ok {
		return fmt.Errorf("workspace: dataset %q: %w", name, ErrNotFound)
	}
	for _, c := range d.children {
		if err := w.SetVisibility(d.items[c].key, visible); err != nil {
			return err
		}
	}
	return nil
}

// Refresh pushes mutated geometry to the viewer. Hidden items are left
// unbound.
func (w *Workspace) Refresh(key scene.Key) error {
	it := w.Get(key)
	if it == nil {
		return fmt.Errorf("workspace: item %s: %w", key, ErrNotFound)
	}
	if !it.visible {
		return nil
	}
	return w.binding.Rebind(key, it.geom)
}

// Replace swaps the geometry of an existing item. The kind must match;
// the color cache is dropped since it described the old geometry.
func (w *Workspace) Replace(key scene.Key, g scene.Geometry) error {
	it := w.Get(key)
	if it == nil {
		return fmt.Errorf("workspace: item %s: %w", key, ErrNotFound)
	}
	if g == nil {
		return fmt.Errorf("workspace: replace %s: no geometry", key)
	}
	if g.Kind() != it.Kind() {
		return fmt.Errorf("workspace: replace %s: %s with %s: %w", key, it.Kind(), g.Kind(), ErrKindMismatch)
	}
	if err := g.Validate(); err != nil {
		return fmt.Errorf("workspace: replace %s: %w", key, err)
	}
	it.geom = g
	it.original = nil
	it.cached = false
	return w.Refresh(key)
}
