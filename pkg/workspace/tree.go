package workspace

import (
	"fmt"

	"github.com/chazu/pointyard/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// TreeDataset is a read-only projection of a dataset for display.
type TreeDataset struct {
	Name    string     `json:"name"`
	Path    string     `json:"path,omitempty"`
	Visible bool       `json:"visible"`
	Items   []TreeItem `json:"items"`
}

// TreeItem is a read-only projection of an item for display.
type TreeItem struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Visible bool   `json:"visible"`
	Size    int    `json:"size"`
}

// Tree returns a snapshot of the catalogue in display order. A dataset is
// visible when any of its items is.
func (w *Workspace) Tree() []TreeDataset {
	out := make([]TreeDataset, 0, len(w.order))
	for _, d := range w.Datasets() {
		td := TreeDataset{Name: d.Name, Path: d.Path}
		for _, c := range d.children {
			it := d.items[c]
			td.Items = append(td.Items, TreeItem{
				Name:    c,
				Kind:    it.Kind().String(),
				Visible: it.visible,
				Size:    len(it.geom.Positions()),
			})
			td.Visible = td.Visible || it.visible
		}
		out = append(out, td)
	}
	return out
}

// Properties summarizes one item.
type Properties struct {
	Key        scene.Key          `json:"key"`
	Kind       string             `json:"kind"`
	Points     int                `json:"points"`
	Lines      int                `json:"lines,omitempty"`
	Triangles  int                `json:"triangles,omitempty"`
	HasColors  bool               `json:"hasColors"`
	HasNormals bool               `json:"hasNormals"`
	Min        v3.Vec             `json:"min"`
	Max        v3.Vec             `json:"max"`
	Metadata   map[string]float64 `json:"metadata,omitempty"`
}

// Describe reports counts, bounds and attribute presence for an item.
// Bounds are in workspace coordinates; dataset offsets are listed in
// Metadata.
func (w *Workspace) Describe(key scene.Key) (Properties, error) {
	it := w.Get(key)
	if it == nil {
		return Properties{}, fmt.Errorf("workspace: item %s: %w", key, ErrNotFound)
	}
	g := it.geom
	p := Properties{
		Key:        key,
		Kind:       g.Kind().String(),
		Points:     len(g.Positions()),
		HasColors:  len(g.ColorData()) > 0,
		HasNormals: len(g.NormalData()) > 0,
	}
	switch geom := g.(type) {
	case *scene.LineSet:
		p.Lines = len(geom.Lines)
	case *scene.Mesh:
		p.Triangles = len(geom.Triangles)
	}
	if box, ok := scene.Bounds(g.Positions()); ok {
		p.Min, p.Max = box.Min, box.Max
	}
	if d := w.datasets[key.Dataset]; len(d.Metadata) > 0 {
		p.Metadata = make(map[string]float64, len(d.Metadata))
		for k, v := range d.Metadata {
			p.Metadata[k] = v
		}
	}
	return p, nil
}
