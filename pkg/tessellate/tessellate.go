// Package tessellate flattens scene geometry into the float32 buffers a
// WebGL viewer consumes. One buffer is produced per item.
package tessellate

import (
	"fmt"

	"github.com/chazu/pointyard/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Primitive names the draw mode of a buffer.
type Primitive string

const (
	Points    Primitive = "points"
	Lines     Primitive = "lines"
	Triangles Primitive = "triangles"
)

// Buffer is a render-ready copy of an item. All arrays are flat:
// positions, colors and normals hold 3 floats per vertex, indices hold 2
// (lines) or 3 (triangles) entries per primitive and are empty for points.
type Buffer struct {
	Dataset   string    `json:"dataset"`
	Item      string    `json:"item"`
	Primitive Primitive `json:"primitive"`
	Positions []float32 `json:"positions"`
	Colors    []float32 `json:"colors"`
	Normals   []float32 `json:"normals"`
	Indices   []uint32  `json:"indices"`
}

// VertexCount returns the number of vertices.
func (b *Buffer) VertexCount() int {
	return len(b.Positions) / 3
}

// IsEmpty returns true if the buffer has no geometry.
func (b *Buffer) IsEmpty() bool {
	return len(b.Positions) == 0
}

// Tessellate converts g into a buffer. Geometry without colors gets no
// color array; the viewer applies its own default. The geometry is only
// read.
func Tessellate(key scene.Key, g scene.Geometry) (*Buffer, error) {
	if g == nil {
		return nil, fmt.Errorf("tessellate: %s: no geometry", key)
	}
	b := &Buffer{Dataset: key.Dataset, Item: key.Item}

	switch geom := g.(type) {
	case *scene.PointSet:
		b.Primitive = Points
		b.Positions = flatten(geom.Points)
		b.Colors = flattenColors(geom.Colors)
		b.Normals = flatten(geom.Normals)

	case *scene.LineSet:
		b.Primitive = Lines
		handleLines(b, geom)

	case *scene.Mesh:
		b.Primitive = Triangles
		b.Positions = flatten(geom.Vertices)
		b.Colors = flattenColors(geom.Colors)
		normals := geom.Normals
		if len(normals) == 0 {
			normals = vertexNormals(geom)
		}
		b.Normals = flatten(normals)
		b.Indices = make([]uint32, 0, len(geom.Triangles)*3)
		for _, t := range geom.Triangles {
			b.Indices = append(b.Indices, uint32(t[0]), uint32(t[1]), uint32(t[2]))
		}

	default:
		return nil, fmt.Errorf("tessellate: %s: unsupported geometry %T", key, g)
	}
	return b, nil
}

// handleLines emits line sets. Colors are per segment, so colored segments
// get their own vertex pair; uncolored line sets share vertices.
func handleLines(b *Buffer, ls *scene.LineSet) {
	if len(ls.Colors) == 0 {
		b.Positions = flatten(ls.Points)
		b.Indices = make([]uint32, 0, len(ls.Lines)*2)
		for _, l := range ls.Lines {
			b.Indices = append(b.Indices, uint32(l[0]), uint32(l[1]))
		}
		return
	}

	b.Positions = make([]float32, 0, len(ls.Lines)*6)
	b.Colors = make([]float32, 0, len(ls.Lines)*6)
	b.Indices = make([]uint32, 0, len(ls.Lines)*2)
	for i, l := range ls.Lines {
		c := ls.Colors[i]
		for _, v := range l {
			p := ls.Points[v]
			b.Positions = append(b.Positions, float32(p.X), float32(p.Y), float32(p.Z))
			b.Colors = append(b.Colors, float32(c.R), float32(c.G), float32(c.B))
		}
		b.Indices = append(b.Indices, uint32(2*i), uint32(2*i+1))
	}
}

// vertexNormals averages the face normals around each vertex.
func vertexNormals(m *scene.Mesh) []v3.Vec {
	acc := make([]v3.Vec, len(m.Vertices))
	for _, t := range m.Triangles {
		a, b, c := m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
		n := b.Sub(a).Cross(c.Sub(a))
		for _, v := range t {
			acc[v] = acc[v].Add(n)
		}
	}
	for i, n := range acc {
		if n.Length() > 0 {
			acc[i] = n.Normalize()
		}
	}
	return acc
}

func flatten(pts []v3.Vec) []float32 {
	if len(pts) == 0 {
		return nil
	}
	out := make([]float32, 0, len(pts)*3)
	for _, p := range pts {
		out = append(out, float32(p.X), float32(p.Y), float32(p.Z))
	}
	return out
}

func flattenColors(cs []scene.Color) []float32 {
	if len(cs) == 0 {
		return nil
	}
	out := make([]float32, 0, len(cs)*3)
	for _, c := range cs {
		out = append(out, float32(c.R), float32(c.G), float32(c.B))
	}
	return out
}
