package scene

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Geometry is the payload of a scene item. Positions returns the backing
// slice so transforms can rewrite coordinates in place.
type Geometry interface {
	Kind() Kind
	Positions() []v3.Vec
	// ColorTarget is the length a non-empty color array must have:
	// points, segments or vertices depending on the kind.
	ColorTarget() int
	ColorData() []Color
	SetColors(c []Color) error
	NormalData() []v3.Vec
	Clone() Geometry
	Validate() error
}

// PointSet is an unordered cloud of points with optional per-point colors
// and normals.
type PointSet struct {
	Points  []v3.Vec
	Colors  []Color
	Normals []v3.Vec
}

func (p *PointSet) Kind() Kind { return KindPointSet }
func (p *PointSet) Positions() []v3.Vec { return p.Points }
func (p *PointSet) ColorTarget() int { return len(p.Points) }
func (p *PointSet) ColorData() []Color { return p.Colors }
func (p *PointSet) NormalData() []v3.Vec { return p.Normals }
func (p *PointSet) SetColors(c []Color) error { return setColors(&p.Colors, c, len(p.Points)) }

// SetNormals replaces the normals. An empty slice clears them.
func (p *PointSet) SetNormals(n []v3.Vec) error {
	if len(n) != 0 && len(n) != len(p.Points) {
		return fmt.Errorf("scene: %d normals for %d points", len(n), len(p.Points))
	}
	p.Normals = n
	return nil
}

func (p *PointSet) Clone() Geometry {
	return &PointSet{
		Points:  cloneVecs(p.Points),
		Colors:  cloneColors(p.Colors),
		Normals: cloneVecs(p.Normals),
	}
}

func (p *PointSet) Validate() error {
	if err := checkFinite(p.Points); err != nil {
		return err
	}
	if err := checkLen("colors", len(p.Colors), len(p.Points)); err != nil {
		return err
	}
	return checkLen("normals", len(p.Normals), len(p.Points))
}

// Subset returns a new point set holding the points at idx, carrying
// colors and normals along.
func (p *PointSet) Subset(idx []int) *PointSet {
	out := &PointSet{Points: make([]v3.Vec, len(idx))}
	if len(p.Colors) > 0 {
		out.Colors = make([]Color, len(idx))
	}
	if len(p.Normals) > 0 {
		out.Normals = make([]v3.Vec, len(idx))
	}
	for i, j := range idx {
		out.Points[i] = p.Points[j]
		if out.Colors != nil {
			out.Colors[i] = p.Colors[j]
		}
		if out.Normals != nil {
			out.Normals[i] = p.Normals[j]
		}
	}
	return out
}

// LineSet is a set of segments between indexed points. Colors, when
// present, are per segment.
type LineSet struct {
	Points []v3.Vec
	Lines  [][2]int
	Colors []Color
}

func (l *LineSet) Kind() Kind { return KindLineSet }
func (l *LineSet) Positions() []v3.Vec { return l.Points }
func (l *LineSet) ColorTarget() int { return len(l.Lines) }
func (l *LineSet) ColorData() []Color { return l.Colors }
func (l *LineSet) NormalData() []v3.Vec { return nil }
func (l *LineSet) SetColors(c []Color) error { return setColors(&l.Colors, c, len(l.Lines)) }

func (l *LineSet) Clone() Geometry {
	lines := make([][2]int, len(l.Lines))
	copy(lines, l.Lines)
	return &LineSet{Points: cloneVecs(l.Points), Lines: lines, Colors: cloneColors(l.Colors)}
}

func (l *LineSet) Validate() error {
	if err := checkFinite(l.Points); err != nil {
		return err
	}
	for i, ln := range l.Lines {
		for _, v := range ln {
			if v < 0 || v >= len(l.Points) {
				return fmt.Errorf("scene: line %d: vertex %d: %w", i, v, ErrIndexRange)
			}
		}
	}
	return checkLen("colors", len(l.Colors), len(l.Lines))
}

// Mesh is an indexed triangle mesh with optional per-vertex colors and
// normals.
type Mesh struct {
	Vertices  []v3.Vec
	Triangles [][3]int
	Colors    []Color
	Normals   []v3.Vec
}

func (m *Mesh) Kind() Kind { return KindMesh }
func (m *Mesh) Positions() []v3.Vec { return m.Vertices }
func (m *Mesh) ColorTarget() int { return len(m.Vertices) }
func (m *Mesh) ColorData() []Color { return m.Colors }
func (m *Mesh) NormalData() []v3.Vec { return m.Normals }
func (m *Mesh) SetColors(c []Color) error { return setColors(&m.Colors, c, len(m.Vertices)) }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

func (m *Mesh) Clone() Geometry {
	tris := make([][3]int, len(m.Triangles))
	copy(tris, m.Triangles)
	return &Mesh{
		Vertices:  cloneVecs(m.Vertices),
		Triangles: tris,
		Colors:    cloneColors(m.Colors),
		Normals:   cloneVecs(m.Normals),
	}
}

func (m *Mesh) Validate() error {
	if err := checkFinite(m.Vertices); err != nil {
		return err
	}
	for i, t := range m.Triangles {
		for _, v := range t {
			if v < 0 || v >= len(m.Vertices) {
				return fmt.Errorf("scene: triangle %d: vertex %d: %w", i, v, ErrIndexRange)
			}
		}
	}
	if err := checkLen("colors", len(m.Colors), len(m.Vertices)); err != nil {
		return err
	}
	return checkLen("normals", len(m.Normals), len(m.Vertices))
}

// FillColors returns the geometry's colors resized to its color target.
// Missing entries are white; surplus entries are dropped.
func FillColors(g Geometry) []Color {
	n := g.ColorTarget()
	out := make([]Color, n)
	src := g.ColorData()
	for i := range out {
		if i < len(src) {
			out[i] = src[i]
		} else {
			out[i] = White
		}
	}
	return out
}

// IsEmpty reports whether the geometry has no positions.
func IsEmpty(g Geometry) bool {
	return g == nil || len(g.Positions()) == 0
}

// Finite reports whether every component of v is a finite number.
func Finite(v v3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}

// Bounds returns the axis-aligned box around pts. ok is false for an empty
// slice.
func Bounds(pts []v3.Vec) (box sdf.Box3, ok bool) {
	if len(pts) == 0 {
		return sdf.Box3{}, false
	}
	box = sdf.Box3{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		box.Min = box.Min.Min(p)
		box.Max = box.Max.Max(p)
	}
	return box, true
}

// Centroid returns the arithmetic mean of pts, or the zero vector.
func Centroid(pts []v3.Vec) v3.Vec {
	var sum v3.Vec
	if len(pts) == 0 {
		return sum
	}
	for _, p := range pts {
		sum = sum.Add(p)
	}
	return sum.DivScalar(float64(len(pts)))
}

func setColors(dst *[]Color, c []Color, target int) error {
	if len(c) != 0 && len(c) != target {
		return fmt.Errorf("scene: %d colors for %d elements: %w", len(c), target, ErrColorLength)
	}
	*dst = c
	return nil
}

func checkFinite(pts []v3.Vec) error {
	for i, p := range pts {
		if !Finite(p) {
			return fmt.Errorf("scene: position %d: %w", i, ErrNonFinite)
		}
	}
	return nil
}

func checkLen(what string, got, want int) error {
	if got != 0 && got != want {
		if what == "colors" {
			return fmt.Errorf("scene: %d %s for %d elements: %w", got, what, want, ErrColorLength)
		}
		return fmt.Errorf("scene: %d %s for %d elements", got, what, want)
	}
	return nil
}

func cloneVecs(v []v3.Vec) []v3.Vec {
	if v == nil {
		return nil
	}
	out := make([]v3.Vec, len(v))
	copy(out, v)
	return out
}

func cloneColors(c []Color) []Color {
	if c == nil {
		return nil
	}
	out := make([]Color, len(c))
	copy(out, c)
	return out
}
