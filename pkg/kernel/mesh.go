package kernel

import (
	"sort"

	"github.com/chazu/pointyard/pkg/scene"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Edges returns the unique undirected edges of a triangle mesh, each with
// the lower vertex index first, sorted.
func Edges(m *scene.Mesh) [][2]int {
	seen := make(map[[2]int]struct{}, len(m.Triangles)*3/2)
	var edges [][2]int
	for _, t := range m.Triangles {
		for i := 0; i < 3; i++ {
			a, b := t[i], t[(i+1)%3]
			if a > b {
				a, b = b, a
			}
			e := [2]int{a, b}
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

// Wireframe converts a mesh to a line set over the same vertices.
func Wireframe(m *scene.Mesh) *scene.LineSet {
	pts := make([]v3.Vec, len(m.Vertices))
	copy(pts, m.Vertices)
	return &scene.LineSet{Points: pts, Lines: Edges(m)}
}

// BoxLines returns the 12 edges of an axis-aligned box.
func BoxLines(box sdf.Box3) *scene.LineSet {
	lo, hi := box.Min, box.Max
	pts := make([]v3.Vec, 8)
	for i := range pts {
		p := lo
		if i&1 != 0 {
			p.X = hi.X
		}
		if i&2 != 0 {
			p.Y = hi.Y
		}
		if i&4 != 0 {
			p.Z = hi.Z
		}
		pts[i] = p
	}
	var lines [][2]int
	for i := 0; i < 8; i++ {
		for _, bit := range []int{1, 2, 4} {
			if i&bit == 0 {
				lines = append(lines, [2]int{i, i | bit})
			}
		}
	}
	return &scene.LineSet{Points: pts, Lines: lines}
}
