package native

import (
	"fmt"
	"math"

	"github.com/chazu/pointyard/pkg/kernel"
	"github.com/chazu/pointyard/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// face is a hull triangle with outward normal n and plane offset d, so a
// point p is in front of the face when n·p - d > eps.
type face struct {
	v    [3]int
	n    v3.Vec
	d    float64
	dead bool
}

func newFace(pts []v3.Vec, a, b, c int) face {
	n := pts[b].Sub(pts[a]).Cross(pts[c].Sub(pts[a]))
	if l := n.Length(); l > 0 {
		n = n.DivScalar(l)
	}
	return face{v: [3]int{a, b, c}, n: n, d: n.Dot(pts[a])}
}

func (f *face) distance(p v3.Vec) float64 {
	return f.n.Dot(p) - f.d
}

// ConvexHull computes the 3D convex hull with an incremental algorithm.
// The returned mesh only holds hull vertices, with triangles wound so
// their normals point outwards.
func (k *NativeKernel) ConvexHull(pts []v3.Vec) (*scene.Mesh, error) {
	if len(pts) == 0 {
		return nil, fmt.Errorf("native: hull: %w", kernel.ErrEmpty)
	}
	box, _ := scene.Bounds(pts)
	extent := box.Max.Sub(box.Min).Length()
	eps := 1e-10 * math.Max(extent, 1)

	seed, err := initialTetra(pts, eps)
	if err != nil {
		return nil, err
	}

	interior := scene.Centroid([]v3.Vec{pts[seed[0]], pts[seed[1]], pts[seed[2]], pts[seed[3]]})
	var faces []face
	addFace := func(a, b, c int) {
		f := newFace(pts, a, b, c)
		if f.distance(interior) > 0 {
			f = newFace(pts, a, c, b)
		}
		faces = append(faces, f)
	}
	s := seed
	addFace(s[0], s[1], s[2])
	addFace(s[0], s[1], s[3])
	addFace(s[0], s[2], s[3])
	addFace(s[1], s[2], s[3])

	used := map[int]bool{s[0]: true, s[1]: true, s[2]: true, s[3]: true}
	for i, p := range pts {
		if used[i] {
			continue
		}
		// Directed edges of visible faces; a horizon edge is one whose
		// reverse is not among them.
		edges := make(map[[2]int]bool)
		visible := 0
		for fi := range faces {
			f := &faces[fi]
			if f.dead || f.distance(p) <= eps {
				continue
			}
			f.dead = true
			visible++
			for e := 0; e < 3; e++ {
				edges[[2]int{f.v[e], f.v[(e+1)%3]}] = true
			}
		}
		if visible == 0 {
			continue
		}
		for e := range edges {
			if edges[[2]int{e[1], e[0]}] {
				continue
			}
			f := newFace(pts, e[0], e[1], i)
			faces = append(faces, f)
		}
		faces = compact(faces)
	}

	return hullMesh(pts, faces), nil
}

// initialTetra picks four affinely independent points spanning as much
// volume as a greedy search finds.
func initialTetra(pts []v3.Vec, eps float64) ([4]int, error) {
	var s [4]int
	for i, p := range pts {
		if p.X < pts[s[0]].X {
			s[0] = i
		}
	}
	best := -1.0
	for i, p := range pts {
		if d := p.Sub(pts[s[0]]).Length(); d > best {
			best, s[1] = d, i
		}
	}
	if best <= eps {
		return s, fmt.Errorf("native: hull: all points coincide: %w", kernel.ErrDegenerate)
	}
	axis := pts[s[1]].Sub(pts[s[0]])
	best = -1
	for i, p := range pts {
		if d := axis.Cross(p.Sub(pts[s[0]])).Length(); d > best {
			best, s[2] = d, i
		}
	}
	if best <= eps*axis.Length() {
		return s, fmt.Errorf("native: hull: points are collinear: %w", kernel.ErrDegenerate)
	}
	n := axis.Cross(pts[s[2]].Sub(pts[s[0]])).Normalize()
	best = -1
	for i, p := range pts {
		if d := math.Abs(n.Dot(p.Sub(pts[s[0]]))); d > best {
			best, s[3] = d, i
		}
	}
	if best <= eps {
		return s, fmt.Errorf("native: hull: points are coplanar: %w", kernel.ErrDegenerate)
	}
	return s, nil
}

func compact(faces []face) []face {
	out := faces[:0]
	for _, f := range faces {
		if !f.dead {
			out = append(out, f)
		}
	}
	return out
}

// hullMesh reindexes the live faces onto the vertices they use.
func hullMesh(pts []v3.Vec, faces []face) *scene.Mesh {
	remap := make(map[int]int)
	m := &scene.Mesh{}
	for _, f := range faces {
		var t [3]int
		for j, v := range f.v {
			r, ok := remap[v]
			if !ok {
				r = len(m.Vertices)
				remap[v] = r
				m.Vertices = append(m.Vertices, pts[v])
			}
			t[j] = r
		}
		m.Triangles = append(m.Triangles, t)
	}
	return m
}
