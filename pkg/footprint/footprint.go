// Package footprint turns line sets into planar regions and tests points
// against them in the XY plane.
package footprint

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/pointyard/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrDegenerate is returned when a footprint encloses no area.
var ErrDegenerate = errors.New("footprint: region has no area")

// Region is a simple polygon in the XY plane. Points on its boundary are
// outside.
type Region struct {
	Polygon orb.Polygon
	// Merged is set when several loops, or one self-crossing loop, were
	// replaced by the convex hull of all their vertices.
	Merged bool

	bound orb.Bound
	tol   float64
}

// FromLineSet projects ls onto XY and builds its region. Each connected
// run of segments becomes a loop, closed if needed. More than one loop,
// a branching network or a self-crossing loop yields the convex hull of
// all vertices.
func FromLineSet(ls *scene.LineSet) (*Region, error) {
	if len(ls.Points) == 0 {
		return nil, fmt.Errorf("footprint: no vertices: %w", ErrDegenerate)
	}
	loops, simple := loops(ls)
	rings := make([]orb.Ring, 0, len(loops))
	for _, loop := range loops {
		rings = append(rings, project(ls.Points, loop))
	}
	if !simple {
		return hullRegion(rings)
	}
	return FromRings(rings)
}

// FromRings builds a region from closed or open rings.
func FromRings(rings []orb.Ring) (*Region, error) {
	if len(rings) == 0 {
		return nil, fmt.Errorf("footprint: no rings: %w", ErrDegenerate)
	}
	if len(rings) > 1 {
		return hullRegion(rings)
	}
	r := closeRing(dedupe(rings[0]))
	if selfCrossing(r) {
		return hullRegion(rings)
	}
	return newRegion(r, false)
}

func hullRegion(rings []orb.Ring) (*Region, error) {
	var all []orb.Point
	for _, r := range rings {
		all = append(all, r...)
	}
	return newRegion(Hull(all), true)
}

func newRegion(r orb.Ring, merged bool) (*Region, error) {
	if len(r) < 4 {
		return nil, fmt.Errorf("footprint: %d distinct vertices: %w", len(r)-1, ErrDegenerate)
	}
	b := r.Bound()
	scale := math.Max(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1])
	if math.Abs(planar.Area(r)) <= 1e-12*scale*scale {
		return nil, ErrDegenerate
	}
	return &Region{
		Polygon: orb.Polygon{r},
		Merged:  merged,
		bound:   b,
		tol:     1e-9 * math.Max(scale, 1),
	}, nil
}

// Bound returns the region's bounding rectangle.
func (r *Region) Bound() orb.Bound {
	return r.bound
}

// Contains reports whether p lies strictly inside the region.
func (r *Region) Contains(p orb.Point) bool {
	if !r.bound.Contains(p) {
		return false
	}
	if !planar.PolygonContains(r.Polygon, p) {
		return false
	}
	return planar.DistanceFrom(r.Polygon, p) > r.tol
}

// Filter returns the indices of pts whose XY projection is inside the
// region, in input order.
func (r *Region) Filter(pts []v3.Vec) []int {
	var idx []int
	for i, p := range pts {
		if r.Contains(orb.Point{p.X, p.Y}) {
			idx = append(idx, i)
		}
	}
	return idx
}

func project(pts []v3.Vec, order []int) orb.Ring {
	r := make(orb.Ring, 0, len(order)+1)
	for _, i := range order {
		r = append(r, orb.Point{pts[i].X, pts[i].Y})
	}
	return r
}

func dedupe(r orb.Ring) orb.Ring {
	out := make(orb.Ring, 0, len(r))
	for _, p := range r {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}

func closeRing(r orb.Ring) orb.Ring {
	if len(r) > 0 && r[0] != r[len(r)-1] {
		r = append(r, r[0])
	}
	return r
}
