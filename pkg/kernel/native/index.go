package native

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// point is a k-d tree entry that remembers its position in the caller's
// slice, since tree construction reorders entries.
type point struct {
	v   v3.Vec
	idx int
}

func coord(v v3.Vec, d kdtree.Dim) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return coord(p.v, d) - coord(c.(point).v, d)
}

func (p point) Dims() int { return 3 }

// Distance is squared Euclidean distance, as kdtree requires.
func (p point) Distance(c kdtree.Comparable) float64 {
	d := p.v.Sub(c.(point).v)
	return d.Dot(d)
}

type points []point

func (p points) Index(i int) kdtree.Comparable { return p[i] }
func (p points) Len() int                      { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p points) Pivot(d kdtree.Dim) int {
	pl := plane{points: p, dim: d}
	return kdtree.Partition(pl, kdtree.MedianOfMedians(pl))
}

// plane orders points along one dimension for median selection.
type plane struct {
	points
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return coord(p.points[i].v, p.dim) < coord(p.points[j].v, p.dim)
}
func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}

// index is a static k-d tree over a point slice.
type index struct {
	tree *kdtree.Tree
	n    int
}

func newIndex(pts []v3.Vec) *index {
	entries := make(points, len(pts))
	for i, v := range pts {
		entries[i] = point{v: v, idx: i}
	}
	return &index{tree: kdtree.New(entries, false), n: len(pts)}
}

// nearest returns the index of the closest point and its distance.
func (ix *index) nearest(q v3.Vec) (int, float64) {
	c, d2 := ix.tree.Nearest(point{v: q})
	if c == nil {
		return -1, math.Inf(1)
	}
	return c.(point).idx, math.Sqrt(d2)
}

// within returns the indices of all points within radius r of q,
// including q itself when it is in the set.
func (ix *index) within(q v3.Vec, r float64) []int {
	keep := kdtree.NewDistKeeper(r * r)
	ix.tree.NearestSet(keep, point{v: q})
	out := make([]int, 0, len(keep.Heap))
	for _, cd := range keep.Heap {
		out = append(out, cd.Comparable.(point).idx)
	}
	return out
}

// knn returns the indices of the k closest points to q, nearest first.
func (ix *index) knn(q v3.Vec, k int) []int {
	if k > ix.n {
		k = ix.n
	}
	keep := kdtree.NewNKeeper(k)
	ix.tree.NearestSet(keep, point{v: q})
	out := make([]int, 0, len(keep.Heap))
	for _, cd := range keep.Heap {
		if cd.Comparable == nil {
			continue
		}
		out = append(out, cd.Comparable.(point).idx)
	}
	return out
}
