package native

import (
	"fmt"

	"github.com/chazu/pointyard/pkg/kernel"
	"github.com/chazu/pointyard/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/mat"
)

// Nearest finds, for every query point, the closest target point.
func (k *NativeKernel) Nearest(query, target []v3.Vec) ([]kernel.Neighbor, error) {
	if len(target) == 0 {
		return nil, fmt.Errorf("native: nearest: target: %w", kernel.ErrEmpty)
	}
	ix := newIndex(target)
	out := make([]kernel.Neighbor, len(query))
	for i, q := range query {
		j, d := ix.nearest(q)
		out[i] = kernel.Neighbor{Index: j, Distance: d}
	}
	return out, nil
}

// ClusterLabels runs DBSCAN. A point is a core point when at least
// minPoints points, itself included, lie within eps. Clusters are numbered
// from 0 in discovery order; noise is -1.
func (k *NativeKernel) ClusterLabels(pts []v3.Vec, eps float64, minPoints int) ([]int, error) {
	if eps <= 0 {
		return nil, fmt.Errorf("native: cluster: eps must be positive, got %g", eps)
	}
	if minPoints < 1 {
		return nil, fmt.Errorf("native: cluster: minPoints must be at least 1, got %d", minPoints)
	}
	const unvisited = -2
	labels := make([]int, len(pts))
	for i := range labels {
		labels[i] = unvisited
	}
	if len(pts) == 0 {
		return labels, nil
	}

	ix := newIndex(pts)
	cluster := 0
	for i := range pts {
		if labels[i] != unvisited {
			continue
		}
		seeds := ix.within(pts[i], eps)
		if len(seeds) < minPoints {
			labels[i] = -1
			continue
		}
		labels[i] = cluster
		queue := seeds
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]
			if labels[j] == -1 {
				// Border point previously marked as noise.
				labels[j] = cluster
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster
			if more := ix.within(pts[j], eps); len(more) >= minPoints {
				queue = append(queue, more...)
			}
		}
		cluster++
	}
	return labels, nil
}

// EstimateNormals fits a plane to the k nearest neighbours of each point
// and returns the plane normal, oriented towards +Z.
func (k *NativeKernel) EstimateNormals(pts []v3.Vec, knn int) ([]v3.Vec, error) {
	if len(pts) == 0 {
		return nil, fmt.Errorf("native: normals: %w", kernel.ErrEmpty)
	}
	if knn < 3 {
		return nil, fmt.Errorf("native: normals: need at least 3 neighbours, got %d", knn)
	}
	ix := newIndex(pts)
	out := make([]v3.Vec, len(pts))
	cov := mat.NewSymDense(3, nil)
	var es mat.EigenSym
	var vecs mat.Dense
	for i, p := range pts {
		nb := ix.knn(p, knn)
		if len(nb) < 3 {
			out[i] = v3.Vec{Z: 1}
			continue
		}
		covariance(pts, nb, cov)
		if !es.Factorize(cov, true) {
			out[i] = v3.Vec{Z: 1}
			continue
		}
		// Eigenvalues are ascending; the first vector spans the least
		// variance, which is the surface normal.
		es.VectorsTo(&vecs)
		n := v3.Vec{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)}
		if n.Z < 0 {
			n = n.MulScalar(-1)
		}
		out[i] = n.Normalize()
	}
	return out, nil
}

func covariance(pts []v3.Vec, idx []int, dst *mat.SymDense) {
	sub := make([]v3.Vec, len(idx))
	for i, j := range idx {
		sub[i] = pts[j]
	}
	c := scene.Centroid(sub)
	var m [3][3]float64
	for _, p := range sub {
		d := [3]float64{p.X - c.X, p.Y - c.Y, p.Z - c.Z}
		for r := 0; r < 3; r++ {
			for s := r; s < 3; s++ {
				m[r][s] += d[r] * d[s]
			}
		}
	}
	n := float64(len(sub))
	for r := 0; r < 3; r++ {
		for s := r; s < 3; s++ {
			dst.SetSym(r, s, m[r][s]/n)
		}
	}
}

// VoxelDownsample replaces all points falling in one cubic cell of the
// given size with their average. Cells are emitted in order of first
// occupancy.
func (k *NativeKernel) VoxelDownsample(ps *scene.PointSet, size float64) (*scene.PointSet, error) {
	if size <= 0 {
		return nil, fmt.Errorf("native: voxel size must be positive, got %g", size)
	}
	if len(ps.Points) == 0 {
		return nil, fmt.Errorf("native: voxel: %w", kernel.ErrEmpty)
	}
	type cell struct{ x, y, z int64 }
	type acc struct {
		p, n  v3.Vec
		c     scene.Color
		count float64
	}
	slots := make(map[cell]int)
	var cells []acc
	for i, p := range ps.Points {
		key := cell{floorDiv(p.X, size), floorDiv(p.Y, size), floorDiv(p.Z, size)}
		s, ok := slots[key]
		if !ok {
			s = len(cells)
			slots[key] = s
			cells = append(cells, acc{})
		}
		a := &cells[s]
		a.p = a.p.Add(p)
		if len(ps.Colors) > 0 {
			c := ps.Colors[i]
			a.c = scene.Color{R: a.c.R + c.R, G: a.c.G + c.G, B: a.c.B + c.B}
		}
		if len(ps.Normals) > 0 {
			a.n = a.n.Add(ps.Normals[i])
		}
		a.count++
	}

	out := &scene.PointSet{Points: make([]v3.Vec, len(cells))}
	if len(ps.Colors) > 0 {
		out.Colors = make([]scene.Color, len(cells))
	}
	if len(ps.Normals) > 0 {
		out.Normals = make([]v3.Vec, len(cells))
	}
	for i, a := range cells {
		out.Points[i] = a.p.DivScalar(a.count)
		if out.Colors != nil {
			out.Colors[i] = scene.Color{R: a.c.R / a.count, G: a.c.G / a.count, B: a.c.B / a.count}
		}
		if out.Normals != nil && a.n.Length() > 0 {
			out.Normals[i] = a.n.Normalize()
		}
	}
	return out, nil
}

func floorDiv(v, size float64) int64 {
	q := v / size
	i := int64(q)
	if float64(i) > q {
		i--
	}
	return i
}
