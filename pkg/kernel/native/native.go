// Package native implements kernel.Kernel in pure Go: k-d tree neighbour
// search and PCA from gonum, matrix transforms and bounds from sdfx.
package native

import (
	"context"
	"fmt"

	"github.com/chazu/pointyard/pkg/kernel"
	"github.com/chazu/pointyard/pkg/scene"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*NativeKernel)(nil)

// NativeKernel implements kernel.Kernel without external processes or CGo.
type NativeKernel struct{}

// New returns a new NativeKernel.
func New() *NativeKernel {
	return &NativeKernel{}
}

// Transform applies m to every position. Normals are carried through the
// linear part of m and renormalized.
func (k *NativeKernel) Transform(g scene.Geometry, m sdf.M44) error {
	pts := g.Positions()
	moved := make([]v3.Vec, len(pts))
	for i, p := range pts {
		q := m.MulPosition(p)
		if !scene.Finite(q) {
			return fmt.Errorf("native: transform: position %d: %w", i, scene.ErrNonFinite)
		}
		moved[i] = q
	}

	normals := g.NormalData()
	var turned []v3.Vec
	if len(normals) > 0 {
		origin := m.MulPosition(v3.Vec{})
		turned = make([]v3.Vec, len(normals))
		for i, n := range normals {
			r := m.MulPosition(n).Sub(origin)
			if l := r.Length(); l > 0 {
				r = r.DivScalar(l)
			}
			turned[i] = r
		}
	}

	copy(pts, moved)
	copy(normals, turned)
	return nil
}

// Reconstruct builds a surface mesh from a point set. Only the Delaunay
// method is available here; its boundary surface is the convex hull.
func (k *NativeKernel) Reconstruct(ctx context.Context, ps *scene.PointSet, m kernel.Method, p kernel.ReconstructParams) (*scene.Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch m {
	case kernel.Delaunay:
		return k.ConvexHull(ps.Points)
	default:
		return nil, fmt.Errorf("native: %s: %w", m, kernel.ErrUnsupported)
	}
}
