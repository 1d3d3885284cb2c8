// Package kernel defines the geometry kernel boundary. The workspace and
// the operation engine treat every numeric primitive (neighbour search,
// clustering, normals, hulls, reconstruction) as a black box behind this
// interface so backends can be swapped without touching the rest of the
// system.
package kernel

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/pointyard/pkg/scene"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var (
	// ErrUnsupported is returned by backends for methods they do not
	// implement.
	ErrUnsupported = errors.New("kernel: operation not supported")
	// ErrEmpty is returned when an input has no points.
	ErrEmpty = errors.New("kernel: empty input")
	// ErrDegenerate is returned when input points are collinear or
	// coplanar where a volume is required.
	ErrDegenerate = errors.New("kernel: degenerate input")
)

// Neighbor is the nearest target point for one query point.
type Neighbor struct {
	Index    int
	Distance float64
}

// Method selects a surface reconstruction algorithm.
type Method int

const (
	Poisson Method = iota
	Delaunay
	BallPivot
)

func (m Method) String() string {
	switch m {
	case Poisson:
		return "Poisson"
	case Delaunay:
		return "Delaunay3D"
	case BallPivot:
		return "BPA"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod accepts the names printed by String, case-sensitively, plus
// the lower-case script spellings.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "Poisson", "poisson":
		return Poisson, nil
	case "Delaunay3D", "delaunay":
		return Delaunay, nil
	case "BPA", "bpa", "ball-pivot", "ball_pivot":
		return BallPivot, nil
	}
	return 0, fmt.Errorf("kernel: unknown reconstruction method %q", s)
}

// ReconstructParams tunes reconstruction. Zero values select backend
// defaults.
type ReconstructParams struct {
	// Depth is the octree depth for Poisson.
	Depth int
	// Radii are the ball radii for ball pivoting.
	Radii []float64
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Neighbour search
	Nearest(query, target []v3.Vec) ([]Neighbor, error)

	// Segmentation: one label per point, -1 for noise.
	ClusterLabels(pts []v3.Vec, eps float64, minPoints int) ([]int, error)

	// Surface attributes
	EstimateNormals(pts []v3.Vec, k int) ([]v3.Vec, error)

	// Meshing
	ConvexHull(pts []v3.Vec) (*scene.Mesh, error)
	Reconstruct(ctx context.Context, ps *scene.PointSet, m Method, p ReconstructParams) (*scene.Mesh, error)

	// Sampling
	VoxelDownsample(ps *scene.PointSet, size float64) (*scene.PointSet, error)

	// Transforms rewrite positions and normals in place. On error the
	// geometry is unchanged.
	Transform(g scene.Geometry, m sdf.M44) error
}

// Distances extracts the distance column from a neighbour list.
func Distances(n []Neighbor) []float64 {
	out := make([]float64, len(n))
	for i, nb := range n {
		out[i] = nb.Distance
	}
	return out
}
