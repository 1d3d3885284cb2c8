package ops

import (
	"context"
	"fmt"
	"sort"

	"github.com/chazu/pointyard/pkg/kernel"
	"github.com/chazu/pointyard/pkg/scene"
)

// Names of derived items.
const (
	SampleName = "Sampled Pointcloud"
	HullName   = "Hull3D"
	BoxName    = "AABB"
)

// SampleMethod selects a subsampling strategy.
type SampleMethod string

const (
	SampleRandom  SampleMethod = "random"
	SampleRegular SampleMethod = "regular"
	SampleVoxel   SampleMethod = "voxel"
)

// SampleParams configures Sample. Percent applies to random and regular
// sampling, VoxelSize to voxel sampling.
type SampleParams struct {
	Method    SampleMethod
	Percent   float64
	VoxelSize float64
}

// Sample inserts a subsampled copy of every selected point set.
func (e *Engine) Sample(ctx context.Context, sel []scene.Key, p SampleParams) (Result, error) {
	return e.run("sample", func(res *Result) error {
		switch p.Method {
		case SampleRandom, SampleRegular:
			if p.Percent <= 0 || p.Percent > 100 {
				return fmt.Errorf("ops: sample percentage must be in (0, 100], got %g", p.Percent)
			}
		case SampleVoxel:
			if p.VoxelSize <= 0 {
				return fmt.Errorf("ops: voxel size must be positive, got %g", p.VoxelSize)
			}
		default:
			return fmt.Errorf("ops: unknown sample method %q", p.Method)
		}

		for i, key := range sel {
			if e.cancelled(ctx, res, sel[i:]) {
				return ctx.Err()
			}
			_, ps := e.pointSet(res, key)
			if ps == nil {
				continue
			}
			out, err := e.sample(ps, p)
			if err != nil {
				e.skip(res, key, "%v", err)
				continue
			}
			if _, err := e.insert(res, key.Dataset, SampleName, out); err != nil {
				e.skip(res, key, "%v", err)
			}
		}
		return nil
	})
}

func (e *Engine) sample(ps *scene.PointSet, p SampleParams) (*scene.PointSet, error) {
	if p.Method == SampleVoxel {
		return e.k.VoxelDownsample(ps, p.VoxelSize)
	}
	total := len(ps.Points)
	n := int(float64(total) * p.Percent / 100)
	if n <= 0 {
		return nil, fmt.Errorf("%g%% of %d points is empty", p.Percent, total)
	}

	var idx []int
	if p.Method == SampleRandom {
		idx = e.rng.Perm(total)[:n]
		sort.Ints(idx)
	} else {
		step := max(1, total/n)
		for i := 0; i < total && len(idx) < n; i += step {
			idx = append(idx, i)
		}
	}
	return ps.Subset(idx), nil
}

// ConvexHull inserts the edges of each selected point set's convex hull as
// a line set next to it.
func (e *Engine) ConvexHull(ctx context.Context, sel []scene.Key) (Result, error) {
	return e.run("hull", func(res *Result) error {
		for i, key := range sel {
			if e.cancelled(ctx, res, sel[i:]) {
				return ctx.Err()
			}
			it := e.item(res, key)
			if it == nil {
				continue
			}
			if it.Kind() == scene.KindLineSet {
				e.skip(res, key, "hull of a line set is not supported")
				continue
			}
			hull, err := e.k.ConvexHull(it.Geometry().Positions())
			if err != nil {
				e.skip(res, key, "%v", err)
				continue
			}
			if _, err := e.insert(res, key.Dataset, HullName, kernel.Wireframe(hull)); err != nil {
				e.skip(res, key, "%v", err)
			}
		}
		return nil
	})
}

// BoundingBox inserts the axis-aligned box around each selected item as a
// twelve-segment line set.
func (e *Engine) BoundingBox(ctx context.Context, sel []scene.Key) (Result, error) {
	return e.run("bbox", func(res *Result) error {
		for i, key := range sel {
			if e.cancelled(ctx, res, sel[i:]) {
				return ctx.Err()
			}
			it := e.item(res, key)
			if it == nil {
				continue
			}
			box, ok := scene.Bounds(it.Geometry().Positions())
			if !ok {
				e.skip(res, key, "no points to bound")
				continue
			}
			if _, err := e.insert(res, key.Dataset, BoxName, kernel.BoxLines(box)); err != nil {
				e.skip(res, key, "%v", err)
			}
		}
		return nil
	})
}

// NormalParams configures EstimateNormals. Method is "knn" (the default)
// or "alpha"; K <= 0 uses the normals.k setting.
type NormalParams struct {
	Method string
	K      int
}

// EstimateNormals computes normals for each selected point set in place
// and rebinds it.
func (e *Engine) EstimateNormals(ctx context.Context, sel []scene.Key, p NormalParams) (Result, error) {
	return e.run("normals", func(res *Result) error {
		switch p.Method {
		case "", "knn":
		case "alpha":
			return fmt.Errorf("ops: alpha normals: %w", kernel.ErrUnsupported)
		default:
			return fmt.Errorf("ops: unknown normal method %q", p.Method)
		}
		k := p.K
		if k <= 0 {
			k = e.cfg.Normals.K
		}

		for i, key := range sel {
			if e.cancelled(ctx, res, sel[i:]) {
				return ctx.Err()
			}
			_, ps := e.pointSet(res, key)
			if ps == nil {
				continue
			}
			normals, err := e.k.EstimateNormals(ps.Points, k)
			if err != nil {
				e.skip(res, key, "%v", err)
				continue
			}
			if err := ps.SetNormals(normals); err != nil {
				e.skip(res, key, "%v", err)
				continue
			}
			if err := e.ws.Refresh(key); err != nil {
				e.skip(res, key, "rebind: %v", err)
				continue
			}
			res.Updated = append(res.Updated, key)
		}
		return nil
	})
}

// Substitute moves every base point lying more than tol above its nearest
// top point into the top cloud. It inserts <top>_updated, holding the top
// points plus the moved ones, and <base>_remaining with the rest. An empty
// remainder is not inserted.
func (e *Engine) Substitute(ctx context.Context, top, base scene.Key, tol float64) (Result, error) {
	return e.run("substitute", func(res *Result) error {
		if top == base {
			return selectionError("substitute needs two different point sets")
		}
		_, tps := e.pointSet(res, top)
		_, bps := e.pointSet(res, base)
		if tps == nil || bps == nil {
			return selectionError("substitute needs two point sets")
		}
		if len(tps.Points) == 0 || len(bps.Points) == 0 {
			return selectionError("substitute: one or both point sets are empty")
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		nb, err := e.k.Nearest(bps.Points, tps.Points)
		if err != nil {
			return fmt.Errorf("ops: substitute: %w", err)
		}
		var moved, kept []int
		for i, p := range bps.Points {
			if p.Z > tps.Points[nb[i].Index].Z+tol {
				moved = append(moved, i)
			} else {
				kept = append(kept, i)
			}
		}
		e.log.Info("substitution", "moved", len(moved), "kept", len(kept))

		parts := []scene.Geometry{tps}
		if len(moved) > 0 {
			parts = append(parts, bps.Subset(moved))
		}
		updated := concat(parts)
		if _, err := e.insert(res, top.Dataset, top.Item+"_updated", updated); err != nil {
			return fmt.Errorf("ops: substitute: %w", err)
		}
		if len(kept) == 0 {
			e.skip(res, base, "no base points remain")
			return nil
		}
		if _, err := e.insert(res, base.Dataset, base.Item+"_remaining", bps.Subset(kept)); err != nil {
			e.rollback(res)
			return fmt.Errorf("ops: substitute: %w", err)
		}
		return nil
	})
}
