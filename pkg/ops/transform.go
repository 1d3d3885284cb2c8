package ops

import (
	"context"
	"math"

	"github.com/chazu/pointyard/pkg/scene"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// TransformParams describes a rigid transform. Stages run in order
// translate, rotate, mirror; a stage whose values are all zero or unset is
// skipped.
type TransformParams struct {
	// Translate must hold exactly three finite values when non-empty.
	Translate []float64
	// Rotate holds angles in degrees about X, Y and Z, composed as Rx*Ry*Rz
	// around the item's centroid.
	Rotate v3.Vec
	// Mirror flips the matching axis about the origin.
	Mirror [3]bool
}

// Matrix composes the transform for geometry whose centroid, before any
// stage runs, is c. ok is false when Translate is malformed.
func (p TransformParams) Matrix(c v3.Vec) (m sdf.M44, ok bool) {
	m = sdf.Identity3d()
	if len(p.Translate) != 0 {
		if len(p.Translate) != 3 {
			return m, false
		}
		t := v3.Vec{X: p.Translate[0], Y: p.Translate[1], Z: p.Translate[2]}
		if !scene.Finite(t) {
			return m, false
		}
		if t != (v3.Vec{}) {
			m = sdf.Translate3d(t)
			c = c.Add(t)
		}
	}

	if !scene.Finite(p.Rotate) {
		return m, false
	}
	if p.Rotate != (v3.Vec{}) {
		r := sdf.RotateX(radians(p.Rotate.X)).Mul(sdf.RotateY(radians(p.Rotate.Y))).Mul(sdf.RotateZ(radians(p.Rotate.Z)))
		about := sdf.Translate3d(c).Mul(r).Mul(sdf.Translate3d(c.MulScalar(-1)))
		m = about.Mul(m)
	}

	if p.Mirror != [3]bool{} {
		s := v3.Vec{X: 1, Y: 1, Z: 1}
		if p.Mirror[0] {
			s.X = -1
		}
		if p.Mirror[1] {
			s.Y = -1
		}
		if p.Mirror[2] {
			s.Z = -1
		}
		m = sdf.Scale3d(s).Mul(m)
	}
	return m, true
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Transform applies p to every selected item in place and rebinds it. A
// malformed translation or a kernel failure skips only that item.
func (e *Engine) Transform(ctx context.Context, sel []scene.Key, p TransformParams) (Result, error) {
	return e.run("transform", func(res *Result) error {
		for i, key := range sel {
			if e.cancelled(ctx, res, sel[i:]) {
				return ctx.Err()
			}
			it := e.item(res, key)
			if it == nil {
				continue
			}
			g := it.Geometry()
			if scene.IsEmpty(g) {
				e.skip(res, key, "no points to transform")
				continue
			}
			m, ok := p.Matrix(scene.Centroid(g.Positions()))
			if !ok {
				e.skip(res, key, "translation needs three finite values, got %v", p.Translate)
				continue
			}
			if err := e.k.Transform(g, m); err != nil {
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
