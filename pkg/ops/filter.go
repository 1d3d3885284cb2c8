package ops

import (
	"context"
	"fmt"
	"math"

	"github.com/chazu/pointyard/pkg/footprint"
	"github.com/chazu/pointyard/pkg/kernel"
	"github.com/chazu/pointyard/pkg/scene"
)

// Base names for filter results.
const (
	FootprintName = "pointcloud_in_3dhull"
	DistanceName  = "filtered_pointcloud_by_distance"
)

// FootprintFilter keeps, for every selected point set and every selected
// line set, the points whose XY projection lies strictly inside the line
// set's footprint. Each non-empty pair yields one new point set next to
// its source.
func (e *Engine) FootprintFilter(ctx context.Context, sel []scene.Key) (Result, error) {
	return e.run("footprint", func(res *Result) error {
		points, lines, _ := e.split(res, sel)
		if len(points) == 0 || len(lines) == 0 {
			return selectionError("footprint filter needs at least one point set and one line set, got %d and %d", len(points), len(lines))
		}

		for i, lk := range lines {
			if e.cancelled(ctx, res, lines[i:]) {
				return ctx.Err()
			}
			ls := e.ws.Get(lk).Geometry().(*scene.LineSet)
			region, err := footprint.FromLineSet(ls)
			if err != nil {
				e.skip(res, lk, "footprint: %v", err)
				continue
			}
			if region.Merged {
				e.log.Info("footprint of " + lk.String() + " has several loops or crosses itself; using its convex hull")
			}

			for _, pk := range points {
				_, ps := e.pointSet(res, pk)
				if ps == nil {
					continue
				}
				idx := region.Filter(ps.Points)
				if len(idx) == 0 {
					e.skip(res, pk, "no points inside footprint %s", lk)
					continue
				}
				if _, err := e.insert(res, pk.Dataset, FootprintName, ps.Subset(idx)); err != nil {
					e.skip(res, pk, "%v", err)
				}
			}
		}
		return nil
	})
}

// Predicate compares a nearest-neighbour distance against a threshold.
type Predicate string

const (
	Greater      Predicate = ">"
	GreaterEqual Predicate = ">="
	Less         Predicate = "<"
	LessEqual    Predicate = "<="
	Equal        Predicate = "=="
	NotEqual     Predicate = "!="
)

// ParsePredicate validates s.
func ParsePredicate(s string) (Predicate, error) {
	switch p := Predicate(s); p {
	case Greater, GreaterEqual, Less, LessEqual, Equal, NotEqual:
		return p, nil
	}
	return "", fmt.Errorf("ops: unknown comparison %q", s)
}

// Match applies the predicate. Equality is |d-t| <= atol + rtol*|t|.
func (p Predicate) Match(d, t, rtol, atol float64) bool {
	near := math.Abs(d-t) <= atol+rtol*math.Abs(t)
	switch p {
	case Greater:
		return d > t
	case GreaterEqual:
		return d >= t
	case Less:
		return d < t
	case LessEqual:
		return d <= t
	case Equal:
		return near
	case NotEqual:
		return !near
	}
	return false
}

// DistanceFilter compares every point of each of exactly two point sets
// with its nearest neighbour in the other. Either both filtered sets are
// inserted or, when one of them would be empty, neither is.
func (e *Engine) DistanceFilter(ctx context.Context, sel []scene.Key, pred Predicate, threshold float64) (Result, error) {
	return e.run("distance", func(res *Result) error {
		if len(sel) != 2 {
			return selectionError("distance filter needs exactly two point sets, got %d items", len(sel))
		}
		if _, err := ParsePredicate(string(pred)); err != nil {
			return err
		}
		if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
			return fmt.Errorf("ops: threshold %g is not finite", threshold)
		}

		sets := make([]*scene.PointSet, 2)
		for i, key := range sel {
			_, ps := e.pointSet(res, key)
			if ps == nil {
				return selectionError("distance filter: %s is not an available point set", key)
			}
			if len(ps.Points) == 0 {
				return selectionError("distance filter: %s is empty", key)
			}
			sets[i] = ps
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		tol := e.cfg.Filter
		keep := make([][]int, 2)
		for i := range sets {
			nb, err := e.k.Nearest(sets[i].Points, sets[1-i].Points)
			if err != nil {
				return fmt.Errorf("ops: nearest distances for %s: %w", sel[i], err)
			}
			for j, d := range kernel.Distances(nb) {
				if pred.Match(d, threshold, tol.RTol, tol.ATol) {
					keep[i] = append(keep[i], j)
				}
			}
		}
		if len(keep[0]) == 0 || len(keep[1]) == 0 {
			e.log.Info("no points met the distance criteria", "predicate", string(pred), "threshold", threshold)
			return nil
		}

		for i, key := range sel {
			if _, err := e.insert(res, key.Dataset, DistanceName, sets[i].Subset(keep[i])); err != nil {
				e.rollback(res)
				return fmt.Errorf("ops: insert result for %s: %w", key, err)
			}
		}
		return nil
	})
}
