package ops

import (
	"context"
	"strings"

	"github.com/chazu/pointyard/pkg/scene"
)

// MergedName returns the item name a merge of kind k produces.
func MergedName(k scene.Kind) string {
	switch k {
	case scene.KindLineSet:
		return "LineSet"
	case scene.KindMesh:
		return "TriangleMesh"
	default:
		return "Pointcloud"
	}
}

// Merge concatenates the selected items, in selection order, into one new
// item. All items must share a kind and come from at most two datasets.
// The result goes to the dataset named by joining the source dataset
// names with "_". With merge.overwrite set, an existing item of the same
// kind at the target key is replaced; otherwise a fresh name is chosen.
func (e *Engine) Merge(ctx context.Context, sel []scene.Key) (Result, error) {
	return e.run("merge", func(res *Result) error {
		if len(sel) == 0 {
			return selectionError("merge needs at least one item")
		}
		var (
			geoms    []scene.Geometry
			datasets []string
		)
		for _, key := range sel {
			it := e.ws.Get(key)
			if it == nil {
				return selectionError("merge: %s not found", key)
			}
			if len(geoms) > 0 && it.Kind() != geoms[0].Kind() {
				e.log.Warn("merge needs items of one kind", "first", geoms[0].Kind().String(), "other", it.Kind().String())
				return selectionError("merge: cannot mix %s and %s", geoms[0].Kind(), it.Kind())
			}
			if !contains(datasets, key.Dataset) {
				datasets = append(datasets, key.Dataset)
			}
			geoms = append(geoms, it.Geometry())
		}
		if len(datasets) > 2 {
			return selectionError("merge: items come from %d datasets, at most 2 allowed", len(datasets))
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		merged := concat(geoms)
		target := strings.Join(datasets, "_")
		name := MergedName(merged.Kind())
		if existing := e.ws.Item(target, name); existing != nil && e.cfg.Merge.Overwrite {
			err := e.ws.Replace(existing.Key(), merged)
			if err == nil {
				res.Updated = append(res.Updated, existing.Key())
				return nil
			}
			e.log.Warn("merge overwrite failed, inserting under a new name", "item", existing.Key().String(), "error", err)
		}
		_, err := e.insert(res, target, name, merged)
		return err
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// concat joins geometries of one kind. Colors survive when every input
// has them; a partial set is filled with white. Normals survive only when
// every input has them.
func concat(geoms []scene.Geometry) scene.Geometry {
	anyColor, allNormals := false, true
	for _, g := range geoms {
		anyColor = anyColor || len(g.ColorData()) > 0
		allNormals = allNormals && len(g.NormalData()) > 0
	}
	colors := func(g scene.Geometry) []scene.Color {
		if !anyColor {
			return nil
		}
		return scene.FillColors(g)
	}

	switch geoms[0].Kind() {
	case scene.KindLineSet:
		out := &scene.LineSet{}
		for _, g := range geoms {
			ls := g.(*scene.LineSet)
			base := len(out.Points)
			out.Points = append(out.Points, ls.Points...)
			for _, l := range ls.Lines {
				out.Lines = append(out.Lines, [2]int{l[0] + base, l[1] + base})
			}
			out.Colors = append(out.Colors, colors(ls)...)
		}
		return out
	case scene.KindMesh:
		out := &scene.Mesh{}
		for _, g := range geoms {
			m := g.(*scene.Mesh)
			base := len(out.Vertices)
			out.Vertices = append(out.Vertices, m.Vertices...)
			for _, t := range m.Triangles {
				out.Triangles = append(out.Triangles, [3]int{t[0] + base, t[1] + base, t[2] + base})
			}
			out.Colors = append(out.Colors, colors(m)...)
			if allNormals {
				out.Normals = append(out.Normals, m.Normals...)
			}
		}
		return out
	default:
		out := &scene.PointSet{}
		for _, g := range geoms {
			ps := g.(*scene.PointSet)
			out.Points = append(out.Points, ps.Points...)
			out.Colors = append(out.Colors, colors(ps)...)
			if allNormals {
				out.Normals = append(out.Normals, ps.Normals...)
			}
		}
		return out
	}
}
