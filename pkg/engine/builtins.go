package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chazu/pointyard/pkg/formats"
	"github.com/chazu/pointyard/pkg/kernel"
	"github.com/chazu/pointyard/pkg/ops"
	"github.com/chazu/pointyard/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// session is the state shared by the builtins of one run.
type session struct {
	ctx    context.Context
	ops    *ops.Engine
	report *Report
	log    *slog.Logger
}

// op runs one operation and records it as a step. Operation errors are
// recorded and the script continues; cancellation stops the script.
// The builtin returns the created keys, or the updated keys when the
// operation only modified items in place.
func (s *session) op(name string, fn func() (ops.Result, error)) (zygo.Sexp, error) {
	if err := s.ctx.Err(); err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
	}
	res, err := fn()
	if err != nil && s.ctx.Err() != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
	}

	step := Step{Op: name, Result: res}
	if err != nil {
		step.Err = err.Error()
		s.log.Warn("script step failed", "op", name, "error", err)
	}
	s.report.Steps = append(s.report.Steps, step)

	if len(res.Created) > 0 {
		return keyList(res.Created), nil
	}
	return keyList(res.Updated), nil
}

// kwFloat reads an optional numeric keyword.
func kwFloat(pa kwArgs, op, name string, def float64) (float64, error) {
	v, ok := pa.kw[name]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", op, name, err)
	}
	return f, nil
}

// kwInt reads an optional integer keyword.
func kwInt(pa kwArgs, op, name string, def int) (int, error) {
	v, ok := pa.kw[name]
	if !ok {
		return def, nil
	}
	n, err := toInt(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", op, name, err)
	}
	return n, nil
}

// kwName reads an optional keyword-or-string keyword.
func kwName(pa kwArgs, op, name, def string) (string, error) {
	v, ok := pa.kw[name]
	if !ok {
		return def, nil
	}
	s, err := toKeywordString(v)
	if err != nil {
		return "", fmt.Errorf("%s: %s: %w", op, name, err)
	}
	return s, nil
}

// selection reads the positional arguments of a builtin as item keys.
func selection(op string, pa kwArgs) ([]scene.Key, error) {
	keys, err := toKeys(pa.positional)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return keys, nil
}

// oneKey reads exactly one positional item.
func oneKey(op string, args []zygo.Sexp) (scene.Key, error) {
	if len(args) < 1 {
		return scene.Key{}, fmt.Errorf("%s requires an item argument", op)
	}
	k, err := toKey(args[0])
	if err != nil {
		return scene.Key{}, fmt.Errorf("%s: %w", op, err)
	}
	return k, nil
}

// selectionBuiltin registers a builtin that takes only a selection.
func selectionBuiltin(env *zygo.Zlisp, name string, fn func(sel []scene.Key) (ops.Result, error), s *session) {
	env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		sel, err := selection(name, parseArgs(args))
		if err != nil {
			return zygo.SexpNull, err
		}
		return s.op(name, func() (ops.Result, error) { return fn(sel) })
	})
}

// registerBuiltins installs the workspace builtins into a zygomys
// environment. Every builtin that changes the workspace goes through
// session.op and shows up in the report.
//
// Source code must be preprocessed with preprocessSource() before
// evaluation so that :keyword tokens are converted to recognizable string
// literals and kebab-case names match the underscore names below.
func registerBuiltins(env *zygo.Zlisp, s *session) {
	ctx := s.ctx
	o := s.ops

	// -----------------------------------------------------------------------
	// Items and datasets
	// -----------------------------------------------------------------------

	// (load "scan.xyz" :recenter false)
	env.AddFunction("load", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("load requires a path argument")
		}
		path, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("load: path: %w", err)
		}
		opt := formats.Options{Recenter: true}
		if v, ok := pa.kw["recenter"]; ok {
			if opt.Recenter, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("load: recenter: %w", err)
			}
		}
		return s.op("load", func() (ops.Result, error) { return o.Import(ctx, path, opt) })
	})

	// (reload "site1")
	env.AddFunction("reload", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("reload requires a dataset argument")
		}
		ds, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("reload: dataset: %w", err)
		}
		return s.op("reload", func() (ops.Result, error) { return o.Reload(ctx, ds) })
	})

	// (export (item "site1/Pointcloud") "out.xyz")
	env.AddFunction("export", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		key, err := oneKey("export", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("export requires a path argument")
		}
		path, err := toString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("export: path: %w", err)
		}
		return s.op("export", func() (ops.Result, error) { return o.Export(ctx, key, path) })
	})

	// (item "site1/Pointcloud")
	env.AddFunction("item", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		key, err := oneKey("item", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if _, err := o.Describe(key); err != nil {
			return zygo.SexpNull, fmt.Errorf("item: %w", err)
		}
		return &sexpKey{key: key}, nil
	})

	// (items) or (items "site1")
	env.AddFunction("items", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		var only string
		if len(args) > 0 {
			ds, err := toString(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("items: dataset: %w", err)
			}
			only = ds
		}
		var keys []scene.Key
		for _, d := range o.Tree() {
			if only != "" && d.Name != only {
				continue
			}
			for _, it := range d.Items {
				keys = append(keys, scene.Key{Dataset: d.Name, Item: it.Name})
			}
		}
		return keyList(keys), nil
	})

	// (size (item "site1/Pointcloud"))
	env.AddFunction("size", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		key, err := oneKey("size", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		p, err := o.Describe(key)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("size: %w", err)
		}
		return &zygo.SexpInt{Val: int64(p.Points)}, nil
	})

	selectionBuiltin(env, "show", func(sel []scene.Key) (ops.Result, error) {
		return o.SetVisibility(sel, true)
	}, s)
	selectionBuiltin(env, "hide", func(sel []scene.Key) (ops.Result, error) {
		return o.SetVisibility(sel, false)
	}, s)
	selectionBuiltin(env, "delete", func(sel []scene.Key) (ops.Result, error) {
		return o.Delete(ctx, sel)
	}, s)

	// -----------------------------------------------------------------------
	// (transform sel... :translate [5 0 0] :rotate [0 0 90] :mirror [:x])
	// -----------------------------------------------------------------------
	env.AddFunction("transform", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		sel, err := selection("transform", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		var p ops.TransformParams
		if v, ok := pa.kw["translate"]; ok {
			if p.Translate, err = toFloats(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("transform: translate: %w", err)
			}
		}
		if v, ok := pa.kw["rotate"]; ok {
			r, err := toFloats(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("transform: rotate: %w", err)
			}
			if len(r) != 3 {
				return zygo.SexpNull, fmt.Errorf("transform: rotate needs three angles, got %d", len(r))
			}
			p.Rotate = v3.Vec{X: r[0], Y: r[1], Z: r[2]}
		}
		if v, ok := pa.kw["mirror"]; ok {
			axes, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("transform: mirror: %w", err)
			}
			for _, a := range axes {
				ax, err := toKeywordString(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("transform: mirror: %w", err)
				}
				switch ax {
				case "x":
					p.Mirror[0] = true
				case "y":
					p.Mirror[1] = true
				case "z":
					p.Mirror[2] = true
				default:
					return zygo.SexpNull, fmt.Errorf("transform: mirror: unknown axis %q", ax)
				}
			}
		}
		return s.op("transform", func() (ops.Result, error) { return o.Transform(ctx, sel, p) })
	})

	// -----------------------------------------------------------------------
	// Filters
	// -----------------------------------------------------------------------

	// (footprint-filter cloud outline)
	selectionBuiltin(env, "footprint_filter", func(sel []scene.Key) (ops.Result, error) {
		return o.FootprintFilter(ctx, sel)
	}, s)

	// (distance-filter a b :op ">" :threshold 0.5)
	env.AddFunction("distance_filter", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		sel, err := selection("distance_filter", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		opName, err := kwName(pa, "distance_filter", "op", string(ops.Greater))
		if err != nil {
			return zygo.SexpNull, err
		}
		pred, err := ops.ParsePredicate(opName)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("distance_filter: %w", err)
		}
		if _, ok := pa.kw["threshold"]; !ok {
			return zygo.SexpNull, fmt.Errorf("distance_filter requires :threshold")
		}
		t, err := kwFloat(pa, "distance_filter", "threshold", 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		return s.op("distance_filter", func() (ops.Result, error) { return o.DistanceFilter(ctx, sel, pred, t) })
	})

	// -----------------------------------------------------------------------
	// Segmentation and merging
	// -----------------------------------------------------------------------

	// (cluster sel... :eps 0.5 :min-points 10)
	env.AddFunction("cluster", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		sel, err := selection("cluster", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		eps, err := kwFloat(pa, "cluster", "eps", 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		minPoints, err := kwInt(pa, "cluster", "min-points", 10)
		if err != nil {
			return zygo.SexpNull, err
		}
		return s.op("cluster", func() (ops.Result, error) { return o.Cluster(ctx, sel, eps, minPoints) })
	})

	selectionBuiltin(env, "merge", func(sel []scene.Key) (ops.Result, error) {
		return o.Merge(ctx, sel)
	}, s)

	// (set-color sel... :color "#ff0000")
	env.AddFunction("set_color", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		sel, err := selection("set_color", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		v, ok := pa.kw["color"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("set_color requires :color")
		}
		hex, err := toString(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set_color: color: %w", err)
		}
		c, err := scene.ParseHex(hex)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set_color: %w", err)
		}
		return s.op("set_color", func() (ops.Result, error) { return o.SetColor(ctx, sel, c) })
	})

	selectionBuiltin(env, "revert_color", func(sel []scene.Key) (ops.Result, error) {
		return o.RevertColor(ctx, sel)
	}, s)

	// -----------------------------------------------------------------------
	// Derived geometry
	// -----------------------------------------------------------------------

	// (sample sel... :method :random :percent 10) or (sample sel... :method :voxel :size 0.5)
	env.AddFunction("sample", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		sel, err := selection("sample", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		method, err := kwName(pa, "sample", "method", string(ops.SampleRandom))
		if err != nil {
			return zygo.SexpNull, err
		}
		p := ops.SampleParams{Method: ops.SampleMethod(method)}
		if p.Percent, err = kwFloat(pa, "sample", "percent", 10); err != nil {
			return zygo.SexpNull, err
		}
		if p.VoxelSize, err = kwFloat(pa, "sample", "size", 0); err != nil {
			return zygo.SexpNull, err
		}
		return s.op("sample", func() (ops.Result, error) { return o.Sample(ctx, sel, p) })
	})

	selectionBuiltin(env, "hull", func(sel []scene.Key) (ops.Result, error) {
		return o.ConvexHull(ctx, sel)
	}, s)
	selectionBuiltin(env, "bbox", func(sel []scene.Key) (ops.Result, error) {
		return o.BoundingBox(ctx, sel)
	}, s)

	// (normals sel... :k 8)
	env.AddFunction("normals", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		sel, err := selection("normals", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		var p ops.NormalParams
		if p.Method, err = kwName(pa, "normals", "method", "knn"); err != nil {
			return zygo.SexpNull, err
		}
		if p.K, err = kwInt(pa, "normals", "k", 0); err != nil {
			return zygo.SexpNull, err
		}
		return s.op("normals", func() (ops.Result, error) { return o.EstimateNormals(ctx, sel, p) })
	})

	// (substitute top base :tolerance 0.1)
	env.AddFunction("substitute", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		sel, err := selection("substitute", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(sel) != 2 {
			return zygo.SexpNull, fmt.Errorf("substitute requires a top and a base item, got %d", len(sel))
		}
		tol, err := kwFloat(pa, "substitute", "tolerance", 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		return s.op("substitute", func() (ops.Result, error) { return o.Substitute(ctx, sel[0], sel[1], tol) })
	})

	// (reconstruct sel... :method :delaunay :depth 8 :radii [0.1 0.2])
	env.AddFunction("reconstruct", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		sel, err := selection("reconstruct", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		mname, err := kwName(pa, "reconstruct", "method", "delaunay")
		if err != nil {
			return zygo.SexpNull, err
		}
		m, err := kernel.ParseMethod(mname)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("reconstruct: %w", err)
		}
		var p kernel.ReconstructParams
		if p.Depth, err = kwInt(pa, "reconstruct", "depth", 0); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["radii"]; ok {
			if p.Radii, err = toFloats(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("reconstruct: radii: %w", err)
			}
		}
		return s.op("reconstruct", func() (ops.Result, error) { return o.Reconstruct(ctx, sel, m, p) })
	})
}
