package main

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/chazu/pointyard/pkg/activity"
	"github.com/chazu/pointyard/pkg/config"
	"github.com/chazu/pointyard/pkg/engine"
	"github.com/chazu/pointyard/pkg/formats"
	"github.com/chazu/pointyard/pkg/kernel"
	"github.com/chazu/pointyard/pkg/kernel/native"
	"github.com/chazu/pointyard/pkg/metrics"
	"github.com/chazu/pointyard/pkg/ops"
	"github.com/chazu/pointyard/pkg/scene"
	"github.com/chazu/pointyard/pkg/tessellate"
	"github.com/chazu/pointyard/pkg/viewer"
	"github.com/chazu/pointyard/pkg/watcher"
	"github.com/chazu/pointyard/pkg/workspace"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Frontend event names.
const (
	EventViewerAdd    = "viewer:add"
	EventViewerRemove = "viewer:remove"
	EventTreeChanged  = "workspace:changed"
	EventLogLine      = "log:line"
)

// watchDebounce collapses the burst of writes an editor makes on save.
const watchDebounce = 300 * time.Millisecond

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx     context.Context
	log     *slog.Logger
	act     *activity.Log
	reg     *prometheus.Registry
	view    *eventRenderer
	ops     *ops.Engine
	scripts *engine.Engine
	watch   *watcher.Watcher
}

// BufferData is a displayed item as sent to the frontend.
type BufferData struct {
	Handle string `json:"handle"`
	*tessellate.Buffer
}

// SkipData is a skipped item in frontend form.
type SkipData struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// OpResult is the outcome of one operation returned to the frontend.
type OpResult struct {
	Created []string   `json:"created"`
	Updated []string   `json:"updated"`
	Skipped []SkipData `json:"skipped"`
	Error   string     `json:"error,omitempty"`
}

// ScriptResult is the outcome of a script run.
type ScriptResult struct {
	Steps  []engine.Step      `json:"steps"`
	Errors []engine.EvalError `json:"errors"`
}

// TransformRequest mirrors ops.TransformParams with JSON-friendly fields.
type TransformRequest struct {
	Translate []float64  `json:"translate"`
	Rotate    [3]float64 `json:"rotate"`
	Mirror    [3]bool    `json:"mirror"`
}

// NewApp wires a workspace, the native kernel and the script engine
// according to cfg.
func NewApp(cfg config.Config) *App {
	act := activity.New(cfg.Log.Lines)
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	log := slog.New(act.Handler(level, slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	reg := prometheus.NewRegistry()
	view := &eventRenderer{Recorder: viewer.NewRecorder()}
	ws := workspace.New(viewer.NewBinding(view, log), log)
	o := ops.New(ws, native.New(), ops.Options{
		Logger:  log,
		Config:  &cfg,
		Metrics: metrics.New(reg),
	})

	a := &App{
		ctx:     context.Background(),
		log:     log,
		act:     act,
		reg:     reg,
		view:    view,
		ops:     o,
		scripts: engine.NewEngine(o, log),
	}
	act.Subscribe(func(l activity.Line) {
		view.send(EventLogLine, l)
	})
	return a
}

// startup is called by Wails on app startup. The context is saved for
// runtime calls and viewer changes start flowing to the frontend.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.view.setEmit(func(event string, data ...any) {
		runtime.EventsEmit(ctx, event, data...)
	})

	w, err := watcher.New(watchDebounce, a.sourceChanged, a.log)
	if err != nil {
		a.log.Warn("source watching disabled", "error", err)
		return
	}
	a.watch = w
	w.Start(ctx)
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(ctx context.Context) {
	if a.watch != nil {
		if err := a.watch.Close(); err != nil {
			a.log.Warn("closing watcher", "error", err)
		}
	}
}

// sourceChanged reloads a dataset whose file changed on disk.
func (a *App) sourceChanged(dataset string) {
	res, err := a.ops.Reload(a.ctx, dataset)
	a.finish(res, err)
}

// finish converts an operation outcome and tells the frontend to refresh
// its tree.
func (a *App) finish(res ops.Result, err error) OpResult {
	out := OpResult{
		Created: keyStrings(res.Created),
		Updated: keyStrings(res.Updated),
		Skipped: []SkipData{},
	}
	for _, s := range res.Skipped {
		out.Skipped = append(out.Skipped, SkipData{Key: s.Key.String(), Reason: s.Reason})
	}
	if err != nil {
		out.Error = err.Error()
	}
	a.view.send(EventTreeChanged)
	return out
}

func keyStrings(keys []scene.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func parseKeys(keys []string) ([]scene.Key, error) {
	out := make([]scene.Key, len(keys))
	for i, s := range keys {
		k, err := scene.ParseKey(s)
		if err != nil {
			return nil, err
		}
		out[i] = k
	}
	return out, nil
}

// withKeys parses the selection and runs fn on it.
func (a *App) withKeys(keys []string, fn func(sel []scene.Key) (ops.Result, error)) OpResult {
	sel, err := parseKeys(keys)
	if err != nil {
		return a.finish(ops.Result{}, err)
	}
	return a.finish(fn(sel))
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

// LoadFile imports path as a new dataset and starts watching it.
func (a *App) LoadFile(path string, recenter bool) OpResult {
	res, err := a.ops.Import(a.ctx, path, formats.Options{Recenter: recenter})
	if err == nil && a.watch != nil && len(res.Created) > 0 {
		if werr := a.watch.Watch(res.Created[0].Dataset, path); werr != nil {
			a.log.Warn("cannot watch source", "path", path, "error", werr)
		}
	}
	return a.finish(res, err)
}

// OpenFile asks for a file and imports it.
func (a *App) OpenFile() OpResult {
	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Import file",
		Filters: []runtime.FileFilter{
			{DisplayName: "Point clouds (*.las, *.xyz, *.txt, *.pts)", Pattern: "*.las;*.xyz;*.xyzrgb;*.txt;*.pts"},
			{DisplayName: "Meshes (*.stl)", Pattern: "*.stl"},
			{DisplayName: "GeoJSON (*.geojson, *.json)", Pattern: "*.geojson;*.json"},
		},
	})
	if err != nil {
		return a.finish(ops.Result{}, err)
	}
	if path == "" {
		return OpResult{Skipped: []SkipData{}}
	}
	return a.LoadFile(path, true)
}

// Reload re-reads a dataset from its source file.
func (a *App) Reload(dataset string) OpResult {
	return a.finish(a.ops.Reload(a.ctx, dataset))
}

// Export writes one point set to path.
func (a *App) Export(key, path string) OpResult {
	return a.withKeys([]string{key}, func(sel []scene.Key) (ops.Result, error) {
		return a.ops.Export(a.ctx, sel[0], path)
	})
}

// ---------------------------------------------------------------------------
// Tree
// ---------------------------------------------------------------------------

// Tree returns the dataset tree for the side panel.
func (a *App) Tree() []workspace.TreeDataset {
	return a.ops.Tree()
}

// Describe returns the properties of one item.
func (a *App) Describe(key string) (workspace.Properties, error) {
	k, err := scene.ParseKey(key)
	if err != nil {
		return workspace.Properties{}, err
	}
	return a.ops.Describe(k)
}

// SetVisible shows or hides items.
func (a *App) SetVisible(keys []string, visible bool) OpResult {
	return a.withKeys(keys, func(sel []scene.Key) (ops.Result, error) {
		return a.ops.SetVisibility(sel, visible)
	})
}

// SetDatasetVisible shows or hides every item of a dataset.
func (a *App) SetDatasetVisible(name string, visible bool) OpResult {
	return a.finish(ops.Result{}, a.ops.SetDatasetVisibility(name, visible))
}

// Delete removes items.
func (a *App) Delete(keys []string) OpResult {
	return a.withKeys(keys, func(sel []scene.Key) (ops.Result, error) {
		return a.ops.Delete(a.ctx, sel)
	})
}

// DeleteDataset removes a dataset and stops watching its file.
func (a *App) DeleteDataset(name string) OpResult {
	err := a.ops.DeleteDataset(name)
	if err == nil && a.watch != nil {
		a.watch.Unwatch(name)
	}
	return a.finish(ops.Result{}, err)
}

// Buffers returns every displayed item, for the initial render.
func (a *App) Buffers() []BufferData {
	out := []BufferData{}
	a.ops.View(func(ws *workspace.Workspace) {
		b := ws.Binding()
		for _, key := range b.Keys() {
			h, _ := b.Handle(key)
			it := ws.Get(key)
			if it == nil {
				continue
			}
			buf, err := tessellate.Tessellate(key, it.Geometry())
			if err != nil {
				a.log.Warn("cannot tessellate", "item", key.String(), "error", err)
				continue
			}
			out = append(out, BufferData{Handle: string(h), Buffer: buf})
		}
	})
	return out
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// Transform translates, rotates and mirrors items.
func (a *App) Transform(keys []string, req TransformRequest) OpResult {
	p := ops.TransformParams{
		Translate: req.Translate,
		Rotate:    v3.Vec{X: req.Rotate[0], Y: req.Rotate[1], Z: req.Rotate[2]},
		Mirror:    req.Mirror,
	}
	return a.withKeys(keys, func(sel []scene.Key) (ops.Result, error) {
		return a.ops.Transform(a.ctx, sel, p)
	})
}

// FootprintFilter keeps the points inside the selected outlines.
func (a *App) FootprintFilter(keys []string) OpResult {
	return a.withKeys(keys, func(sel []scene.Key) (ops.Result, error) {
		return a.ops.FootprintFilter(a.ctx, sel)
	})
}

// DistanceFilter compares nearest-neighbour distances between two clouds.
func (a *App) DistanceFilter(keys []string, op string, threshold float64) OpResult {
	return a.withKeys(keys, func(sel []scene.Key) (ops.Result, error) {
		pred, err := ops.ParsePredicate(op)
		if err != nil {
			return ops.Result{}, err
		}
		return a.ops.DistanceFilter(a.ctx, sel, pred, threshold)
	})
}

// Cluster splits point sets by density.
func (a *App) Cluster(keys []string, eps float64, minPoints int) OpResult {
	return a.withKeys(keys, func(sel []scene.Key) (ops.Result, error) {
		return a.ops.Cluster(a.ctx, sel, eps, minPoints)
	})
}

// Merge joins items of one kind.
func (a *App) Merge(keys []string) OpResult {
	return a.withKeys(keys, func(sel []scene.Key) (ops.Result, error) {
		return a.ops.Merge(a.ctx, sel)
	})
}

// SetColor paints items in one color.
func (a *App) SetColor(keys []string, hex string) OpResult {
	return a.withKeys(keys, func(sel []scene.Key) (ops.Result, error) {
		c, err := scene.ParseHex(hex)
		if err != nil {
			return ops.Result{}, err
		}
		return a.ops.SetColor(a.ctx, sel, c)
	})
}

// RevertColor restores colors saved before the first SetColor.
func (a *App) RevertColor(keys []string) OpResult {
	return a.withKeys(keys, func(sel []scene.Key) (ops.Result, error) {
		return a.ops.RevertColor(a.ctx, sel)
	})
}

// Sample subsamples point sets.
func (a *App) Sample(keys []string, method string, percent, size float64) OpResult {
	p := ops.SampleParams{Method: ops.SampleMethod(method), Percent: percent, VoxelSize: size}
	return a.withKeys(keys, func(sel []scene.Key) (ops.Result, error) {
		return a.ops.Sample(a.ctx, sel, p)
	})
}

// ConvexHull adds hull outlines.
func (a *App) ConvexHull(keys []string) OpResult {
	return a.withKeys(keys, func(sel []scene.Key) (ops.Result, error) {
		return a.ops.ConvexHull(a.ctx, sel)
	})
}

// BoundingBox adds box outlines.
func (a *App) BoundingBox(keys []string) OpResult {
	return a.withKeys(keys, func(sel []scene.Key) (ops.Result, error) {
		return a.ops.BoundingBox(a.ctx, sel)
	})
}

// EstimateNormals computes point normals.
func (a *App) EstimateNormals(keys []string, k int) OpResult {
	return a.withKeys(keys, func(sel []scene.Key) (ops.Result, error) {
		return a.ops.EstimateNormals(a.ctx, sel, ops.NormalParams{K: k})
	})
}

// Substitute moves base points that rise above the top cloud.
func (a *App) Substitute(top, base string, tolerance float64) OpResult {
	return a.withKeys([]string{top, base}, func(sel []scene.Key) (ops.Result, error) {
		return a.ops.Substitute(a.ctx, sel[0], sel[1], tolerance)
	})
}

// Reconstruct builds surface meshes.
func (a *App) Reconstruct(keys []string, method string, depth int) OpResult {
	return a.withKeys(keys, func(sel []scene.Key) (ops.Result, error) {
		m, err := kernel.ParseMethod(method)
		if err != nil {
			return ops.Result{}, err
		}
		return a.ops.Reconstruct(a.ctx, sel, m, kernel.ReconstructParams{Depth: depth})
	})
}

// ---------------------------------------------------------------------------
// Scripts, log and metrics
// ---------------------------------------------------------------------------

// RunScript evaluates a script against the workspace. A fatal failure is
// reported as a single error without a line.
func (a *App) RunScript(source string) ScriptResult {
	result := ScriptResult{Steps: []engine.Step{}, Errors: []engine.EvalError{}}
	rep, err := a.scripts.Run(a.ctx, source)
	a.view.send(EventTreeChanged)
	if err != nil {
		result.Errors = append(result.Errors, engine.EvalError{Message: err.Error()})
		return result
	}
	result.Steps = append(result.Steps, rep.Steps...)
	result.Errors = append(result.Errors, rep.Errors...)
	return result
}

// Logs returns the retained log window lines.
func (a *App) Logs() []string {
	lines := a.act.Lines()
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.String()
	}
	return out
}

// ClearLogs empties the log window.
func (a *App) ClearLogs() {
	a.act.Clear()
}

// Metrics returns the operation counters.
func (a *App) Metrics() (map[string]float64, error) {
	return metrics.Snapshot(a.reg)
}

// ---------------------------------------------------------------------------
// Renderer
// ---------------------------------------------------------------------------

// eventRenderer is the viewer.Renderer of the desktop shell. A Recorder
// keeps the bookkeeping and every change is sent to the frontend as a
// tessellated buffer. Events are dropped until startup sets emit.
type eventRenderer struct {
	*viewer.Recorder

	mu   sync.Mutex
	emit func(event string, data ...any)
}

func (r *eventRenderer) setEmit(fn func(event string, data ...any)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emit = fn
}

func (r *eventRenderer) send(event string, data ...any) {
	r.mu.Lock()
	emit := r.emit
	r.mu.Unlock()
	if emit != nil {
		emit(event, data...)
	}
}

func (r *eventRenderer) Add(h viewer.Handle, key scene.Key, g scene.Geometry) error {
	buf, err := tessellate.Tessellate(key, g)
	if err != nil {
		return err
	}
	if err := r.Recorder.Add(h, key, g); err != nil {
		return err
	}
	r.send(EventViewerAdd, BufferData{Handle: string(h), Buffer: buf})
	return nil
}

func (r *eventRenderer) Remove(h viewer.Handle) error {
	if err := r.Recorder.Remove(h); err != nil {
		return err
	}
	r.send(EventViewerRemove, string(h))
	return nil
}
