// Package ops implements the operations a user applies to a selection of
// workspace items: spatial filters, transforms, clustering, merging,
// color overrides and the derived-geometry tools. Every entry point takes
// the selection as a list of keys, reads geometry from the workspace,
// calls the kernel and inserts results last, after all validation for the
// item has passed.
package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/chazu/pointyard/pkg/config"
	"github.com/chazu/pointyard/pkg/kernel"
	"github.com/chazu/pointyard/pkg/metrics"
	"github.com/chazu/pointyard/pkg/naming"
	"github.com/chazu/pointyard/pkg/scene"
	"github.com/chazu/pointyard/pkg/workspace"
)

// ErrSelection is returned when the selection does not fit the operation:
// wrong item count, wrong kinds or too many datasets. The workspace is
// left untouched.
var ErrSelection = errors.New("invalid selection")

// Skip records one selected item an operation could not process.
type Skip struct {
	Key    scene.Key `json:"key"`
	Reason string    `json:"reason"`
}

// Result summarizes one operation run.
type Result struct {
	Created []scene.Key `json:"created,omitempty"`
	Updated []scene.Key `json:"updated,omitempty"`
	Skipped []Skip      `json:"skipped,omitempty"`
}

// Options configures an Engine. Zero fields select defaults.
type Options struct {
	Logger  *slog.Logger
	Config  *config.Config
	Metrics *metrics.Metrics
}

// Engine runs operations against one workspace. Calls are serialized, so
// the workspace is exclusively owned by the running operation.
type Engine struct {
	mu      sync.Mutex
	ws      *workspace.Workspace
	k       kernel.Kernel
	cfg     config.Config
	log     *slog.Logger
	metrics *metrics.Metrics
	rng     *rand.Rand
}

// New returns an engine over ws using k for all geometry primitives.
func New(ws *workspace.Workspace, k kernel.Kernel, opts Options) *Engine {
	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		ws:      ws,
		k:       k,
		cfg:     cfg,
		log:     log,
		metrics: opts.Metrics,
		rng:     rand.New(rand.NewPCG(cfg.Sampling.Seed, cfg.Sampling.Seed>>1|1)),
	}
}

// Workspace returns the workspace. Callers outside the engine must not
// mutate it while an operation may be running.
func (e *Engine) Workspace() *workspace.Workspace {
	return e.ws
}

// Config returns the active settings.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// View runs fn with the engine lock held, for consistent reads.
func (e *Engine) View(fn func(ws *workspace.Workspace)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.ws)
}

// ----------------------------------------------------------------------------
// Shared helpers
// ----------------------------------------------------------------------------

// run locks the engine, executes fn and records the outcome.
func (e *Engine) run(op string, fn func(res *Result) error) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var res Result
	err := fn(&res)
	e.metrics.Observe(op, len(res.Created), len(res.Skipped), err)
	if err != nil {
		e.log.Warn(op+" aborted", "error", err)
	} else {
		e.log.Info(op+" finished", "created", len(res.Created), "updated", len(res.Updated), "skipped", len(res.Skipped))
	}
	return res, err
}

func (e *Engine) skip(res *Result, key scene.Key, format string, args ...any) {
	reason := fmt.Sprintf(format, args...)
	res.Skipped = append(res.Skipped, Skip{Key: key, Reason: reason})
	e.log.Warn("skipped "+key.String(), "reason", reason)
}

// item resolves key or records the miss.
func (e *Engine) item(res *Result, key scene.Key) *workspace.Item {
	it := e.ws.Get(key)
	if it == nil {
		e.skip(res, key, "item not found")
	}
	return it
}

// pointSet resolves key to a point set or records why it cannot.
func (e *Engine) pointSet(res *Result, key scene.Key) (*workspace.Item, *scene.PointSet) {
	it := e.item(res, key)
	if it == nil {
		return nil, nil
	}
	ps, ok := it.Geometry().(*scene.PointSet)
	if !ok {
		e.skip(res, key, "%s is not a point set", it.Kind())
		return nil, nil
	}
	return it, ps
}

// insert adds g under dataset with a fresh name derived from base.
func (e *Engine) insert(res *Result, dataset, base string, g scene.Geometry) (scene.Key, error) {
	if dataset == "" {
		dataset = e.cfg.Filter.FallbackDataset
	}
	name := naming.Unique(base, e.ws.ItemNames(dataset))
	it, err := e.ws.AddItem(dataset, name, g)
	if err != nil {
		return scene.Key{}, err
	}
	res.Created = append(res.Created, it.Key())
	e.log.Info("created "+it.Key().String(), "kind", g.Kind().String(), "size", len(g.Positions()))
	return it.Key(), nil
}

// cancelled reports whether ctx is done, recording the remaining keys as
// skipped. Batches check it before starting each item.
func (e *Engine) cancelled(ctx context.Context, res *Result, rest []scene.Key) bool {
	if ctx.Err() == nil {
		return false
	}
	for _, key := range rest {
		res.Skipped = append(res.Skipped, Skip{Key: key, Reason: "cancelled"})
	}
	e.log.Warn("operation cancelled", "remaining", len(rest))
	return true
}

// split partitions a selection by kind, recording misses.
func (e *Engine) split(res *Result, sel []scene.Key) (points, lines, meshes []scene.Key) {
	for _, key := range sel {
		it := e.item(res, key)
		if it == nil {
			continue
		}
		switch it.Kind() {
		case scene.KindPointSet:
			points = append(points, key)
		case scene.KindLineSet:
			lines = append(lines, key)
		case scene.KindMesh:
			meshes = append(meshes, key)
		}
	}
	return points, lines, meshes
}

func selectionError(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrSelection)
}

// rollback removes everything res created so far.
func (e *Engine) rollback(res *Result) {
	for _, key := range res.Created {
		if err := e.ws.RemoveItem(key.Dataset, key.Item); err != nil {
			e.log.Error("rollback failed", "item", key.String(), "error", err)
		}
	}
	res.Created = nil
}
