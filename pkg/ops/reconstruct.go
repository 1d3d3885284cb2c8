package ops

import (
	"context"
	"fmt"

	"github.com/chazu/pointyard/pkg/kernel"
	"github.com/chazu/pointyard/pkg/scene"
)

// Job is a surface reconstruction running off the control thread. The
// worker owns a private copy of the input; nothing reaches the workspace
// until Finish.
type Job struct {
	Key    scene.Key
	Method kernel.Method

	done   chan struct{}
	cancel context.CancelFunc
	mesh   *scene.Mesh
	err    error
}

// Done is closed when the worker returns.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Cancel asks the worker to stop. Finish still has to be called.
func (j *Job) Cancel() {
	j.cancel()
}

// StartReconstruction snapshots the point set at key and reconstructs a
// mesh from it in the background.
func (e *Engine) StartReconstruction(ctx context.Context, key scene.Key, m kernel.Method, p kernel.ReconstructParams) (*Job, error) {
	e.mu.Lock()
	it := e.ws.Get(key)
	var ps *scene.PointSet
	if it != nil {
		ps, _ = it.Geometry().(*scene.PointSet)
	}
	if ps != nil {
		ps = ps.Clone().(*scene.PointSet)
	}
	e.mu.Unlock()

	if ps == nil {
		return nil, selectionError("reconstruct: %s is not an available point set", key)
	}
	if len(ps.Points) == 0 {
		return nil, selectionError("reconstruct: %s is empty", key)
	}

	ctx, cancel := context.WithCancel(ctx)
	j := &Job{Key: key, Method: m, done: make(chan struct{}), cancel: cancel}
	e.log.Info("reconstruction started", "item", key.String(), "method", m.String())
	go func() {
		defer close(j.done)
		defer func() {
			if r := recover(); r != nil {
				j.err = fmt.Errorf("panic during reconstruction: %v", r)
			}
		}()
		j.mesh, j.err = e.k.Reconstruct(ctx, ps, m, p)
	}()
	return j, nil
}

// Finish waits for j and inserts its mesh next to the source item, named
// after the method.
func (e *Engine) Finish(j *Job) (Result, error) {
	<-j.done
	j.cancel()
	return e.run("reconstruct", func(res *Result) error {
		if j.err != nil {
			e.skip(res, j.Key, "%s: %v", j.Method, j.err)
			return nil
		}
		if j.mesh == nil || len(j.mesh.Vertices) == 0 {
			e.skip(res, j.Key, "%s produced no surface", j.Method)
			return nil
		}
		_, err := e.insert(res, j.Key.Dataset, j.Method.String(), j.mesh)
		return err
	})
}

// Reconstruct runs StartReconstruction and Finish for each selected point
// set in turn.
func (e *Engine) Reconstruct(ctx context.Context, sel []scene.Key, m kernel.Method, p kernel.ReconstructParams) (Result, error) {
	var total Result
	for i, key := range sel {
		if ctx.Err() != nil {
			for _, rest := range sel[i:] {
				total.Skipped = append(total.Skipped, Skip{Key: rest, Reason: "cancelled"})
			}
			return total, ctx.Err()
		}
		j, err := e.StartReconstruction(ctx, key, m, p)
		if err != nil {
			total.Skipped = append(total.Skipped, Skip{Key: key, Reason: err.Error()})
			e.log.Warn("skipped "+key.String(), "reason", err.Error())
			continue
		}
		res, err := e.Finish(j)
		total.merge(res)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *Result) merge(o Result) {
	r.Created = append(r.Created, o.Created...)
	r.Updated = append(r.Updated, o.Updated...)
	r.Skipped = append(r.Skipped, o.Skipped...)
}
