package ops

import (
	"context"
	"fmt"

	"github.com/chazu/pointyard/pkg/scene"
)

// SetColor paints every selected item with c. The first override of an
// item caches its current colors, or all white when it has none, so
// RevertColor can restore them.
func (e *Engine) SetColor(ctx context.Context, sel []scene.Key, c scene.Color) (Result, error) {
	return e.run("set-color", func(res *Result) error {
		if !c.Valid() {
			return fmt.Errorf("ops: color %+v has channels outside [0, 1]", c)
		}
		for i, key := range sel {
			if e.cancelled(ctx, res, sel[i:]) {
				return ctx.Err()
			}
			it := e.item(res, key)
			if it == nil {
				continue
			}
			g := it.Geometry()
			if it.SnapshotColors() {
				e.log.Debug("cached original colors", "item", key.String())
			}
			if err := g.SetColors(scene.Uniform(c, g.ColorTarget())); err != nil {
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

// RevertColor restores the colors cached by the first SetColor. The cache
// is kept, so reverting twice is the same as reverting once. Items that
// were never recolored are skipped.
func (e *Engine) RevertColor(ctx context.Context, sel []scene.Key) (Result, error) {
	return e.run("revert-color", func(res *Result) error {
		for i, key := range sel {
			if e.cancelled(ctx, res, sel[i:]) {
				return ctx.Err()
			}
			it := e.item(res, key)
			if it == nil {
				continue
			}
			orig, ok := it.OriginalColors()
			if !ok {
				e.skip(res, key, "no original colors to revert to")
				continue
			}
			if err := it.Geometry().SetColors(orig); err != nil {
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
