package ops

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chazu/pointyard/pkg/formats"
	"github.com/chazu/pointyard/pkg/naming"
	"github.com/chazu/pointyard/pkg/scene"
	"github.com/chazu/pointyard/pkg/workspace"
)

// Import loads path into a new dataset named after the file. Offsets
// applied by re-centering are stored in the dataset metadata.
func (e *Engine) Import(ctx context.Context, path string, opt formats.Options) (Result, error) {
	return e.run("import", func(res *Result) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := formats.Load(path, opt)
		if err != nil {
			return err
		}
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		name := naming.Unique(base, e.ws.DatasetNames())
		for _, it := range data.Items {
			if scene.IsEmpty(it.Geometry) {
				continue
			}
			added, err := e.ws.AddItem(name, it.Name, it.Geometry)
			if err != nil {
				e.rollback(res)
				return err
			}
			res.Created = append(res.Created, added.Key())
		}
		if len(res.Created) == 0 {
			return fmt.Errorf("ops: import %s: file holds no geometry", path)
		}

		d := e.ws.Dataset(name)
		d.Path = path
		if data.OffsetX != 0 || data.OffsetY != 0 {
			d.Metadata[workspace.MetaOffsetX] = data.OffsetX
			d.Metadata[workspace.MetaOffsetY] = data.OffsetY
			e.log.Info("re-centered import", "dataset", name, "offset_x", data.OffsetX, "offset_y", data.OffsetY)
		}
		e.log.Info("imported "+path, "dataset", name, "items", len(data.Items))
		return nil
	})
}

// Reload re-reads a dataset's source file. Items present in both are
// replaced in place, keeping their handles; new items are added. The
// offsets recorded at import are applied again.
func (e *Engine) Reload(ctx context.Context, dataset string) (Result, error) {
	return e.run("reload", func(res *Result) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		d := e.ws.Dataset(dataset)
		if d == nil {
			return fmt.Errorf("ops: reload %q: %w", dataset, workspace.ErrNotFound)
		}
		if d.Path == "" {
			return fmt.Errorf("ops: reload %q: dataset has no source file", dataset)
		}
		data, err := formats.Load(d.Path, formats.Options{})
		if err != nil {
			return err
		}
		formats.Shift(data.Items, d.Metadata[workspace.MetaOffsetX], d.Metadata[workspace.MetaOffsetY])

		for _, it := range data.Items {
			key := scene.Key{Dataset: dataset, Item: it.Name}
			if e.ws.Get(key) == nil {
				if _, err := e.insert(res, dataset, it.Name, it.Geometry); err != nil {
					e.skip(res, key, "%v", err)
				}
				continue
			}
			if err := e.ws.Replace(key, it.Geometry); err != nil {
				e.skip(res, key, "%v", err)
				continue
			}
			res.Updated = append(res.Updated, key)
		}
		return nil
	})
}

// Export writes a point set to path, restoring its dataset's offsets.
func (e *Engine) Export(ctx context.Context, key scene.Key, path string) (Result, error) {
	return e.run("export", func(res *Result) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, ps := e.pointSet(res, key)
		if ps == nil {
			return selectionError("export: %s is not an available point set", key)
		}
		x, y := e.ws.Dataset(key.Dataset).Offset()
		if err := formats.Save(path, ps, x, y); err != nil {
			return err
		}
		e.log.Info("exported "+key.String(), "path", path, "points", len(ps.Points))
		return nil
	})
}

// Delete removes the selected items. Datasets left empty disappear.
func (e *Engine) Delete(ctx context.Context, sel []scene.Key) (Result, error) {
	return e.run("delete", func(res *Result) error {
		for i, key := range sel {
			if e.cancelled(ctx, res, sel[i:]) {
				return ctx.Err()
			}
			if err := e.ws.RemoveItem(key.Dataset, key.Item); err != nil {
				e.skip(res, key, "%v", err)
				continue
			}
			res.Updated = append(res.Updated, key)
		}
		return nil
	})
}

// DeleteDataset removes a dataset and all of its items.
func (e *Engine) DeleteDataset(name string) error {
	_, err := e.run("delete", func(res *Result) error {
		return e.ws.RemoveDataset(name)
	})
	return err
}

// SetVisibility shows or hides the selected items.
func (e *Engine) SetVisibility(sel []scene.Key, visible bool) (Result, error) {
	return e.run("visibility", func(res *Result) error {
		for _, key := range sel {
			if err := e.ws.SetVisibility(key, visible); err != nil {
				e.skip(res, key, "%v", err)
				continue
			}
			res.Updated = append(res.Updated, key)
		}
		return nil
	})
}

// SetDatasetVisibility shows or hides every item of a dataset.
func (e *Engine) SetDatasetVisibility(name string, visible bool) error {
	_, err := e.run("visibility", func(res *Result) error {
		return e.ws.SetDatasetVisibility(name, visible)
	})
	return err
}

// Tree returns the catalogue projection.
func (e *Engine) Tree() []workspace.TreeDataset {
	var out []workspace.TreeDataset
	e.View(func(ws *workspace.Workspace) { out = ws.Tree() })
	return out
}

// Describe returns the properties of one item.
func (e *Engine) Describe(key scene.Key) (workspace.Properties, error) {
	var (
		p   workspace.Properties
		err error
	)
	e.View(func(ws *workspace.Workspace) { p, err = ws.Describe(key) })
	return p, err
}
