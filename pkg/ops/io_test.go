package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/pointyard/pkg/formats"
	"github.com/chazu/pointyard/pkg/scene"
	"github.com/chazu/pointyard/pkg/workspace"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportReloadExport(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "site1.xyz")
	require.NoError(t, os.WriteFile(src, []byte("1001 2001 1\n1002 2002 2\n"), 0o644))
	ctx := context.Background()

	res, err := h.e.Import(ctx, src, formats.Options{Recenter: true})
	require.NoError(t, err)
	key := scene.Key{Dataset: "site1", Item: formats.PointsName}
	assert.Equal(t, []scene.Key{key}, res.Created)
	d := h.ws.Dataset("site1")
	assert.Equal(t, src, d.Path)
	x, y := d.Offset()
	assert.Equal(t, 1000.0, x)
	assert.Equal(t, 2000.0, y)
	assert.Equal(t, v3.Vec{X: 1, Y: 1, Z: 1}, h.ws.Get(key).Geometry().Positions()[0])

	handle, _ := h.ws.Binding().Handle(key)
	require.NoError(t, os.WriteFile(src, []byte("1003 2003 3\n"), 0o644))
	res, err = h.e.Reload(ctx, "site1")
	require.NoError(t, err)
	assert.Equal(t, []scene.Key{key}, res.Updated)
	assert.Equal(t, []v3.Vec{{X: 3, Y: 3, Z: 3}}, h.ws.Get(key).Geometry().Positions())
	next, _ := h.ws.Binding().Handle(key)
	assert.NotEqual(t, handle, next)

	out := filepath.Join(dir, "out.xyz")
	_, err = h.e.Export(ctx, key, out)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "1003 2003 3\n", string(data))

	res, err = h.e.Import(ctx, src, formats.Options{})
	require.NoError(t, err)
	assert.Equal(t, "site1_1", res.Created[0].Dataset)
	h.requireConsistent(t)
}

func TestImportFailureLeavesWorkspaceEmpty(t *testing.T) {
	h := newHarness(t)
	src := filepath.Join(t.TempDir(), "bad.xyz")
	require.NoError(t, os.WriteFile(src, []byte("1 2\n"), 0o644))

	_, err := h.e.Import(context.Background(), src, formats.Options{})
	assert.Error(t, err)
	assert.Zero(t, h.ws.Len())
}

func TestDeleteAndVisibility(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "d", "a", grid(2))
	b := h.add(t, "d", "b", grid(2))
	c := h.add(t, "e", "c", grid(2))

	res, err := h.e.SetVisibility([]scene.Key{a}, false)
	require.NoError(t, err)
	assert.Equal(t, []scene.Key{a}, res.Updated)
	h.requireConsistent(t)

	require.NoError(t, h.e.SetDatasetVisibility("d", true))
	h.requireConsistent(t)

	res, err = h.e.Delete(context.Background(), []scene.Key{b, {Dataset: "x", Item: "y"}})
	require.NoError(t, err)
	assert.Equal(t, []scene.Key{b}, res.Updated)
	assert.Len(t, res.Skipped, 1)
	h.requireConsistent(t)

	require.NoError(t, h.e.DeleteDataset("e"))
	assert.Nil(t, h.ws.Get(c))
	assert.ErrorIs(t, h.e.DeleteDataset("e"), workspace.ErrNotFound)

	tree := h.e.Tree()
	require.Len(t, tree, 1)
	assert.Equal(t, "d", tree[0].Name)

	p, err := h.e.Describe(a)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Points)
	h.requireConsistent(t)
}
