package workspace

import (
	"testing"

	"github.com/chazu/pointyard/pkg/scene"
	"github.com/chazu/pointyard/pkg/viewer"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkspace() (*Workspace, *viewer.Recorder) {
	rec := viewer.NewRecorder()
	return New(viewer.NewBinding(rec, nil), nil), rec
}

func cloud(n int) *scene.PointSet {
	ps := &scene.PointSet{Points: make([]v3.Vec, n)}
	for i := range ps.Points {
		ps.Points[i] = v3.Vec{X: float64(i)}
	}
	return ps
}

// requireConsistent asserts that the bound keys are exactly the visible
// items and that Check finds nothing.
func requireConsistent(t *testing.T, w *Workspace) {
	t.Helper()
	var visible []scene.Key
	for _, it := range w.Items() {
		if it.Visible() {
			visible = append(visible, it.Key())
		}
	}
	viewer.SortKeys(visible)
	if len(visible) == 0 {
		assert.Empty(t, w.Binding().Keys())
	} else {
		assert.Equal(t, visible, w.Binding().Keys())
	}
	assert.Empty(t, w.Check())
}

func TestAddItemCreatesDataset(t *testing.T) {
	w, rec := newWorkspace()

	it, err := w.AddItem("site1", "Pointcloud", cloud(3))
	require.NoError(t, err)
	assert.True(t, it.Visible())
	assert.Equal(t, scene.KindPointSet, it.Kind())

	d := w.Dataset("site1")
	require.NotNil(t, d)
	assert.Equal(t, []string{"Pointcloud"}, d.Children())
	assert.Equal(t, 1, rec.Len())
	requireConsistent(t, w)
}

func TestAddItemRejectsDuplicate(t *testing.T) {
	w, rec := newWorkspace()
	_, err := w.AddItem("site1", "Pointcloud", cloud(1))
	require.NoError(t, err)

	_, err = w.AddItem("site1", "Pointcloud", cloud(2))
	assert.ErrorIs(t, err, ErrExists)
	assert.Equal(t, 1, rec.Adds)
	assert.Len(t, w.Item("site1", "Pointcloud").Geometry().Positions(), 1)
}

func TestAddItemRejectsInvalidGeometry(t *testing.T) {
	w, rec := newWorkspace()
	bad := &scene.PointSet{Points: make([]v3.Vec, 2), Colors: []scene.Color{scene.White}}
	_, err := w.AddItem("site1", "bad", bad)
	assert.ErrorIs(t, err, scene.ErrColorLength)
	assert.Nil(t, w.Dataset("site1"))
	assert.Equal(t, 0, rec.Len())
}

func TestSameItemNameInDifferentDatasets(t *testing.T) {
	w, _ := newWorkspace()
	_, err := w.AddItem("a", "cloud", cloud(1))
	require.NoError(t, err)
	_, err = w.AddItem("b", "cloud", cloud(1))
	require.NoError(t, err)
	assert.Equal(t, 2, w.Len())
	requireConsistent(t, w)
}

func TestRemoveLastItemDropsDataset(t *testing.T) {
	w, rec := newWorkspace()
	_, _ = w.AddItem("site1", "a", cloud(1))
	_, _ = w.AddItem("site1", "b", cloud(1))

	require.NoError(t, w.RemoveItem("site1", "a"))
	assert.NotNil(t, w.Dataset("site1"))
	assert.Equal(t, []string{"b"}, w.Dataset("site1").Children())

	require.NoError(t, w.RemoveItem("site1", "b"))
	assert.Nil(t, w.Dataset("site1"))
	assert.False(t, w.DatasetNames().Contains("site1"))
	assert.Equal(t, 0, rec.Len())
	requireConsistent(t, w)
}

func TestRemoveMissing(t *testing.T) {
	w, _ := newWorkspace()
	assert.ErrorIs(t, w.RemoveItem("nope", "x"), ErrNotFound)
	_, _ = w.AddItem("site1", "a", cloud(1))
	assert.ErrorIs(t, w.RemoveItem("site1", "x"), ErrNotFound)
	assert.ErrorIs(t, w.RemoveDataset("nope"), ErrNotFound)
}

func TestRemoveDataset(t *testing.T) {
	w, rec := newWorkspace()
	_, _ = w.AddItem("site1", "a", cloud(1))
	_, _ = w.AddItem("site1", "b", cloud(1))
	_, _ = w.AddItem("site2", "c", cloud(1))
	require.NoError(t, w.SetVisibility(scene.Key{Dataset: "site1", Item: "b"}, false))

	require.NoError(t, w.RemoveDataset("site1"))
	assert.Nil(t, w.Dataset("site1"))
	assert.Equal(t, 1, rec.Len())
	requireConsistent(t, w)
}

func TestGetItemMissingReturnsNil(t *testing.T) {
	w, _ := newWorkspace()
	assert.Nil(t, w.Item("site1", "x"))
	_, _ = w.AddItem("site1", "a", cloud(1))
	assert.Nil(t, w.Item("site1", "x"))
	assert.NotNil(t, w.Get(scene.Key{Dataset: "site1", Item: "a"}))
}

func TestVisibilityToggles(t *testing.T) {
	w, rec := newWorkspace()
	key := scene.Key{Dataset: "site1", Item: "a"}
	_, _ = w.AddItem("site1", "a", cloud(1))

	require.NoError(t, w.SetVisibility(key, false))
	assert.False(t, w.Get(key).Visible())
	assert.Equal(t, 0, rec.Len())
	requireConsistent(t, w)

	require.NoError(t, w.SetVisibility(key, false))
	require.NoError(t, w.SetVisibility(key, true))
	require.NoError(t, w.SetVisibility(key, true))
	assert.Equal(t, 1, rec.Len())
	requireConsistent(t, w)

	assert.ErrorIs(t, w.SetVisibility(scene.Key{Dataset: "x", Item: "y"}, true), ErrNotFound)
}

func TestDatasetVisibilityCascades(t *testing.T) {
	w, rec := newWorkspace()
	_, _ = w.AddItem("site1", "a", cloud(1))
	_, _ = w.AddItem("site1", "b", cloud(1))
	_, _ = w.AddItem("site2", "c", cloud(1))

	require.NoError(t, w.SetDatasetVisibility("site1", false))
	assert.Equal(t, 1, rec.Len())
	for _, td := range w.Tree() {
		if td.Name == "site1" {
			assert.False(t, td.Visible)
		} else {
			assert.True(t, td.Visible)
		}
	}
	requireConsistent(t, w)

	require.NoError(t, w.SetDatasetVisibility("site1", true))
	assert.Equal(t, 3, rec.Len())
	requireConsistent(t, w)
}

func TestRefreshHiddenStaysUnbound(t *testing.T) {
	w, rec := newWorkspace()
	key := scene.Key{Dataset: "site1", Item: "a"}
	_, _ = w.AddItem("site1", "a", cloud(1))
	require.NoError(t, w.SetVisibility(key, false))
	require.NoError(t, w.Refresh(key))
	assert.Equal(t, 0, rec.Len())
	requireConsistent(t, w)
}

func TestReplace(t *testing.T) {
	w, rec := newWorkspace()
	key := scene.Key{Dataset: "site1", Item: "a"}
	it, _ := w.AddItem("site1", "a", cloud(2))
	it.SnapshotColors()

	err := w.Replace(key, &scene.LineSet{})
	assert.ErrorIs(t, err, ErrKindMismatch)

	require.NoError(t, w.Replace(key, cloud(5)))
	assert.Len(t, w.Get(key).Geometry().Positions(), 5)
	_, cached := w.Get(key).OriginalColors()
	assert.False(t, cached)

	e, ok := rec.Lookup(key)
	require.True(t, ok)
	assert.Len(t, e.Geometry.Positions(), 5)
	requireConsistent(t, w)
}

func TestSnapshotColorsOnce(t *testing.T) {
	w, _ := newWorkspace()
	ps := cloud(2)
	ps.Colors = []scene.Color{{R: 1}, {G: 1}}
	it, _ := w.AddItem("site1", "a", ps)

	assert.True(t, it.SnapshotColors())
	ps.Colors[0] = scene.Color{B: 1}
	assert.False(t, it.SnapshotColors())

	orig, ok := it.OriginalColors()
	require.True(t, ok)
	assert.Equal(t, scene.Color{R: 1}, orig[0])
}

func TestSnapshotWithoutColorsIsWhite(t *testing.T) {
	w, _ := newWorkspace()
	it, _ := w.AddItem("site1", "a", cloud(3))
	it.SnapshotColors()
	orig, ok := it.OriginalColors()
	require.True(t, ok)
	assert.Equal(t, scene.Uniform(scene.White, 3), orig)
}

func TestItemNames(t *testing.T) {
	w, _ := newWorkspace()
	_, _ = w.AddItem("site1", "a", cloud(1))
	_, _ = w.AddItem("site1", "b", cloud(1))
	names := w.ItemNames("site1")
	assert.True(t, names.Contains("a", "b"))
	assert.Equal(t, 0, w.ItemNames("nope").Cardinality())
}

func TestTreeOrder(t *testing.T) {
	w, _ := newWorkspace()
	_, _ = w.AddItem("z", "second", cloud(1))
	_, _ = w.AddItem("a", "first", cloud(2))
	_, _ = w.AddItem("z", "third", &scene.LineSet{Points: make([]v3.Vec, 2), Lines: [][2]int{{0, 1}}})

	tree := w.Tree()
	require.Len(t, tree, 2)
	assert.Equal(t, "z", tree[0].Name)
	require.Len(t, tree[0].Items, 2)
	assert.Equal(t, "third", tree[0].Items[1].Name)
	assert.Equal(t, "LineSet", tree[0].Items[1].Kind)
	assert.Equal(t, 2, tree[1].Items[0].Size)
}

func TestDescribe(t *testing.T) {
	w, _ := newWorkspace()
	m := &scene.Mesh{
		Vertices:  []v3.Vec{{}, {X: 2}, {Y: 3}},
		Triangles: [][3]int{{0, 1, 2}},
	}
	_, _ = w.AddItem("site1", "mesh", m)
	w.Dataset("site1").Metadata[MetaOffsetX] = 1000

	p, err := w.Describe(scene.Key{Dataset: "site1", Item: "mesh"})
	require.NoError(t, err)
	assert.Equal(t, "Mesh", p.Kind)
	assert.Equal(t, 3, p.Points)
	assert.Equal(t, 1, p.Triangles)
	assert.Equal(t, v3.Vec{X: 2, Y: 3}, p.Max)
	assert.Equal(t, 1000.0, p.Metadata[MetaOffsetX])

	_, err = w.Describe(scene.Key{Dataset: "site1", Item: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckDetectsDanglingHandle(t *testing.T) {
	w, _ := newWorkspace()
	ghost := scene.Key{Dataset: "ghost", Item: "x"}
	require.NoError(t, w.Binding().Bind(ghost, cloud(1)))

	issues := w.Check()
	require.Len(t, issues, 1)
	assert.Equal(t, "DANGLING_HANDLE", issues[0].Code)
	assert.Contains(t, issues[0].Error(), "ghost/x")
}
