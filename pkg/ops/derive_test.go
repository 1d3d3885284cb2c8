package ops

import (
	"context"
	"testing"

	"github.com/chazu/pointyard/pkg/config"
	"github.com/chazu/pointyard/pkg/kernel"
	"github.com/chazu/pointyard/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cube() *scene.PointSet {
	ps := &scene.PointSet{}
	for i := 0; i < 8; i++ {
		ps.Points = append(ps.Points, v3.Vec{X: float64(i & 1), Y: float64(i >> 1 & 1), Z: float64(i >> 2 & 1)})
	}
	return ps
}

func TestClusterFanOut(t *testing.T) {
	h := newHarness(t)
	h.k.labels = []int{0, 1, 0, -1}
	key := h.add(t, "site1", "Pointcloud", &scene.PointSet{
		Points: []v3.Vec{{X: 0}, {X: 1}, {X: 2}, {X: 3}},
		Colors: []scene.Color{{R: 1}, {G: 1}, {B: 1}, {}},
	})
	ctx := context.Background()

	res, err := h.e.Cluster(ctx, []scene.Key{key}, 0.5, 2)
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	assert.Equal(t, "Pointcloud_Cluster_0", res.Created[0].Item)
	assert.Equal(t, "Pointcloud_Cluster_1", res.Created[1].Item)

	c0 := h.ws.Get(res.Created[0]).Geometry().(*scene.PointSet)
	assert.Equal(t, []v3.Vec{{X: 0}, {X: 2}}, c0.Points)
	assert.Equal(t, []scene.Color{{R: 1}, {B: 1}}, c0.Colors)

	res, err = h.e.Cluster(ctx, []scene.Key{key}, 0.5, 2)
	require.NoError(t, err)
	assert.Equal(t, "Pointcloud_Cluster_0_1", res.Created[0].Item)
	h.requireConsistent(t)
}

func TestClusterKeepNoise(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Cluster.KeepNoise = true })
	h.k.labels = []int{-1, 0, 0}
	key := h.add(t, "d", "p", grid(3))

	res, err := h.e.Cluster(context.Background(), []scene.Key{key}, 1, 1)
	require.NoError(t, err)
	var names []string
	for _, k := range res.Created {
		names = append(names, k.Item)
	}
	assert.ElementsMatch(t, []string{"p_Cluster_noise", "p_Cluster_0"}, names)
}

func TestClusterWithNativeLabels(t *testing.T) {
	h := newHarness(t)
	ps := &scene.PointSet{}
	for i := 0; i < 5; i++ {
		ps.Points = append(ps.Points, v3.Vec{X: float64(i) * 0.1}, v3.Vec{X: 100 + float64(i)*0.1})
	}
	key := h.add(t, "d", "p", ps)

	res, err := h.e.Cluster(context.Background(), []scene.Key{key}, 0.5, 3)
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	assert.Len(t, h.ws.Get(res.Created[0]).Geometry().Positions(), 5)

	_, err = h.e.Cluster(context.Background(), []scene.Key{key}, 0, 3)
	assert.Error(t, err)
}

func TestMergePointSets(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "a", "Pointcloud", &scene.PointSet{Points: []v3.Vec{{X: 1}}, Colors: []scene.Color{{R: 1}}})
	b := h.add(t, "b", "Pointcloud", points(v3.Vec{X: 2}, v3.Vec{X: 3}))
	ctx := context.Background()

	res, err := h.e.Merge(ctx, []scene.Key{a, b})
	require.NoError(t, err)
	want := scene.Key{Dataset: "a_b", Item: "Pointcloud"}
	assert.Equal(t, []scene.Key{want}, res.Created)
	merged := h.ws.Get(want).Geometry().(*scene.PointSet)
	assert.Equal(t, []v3.Vec{{X: 1}, {X: 2}, {X: 3}}, merged.Points)
	assert.Equal(t, []scene.Color{{R: 1}, scene.White, scene.White}, merged.Colors)

	res, err = h.e.Merge(ctx, []scene.Key{a, b})
	require.NoError(t, err)
	assert.Equal(t, "Pointcloud_1", res.Created[0].Item)
	h.requireConsistent(t)
}

func TestMergeOverwrite(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Merge.Overwrite = true })
	a := h.add(t, "a", "x", grid(2))
	b := h.add(t, "a", "y", grid(3))
	ctx := context.Background()

	_, err := h.e.Merge(ctx, []scene.Key{a, b})
	require.NoError(t, err)
	res, err := h.e.Merge(ctx, []scene.Key{b})
	require.NoError(t, err)
	want := scene.Key{Dataset: "a", Item: "Pointcloud"}
	assert.Equal(t, []scene.Key{want}, res.Updated)
	assert.Len(t, h.ws.Get(want).Geometry().Positions(), 3)
	assert.Equal(t, 3, h.ws.Len())
	h.requireConsistent(t)
}

func TestMergeMeshesOffsetsIndices(t *testing.T) {
	h := newHarness(t)
	tri := func(x float64) *scene.Mesh {
		return &scene.Mesh{
			Vertices:  []v3.Vec{{X: x}, {X: x + 1}, {X: x, Y: 1}},
			Triangles: [][3]int{{0, 1, 2}},
		}
	}
	a := h.add(t, "d", "m1", tri(0))
	b := h.add(t, "d", "m2", tri(5))

	res, err := h.e.Merge(context.Background(), []scene.Key{a, b})
	require.NoError(t, err)
	m := h.ws.Get(res.Created[0]).Geometry().(*scene.Mesh)
	assert.Equal(t, "TriangleMesh", res.Created[0].Item)
	assert.Equal(t, [][3]int{{0, 1, 2}, {3, 4, 5}}, m.Triangles)
	assert.Empty(t, m.Normals)
}

func TestMergeRejectsMixedKinds(t *testing.T) {
	h := newHarness(t)
	p := h.add(t, "d", "p", grid(3))
	m := h.add(t, "d", "m", &scene.Mesh{Vertices: []v3.Vec{{}, {X: 1}, {Y: 1}}, Triangles: [][3]int{{0, 1, 2}}})

	res, err := h.e.Merge(context.Background(), []scene.Key{p, m})
	assert.ErrorIs(t, err, ErrSelection)
	assert.Empty(t, res.Created)
	assert.Equal(t, 2, h.ws.Len())
	assert.True(t, h.logged("merge needs items of one kind"))
}

func TestMergeRejectsThreeDatasets(t *testing.T) {
	h := newHarness(t)
	sel := []scene.Key{
		h.add(t, "a", "p", grid(1)),
		h.add(t, "b", "p", grid(1)),
		h.add(t, "c", "p", grid(1)),
	}
	_, err := h.e.Merge(context.Background(), sel)
	assert.ErrorIs(t, err, ErrSelection)
	assert.Equal(t, 3, h.ws.Len())
}

func TestSample(t *testing.T) {
	h := newHarness(t)
	key := h.add(t, "d", "p", grid(1000))
	ctx := context.Background()

	res, err := h.e.Sample(ctx, []scene.Key{key}, SampleParams{Method: SampleRandom, Percent: 50})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, SampleName, res.Created[0].Item)
	assert.Len(t, h.ws.Get(res.Created[0]).Geometry().Positions(), 500)

	res, err = h.e.Sample(ctx, []scene.Key{key}, SampleParams{Method: SampleRegular, Percent: 10})
	require.NoError(t, err)
	pts := h.ws.Get(res.Created[0]).Geometry().Positions()
	require.Len(t, pts, 100)
	assert.Equal(t, grid(1000).Points[10], pts[1])

	res, err = h.e.Sample(ctx, []scene.Key{key}, SampleParams{Method: SampleVoxel, VoxelSize: 2})
	require.NoError(t, err)
	assert.Len(t, h.ws.Get(res.Created[0]).Geometry().Positions(), 125)

	res, err = h.e.Sample(ctx, []scene.Key{key}, SampleParams{Method: SampleRandom, Percent: 0.01})
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Len(t, res.Skipped, 1)

	_, err = h.e.Sample(ctx, []scene.Key{key}, SampleParams{Method: "octree"})
	assert.Error(t, err)
}

func TestHullAndBoundingBox(t *testing.T) {
	h := newHarness(t)
	key := h.add(t, "d", "cube", cube())
	ctx := context.Background()

	res, err := h.e.ConvexHull(ctx, []scene.Key{key})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	hull := h.ws.Get(res.Created[0]).Geometry().(*scene.LineSet)
	assert.Equal(t, HullName, res.Created[0].Item)
	assert.Len(t, hull.Lines, 18)

	res, err = h.e.BoundingBox(ctx, []scene.Key{key})
	require.NoError(t, err)
	box := h.ws.Get(res.Created[0]).Geometry().(*scene.LineSet)
	assert.Equal(t, BoxName, res.Created[0].Item)
	assert.Len(t, box.Lines, 12)

	flat := h.add(t, "d", "flat", points(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: 1}, v3.Vec{X: 1, Y: 1}))
	res, err = h.e.ConvexHull(ctx, []scene.Key{flat})
	require.NoError(t, err)
	assert.Len(t, res.Skipped, 1)
	h.requireConsistent(t)
}

func TestEstimateNormals(t *testing.T) {
	h := newHarness(t)
	key := h.add(t, "d", "plane", grid(100))
	ctx := context.Background()

	res, err := h.e.EstimateNormals(ctx, []scene.Key{key}, NormalParams{})
	require.NoError(t, err)
	assert.Equal(t, []scene.Key{key}, res.Updated)
	normals := h.ws.Get(key).Geometry().NormalData()
	require.Len(t, normals, 100)
	assert.InDelta(t, 1.0, normals[55].Z, 1e-6)

	_, err = h.e.EstimateNormals(ctx, []scene.Key{key}, NormalParams{Method: "alpha"})
	assert.ErrorIs(t, err, kernel.ErrUnsupported)
	h.requireConsistent(t)
}

func TestSubstitute(t *testing.T) {
	h := newHarness(t)
	top := h.add(t, "d", "top", points(v3.Vec{}, v3.Vec{X: 10}))
	base := h.add(t, "d", "base", points(v3.Vec{Z: 5}, v3.Vec{X: 10, Z: -1}))

	res, err := h.e.Substitute(context.Background(), top, base, 1)
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	assert.Equal(t, "top_updated", res.Created[0].Item)
	assert.Equal(t, "base_remaining", res.Created[1].Item)
	assert.Equal(t, []v3.Vec{{}, {X: 10}, {Z: 5}}, h.ws.Get(res.Created[0]).Geometry().Positions())
	assert.Equal(t, []v3.Vec{{X: 10, Z: -1}}, h.ws.Get(res.Created[1]).Geometry().Positions())

	_, err = h.e.Substitute(context.Background(), top, top, 1)
	assert.ErrorIs(t, err, ErrSelection)
}

func TestReconstruction(t *testing.T) {
	h := newHarness(t)
	key := h.add(t, "d", "cube", cube())
	ctx := context.Background()

	job, err := h.e.StartReconstruction(ctx, key, kernel.Delaunay, kernel.ReconstructParams{})
	require.NoError(t, err)
	<-job.Done()
	assert.Equal(t, 1, h.ws.Len())

	res, err := h.e.Finish(job)
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, "Delaunay3D", res.Created[0].Item)
	m := h.ws.Get(res.Created[0]).Geometry().(*scene.Mesh)
	assert.Equal(t, 12, m.TriangleCount())

	res, err = h.e.Reconstruct(ctx, []scene.Key{key, {Dataset: "d", Item: "gone"}}, kernel.Poisson, kernel.ReconstructParams{})
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Len(t, res.Skipped, 2)
	h.requireConsistent(t)
}
