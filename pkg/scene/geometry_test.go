package scene

import (
	"errors"
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindPointSet, "PointSet"},
		{KindLineSet, "LineSet"},
		{KindMesh, "Mesh"},
		{Kind(9), "Kind(9)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("site1/Pointcloud")
	require.NoError(t, err)
	assert.Equal(t, Key{Dataset: "site1", Item: "Pointcloud"}, k)
	assert.Equal(t, "site1/Pointcloud", k.String())

	k, err = ParseKey("scans/north/cloud")
	require.NoError(t, err)
	assert.Equal(t, "scans/north", k.Dataset)

	for _, bad := range []string{"", "noslash", "/item", "dataset/"} {
		_, err := ParseKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestColorHexRoundTrip(t *testing.T) {
	c, err := ParseHex("#ff8000")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.R, 1e-9)
	assert.InDelta(t, 128.0/255, c.G, 1e-9)
	assert.Equal(t, "#ff8000", c.Hex())

	_, err = ParseHex("#fff")
	assert.Error(t, err)
}

func TestSetColorsLength(t *testing.T) {
	ps := &PointSet{Points: []v3.Vec{{}, {X: 1}}}

	err := ps.SetColors([]Color{White})
	assert.True(t, errors.Is(err, ErrColorLength))
	assert.Empty(t, ps.Colors)

	require.NoError(t, ps.SetColors(Uniform(White, 2)))
	assert.Len(t, ps.Colors, 2)

	require.NoError(t, ps.SetColors(nil))
	assert.Empty(t, ps.Colors)
}

func TestLineSetColorsPerSegment(t *testing.T) {
	ls := &LineSet{
		Points: []v3.Vec{{}, {X: 1}, {X: 1, Y: 1}},
		Lines:  [][2]int{{0, 1}, {1, 2}},
	}
	assert.Equal(t, 2, ls.ColorTarget())
	assert.Error(t, ls.SetColors(Uniform(White, 3)))
	assert.NoError(t, ls.SetColors(Uniform(White, 2)))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		geom Geometry
		want error
	}{
		{"empty point set", &PointSet{}, nil},
		{"nan point", &PointSet{Points: []v3.Vec{{X: math.NaN()}}}, ErrNonFinite},
		{"inf vertex", &Mesh{Vertices: []v3.Vec{{Z: math.Inf(1)}}}, ErrNonFinite},
		{"short colors", &PointSet{Points: []v3.Vec{{}, {}}, Colors: []Color{White}}, ErrColorLength},
		{"line out of range", &LineSet{Points: []v3.Vec{{}}, Lines: [][2]int{{0, 1}}}, ErrIndexRange},
		{"triangle out of range", &Mesh{Vertices: []v3.Vec{{}, {}, {}}, Triangles: [][3]int{{0, 1, 3}}}, ErrIndexRange},
		{"valid mesh", &Mesh{Vertices: []v3.Vec{{}, {X: 1}, {Y: 1}}, Triangles: [][3]int{{0, 1, 2}}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.geom.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	ps := &PointSet{Points: []v3.Vec{{X: 1}}, Colors: []Color{White}}
	c := ps.Clone().(*PointSet)
	c.Points[0].X = 99
	c.Colors[0] = Color{}
	assert.Equal(t, 1.0, ps.Points[0].X)
	assert.Equal(t, White, ps.Colors[0])
}

func TestSubsetCarriesAttributes(t *testing.T) {
	ps := &PointSet{
		Points:  []v3.Vec{{X: 0}, {X: 1}, {X: 2}},
		Colors:  []Color{{R: 0}, {R: 0.5}, {R: 1}},
		Normals: []v3.Vec{{Z: 1}, {Z: 1}, {Z: -1}},
	}
	sub := ps.Subset([]int{2, 0})
	require.Len(t, sub.Points, 2)
	assert.Equal(t, 2.0, sub.Points[0].X)
	assert.Equal(t, 1.0, sub.Colors[0].R)
	assert.Equal(t, -1.0, sub.Normals[0].Z)
	assert.Equal(t, 0.0, sub.Points[1].X)
}

func TestFillColors(t *testing.T) {
	ps := &PointSet{Points: make([]v3.Vec, 3), Colors: []Color{{R: 0.2}}}
	got := FillColors(ps)
	require.Len(t, got, 3)
	assert.Equal(t, 0.2, got[0].R)
	assert.Equal(t, White, got[2])
}

func TestBoundsAndCentroid(t *testing.T) {
	_, ok := Bounds(nil)
	assert.False(t, ok)

	pts := []v3.Vec{{X: -1, Y: 2, Z: 0}, {X: 3, Y: -2, Z: 4}}
	box, ok := Bounds(pts)
	require.True(t, ok)
	assert.Equal(t, v3.Vec{X: -1, Y: -2, Z: 0}, box.Min)
	assert.Equal(t, v3.Vec{X: 3, Y: 2, Z: 4}, box.Max)
	assert.Equal(t, v3.Vec{X: 1, Y: 0, Z: 2}, Centroid(pts))
}
