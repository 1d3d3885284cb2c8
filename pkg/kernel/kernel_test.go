package kernel

import (
	"testing"

	"github.com/chazu/pointyard/pkg/scene"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// --- Mesh helper tests ---

func tetra() *scene.Mesh {
	return &scene.Mesh{
		Vertices:  []v3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}},
		Triangles: [][3]int{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}},
	}
}

func TestEdges(t *testing.T) {
	tests := []struct {
		name string
		mesh *scene.Mesh
		want int
	}{
		{"empty", &scene.Mesh{}, 0},
		{"one triangle", &scene.Mesh{Vertices: make([]v3.Vec, 3), Triangles: [][3]int{{0, 1, 2}}}, 3},
		{"two triangles share an edge", &scene.Mesh{Vertices: make([]v3.Vec, 4), Triangles: [][3]int{{0, 1, 2}, {2, 1, 3}}}, 5},
		{"tetrahedron", tetra(), 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(Edges(tt.mesh)); got != tt.want {
				t.Errorf("len(Edges()) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEdgesSortedLowFirst(t *testing.T) {
	edges := Edges(tetra())
	for i, e := range edges {
		if e[0] >= e[1] {
			t.Errorf("edge %d = %v, want low index first", i, e)
		}
		if i > 0 && (edges[i-1][0] > e[0] || (edges[i-1][0] == e[0] && edges[i-1][1] >= e[1])) {
			t.Errorf("edges not sorted at %d: %v after %v", i, e, edges[i-1])
		}
	}
}

func TestWireframe(t *testing.T) {
	ls := Wireframe(tetra())
	if err := ls.Validate(); err != nil {
		t.Fatalf("wireframe invalid: %v", err)
	}
	if len(ls.Points) != 4 || len(ls.Lines) != 6 {
		t.Errorf("wireframe = %d points %d lines, want 4 and 6", len(ls.Points), len(ls.Lines))
	}
}

func TestBoxLines(t *testing.T) {
	box := sdf.Box3{Min: v3.Vec{X: -1, Y: -2, Z: -3}, Max: v3.Vec{X: 1, Y: 2, Z: 3}}
	ls := BoxLines(box)
	if len(ls.Points) != 8 {
		t.Fatalf("len(Points) = %d, want 8", len(ls.Points))
	}
	if len(ls.Lines) != 12 {
		t.Fatalf("len(Lines) = %d, want 12", len(ls.Lines))
	}
	for _, l := range ls.Lines {
		d := ls.Points[l[1]].Sub(ls.Points[l[0]])
		nonZero := 0
		for _, c := range []float64{d.X, d.Y, d.Z} {
			if c != 0 {
				nonZero++
			}
		}
		if nonZero != 1 {
			t.Errorf("edge %v is not axis aligned: %v", l, d)
		}
	}
}

// --- Method parsing ---

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in   string
		want Method
	}{
		{"Poisson", Poisson},
		{"delaunay", Delaunay},
		{"Delaunay3D", Delaunay},
		{"ball-pivot", BallPivot},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if err != nil {
			t.Errorf("ParseMethod(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMethod(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseMethod("marching"); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestDistances(t *testing.T) {
	got := Distances([]Neighbor{{Index: 3, Distance: 1.5}, {Index: 0, Distance: 0}})
	if len(got) != 2 || got[0] != 1.5 || got[1] != 0 {
		t.Errorf("Distances() = %v", got)
	}
}
