// Package scene defines the geometry buffers held by a workspace: point
// sets, line sets and triangle meshes, together with the keys and colors
// used to address and paint them.
package scene

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrColorLength is returned when a color array does not match the
	// element count of the geometry it paints.
	ErrColorLength = errors.New("color count does not match geometry")
	// ErrNonFinite is returned when a coordinate is NaN or infinite.
	ErrNonFinite = errors.New("non-finite coordinate")
	// ErrIndexRange is returned when a line or triangle references a
	// vertex that does not exist.
	ErrIndexRange = errors.New("index out of range")
)

// Kind identifies the geometry type of a scene item. It never changes for
// the lifetime of an item.
type Kind int

const (
	KindPointSet Kind = iota
	KindLineSet
	KindMesh
)

func (k Kind) String() string {
	switch k {
	case KindPointSet:
		return "PointSet"
	case KindLineSet:
		return "LineSet"
	case KindMesh:
		return "Mesh"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Key addresses an item in a workspace. Item names are unique only within
// their dataset.
type Key struct {
	Dataset string `json:"dataset"`
	Item    string `json:"item"`
}

func (k Key) String() string {
	return k.Dataset + "/" + k.Item
}

// ParseKey splits "dataset/item" at the last slash. Dataset names may
// contain slashes when they were derived from file paths.
func ParseKey(s string) (Key, error) {
	i := strings.LastIndex(s, "/")
	if i <= 0 || i == len(s)-1 {
		return Key{}, fmt.Errorf("scene: malformed key %q, want dataset/item", s)
	}
	return Key{Dataset: s[:i], Item: s[i+1:]}, nil
}

// Color is an RGB triple with channels in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// White is the color synthesized for geometry that has none.
var White = Color{R: 1, G: 1, B: 1}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// ParseHex reads #rrggbb or rrggbb.
func ParseHex(s string) (Color, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("scene: color %q is not #rrggbb", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return Color{}, fmt.Errorf("scene: color %q: %w", s, err)
	}
	return Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}, nil
}

// Valid reports whether all channels are finite and within [0, 1].
func (c Color) Valid() bool {
	for _, v := range []float64{c.R, c.G, c.B} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// Uniform returns n copies of c.
func Uniform(c Color, n int) []Color {
	out := make([]Color, n)
	for i := range out {
		out[i] = c
	}
	return out
}
