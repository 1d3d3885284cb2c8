// Package formats reads and writes the file formats the workspace imports
// from and exports to. Point clouds come from LAS or XYZ text (with
// optional RGB columns), meshes from STL, outlines and points from
// GeoJSON. Exports are XYZ and GeoJSON.
package formats

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/pointyard/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrFormat is returned for an unrecognized file extension.
var ErrFormat = errors.New("unsupported file format")

// Item names given to imported geometry.
const (
	PointsName = "Pointcloud"
	LinesName  = "LineSet"
	MeshName   = "Mesh"
)

// Item is one geometry read from a file.
type Item struct {
	Name     string
	Geometry scene.Geometry
}

// Data is the content of one imported file.
type Data struct {
	Items []Item
	// OffsetX and OffsetY were subtracted from every position when the
	// file was re-centered.
	OffsetX, OffsetY float64
}

// Options controls Load.
type Options struct {
	// Recenter subtracts a 1000-unit aligned XY offset taken from the
	// first position, keeping large map coordinates in float range.
	Recenter bool
}

// Load reads path, choosing the codec by extension.
func Load(path string, opt Options) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("formats: %w", err)
	}
	defer f.Close()

	var items []Item
	switch ext(path) {
	case ".xyz", ".xyzrgb", ".txt", ".pts":
		ps, err := ReadXYZ(f)
		if err != nil {
			return nil, fmt.Errorf("formats: %s: %w", path, err)
		}
		items = []Item{{Name: PointsName, Geometry: ps}}
	case ".las":
		ps, err := ReadLAS(path)
		if err != nil {
			return nil, fmt.Errorf("formats: %s: %w", path, err)
		}
		items = []Item{{Name: PointsName, Geometry: ps}}
	case ".stl":
		m, err := ReadSTL(f)
		if err != nil {
			return nil, fmt.Errorf("formats: %s: %w", path, err)
		}
		items = []Item{{Name: MeshName, Geometry: m}}
	case ".geojson", ".json":
		items, err = ReadGeoJSON(f)
		if err != nil {
			return nil, fmt.Errorf("formats: %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("formats: %s: %w", path, ErrFormat)
	}

	d := &Data{Items: items}
	if opt.Recenter {
		d.OffsetX, d.OffsetY = Recenter(items)
	}
	return d, nil
}

// Save writes ps to path by extension, adding the offsets back.
func Save(path string, ps *scene.PointSet, offX, offY float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("formats: %w", err)
	}
	switch ext(path) {
	case ".xyz", ".xyzrgb", ".txt", ".pts":
		err = WriteXYZ(f, ps, offX, offY)
	case ".geojson", ".json":
		err = WriteGeoJSON(f, ps, offX, offY)
	default:
		err = fmt.Errorf("formats: %s: %w", path, ErrFormat)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// Recenter shifts every item by an offset derived from the first position
// of the first non-empty item and returns that offset.
func Recenter(items []Item) (x, y float64) {
	for _, it := range items {
		if pts := it.Geometry.Positions(); len(pts) > 0 {
			x, y = Offset(pts[0].X), Offset(pts[0].Y)
			break
		}
	}
	Shift(items, x, y)
	return x, y
}

// Shift subtracts x and y from every position.
func Shift(items []Item, x, y float64) {
	if x == 0 && y == 0 {
		return
	}
	d := v3.Vec{X: -x, Y: -y}
	for _, it := range items {
		pts := it.Geometry.Positions()
		for i := range pts {
			pts[i] = pts[i].Add(d)
		}
	}
}

// Offset rounds the integer part of v down to a multiple of 1000.
func Offset(v float64) float64 {
	return math.Floor(math.Trunc(v)/1000) * 1000
}
