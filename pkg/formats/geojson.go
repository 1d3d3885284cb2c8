package formats

import (
	"fmt"
	"io"

	"github.com/chazu/pointyard/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature property keys. GeoJSON positions are read as 2D, so elevation
// travels in a property.
const (
	PropZ   = "z"
	PropRGB = "rgb"
)

// ReadGeoJSON reads a feature collection. Point and MultiPoint features
// become one point set; line strings and polygon rings become one line
// set. The z property sets the elevation of a feature's positions and
// rgb (#rrggbb) the color of its points.
func ReadGeoJSON(r io.Reader) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	ps := &scene.PointSet{}
	ls := &scene.LineSet{}
	var colors []scene.Color
	colored := false
	for i, f := range fc.Features {
		z := f.Properties.MustFloat64(PropZ, 0)
		c := scene.White
		if hex := f.Properties.MustString(PropRGB, ""); hex != "" {
			if c, err = scene.ParseHex(hex); err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
			colored = true
		}

		addPoint := func(p orb.Point) {
			ps.Points = append(ps.Points, v3.Vec{X: p[0], Y: p[1], Z: z})
			colors = append(colors, c)
		}
		addPath := func(path []orb.Point, closed bool) {
			base := len(ls.Points)
			for _, p := range path {
				ls.Points = append(ls.Points, v3.Vec{X: p[0], Y: p[1], Z: z})
			}
			n := len(path)
			if closed && n > 1 && path[0] == path[n-1] {
				n--
				ls.Points = ls.Points[:base+n]
			}
			for j := 0; j+1 < n; j++ {
				ls.Lines = append(ls.Lines, [2]int{base + j, base + j + 1})
			}
			if closed && n > 2 {
				ls.Lines = append(ls.Lines, [2]int{base + n - 1, base})
			}
		}

		switch g := f.Geometry.(type) {
		case orb.Point:
			addPoint(g)
		case orb.MultiPoint:
			for _, p := range g {
				addPoint(p)
			}
		case orb.LineString:
			addPath(g, false)
		case orb.MultiLineString:
			for _, l := range g {
				addPath(l, false)
			}
		case orb.Ring:
			addPath(g, true)
		case orb.Polygon:
			for _, ring := range g {
				addPath(ring, true)
			}
		case orb.MultiPolygon:
			for _, poly := range g {
				for _, ring := range poly {
					addPath(ring, true)
				}
			}
		default:
			return nil, fmt.Errorf("feature %d: unsupported geometry %T", i, f.Geometry)
		}
	}
	if colored {
		ps.Colors = colors
	}

	var items []Item
	if len(ps.Points) > 0 {
		items = append(items, Item{Name: PointsName, Geometry: ps})
	}
	if len(ls.Points) > 0 {
		items = append(items, Item{Name: LinesName, Geometry: ls})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no geometry in %d features", len(fc.Features))
	}
	return items, nil
}

// WriteGeoJSON writes one Point feature per point with z and, when the
// set has colors, rgb properties. The offsets are added back to X and Y.
func WriteGeoJSON(w io.Writer, ps *scene.PointSet, offX, offY float64) error {
	fc := geojson.NewFeatureCollection()
	for i, p := range ps.Points {
		f := geojson.NewFeature(orb.Point{p.X + offX, p.Y + offY})
		f.Properties[PropZ] = p.Z
		if len(ps.Colors) > 0 {
			f.Properties[PropRGB] = ps.Colors[i].Hex()
		}
		fc.Append(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
