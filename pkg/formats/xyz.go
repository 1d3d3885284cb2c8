package formats

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/chazu/pointyard/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ReadXYZ parses one point per line as "x y z" or "x y z r g b", separated
// by spaces, tabs or commas. Blank lines and lines starting with # or //
// are ignored, as is a non-numeric first line. Colors above 1 are read as
// 0-255 channels.
func ReadXYZ(r io.Reader) (*scene.PointSet, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	ps := &scene.PointSet{}
	var rgb [][3]float64
	wide := false
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ';' || unicode.IsSpace(r)
		})
		vals, err := parseFloats(fields)
		if err != nil {
			if len(ps.Points) == 0 && lineNo == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if len(vals) < 3 {
			return nil, fmt.Errorf("line %d: want at least 3 columns, got %d", lineNo, len(vals))
		}
		p := v3.Vec{X: vals[0], Y: vals[1], Z: vals[2]}
		if !scene.Finite(p) {
			return nil, fmt.Errorf("line %d: %w", lineNo, scene.ErrNonFinite)
		}
		ps.Points = append(ps.Points, p)
		if len(vals) >= 6 {
			c := [3]float64{vals[3], vals[4], vals[5]}
			wide = wide || c[0] > 1 || c[1] > 1 || c[2] > 1
			rgb = append(rgb, c)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if len(rgb) > 0 {
		if len(rgb) != len(ps.Points) {
			return nil, fmt.Errorf("%d of %d points have colors: %w", len(rgb), len(ps.Points), scene.ErrColorLength)
		}
		scale := 1.0
		if wide {
			scale = 255
		}
		ps.Colors = make([]scene.Color, len(rgb))
		for i, c := range rgb {
			ps.Colors[i] = scene.Color{R: c[0] / scale, G: c[1] / scale, B: c[2] / scale}
		}
	}
	return ps, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// WriteXYZ writes one point per line, with 0-255 RGB columns when ps has
// colors. The offsets are added back to X and Y.
func WriteXYZ(w io.Writer, ps *scene.PointSet, offX, offY float64) error {
	bw := bufio.NewWriter(w)
	for i, p := range ps.Points {
		x := strconv.FormatFloat(p.X+offX, 'f', -1, 64)
		y := strconv.FormatFloat(p.Y+offY, 'f', -1, 64)
		z := strconv.FormatFloat(p.Z, 'f', -1, 64)
		var err error
		if len(ps.Colors) > 0 {
			c := ps.Colors[i]
			_, err = fmt.Fprintf(bw, "%s %s %s %d %d %d\n", x, y, z, channel(c.R), channel(c.G), channel(c.B))
		} else {
			_, err = fmt.Fprintf(bw, "%s %s %s\n", x, y, z)
		}
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

func channel(v float64) int {
	return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
