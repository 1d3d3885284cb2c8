package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/pointyard/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/jblindsay/go-spatial/geospatialfiles/lidar"
)

// ErrLAS is returned for LAS files the reader cannot handle.
var ErrLAS = errors.New("invalid LAS file")

const (
	lasSignature  = "LASF"
	lasRecordBase = 20 // X, Y, Z, intensity, flags, class, angle, user, source
)

// lasRGBOffset is where the red channel starts inside a point record, by
// point data format. Formats 0, 1 and 4 carry no color.
var lasRGBOffset = map[byte]int64{2: 20, 3: 28, 5: 28}

// ReadLAS reads an ASPRS LAS 1.0 to 1.3 file with point data formats 0
// to 5. Scale and offset from the header are applied. RGB channels are 16
// bit and scaled to [0, 1].
func ReadLAS(path string) (ps *scene.PointSet, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	format, recLen, count, dataStart, err := checkLAS(f)
	if err != nil {
		return nil, err
	}

	// The lidar reader panics on malformed input instead of returning errors.
	defer func() {
		if r := recover(); r != nil {
			ps, err = nil, fmt.Errorf("%w: %v", ErrLAS, r)
		}
	}()
	lf, err := lidar.CreateFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLAS, err)
	}
	defer lf.Close()

	ps = &scene.PointSet{Points: make([]v3.Vec, count)}
	for i := range ps.Points {
		x, y, z := lf.GetPointXYZ(int64(i))
		p := v3.Vec{X: x, Y: y, Z: z}
		if !scene.Finite(p) {
			return nil, fmt.Errorf("point %d: %w", i, scene.ErrNonFinite)
		}
		ps.Points[i] = p
	}

	off, ok := lasRGBOffset[format]
	if !ok || count == 0 {
		return ps, nil
	}
	if int64(recLen) < off+6 {
		return nil, fmt.Errorf("%w: record length %d too short for format %d", ErrLAS, recLen, format)
	}
	ps.Colors = make([]scene.Color, count)
	var rgb [6]byte
	for i := range ps.Colors {
		if _, err := f.ReadAt(rgb[:], dataStart+int64(i)*int64(recLen)+off); err != nil {
			return nil, fmt.Errorf("point %d color: %w", i, err)
		}
		ps.Colors[i] = scene.Color{
			R: float64(binary.LittleEndian.Uint16(rgb[0:])) / 65535,
			G: float64(binary.LittleEndian.Uint16(rgb[2:])) / 65535,
			B: float64(binary.LittleEndian.Uint16(rgb[4:])) / 65535,
		}
	}
	return ps, nil
}

// checkLAS validates the public header block before the lidar reader sees
// the file, and that the file holds every point the header promises.
func checkLAS(f *os.File) (format byte, recLen uint16, count int, dataStart int64, err error) {
	var hdr [111]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("%w: short header", ErrLAS)
	}
	if string(hdr[0:4]) != lasSignature {
		return 0, 0, 0, 0, fmt.Errorf("%w: signature %q", ErrLAS, hdr[0:4])
	}
	if major, minor := hdr[24], hdr[25]; major != 1 || minor > 3 {
		return 0, 0, 0, 0, fmt.Errorf("%w: version %d.%d", ErrLAS, major, minor)
	}
	format = hdr[104]
	if format > 5 {
		return 0, 0, 0, 0, fmt.Errorf("%w: point format %d", ErrLAS, format)
	}
	dataStart = int64(binary.LittleEndian.Uint32(hdr[96:]))
	recLen = binary.LittleEndian.Uint16(hdr[105:])
	n := binary.LittleEndian.Uint32(hdr[107:])
	if recLen < lasRecordBase {
		return 0, 0, 0, 0, fmt.Errorf("%w: record length %d", ErrLAS, recLen)
	}

	st, err := f.Stat()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	if need := dataStart + int64(n)*int64(recLen); st.Size() < need {
		return 0, 0, 0, 0, fmt.Errorf("%w: %d points need %d bytes, file has %d", ErrLAS, n, need, st.Size())
	}
	return format, recLen, int(n), dataStart, nil
}
