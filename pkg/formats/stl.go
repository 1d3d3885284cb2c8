package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/pointyard/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrEmptyMesh is returned for a mesh file without triangles.
var ErrEmptyMesh = errors.New("mesh has no triangles")

// ReadSTL parses an ASCII or binary STL file. Facets become triangles over
// shared vertices; corners with identical coordinates are merged. Facet
// normals are ignored.
func ReadSTL(r io.Reader) (*scene.Mesh, error) {
	br := bufio.NewReader(r)
	// Binary headers may also begin with "solid", so look for a facet too.
	head, _ := br.Peek(512)
	var m *scene.Mesh
	var err error
	if bytes.HasPrefix(head, []byte("solid")) && bytes.Contains(head, []byte("facet")) {
		m, err = readASCIISTL(br)
	} else {
		m, err = readBinarySTL(br)
	}
	if err != nil {
		return nil, err
	}
	if len(m.Triangles) == 0 {
		return nil, ErrEmptyMesh
	}
	return m, nil
}

func readASCIISTL(r io.Reader) (*scene.Mesh, error) {
	sc := bufio.NewScanner(r)
	b := newMeshBuilder()
	var corners []v3.Vec
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "vertex":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", lineNo)
			}
			vals, err := parseFloats(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			corners = append(corners, v3.Vec{X: vals[0], Y: vals[1], Z: vals[2]})
		case "endfacet":
			if len(corners) != 3 {
				return nil, fmt.Errorf("line %d: facet has %d vertices", lineNo, len(corners))
			}
			if err := b.facet(corners[0], corners[1], corners[2]); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			corners = corners[:0]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ASCII STL: %w", err)
	}
	return b.m, nil
}

// stlFacet is one 50-byte binary STL record.
type stlFacet struct {
	Normal  [3]float32
	Corners [3][3]float32
	Attr    uint16
}

func readBinarySTL(r io.Reader) (*scene.Mesh, error) {
	header := make([]byte, 80)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("reading triangle count: %w", err)
	}

	b := newMeshBuilder()
	var rec stlFacet
	for i := uint32(0); i < count; i++ {
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("reading triangle %d: %w", i, err)
		}
		var c [3]v3.Vec
		for j, p := range rec.Corners {
			c[j] = v3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
		}
		if err := b.facet(c[0], c[1], c[2]); err != nil {
			return nil, fmt.Errorf("triangle %d: %w", i, err)
		}
	}
	return b.m, nil
}

type meshBuilder struct {
	m     *scene.Mesh
	index map[v3.Vec]int
}

func newMeshBuilder() *meshBuilder {
	return &meshBuilder{m: &scene.Mesh{}, index: make(map[v3.Vec]int)}
}

func (b *meshBuilder) facet(p0, p1, p2 v3.Vec) error {
	var t [3]int
	for i, p := range [3]v3.Vec{p0, p1, p2} {
		if !scene.Finite(p) {
			return scene.ErrNonFinite
		}
		idx, ok := b.index[p]
		if !ok {
			idx = len(b.m.Vertices)
			b.index[p] = idx
			b.m.Vertices = append(b.m.Vertices, p)
		}
		t[i] = idx
	}
	b.m.Triangles = append(b.m.Triangles, t)
	return nil
}
