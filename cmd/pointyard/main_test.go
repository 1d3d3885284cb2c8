package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/pointyard/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const outline = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},
"geometry":{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,10],[0,0]]]}}]}`

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func siteFiles(t *testing.T) (cloud, line string) {
	t.Helper()
	dir := t.TempDir()
	cloud = writeFile(t, dir, "site1.xyz", "1 1 0\n2 2 1\n3 3 2\n4 4 3\n20 20 0\n-5 0 0\n")
	line = writeFile(t, dir, "outline.geojson", outline)
	return cloud, line
}

func TestRunExampleScript(t *testing.T) {
	cloud, line := siteFiles(t)

	out, err := execute(t, "run", "--load", cloud, "--load", line, filepath.Join("..", "..", "examples", "footprint.lisp"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "footprint_filter: created 1")
	assert.Contains(t, out, "set_color: updated 1")
	assert.Contains(t, out, "sample: created 1")
	assert.Contains(t, out, "pointcloud_in_3dhull  PointSet, 4")
	assert.Contains(t, out, "Sampled Pointcloud  PointSet, 2")
	assert.Contains(t, out, "Pointcloud  PointSet, 6 (hidden)")
}

func TestRunJSONReport(t *testing.T) {
	cloud, _ := siteFiles(t)
	script := writeFile(t, t.TempDir(), "bbox.lisp", `(bbox "site1/Pointcloud")`)

	out, err := execute(t, "run", "--json", "-l", cloud, script)
	require.NoError(t, err)
	var rep engine.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Steps, 1)
	assert.Equal(t, "bbox", rep.Steps[0].Op)
	assert.Equal(t, "AABB", rep.Steps[0].Result.Created[0].Item)
}

func TestRunFailures(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"eval error", `(hide (item "nope/x"))`, "script"},
		{"failed step", `(merge)`, "1 of 1 steps failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".lisp", tt.script)
			_, err := execute(t, "run", path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := execute(t, "run", filepath.Join(dir, "missing.lisp"))
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "site1.xyz", "1000 2000 0 255 0 0\n1001 2003 4 0 255 0\n")

	out, err := execute(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Pointcloud (PointSet)")
	assert.Contains(t, out, "Points: 2")
	assert.Contains(t, out, "Colors: yes  Normals: no")
	assert.Contains(t, out, "Max: (1001.000, 2003.000, 4.000)")
	assert.NotContains(t, out, "Offset")

	out, err = execute(t, "info", "--recenter", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Min: (0.000, 0.000, 0.000)")
	assert.Contains(t, out, "Offset: 1000, 2000")
}

func TestConvertRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "site1.xyz", "1000 2000 3\n1001 2001 4\n")
	gj := filepath.Join(dir, "site1.geojson")
	back := filepath.Join(dir, "back.xyz")

	out, err := execute(t, "convert", in, gj)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2 points")

	_, err = execute(t, "convert", gj, back)
	require.NoError(t, err)
	data, err := os.ReadFile(back)
	require.NoError(t, err)
	assert.Equal(t, "1000 2000 3\n1001 2001 4\n", string(data))

	_, err = execute(t, "convert", writeFile(t, dir, "outline.geojson", outline), filepath.Join(dir, "x.xyz"))
	assert.ErrorContains(t, err, "no point set")
}
