package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qlbmcirq/internal/config"
	"qlbmcirq/internal/store"
)

const collisionlessSpec = `{
  "lattice": {"dim": {"x": 8, "y": 8}, "velocities": {"x": 4, "y": 4}},
  "geometry": [{"shape": "cuboid", "x": [1, 2], "y": [1, 2], "boundary": "bounceback"}],
  "run": {"timesteps": 1}
}`

const spaceTimeSpec = `{
  "lattice": {"dim": {"x": 8, "y": 8}, "velocities": "D2Q4"},
  "geometry": [{"shape": "cuboid", "x": [3, 4], "y": [3, 4], "boundary": "bounceback"}],
  "run": {"timesteps": 1}
}`

const lqlgaSpec = `{
  "lattice": {"dim": {"x": 6}, "velocities": "D1Q2"},
  "geometry": [{"shape": "cuboid", "x": [2, 3], "boundary": "bounceback"}],
  "run": {"timesteps": 2}
}`

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spec.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args[0], args[1:], &stdout, &stderr)
	return stdout.String(), err
}

func TestCompileCollisionless(t *testing.T) {
	specPath := writeSpec(t, collisionlessSpec)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.qasm")
	cache := filepath.Join(dir, "cache.db")

	_, err := runCommand(t, "compile", "-o", out, "-cache", cache, specPath)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "OPENQASM 2.0;"))
	assert.Contains(t, string(data), "measure")

	spec, err := config.Load(specPath)
	require.NoError(t, err)
	s, err := store.Open(cache, nil)
	require.NoError(t, err)
	defer s.Close()
	frags, err := s.List(context.Background(), cacheKey(spec, buildOptions{barriers: true}))
	require.NoError(t, err)
	require.NotEmpty(t, frags)

	var keys []string
	for _, f := range frags {
		keys = append(keys, f.Key)
	}
	assert.Contains(t, keys, "step")
}

func TestCompileSpaceTimeToStdout(t *testing.T) {
	out, err := runCommand(t, "compile", "-volumetric", writeSpec(t, spaceTimeSpec))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "OPENQASM 2.0;"))
	assert.Contains(t, out, "mcswap")
}

func TestCompileLQLGA(t *testing.T) {
	out, err := runCommand(t, "compile", writeSpec(t, lqlgaSpec))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "OPENQASM 2.0;"))
	assert.Contains(t, out, "qreg q[12];")
	assert.Contains(t, out, "measure q[11]")
	assert.NotContains(t, out, "mcswap")

	spec, err := config.Load(writeSpec(t, lqlgaSpec))
	require.NoError(t, err)
	b, err := compileSpec(spec, buildOptions{})
	require.NoError(t, err)
	assert.Contains(t, b.name, "lqlga lattice 6 D1Q2 T=2")
	var keys []string
	for _, f := range b.fragments {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"collision", "streaming", "reflection", "step"}, keys)
	assert.Equal(t, "v_5[1]", b.labels()[11])

	out, err = runCommand(t, "inspect", writeSpec(t, lqlgaSpec))
	require.NoError(t, err)
	assert.Contains(t, out, "v_0")
	assert.NotContains(t, out, "WALLS IN")
}

func TestCompileRejects(t *testing.T) {
	_, err := runCommand(t, "compile")
	assert.ErrorContains(t, err, "expected one configuration file")

	bad := strings.Replace(collisionlessSpec, `"x": 8`, `"x": 6`, 1)
	_, err = runCommand(t, "compile", writeSpec(t, bad))
	assert.ErrorContains(t, err, "power of two")

	_, err = runCommand(t, "frobnicate")
	assert.ErrorContains(t, err, "unknown command")
}

func TestInspect(t *testing.T) {
	out, err := runCommand(t, "inspect", writeSpec(t, collisionlessSpec))
	require.NoError(t, err)
	assert.Contains(t, out, "REGISTER")
	assert.Contains(t, out, "WALLS IN")
	assert.Contains(t, out, "cuboid")

	out, err = runCommand(t, "inspect", "-measurement", writeSpec(t, spaceTimeSpec))
	require.NoError(t, err)
	assert.Contains(t, out, "a_m")
	assert.NotContains(t, out, "WALLS IN")
}

func TestStats(t *testing.T) {
	html := filepath.Join(t.TempDir(), "gates.html")
	out, err := runCommand(t, "stats", "-html", html, writeSpec(t, spaceTimeSpec))
	require.NoError(t, err)
	assert.Contains(t, out, "streaming-1")
	assert.Contains(t, out, "total")

	data, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(data), "collision-1")

	out, err = runCommand(t, "stats", "-json", writeSpec(t, collisionlessSpec))
	require.NoError(t, err)
	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.EqualValues(t, 1, stats["timesteps"])
	assert.Contains(t, stats, "step_gates")
}

func TestPlot(t *testing.T) {
	png := filepath.Join(t.TempDir(), "geometry.png")
	out, err := runCommand(t, "plot", "-o", png, writeSpec(t, collisionlessSpec))
	require.NoError(t, err)
	assert.Contains(t, out, png)
	_, err = os.Stat(png)
	assert.NoError(t, err)
}

func TestLoadFragmentsCaches(t *testing.T) {
	spec, err := config.Load(writeSpec(t, spaceTimeSpec))
	require.NoError(t, err)
	cache := filepath.Join(t.TempDir(), "cache.db")

	title, labels, first, err := loadFragments(spec, cache, buildOptions{})
	require.NoError(t, err)
	assert.Contains(t, title, "space-time lattice")
	require.Len(t, first, 3)
	assert.Equal(t, "g_x[0]", labels[0])

	title, cachedLabels, second, err := loadFragments(spec, cache, buildOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(title, "cached "), title)
	assert.Len(t, second, 3)
	assert.Equal(t, labels, cachedLabels, "a cache hit names wires like a fresh compile")

	// Different options compile into their own cache entry.
	title, _, _, err = loadFragments(spec, cache, buildOptions{volumetric: true})
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(title, "cached "), title)
}
