package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ReproducesCommittedFixture(t *testing.T) {
	out := filepath.Join(t.TempDir(), "incidents.json")
	var stats bytes.Buffer

	err := run([]string{"-csv", filepath.Join("..", "..", "data", "mock", "incidents_mock.csv"), "-out", out}, &stats)
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join("..", "..", "data", "mock", "incidents_mock.json"))
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))

	assert.Contains(t, stats.String(), "Total: 17")
	assert.Contains(t, stats.String(), "ranger.north@example.org: 11 incidents (high=4 medium=2 low=5 unknown=0")
	assert.Contains(t, stats.String(), "ranger.south@example.org: 6 incidents (high=2 medium=2 low=1 unknown=1")
}

func TestRun_RejectsBadRow(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(in, []byte("Latitude,Longitude,ReportedBy\n91,10,a@example.org\n"), 0o600))

	err := run([]string{"-csv", in, "-out", filepath.Join(dir, "out.json")}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestRun_MissingFlags(t *testing.T) {
	assert.Error(t, run([]string{"-csv", "x.csv"}, &bytes.Buffer{}))
}
