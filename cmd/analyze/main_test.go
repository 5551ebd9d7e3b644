package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/analysis"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mockCSV = filepath.Join("..", "..", "data", "mock", "incidents_mock.csv")

func TestRun_MockCSV(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-csv", mockCSV, "-owner", "ranger.south@example.org"}, &out)
	require.NoError(t, err)

	var res analysis.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, analysis.PolicyGrid, res.Policy)
	require.Len(t, res.Hotspots, 1)
	assert.Equal(t, 6, res.Statistics.TotalIncidents)
}

func TestRun_PolicyFlagOverridesFile(t *testing.T) {
	policyPath := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(policyPath, []byte("policy: grid\nmin_incidents: 5\n"), 0o600))

	var out bytes.Buffer
	err := run([]string{"-csv", mockCSV, "-owner", "ranger.north@example.org",
		"-policy-file", policyPath, "-policy", "proximity"}, &out)
	require.NoError(t, err)

	var res analysis.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, analysis.PolicyProximity, res.Policy)
}

func TestRun_RequiresOwnerForMultiOwnerCSV(t *testing.T) {
	err := run([]string{"-csv", mockCSV}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ranger.north@example.org")
}

func TestRun_UnknownOwnerIsInsufficientData(t *testing.T) {
	err := run([]string{"-csv", mockCSV, "-owner", "nobody@example.org"}, &bytes.Buffer{})
	var insufficient *domain.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
}

func TestRun_MissingCSVFlag(t *testing.T) {
	err := run(nil, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRun_SkipsBadRows(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "incidents.csv")
	data := "Date,Latitude,Longitude,Species,IncidentType,Severity,ReportedBy\n" +
		"2024-03-11 18:20:00,11.6031,76.0842,Asian Elephant,Crop Raid,High,ranger@example.org\n" +
		"2024-03-12 19:00:00,11.6035,76.0846,Asian Elephant,Crop Raid,Medium,ranger@example.org\n" +
		"2024-03-13 20:10:00,11.6039,76.0849,Wild Boar,Crop Raid,Low,ranger@example.org\n" +
		"12/03/2024,11.6040,76.0850,Wild Boar,Crop Raid,Low,ranger@example.org\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(data), 0o600))

	var out bytes.Buffer
	require.NoError(t, run([]string{"-csv", csvPath}, &out))

	var res analysis.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 3, res.Statistics.TotalIncidents)
	assert.Len(t, res.Hotspots, 1)
}

func TestLoadIncidents_LogsSkippedRows(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "incidents.csv")
	data := "Date,Latitude,Longitude,ReportedBy\n" +
		"2024-03-11,11.6031,76.0842,ranger@example.org\n" +
		"not-a-date,11.6035,76.0846,ranger@example.org\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(data), 0o600))

	var logs bytes.Buffer
	incidents, err := loadIncidents(csvPath, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)

	assert.Len(t, incidents, 1)
	assert.Contains(t, logs.String(), "line=3")
	assert.Contains(t, logs.String(), "skipped=1")
}
