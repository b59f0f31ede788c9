package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlexplainer/backend/internal/testutil"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	path := writeCSV(t, "loans.csv", testutil.LoanCSV)

	out, err := run(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "loans.csv is valid: 8 rows, 6 columns")
	assert.Contains(t, out, "prediction column: prediction")
	assert.Contains(t, out, "ground truth: true, timestamp: true")
}

func TestValidateCommand_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		args    []string
		wantErr string
	}{
		{name: "empty file", file: "empty.csv", content: "", wantErr: "file is empty"},
		{name: "header only", file: "header.csv", content: "a,b\n", wantErr: "file has no rows"},
		{name: "too large", file: "big.csv", content: testutil.LoanCSV, args: []string{"--max-size", "10B"}, wantErr: "file size too big"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, tt.file, tt.content)
			args := append([]string{"validate", path}, tt.args...)
			_, err := run(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCommand_MissingFile(t *testing.T) {
	_, err := run(t, "validate", filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestAnalyzeCommand_Text(t *testing.T) {
	path := writeCSV(t, "linear.csv", testutil.LinearCSV(20, 0))

	out, err := run(t, "analyze", path, "--prediction", "y")
	require.NoError(t, err)
	assert.Contains(t, out, "linear.csv: 20 rows, 3 columns")
	assert.Contains(t, out, "Prediction column: y")
	assert.Contains(t, out, "Feature")
	assert.Contains(t, out, "1.0000")
	assert.Contains(t, out, "Anomalous rows: 0")
}

func TestAnalyzeCommand_JSON(t *testing.T) {
	path := writeCSV(t, "linear.csv", testutil.LinearCSV(21, 1000))

	out, err := run(t, "analyze", path, "--prediction", "y", "--format", "json", "--max-features", "1")
	require.NoError(t, err)

	var got analyzeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 21, got.RowCount)
	require.NotNil(t, got.PredictionColumn)
	assert.Equal(t, "y", *got.PredictionColumn)
	require.Len(t, got.FeatureImportance, 1)
	assert.Equal(t, "x", got.FeatureImportance[0].Feature)
	assert.Equal(t, 1, got.FeatureImportance[0].Rank)
	require.NotNil(t, got.Anomalies)
	assert.Contains(t, got.Anomalies.Indices, 20)
	assert.NotEmpty(t, got.Explanation)
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	path := writeCSV(t, "loans.csv", testutil.LoanCSV)

	_, err := run(t, "analyze", path, "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")

	_, err = run(t, "analyze", path, "--prediction", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "missing" not found`)

	_, err = run(t, "analyze")
	assert.Error(t, err)
}
