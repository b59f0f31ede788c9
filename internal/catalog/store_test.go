package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlexplainer/backend/internal/models"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func uploadRecord(id string, offset int) *models.UploadRecord {
	pred := "prediction"
	return &models.UploadRecord{
		ID:               id,
		Filename:         id + ".csv",
		StorageKey:       id + "_" + id + ".csv",
		Status:           models.UploadStatusComplete,
		RowCount:         3,
		ColumnCount:      2,
		ColumnNames:      []string{"x", "prediction"},
		ColumnTypes:      map[string]string{"x": "int64", "prediction": "float64"},
		PredictionColumn: &pred,
		HasGroundTruth:   false,
		HasTimestamp:     true,
		UploadedAt:       base.Add(time.Duration(offset) * time.Minute),
	}
}

func analysisResult(id, uploadID string, offset int) *models.AnalysisResult {
	conf := 0.85
	explanation := "summary"
	mean := 1.5
	return &models.AnalysisResult{
		ID:         id,
		UploadID:   uploadID,
		Status:     models.AnalysisStatusComplete,
		AnalyzedAt: base.Add(time.Duration(offset) * time.Minute),
		Profile: &models.DataProfile{
			TotalRows:          3,
			TotalColumns:       3,
			MissingValues:      map[string]int{"x": 0, "prediction": 1, "label": 0},
			MissingPercentages: map[string]float64{"x": 0, "prediction": 33.33, "label": 0},
			NumericColumns:     []string{"x", "prediction"},
			CategoricalColumns: []string{"label"},
			PredictionSummary:  &models.PredictionSummary{Type: models.SummaryNumeric, Mean: &mean},
		},
		FeatureImportance: []models.FeatureImportance{{Feature: "x", Importance: 0.5, Rank: 1}},
		AnomaliesDetected: 1,
		AnomalyIndices:    []int{2},
		AnomalyDetails:    map[string]models.ColumnAnomalies{"x": {Count: 1, Indices: []int{2}}},
		Explanation:       &explanation,
		Insights:          []string{"insight"},
		ConfidenceScore:   &conf,
	}
}

func testStore(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("upload round trip", func(t *testing.T) {
		s := newStore(t)
		rec := uploadRecord("u1", 0)
		require.NoError(t, s.PutUpload(ctx, rec))

		got, err := s.GetUpload(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, rec.UploadedAt.Equal(got.UploadedAt))
		got.UploadedAt = rec.UploadedAt
		assert.Equal(t, rec, got)
	})

	t.Run("duplicate upload rejected", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutUpload(ctx, uploadRecord("u1", 0)))
		assert.ErrorIs(t, s.PutUpload(ctx, uploadRecord("u1", 1)), ErrExists)
	})

	t.Run("unknown ids", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetUpload(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetAnalysis(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)

		list, err := s.ListAnalyses(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("list uploads newest first", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 4; i++ {
			require.NoError(t, s.PutUpload(ctx, uploadRecord(fmt.Sprintf("u%d", i), i)))
		}

		all, err := s.ListUploads(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "u3", all[0].ID)
		assert.Equal(t, "u0", all[3].ID)

		two, err := s.ListUploads(ctx, 2)
		require.NoError(t, err)
		require.Len(t, two, 2)
		assert.Equal(t, []string{"u3", "u2"}, []string{two[0].ID, two[1].ID})
	})

	t.Run("analysis round trip and listing", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutUpload(ctx, uploadRecord("u1", 0)))
		a1 := analysisResult("a1", "u1", 1)
		a2 := analysisResult("a2", "u1", 2)
		other := analysisResult("b1", "u2", 3)
		for _, a := range []*models.AnalysisResult{a1, a2, other} {
			require.NoError(t, s.PutAnalysis(ctx, a))
		}
		assert.ErrorIs(t, s.PutAnalysis(ctx, analysisResult("a1", "u1", 4)), ErrExists)

		got, err := s.GetAnalysis(ctx, "a1")
		require.NoError(t, err)
		assert.True(t, a1.AnalyzedAt.Equal(got.AnalyzedAt))
		got.AnalyzedAt = a1.AnalyzedAt
		assert.Equal(t, a1, got)

		list, err := s.ListAnalyses(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "a2", list[0].ID)
		assert.Equal(t, "a1", list[1].ID)
	})
}

func TestMemoryStore(t *testing.T) {
	testStore(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestDuckStore(t *testing.T) {
	testStore(t, func(t *testing.T) Store {
		s, err := NewDuckStore(DuckOptions{Path: filepath.Join(t.TempDir(), "catalog.duckdb")})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestDuckStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.duckdb")

	s, err := NewDuckStore(DuckOptions{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.PutUpload(ctx, uploadRecord("u1", 0)))
	require.NoError(t, s.Close())

	s, err = NewDuckStore(DuckOptions{Path: path})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetUpload(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1.csv", got.Filename)
	assert.ErrorIs(t, s.PutUpload(ctx, uploadRecord("u1", 1)), ErrExists)
}

func TestCodec_UsesJSONNames(t *testing.T) {
	data, err := encode(map[string]interface{}{"x": 1})
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, decode(data, &m))
	assert.EqualValues(t, 1, m["x"])

	data, err = encode(&models.FeatureImportance{Feature: "f", Importance: 0.5, Rank: 1})
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, decode(data, &raw))
	assert.Contains(t, raw, "feature")
	assert.Contains(t, raw, "importance")
	assert.Contains(t, raw, "rank")
}
