package profile

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlexplainer/backend/internal/models"
	"github.com/mlexplainer/backend/internal/table"
	"github.com/mlexplainer/backend/internal/testutil"
)

func mustRead(t *testing.T, csv string) *table.Table {
	t.Helper()
	tbl, err := table.Read(strings.NewReader(csv))
	require.NoError(t, err)
	return tbl
}

func column(name string, vals ...string) string {
	return name + "\n" + strings.Join(vals, "\n") + "\n"
}

func TestProfile_MissingValues(t *testing.T) {
	tbl := mustRead(t, "a,b,c\n1,,x\n2,,\n3,,y\n")
	prof := NewProfiler(0).Profile(tbl, "")

	assert.Equal(t, 3, prof.TotalRows)
	assert.Equal(t, 3, prof.TotalColumns)
	assert.Equal(t, map[string]int{"a": 0, "b": 3, "c": 1}, prof.MissingValues)
	assert.Equal(t, map[string]float64{"a": 0, "b": 100, "c": 33.33}, prof.MissingPercentages)
	assert.Equal(t, []string{"a", "b"}, prof.NumericColumns)
	assert.Equal(t, []string{"c"}, prof.CategoricalColumns)
	assert.Nil(t, prof.PredictionSummary)
}

func TestProfile_PercentagesInRange(t *testing.T) {
	tbl := mustRead(t, "a,b\n1,\n,2\n3,\n4,5\n5,\n6,\n7,\n")
	prof := NewProfiler(0).Profile(tbl, "")
	for name, pct := range prof.MissingPercentages {
		assert.GreaterOrEqual(t, pct, 0.0, name)
		assert.LessOrEqual(t, pct, 100.0, name)
	}
	assert.Equal(t, 14.29, prof.MissingPercentages["a"])
	assert.Equal(t, 71.43, prof.MissingPercentages["b"])
}

func TestProfile_ZeroRows(t *testing.T) {
	tbl := mustRead(t, "a,b\n")
	prof := NewProfiler(0).Profile(tbl, "a")

	assert.Equal(t, 0.0, prof.MissingPercentages["a"])
	require.NotNil(t, prof.PredictionSummary)
	assert.Equal(t, models.SummaryNumeric, prof.PredictionSummary.Type)
	assert.Nil(t, prof.PredictionSummary.Mean)
}

func TestProfile_NumericSummary(t *testing.T) {
	tbl := mustRead(t, column("p", "1", "2", "3", "4", "NA", "10"))
	s := NewProfiler(0).Profile(tbl, "p").PredictionSummary
	require.NotNil(t, s)

	assert.Equal(t, models.SummaryNumeric, s.Type)
	assert.InDelta(t, 4.0, *s.Mean, 1e-12)
	assert.InDelta(t, 3.0, *s.Median, 1e-12)
	assert.InDelta(t, math.Sqrt(12.5), *s.Std, 1e-12)
	assert.Equal(t, 1.0, *s.Min)
	assert.Equal(t, 10.0, *s.Max)
	assert.InDelta(t, 2.0, *s.Q25, 1e-12)
	assert.InDelta(t, 4.0, *s.Q75, 1e-12)
	assert.Nil(t, s.UniqueValues)
}

func TestProfile_NumericSummarySingleValue(t *testing.T) {
	tbl := mustRead(t, column("p", "7"))
	s := NewProfiler(0).Profile(tbl, "p").PredictionSummary

	assert.Equal(t, 7.0, *s.Mean)
	assert.Equal(t, 7.0, *s.Q75)
	assert.Nil(t, s.Std, "std of one value is undefined")
}

func TestProfile_CategoricalSummary(t *testing.T) {
	tbl := mustRead(t, column("label", "cat", "dog", "dog", "bird", "cat", "NA"))
	s := NewProfiler(0).Profile(tbl, "label").PredictionSummary
	require.NotNil(t, s)

	assert.Equal(t, models.SummaryCategorical, s.Type)
	assert.Equal(t, 3, *s.UniqueValues)
	assert.Equal(t, "cat", *s.MostCommon)
	assert.Equal(t, []models.ValueCount{
		{Value: "cat", Count: 2},
		{Value: "dog", Count: 2},
		{Value: "bird", Count: 1},
	}, s.Distribution)
	assert.Nil(t, s.Mean)
}

func TestProfile_CategoricalTiedModes(t *testing.T) {
	tbl := mustRead(t, column("pred", "b", "a", "b", "a", "c"))
	s := NewProfiler(0).Profile(tbl, "pred").PredictionSummary
	require.NotNil(t, s)

	assert.Equal(t, "a", *s.MostCommon)
	assert.Equal(t, []models.ValueCount{
		{Value: "b", Count: 2},
		{Value: "a", Count: 2},
		{Value: "c", Count: 1},
	}, s.Distribution)
}

func TestProfile_CategoricalKeepsWhitespace(t *testing.T) {
	tbl := mustRead(t, "pred\n a\na\na\n")
	s := NewProfiler(0).Profile(tbl, "pred").PredictionSummary
	require.NotNil(t, s)

	assert.Equal(t, 2, *s.UniqueValues)
	assert.Equal(t, "a", *s.MostCommon)
	assert.Equal(t, []models.ValueCount{
		{Value: "a", Count: 2},
		{Value: " a", Count: 1},
	}, s.Distribution)
}

func TestProfile_CategoricalDistributionTopTen(t *testing.T) {
	vals := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		vals = append(vals, fmt.Sprintf("v%02d", i))
	}
	vals = append(vals, "v14")
	tbl := mustRead(t, column("cls", vals...))
	s := NewProfiler(0).Profile(tbl, "cls").PredictionSummary

	assert.Equal(t, 15, *s.UniqueValues)
	require.Len(t, s.Distribution, 10)
	assert.Equal(t, models.ValueCount{Value: "v14", Count: 2}, s.Distribution[0])
	assert.Equal(t, "v00", s.Distribution[1].Value)
}

func TestProfile_UnknownPredictionColumn(t *testing.T) {
	tbl := mustRead(t, "a\n1\n")
	assert.Nil(t, NewProfiler(0).Profile(tbl, "nope").PredictionSummary)
}

func TestDetectAnomalies_Threshold(t *testing.T) {
	tbl := mustRead(t, column("v", "1", "2", "3", "4", "5", "1000"))

	// Six points cap the sample z-score near 2.04.
	report := NewProfiler(2.0).DetectAnomalies(tbl, "")
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, []int{5}, report.Indices)
	assert.Equal(t, models.ColumnAnomalies{Count: 1, Indices: []int{5}}, report.Details["v"])

	report = NewProfiler(10.0).DetectAnomalies(tbl, "")
	assert.Equal(t, 0, report.Total)
	assert.Empty(t, report.Indices)
	assert.Empty(t, report.Details)
}

func TestDetectAnomalies_DefaultThreshold(t *testing.T) {
	vals := []string{}
	for i := 0; i < 4; i++ {
		vals = append(vals, "1", "2", "3", "4", "5")
	}
	vals = append(vals, "1000")
	tbl := mustRead(t, column("v", vals...))

	report := NewProfiler(0).DetectAnomalies(tbl, "v")
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, []int{20}, report.Indices)

	assert.Equal(t, 0, NewProfiler(10).DetectAnomalies(tbl, "v").Total)
}

func TestDetectAnomalies_RowIndicesSkipMissing(t *testing.T) {
	var b strings.Builder
	b.WriteString("v,w\n")
	for i := 0; i < 20; i++ {
		if i == 3 {
			b.WriteString(",x\n")
			continue
		}
		fmt.Fprintf(&b, "%d,x\n", i%5)
	}
	b.WriteString("500,x\n")

	report := NewProfiler(0).DetectAnomalies(mustRead(t, b.String()), "")
	assert.Equal(t, []int{20}, report.Indices)
	assert.Equal(t, []int{20}, report.Details["v"].Indices)
}

func TestDetectAnomalies_UnionAcrossColumns(t *testing.T) {
	var b strings.Builder
	b.WriteString("a,b\n")
	for i := 0; i < 30; i++ {
		a, c := i%3, i%4
		switch i {
		case 5:
			a = 900
		case 12:
			a, c = 900, 900
		case 25:
			c = 900
		}
		fmt.Fprintf(&b, "%d,%d\n", a, c)
	}

	report := NewProfiler(0).DetectAnomalies(mustRead(t, b.String()), "")
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, []int{5, 12, 25}, report.Indices)
	assert.Equal(t, []int{5, 12}, report.Details["a"].Indices)
	assert.Equal(t, []int{12, 25}, report.Details["b"].Indices)
}

func TestDetectAnomalies_ConstantAndEmptyColumns(t *testing.T) {
	tbl := mustRead(t, "k,e,s\n5,,a\n5,,b\n5,,c\n")
	report := NewProfiler(0).DetectAnomalies(tbl, "")
	assert.Equal(t, 0, report.Total)
	assert.Empty(t, report.Details)
}

func TestDetectAnomalies_Truncation(t *testing.T) {
	// 60 outliers among 2000 ones in a single column.
	var b strings.Builder
	b.WriteString("v\n")
	for i := 0; i < 2060; i++ {
		if i%34 == 0 && i/34 < 60 {
			b.WriteString("1000\n")
			continue
		}
		b.WriteString("1\n")
	}

	report := NewProfiler(0).DetectAnomalies(mustRead(t, b.String()), "")
	assert.Equal(t, 60, report.Total)
	assert.Len(t, report.Indices, 50)
	assert.Equal(t, 60, report.Details["v"].Count)
	assert.Len(t, report.Details["v"].Indices, 10)
	assert.Equal(t, 0, report.Indices[0])
	assert.Equal(t, 34, report.Indices[1])
}

func TestProfile_Deterministic(t *testing.T) {
	tbl := mustRead(t, testutil.LoanCSV)
	p := NewProfiler(0)
	assert.Equal(t, p.Profile(tbl, "prediction"), p.Profile(tbl, "prediction"))
	assert.Equal(t, p.DetectAnomalies(tbl, "prediction"), p.DetectAnomalies(tbl, "prediction"))
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, quantile(sorted, 0.25), 1e-12)
	assert.InDelta(t, 2.5, quantile(sorted, 0.5), 1e-12)
	assert.InDelta(t, 3.25, quantile(sorted, 0.75), 1e-12)
	assert.Equal(t, 4.0, quantile(sorted, 1))
	assert.True(t, math.IsNaN(quantile(nil, 0.5)))
}
