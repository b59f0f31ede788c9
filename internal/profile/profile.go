// Package profile computes the statistical shape of a table and flags
// numeric outliers.
package profile

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mlexplainer/backend/internal/models"
	"github.com/mlexplainer/backend/internal/table"
)

// DefaultAnomalyThreshold is the absolute z-score above which a value is flagged.
const DefaultAnomalyThreshold = 3.0

const (
	maxReportedIndices = 50
	maxColumnIndices   = 10
	maxDistribution    = 10
)

// Profiler computes data profiles and anomaly reports.
type Profiler struct {
	threshold float64
}

// NewProfiler creates a profiler flagging values whose absolute z-score
// exceeds threshold. A non-positive threshold selects the default.
func NewProfiler(threshold float64) *Profiler {
	if threshold <= 0 {
		threshold = DefaultAnomalyThreshold
	}
	return &Profiler{threshold: threshold}
}

// Threshold returns the configured z-score threshold.
func (p *Profiler) Threshold() float64 {
	return p.threshold
}

// Profile reports missing values, column kinds and, when predictionColumn
// names an existing column, a summary of that column.
func (p *Profiler) Profile(t *table.Table, predictionColumn string) *models.DataProfile {
	prof := &models.DataProfile{
		TotalRows:          t.NumRows(),
		TotalColumns:       t.NumColumns(),
		MissingValues:      make(map[string]int, t.NumColumns()),
		MissingPercentages: make(map[string]float64, t.NumColumns()),
		NumericColumns:     []string{},
		CategoricalColumns: []string{},
	}

	for _, col := range t.Columns {
		missing := col.MissingCount()
		prof.MissingValues[col.Name] = missing
		pct := 0.0
		if t.NumRows() > 0 {
			pct = round(float64(missing)/float64(t.NumRows())*100, 2)
		}
		prof.MissingPercentages[col.Name] = pct

		if col.Type.IsNumeric() {
			prof.NumericColumns = append(prof.NumericColumns, col.Name)
		} else {
			prof.CategoricalColumns = append(prof.CategoricalColumns, col.Name)
		}
	}

	if predictionColumn == "" {
		return prof
	}
	col, ok := t.Column(predictionColumn)
	if !ok {
		return prof
	}
	if col.Type.IsNumeric() {
		prof.PredictionSummary = numericSummary(col)
	} else {
		prof.PredictionSummary = categoricalSummary(col)
	}
	return prof
}

func numericSummary(col *table.Column) *models.PredictionSummary {
	vals, _ := col.Present()
	s := &models.PredictionSummary{Type: models.SummaryNumeric}
	if len(vals) == 0 {
		return s
	}

	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	s.Mean = finite(stat.Mean(vals, nil))
	s.Median = finite(quantile(sorted, 0.5))
	if len(vals) > 1 {
		s.Std = finite(stat.StdDev(vals, nil))
	}
	s.Min = finite(floats.Min(vals))
	s.Max = finite(floats.Max(vals))
	s.Q25 = finite(quantile(sorted, 0.25))
	s.Q75 = finite(quantile(sorted, 0.75))
	return s
}

func categoricalSummary(col *table.Column) *models.PredictionSummary {
	counts := make(map[string]int)
	var order []string
	for i, raw := range col.Raw {
		if col.Missing[i] {
			continue
		}
		if _, seen := counts[raw]; !seen {
			order = append(order, raw)
		}
		counts[raw]++
	}

	unique := len(order)
	s := &models.PredictionSummary{
		Type:         models.SummaryCategorical,
		UniqueValues: &unique,
		Distribution: []models.ValueCount{},
	}
	if unique == 0 {
		return s
	}

	dist := make([]models.ValueCount, len(order))
	for i, v := range order {
		dist[i] = models.ValueCount{Value: v, Count: counts[v]}
	}
	sort.SliceStable(dist, func(i, j int) bool {
		return dist[i].Count > dist[j].Count
	})

	// Among tied modes the smallest value wins.
	mode := dist[0].Value
	for _, vc := range dist[1:] {
		if vc.Count < dist[0].Count {
			break
		}
		if vc.Value < mode {
			mode = vc.Value
		}
	}
	s.MostCommon = &mode
	if len(dist) > maxDistribution {
		dist = dist[:maxDistribution]
	}
	s.Distribution = dist
	return s
}

// DetectAnomalies flags numeric cells whose absolute z-score, computed
// with the sample standard deviation of the column's present values,
// exceeds the threshold. Indices are row positions in the table.
func (p *Profiler) DetectAnomalies(t *table.Table, predictionColumn string) *models.AnomalyReport {
	report := &models.AnomalyReport{
		Indices: []int{},
		Details: map[string]models.ColumnAnomalies{},
	}

	union := make(map[int]struct{})
	for _, col := range t.Columns {
		if !col.Type.IsNumeric() {
			continue
		}
		flagged := p.columnAnomalies(col)
		if len(flagged) == 0 {
			continue
		}

		detail := flagged
		if len(detail) > maxColumnIndices {
			detail = detail[:maxColumnIndices]
		}
		report.Details[col.Name] = models.ColumnAnomalies{
			Count:   len(flagged),
			Indices: append([]int(nil), detail...),
		}
		for _, row := range flagged {
			union[row] = struct{}{}
		}
	}

	all := make([]int, 0, len(union))
	for row := range union {
		all = append(all, row)
	}
	sort.Ints(all)

	report.Total = len(all)
	if len(all) > maxReportedIndices {
		all = all[:maxReportedIndices]
	}
	report.Indices = all
	return report
}

// columnAnomalies returns the ascending row indices flagged in col.
func (p *Profiler) columnAnomalies(col *table.Column) []int {
	vals, rows := col.Present()
	if len(vals) < 2 {
		return nil
	}

	mean, std := stat.MeanStdDev(vals, nil)
	if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return nil
	}

	var flagged []int
	for i, v := range vals {
		z := math.Abs((v - mean) / std)
		if z > p.threshold {
			flagged = append(flagged, rows[i])
		}
	}
	return flagged
}

// quantile interpolates linearly between the closest ranks of sorted,
// matching the default percentile definition of most dataframe tools.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * q
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

func round(x float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(x*pow) / pow
}

func finite(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}
