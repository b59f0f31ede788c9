// Package importance ranks feature columns by their correlation with the
// prediction column.
package importance

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/mlexplainer/backend/internal/models"
	"github.com/mlexplainer/backend/internal/table"
)

// DefaultMaxFeatures is the number of ranked features kept by default.
const DefaultMaxFeatures = 10

const insightFollowers = 3

// Reasons a feature column is left out of the ranking.
var (
	ErrTooFewPairs   = errors.New("fewer than two paired values")
	ErrZeroVariance  = errors.New("zero variance")
	ErrUndefinedCorr = errors.New("correlation undefined")
)

// Calculator computes correlation-based feature importance.
type Calculator struct {
	maxFeatures int
}

// NewCalculator creates a calculator keeping at most maxFeatures entries.
// A non-positive value selects the default.
func NewCalculator(maxFeatures int) *Calculator {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &Calculator{maxFeatures: maxFeatures}
}

// Calculate scores every numeric column other than predictionColumn by the
// absolute Pearson correlation with it. Columns whose correlation cannot be
// computed are skipped. The result is sorted by descending score, ranked
// from 1 and truncated to the configured maximum.
func (c *Calculator) Calculate(t *table.Table, predictionColumn string) []models.FeatureImportance {
	result, _ := c.CalculateWithSkipped(t, predictionColumn)
	return result
}

// CalculateWithSkipped is Calculate that also reports why each excluded
// feature column was skipped.
func (c *Calculator) CalculateWithSkipped(t *table.Table, predictionColumn string) ([]models.FeatureImportance, map[string]error) {
	out := []models.FeatureImportance{}
	skipped := map[string]error{}

	target, ok := t.Column(predictionColumn)
	if !ok || !target.Type.IsNumeric() {
		return out, skipped
	}

	for _, col := range t.Columns {
		if col.Name == predictionColumn || !col.Type.IsNumeric() {
			continue
		}
		r, err := correlation(col, target)
		if err != nil {
			skipped[col.Name] = err
			continue
		}
		out = append(out, models.FeatureImportance{
			Feature:    col.Name,
			Importance: round4(math.Abs(r)),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	if len(out) > c.maxFeatures {
		out = out[:c.maxFeatures]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, skipped
}

// correlation computes Pearson r over rows where both columns are present.
func correlation(x, y *table.Column) (float64, error) {
	n := x.Len()
	if y.Len() < n {
		n = y.Len()
	}
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if x.Missing[i] || y.Missing[i] {
			continue
		}
		xs = append(xs, x.Numbers[i])
		ys = append(ys, y.Numbers[i])
	}
	if len(xs) < 2 {
		return 0, ErrTooFewPairs
	}
	if constant(xs) || constant(ys) {
		return 0, ErrZeroVariance
	}

	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, fmt.Errorf("%w for %s", ErrUndefinedCorr, x.Name)
	}
	// Rounding can push |r| marginally past 1.
	return math.Max(-1, math.Min(1, r)), nil
}

func constant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

// GenerateInsights turns ranked features into human-readable sentences.
func GenerateInsights(features []models.FeatureImportance) []string {
	if len(features) == 0 {
		return []string{"No significant features detected in the data."}
	}

	top := features[0]
	insights := []string{
		fmt.Sprintf("The most influential feature is '%s' with an importance score of %.3f.", top.Feature, top.Importance),
	}

	if len(features) > 1 {
		end := 1 + insightFollowers
		if end > len(features) {
			end = len(features)
		}
		names := make([]string, 0, end-1)
		for _, f := range features[1:end] {
			names = append(names, f.Feature)
		}
		insights = append(insights, fmt.Sprintf("Other important features include: %s.", strings.Join(names, ", ")))
	}
	return insights
}
