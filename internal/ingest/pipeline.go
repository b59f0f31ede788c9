package ingest

import (
	"fmt"
	"strings"

	"github.com/mlexplainer/backend/internal/importance"
	"github.com/mlexplainer/backend/internal/models"
	"github.com/mlexplainer/backend/internal/profile"
	"github.com/mlexplainer/backend/internal/table"
)

// Report is the outcome of running the analysis steps over one table.
type Report struct {
	Profile     *models.DataProfile
	Anomalies   *models.AnomalyReport
	Features    []models.FeatureImportance
	Insights    []string
	Explanation string
	// Skipped lists feature columns left out of the ranking and why.
	Skipped map[string]error
}

// Pipeline runs profiling, anomaly detection and feature ranking.
type Pipeline struct {
	profiler   *profile.Profiler
	calculator *importance.Calculator
}

// NewPipeline creates a pipeline from its two analysis steps.
func NewPipeline(profiler *profile.Profiler, calculator *importance.Calculator) *Pipeline {
	return &Pipeline{profiler: profiler, calculator: calculator}
}

// Run analyzes t against predictionColumn. An empty predictionColumn
// disables the prediction summary and feature ranking.
func (p *Pipeline) Run(t *table.Table, predictionColumn string) *Report {
	features, skipped := p.calculator.CalculateWithSkipped(t, predictionColumn)
	r := &Report{
		Profile:   p.profiler.Profile(t, predictionColumn),
		Anomalies: p.profiler.DetectAnomalies(t, predictionColumn),
		Features:  features,
		Skipped:   skipped,
	}
	r.Insights = importance.GenerateInsights(r.Features)
	r.Explanation = explain(r, predictionColumn, p.profiler.Threshold())
	return r
}

// explain summarizes a report in a few sentences.
func explain(r *Report, predictionColumn string, threshold float64) string {
	prof := r.Profile
	var b strings.Builder

	fmt.Fprintf(&b, "The dataset contains %d rows and %d columns (%d numeric, %d categorical).",
		prof.TotalRows, prof.TotalColumns, len(prof.NumericColumns), len(prof.CategoricalColumns))

	if s := prof.PredictionSummary; s != nil {
		switch {
		case s.Type == models.SummaryNumeric && s.Mean != nil:
			fmt.Fprintf(&b, " Predictions in '%s' average %.3f", predictionColumn, *s.Mean)
			if s.Min != nil && s.Max != nil {
				fmt.Fprintf(&b, " and range from %.3f to %.3f", *s.Min, *s.Max)
			}
			b.WriteString(".")
		case s.Type == models.SummaryCategorical && s.MostCommon != nil:
			fmt.Fprintf(&b, " Predictions in '%s' take %d distinct values; the most common is '%s'.",
				predictionColumn, *s.UniqueValues, *s.MostCommon)
		}
	}

	if n := missingColumns(prof); n > 0 {
		fmt.Fprintf(&b, " %d column(s) have missing values.", n)
	}

	if r.Anomalies.Total == 0 {
		fmt.Fprintf(&b, " No anomalous rows were found at a z-score threshold of %.1f.", threshold)
	} else {
		fmt.Fprintf(&b, " %d row(s) contain values beyond a z-score of %.1f.", r.Anomalies.Total, threshold)
	}

	for _, s := range r.Insights {
		b.WriteString(" ")
		b.WriteString(s)
	}
	return b.String()
}

func missingColumns(prof *models.DataProfile) int {
	n := 0
	for _, c := range prof.MissingValues {
		if c > 0 {
			n++
		}
	}
	return n
}
