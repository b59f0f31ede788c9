package models

import "time"

// AnalysisStatusComplete is the only status an analysis record is stored with.
const AnalysisStatusComplete = "complete"

// FeatureImportance ranks a single feature column.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
	Rank       int     `json:"rank"`
}

// ValueCount is one entry of a categorical value distribution.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Prediction summary kinds.
const (
	SummaryNumeric     = "numeric"
	SummaryCategorical = "categorical"
)

// PredictionSummary describes the distribution of the prediction column.
// Numeric fields are nil when the statistic is undefined (for example the
// standard deviation of a single value).
type PredictionSummary struct {
	Type string `json:"type"`

	Mean   *float64 `json:"mean,omitempty"`
	Median *float64 `json:"median,omitempty"`
	Std    *float64 `json:"std,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Q25    *float64 `json:"q25,omitempty"`
	Q75    *float64 `json:"q75,omitempty"`

	UniqueValues *int         `json:"unique_values,omitempty"`
	MostCommon   *string      `json:"most_common,omitempty"`
	Distribution []ValueCount `json:"distribution,omitempty"`
}

// DataProfile is the per-column shape of an uploaded table.
type DataProfile struct {
	TotalRows          int                `json:"total_rows"`
	TotalColumns       int                `json:"total_columns"`
	MissingValues      map[string]int     `json:"missing_values"`
	MissingPercentages map[string]float64 `json:"missing_percentages"`
	NumericColumns     []string           `json:"numeric_columns"`
	CategoricalColumns []string           `json:"categorical_columns"`
	PredictionSummary  *PredictionSummary `json:"prediction_summary,omitempty"`
}

// ColumnAnomalies is the anomaly detail for one numeric column.
type ColumnAnomalies struct {
	Count   int   `json:"count"`
	Indices []int `json:"indices"`
}

// AnomalyReport is the result of z-score outlier detection.
type AnomalyReport struct {
	Total   int                        `json:"total_anomalies"`
	Indices []int                      `json:"anomaly_indices"`
	Details map[string]ColumnAnomalies `json:"anomaly_details"`
}

// AnalysisResult is a stored, immutable statistical report for one upload.
type AnalysisResult struct {
	ID                string                     `json:"analysis_id"`
	UploadID          string                     `json:"upload_id"`
	Status            string                     `json:"status"`
	AnalyzedAt        time.Time                  `json:"analysis_timestamp"`
	Profile           *DataProfile               `json:"profile"`
	FeatureImportance []FeatureImportance        `json:"feature_importance"`
	AnomaliesDetected int                        `json:"anomalies_detected"`
	AnomalyIndices    []int                      `json:"anomaly_indices"`
	AnomalyDetails    map[string]ColumnAnomalies `json:"anomaly_details,omitempty"`
	Explanation       *string                    `json:"explanation,omitempty"`
	Insights          []string                   `json:"insights"`
	ConfidenceScore   *float64                   `json:"confidence_score,omitempty"`
}
