// Package models contains domain types for the ML Results Explainer.
package models

import "time"

// UploadStatus represents the processing status of an uploaded file.
type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusComplete   UploadStatus = "complete"
	UploadStatusFailed     UploadStatus = "failed"
)

// UploadRecord is the catalog entry for a validated upload.
// Records are written once and never mutated afterwards.
type UploadRecord struct {
	ID               string            `json:"upload_id"`
	Filename         string            `json:"filename"`
	StorageKey       string            `json:"storage_key"`
	Status           UploadStatus      `json:"status"`
	RowCount         int               `json:"row_count"`
	ColumnCount      int               `json:"column_count"`
	ColumnNames      []string          `json:"column_names"`
	ColumnTypes      map[string]string `json:"column_types"`
	PredictionColumn *string           `json:"prediction_column"`
	HasGroundTruth   bool              `json:"has_ground_truth"`
	HasTimestamp     bool              `json:"has_timestamp"`
	UploadedAt       time.Time         `json:"upload_timestamp"`
}

// Detail returns the public view of the record.
func (r *UploadRecord) Detail() *UploadDetail {
	names := make([]string, len(r.ColumnNames))
	copy(names, r.ColumnNames)
	types := make(map[string]string, len(r.ColumnTypes))
	for k, v := range r.ColumnTypes {
		types[k] = v
	}
	return &UploadDetail{
		ID:               r.ID,
		Filename:         r.Filename,
		Status:           r.Status,
		RowCount:         r.RowCount,
		ColumnCount:      r.ColumnCount,
		HasGroundTruth:   r.HasGroundTruth,
		HasTimestamp:     r.HasTimestamp,
		ColumnNames:      names,
		ColumnTypes:      types,
		PredictionColumn: r.PredictionColumn,
		UploadedAt:       r.UploadedAt,
	}
}

// UploadDetail is returned when a client looks up an upload.
type UploadDetail struct {
	ID               string            `json:"upload_id"`
	Filename         string            `json:"filename"`
	Status           UploadStatus      `json:"status"`
	RowCount         int               `json:"row_count"`
	ColumnCount      int               `json:"column_count"`
	HasGroundTruth   bool              `json:"has_ground_truth"`
	HasTimestamp     bool              `json:"has_timestamp"`
	ColumnNames      []string          `json:"column_names"`
	ColumnTypes      map[string]string `json:"column_types"`
	PredictionColumn *string           `json:"prediction_column"`
	UploadedAt       time.Time         `json:"upload_timestamp"`
}

// UploadResponse is the outcome of a single upload attempt.
type UploadResponse struct {
	ID          string       `json:"upload_id"`
	Filename    string       `json:"filename"`
	Status      UploadStatus `json:"status"`
	RowCount    *int         `json:"row_count,omitempty"`
	ColumnCount *int         `json:"column_count,omitempty"`
	UploadedAt  time.Time    `json:"upload_timestamp"`
	Message     string       `json:"message"`
}

// Failed reports whether the upload was rejected.
func (r *UploadResponse) Failed() bool {
	return r.Status == UploadStatusFailed
}
