// Package catalog records uploads and the analyses derived from them.
package catalog

import (
	"context"
	"errors"

	"github.com/mlexplainer/backend/internal/models"
)

var (
	// ErrNotFound is returned when a record id is unknown.
	ErrNotFound = errors.New("record not found")
	// ErrExists is returned when a record with the same id was already stored.
	ErrExists = errors.New("record already exists")
)

// Store holds upload and analysis records. Records are write-once; a
// stored record must not be mutated by the caller afterwards.
type Store interface {
	PutUpload(ctx context.Context, rec *models.UploadRecord) error
	GetUpload(ctx context.Context, id string) (*models.UploadRecord, error)
	// ListUploads returns up to limit uploads, newest first. A non-positive
	// limit returns all of them.
	ListUploads(ctx context.Context, limit int) ([]*models.UploadRecord, error)

	PutAnalysis(ctx context.Context, res *models.AnalysisResult) error
	GetAnalysis(ctx context.Context, id string) (*models.AnalysisResult, error)
	// ListAnalyses returns the analyses of one upload, newest first.
	ListAnalyses(ctx context.Context, uploadID string) ([]*models.AnalysisResult, error)

	Close() error
}
