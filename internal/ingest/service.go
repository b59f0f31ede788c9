// Package ingest orchestrates uploads: storing, validating, registering
// and analyzing CSV files.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"github.com/mlexplainer/backend/internal/catalog"
	"github.com/mlexplainer/backend/internal/logging"
	"github.com/mlexplainer/backend/internal/models"
	"github.com/mlexplainer/backend/internal/storage"
	"github.com/mlexplainer/backend/internal/table"
	"github.com/mlexplainer/backend/internal/validate"
)

// PlaceholderConfidence is attached to every analysis until a real
// confidence model exists.
const PlaceholderConfidence = 0.85

// Upload response messages.
const (
	MsgUploadOK         = "Upload successful. Ready for analysis."
	msgValidationFailed = "Validation failed: "
	msgProcessingFailed = "Processing failed: "
)

var (
	// ErrUploadNotFound is returned for unknown upload ids.
	ErrUploadNotFound = errors.New("upload not found")
	// ErrAnalysisNotFound is returned for unknown analysis ids.
	ErrAnalysisNotFound = errors.New("analysis not found")
)

// Service handles upload processing and analysis.
type Service struct {
	files     storage.Store
	catalog   catalog.Store
	validator *validate.Validator
	pipeline  *Pipeline
	log       *log.Logger

	now   func() time.Time
	newID func() string
}

// SetLogger replaces the service logger.
func (s *Service) SetLogger(l *log.Logger) {
	s.log = l
}

// NewService creates a new ingestion service.
func NewService(files storage.Store, cat catalog.Store, validator *validate.Validator, pipeline *Pipeline) *Service {
	return &Service{
		files:     files,
		catalog:   cat,
		validator: validator,
		pipeline:  pipeline,
		log:       logging.New("Ingest"),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.New().String() },
	}
}

// ProcessUpload stores content, validates it and registers the upload.
// Validation and parsing problems produce a failed response; an error is
// returned only when the raw bytes could not be stored.
func (s *Service) ProcessUpload(ctx context.Context, filename string, content []byte) (*models.UploadResponse, error) {
	id := s.newID()
	key := storage.Key(id, filename)

	if err := s.files.Put(ctx, key, bytes.NewReader(content), int64(len(content))); err != nil {
		return nil, fmt.Errorf("storing upload %s: %w", id, err)
	}
	s.log.Infof("[Upload %s] Stored %s (%d bytes) at %s", short(id), filename, len(content), s.files.Location(key))

	if err := s.validator.Validate(ctx, s.files, key); err != nil {
		s.log.Warnf("[Upload %s] Validation failed: %v", short(id), err)
		s.discard(ctx, id, key)
		return s.failed(id, filename, msgValidationFailed+err.Error()), nil
	}

	rec, err := s.register(ctx, id, filename, key)
	if err != nil {
		s.log.Errorf("[Upload %s] Processing failed: %v", short(id), err)
		s.discard(ctx, id, key)
		return s.failed(id, filename, msgProcessingFailed+err.Error()), nil
	}

	s.log.Infof("[Upload %s] Registered: %d rows, %d columns", short(id), rec.RowCount, rec.ColumnCount)
	rows, cols := rec.RowCount, rec.ColumnCount
	return &models.UploadResponse{
		ID:          id,
		Filename:    filename,
		Status:      models.UploadStatusComplete,
		RowCount:    &rows,
		ColumnCount: &cols,
		UploadedAt:  rec.UploadedAt,
		Message:     MsgUploadOK,
	}, nil
}

// register parses the stored file and writes its catalog record.
func (s *Service) register(ctx context.Context, id, filename, key string) (rec *models.UploadRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("unexpected error: %v", r)
		}
	}()

	_, meta, err := s.validator.LoadAndAnalyze(ctx, s.files, key)
	if err != nil {
		return nil, err
	}

	rec = &models.UploadRecord{
		ID:               id,
		Filename:         filename,
		StorageKey:       key,
		Status:           models.UploadStatusComplete,
		RowCount:         meta.RowCount,
		ColumnCount:      meta.ColumnCount,
		ColumnNames:      meta.ColumnNames,
		ColumnTypes:      meta.ColumnTypes,
		PredictionColumn: meta.PredictionColumn,
		HasGroundTruth:   meta.HasGroundTruth,
		HasTimestamp:     meta.HasTimestamp,
		UploadedAt:       s.now(),
	}
	if err := s.catalog.PutUpload(ctx, rec); err != nil {
		return nil, fmt.Errorf("registering upload: %w", err)
	}
	return rec, nil
}

func (s *Service) discard(ctx context.Context, id, key string) {
	if err := s.files.Delete(ctx, key); err != nil {
		s.log.Errorf("[Upload %s] Failed to delete %s: %v", short(id), key, err)
	}
}

func (s *Service) failed(id, filename, msg string) *models.UploadResponse {
	return &models.UploadResponse{
		ID:         id,
		Filename:   filename,
		Status:     models.UploadStatusFailed,
		UploadedAt: s.now(),
		Message:    msg,
	}
}

// GetUploadDetail returns the public view of an upload.
func (s *Service) GetUploadDetail(ctx context.Context, id string) (*models.UploadDetail, error) {
	rec, err := s.getUpload(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Detail(), nil
}

// ListUploads returns up to limit uploads, newest first.
func (s *Service) ListUploads(ctx context.Context, limit int) ([]*models.UploadDetail, error) {
	recs, err := s.catalog.ListUploads(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}
	out := make([]*models.UploadDetail, len(recs))
	for i, rec := range recs {
		out[i] = rec.Detail()
	}
	return out, nil
}

// AnalyzeUpload re-reads a registered upload, analyzes it and stores a new
// analysis record. Every call produces a record with a fresh id.
func (s *Service) AnalyzeUpload(ctx context.Context, id string) (*models.AnalysisResult, error) {
	rec, err := s.getUpload(ctx, id)
	if err != nil {
		return nil, err
	}

	report, err := s.analyze(ctx, rec)
	if err != nil {
		s.log.Errorf("[Upload %s] Analysis failed: %v", short(id), err)
		return nil, fmt.Errorf("analyzing upload %s: %w", id, err)
	}
	for col, reason := range report.Skipped {
		s.log.Debugf("[Upload %s] Feature %q skipped: %v", short(id), col, reason)
	}

	explanation := report.Explanation
	confidence := PlaceholderConfidence
	result := &models.AnalysisResult{
		ID:                s.newID(),
		UploadID:          id,
		Status:            models.AnalysisStatusComplete,
		AnalyzedAt:        s.now(),
		Profile:           report.Profile,
		FeatureImportance: report.Features,
		AnomaliesDetected: report.Anomalies.Total,
		AnomalyIndices:    report.Anomalies.Indices,
		AnomalyDetails:    report.Anomalies.Details,
		Explanation:       &explanation,
		Insights:          report.Insights,
		ConfidenceScore:   &confidence,
	}
	if err := s.catalog.PutAnalysis(ctx, result); err != nil {
		return nil, fmt.Errorf("registering analysis: %w", err)
	}

	s.log.Infof("[Upload %s] Analysis %s complete: %d features, %d anomalies",
		short(id), short(result.ID), len(result.FeatureImportance), result.AnomaliesDetected)
	return result, nil
}

func (s *Service) analyze(ctx context.Context, rec *models.UploadRecord) (report *Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			report, err = nil, fmt.Errorf("unexpected error: %v", r)
		}
	}()

	rc, err := s.files.Open(ctx, rec.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("opening stored file: %w", err)
	}
	defer rc.Close()

	t, err := table.Read(rc)
	if err != nil {
		return nil, fmt.Errorf("parsing stored file: %w", err)
	}

	pred := ""
	if rec.PredictionColumn != nil {
		pred = *rec.PredictionColumn
	}
	return s.pipeline.Run(t, pred), nil
}

// GetAnalysis returns a stored analysis.
func (s *Service) GetAnalysis(ctx context.Context, id string) (*models.AnalysisResult, error) {
	res, err := s.catalog.GetAnalysis(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, fmt.Errorf("analysis %s: %w", id, ErrAnalysisNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading analysis %s: %w", id, err)
	}
	return res, nil
}

// ListAnalyses returns the analyses of an upload, newest first.
func (s *Service) ListAnalyses(ctx context.Context, uploadID string) ([]*models.AnalysisResult, error) {
	if _, err := s.getUpload(ctx, uploadID); err != nil {
		return nil, err
	}
	res, err := s.catalog.ListAnalyses(ctx, uploadID)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	return res, nil
}

// MaxUploadSize returns the size limit enforced by validation.
func (s *Service) MaxUploadSize() int64 {
	return s.validator.MaxSize()
}

func (s *Service) getUpload(ctx context.Context, id string) (*models.UploadRecord, error) {
	rec, err := s.catalog.GetUpload(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, fmt.Errorf("upload %s: %w", id, ErrUploadNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading upload %s: %w", id, err)
	}
	return rec, nil
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
