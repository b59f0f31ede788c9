// Package validate checks uploaded CSV files and derives their metadata.
package validate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/mlexplainer/backend/internal/table"
)

// Defaults used when a Validator is built with zero values.
const (
	DefaultMaxSize    int64 = 50 * 1024 * 1024
	DefaultSampleRows       = 5
)

// Validation failures. Every error returned by Validate wraps one of these.
var (
	ErrFileNotFound  = errors.New("file not found")
	ErrFileTooLarge  = errors.New("file size too big")
	ErrEmptyFile     = errors.New("file is empty")
	ErrNoColumns     = errors.New("file has no columns")
	ErrNoRows        = errors.New("file has no rows")
	ErrInvalidFormat = errors.New("invalid CSV format")
)

// FileSource is the read side of the raw file store.
type FileSource interface {
	Stat(ctx context.Context, key string) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Metadata describes a fully parsed upload.
type Metadata struct {
	RowCount         int
	ColumnCount      int
	ColumnNames      []string
	ColumnTypes      map[string]string
	PredictionColumn *string
	HasGroundTruth   bool
	HasTimestamp     bool
}

// Validator performs the cheap structural checks on an uploaded file.
type Validator struct {
	maxSize    int64
	sampleRows int
}

// NewValidator creates a validator. Non-positive arguments select the defaults.
func NewValidator(maxSize int64, sampleRows int) *Validator {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if sampleRows <= 0 {
		sampleRows = DefaultSampleRows
	}
	return &Validator{maxSize: maxSize, sampleRows: sampleRows}
}

// MaxSize returns the configured size limit in bytes.
func (v *Validator) MaxSize() int64 {
	return v.maxSize
}

// Validate checks existence, size and that a bounded sample of the file
// parses into at least one column and one row.
func (v *Validator) Validate(ctx context.Context, src FileSource, key string) error {
	size, err := src.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrFileNotFound
		}
		return fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	if size > v.maxSize {
		return fmt.Errorf("%w: max size is %s", ErrFileTooLarge, humanize.IBytes(uint64(v.maxSize)))
	}
	if size == 0 {
		return ErrEmptyFile
	}

	rc, err := src.Open(ctx, key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrFileNotFound
		}
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	defer rc.Close()

	sample, err := table.ReadSample(rc, v.sampleRows)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if sample.NumColumns() == 0 {
		return ErrNoColumns
	}
	if sample.NumRows() == 0 {
		return ErrNoRows
	}
	return nil
}

// LoadAndAnalyze parses the whole file and derives its metadata.
func (v *Validator) LoadAndAnalyze(ctx context.Context, src FileSource, key string) (*table.Table, *Metadata, error) {
	rc, err := src.Open(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", key, err)
	}
	defer rc.Close()

	t, err := table.Read(rc)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", key, err)
	}

	names := t.Names()
	meta := &Metadata{
		RowCount:       t.NumRows(),
		ColumnCount:    t.NumColumns(),
		ColumnNames:    names,
		ColumnTypes:    t.Types(),
		HasGroundTruth: HasGroundTruth(names),
		HasTimestamp:   HasTimestamp(names),
	}
	if pred, ok := InferPredictionColumn(names); ok {
		meta.PredictionColumn = &pred
	}
	return t, meta, nil
}

var (
	predictionCandidates = []string{"prediction", "predicted", "pred", "score", "probability", "target"}
	labelCandidates      = []string{"label", "actual", "truth", "ground_truth", "true"}
	timestampCandidates  = []string{"timestamp", "date", "time", "datetime"}
)

// InferPredictionColumn returns the first column whose lowercased name
// contains a prediction keyword, falling back to the last column.
func InferPredictionColumn(names []string) (string, bool) {
	if len(names) == 0 {
		return "", false
	}
	if i := firstMatch(names, predictionCandidates); i >= 0 {
		return names[i], true
	}
	return names[len(names)-1], true
}

// HasGroundTruth reports whether any column looks like a label column.
func HasGroundTruth(names []string) bool {
	return firstMatch(names, labelCandidates) >= 0
}

// HasTimestamp reports whether any column looks like a time column.
func HasTimestamp(names []string) bool {
	return firstMatch(names, timestampCandidates) >= 0
}

func firstMatch(names, keywords []string) int {
	for i, name := range names {
		lower := strings.ToLower(name)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return i
			}
		}
	}
	return -1
}
