package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/mlexplainer/backend/internal/models"
)

// MemoryStore keeps records for the lifetime of the process.
type MemoryStore struct {
	mu            sync.RWMutex
	uploads       map[string]*models.UploadRecord
	uploadOrder   []string
	analyses      map[string]*models.AnalysisResult
	analysisOrder map[string][]string // uploadID -> analysis ids in insert order
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		uploads:       make(map[string]*models.UploadRecord),
		analyses:      make(map[string]*models.AnalysisResult),
		analysisOrder: make(map[string][]string),
	}
}

func (s *MemoryStore) PutUpload(_ context.Context, rec *models.UploadRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.uploads[rec.ID]; ok {
		return fmt.Errorf("upload %s: %w", rec.ID, ErrExists)
	}
	s.uploads[rec.ID] = rec
	s.uploadOrder = append(s.uploadOrder, rec.ID)
	return nil
}

func (s *MemoryStore) GetUpload(_ context.Context, id string) (*models.UploadRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.uploads[id]
	if !ok {
		return nil, fmt.Errorf("upload %s: %w", id, ErrNotFound)
	}
	return rec, nil
}

func (s *MemoryStore) ListUploads(_ context.Context, limit int) ([]*models.UploadRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.uploadOrder)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*models.UploadRecord, 0, n)
	for i := len(s.uploadOrder) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.uploads[s.uploadOrder[i]])
	}
	return out, nil
}

func (s *MemoryStore) PutAnalysis(_ context.Context, res *models.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.analyses[res.ID]; ok {
		return fmt.Errorf("analysis %s: %w", res.ID, ErrExists)
	}
	s.analyses[res.ID] = res
	s.analysisOrder[res.UploadID] = append(s.analysisOrder[res.UploadID], res.ID)
	return nil
}

func (s *MemoryStore) GetAnalysis(_ context.Context, id string) (*models.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.analyses[id]
	if !ok {
		return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	return res, nil
}

func (s *MemoryStore) ListAnalyses(_ context.Context, uploadID string) ([]*models.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.analysisOrder[uploadID]
	out := make([]*models.AnalysisResult, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, s.analyses[ids[i]])
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
