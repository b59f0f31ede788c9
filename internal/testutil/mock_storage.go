// mock_storage.go - In-memory storage implementation for testing
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"sync"

	"github.com/mlexplainer/backend/internal/storage"
)

// ErrInjected is returned by MockStorage operations that were told to fail.
var ErrInjected = errors.New("injected storage failure")

// MockStorage implements storage.Store in memory.
type MockStorage struct {
	mu       sync.RWMutex
	fileData map[string][]byte

	// FailPut makes every Put return ErrInjected.
	FailPut bool
	// FailOpen makes every Open return ErrInjected.
	FailOpen bool
}

var _ storage.Store = (*MockStorage)(nil)

// NewMockStorage creates an empty mock storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{fileData: make(map[string][]byte)}
}

func (m *MockStorage) Put(_ context.Context, key string, r io.Reader, _ int64) error {
	if m.FailPut {
		return ErrInjected
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileData[key] = data
	return nil
}

func (m *MockStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if m.FailOpen {
		return nil, ErrInjected
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.fileData[key]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", key, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockStorage) Stat(_ context.Context, key string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.fileData[key]
	if !ok {
		return 0, fmt.Errorf("stat %s: %w", key, fs.ErrNotExist)
	}
	return int64(len(data)), nil
}

func (m *MockStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.fileData, key)
	return nil
}

func (m *MockStorage) Location(key string) string {
	return "mem://" + key
}

// Keys returns the stored keys in sorted order.
func (m *MockStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.fileData))
	for k := range m.fileData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is stored.
func (m *MockStorage) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.fileData[key]
	return ok
}
