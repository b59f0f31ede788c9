// local_test.go - Tests for the filesystem store
package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func createTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestNewLocalStore(t *testing.T) {
	t.Run("creates upload directory", func(t *testing.T) {
		uploadDir := filepath.Join(t.TempDir(), "uploads", "nested")

		store, err := NewLocalStore(uploadDir)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		if _, err := os.Stat(uploadDir); os.IsNotExist(err) {
			t.Error("Expected upload directory to be created")
		}
		if store.uploadDir != uploadDir {
			t.Errorf("Expected uploadDir %s, got %s", uploadDir, store.uploadDir)
		}
	})
}

func TestLocalStore_PutOpen(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	content := "a,b\n1,2\n"

	if err := store.Put(ctx, "abc_data.csv", strings.NewReader(content), int64(len(content))); err != nil {
		t.Fatalf("Failed to put file: %v", err)
	}

	size, err := store.Stat(ctx, "abc_data.csv")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if size != int64(len(content)) {
		t.Errorf("Expected size %d, got %d", len(content), size)
	}

	rc, err := store.Open(ctx, "abc_data.csv")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != content {
		t.Errorf("Expected content %q, got %q", content, string(data))
	}

	if loc := store.Location("abc_data.csv"); loc != filepath.Join(store.uploadDir, "abc_data.csv") {
		t.Errorf("Unexpected location %s", loc)
	}
}

func TestLocalStore_Missing(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	if _, err := store.Stat(ctx, "nope.csv"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected fs.ErrNotExist from Stat, got %v", err)
	}
	if _, err := store.Open(ctx, "nope.csv"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected fs.ErrNotExist from Open, got %v", err)
	}
	if err := store.Delete(ctx, "nope.csv"); err != nil {
		t.Errorf("Deleting a missing file should succeed, got %v", err)
	}
}

func TestLocalStore_Delete(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "x.csv", strings.NewReader("a\n1\n"), 4); err != nil {
		t.Fatalf("Failed to put file: %v", err)
	}
	if err := store.Delete(ctx, "x.csv"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Stat(ctx, "x.csv"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected file to be gone, got %v", err)
	}
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "..", "../escape.csv", `a\b.csv`, "dir/file.csv"} {
		if err := store.Put(ctx, key, strings.NewReader("x"), 1); err == nil {
			t.Errorf("Expected error for key %q", key)
		}
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"plain", "data.csv", "id1_data.csv"},
		{"unix path", "/tmp/x/data.csv", "id1_data.csv"},
		{"windows path", `C:\Users\me\data.csv`, "id1_data.csv"},
		{"empty", "", "id1_upload.csv"},
		{"dot dot", "..", "id1_.."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key("id1", tt.filename); got != tt.want {
				t.Errorf("Key(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
