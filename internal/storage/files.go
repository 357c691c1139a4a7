package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/akulagin/mlservice/internal/apperr"
	"github.com/google/uuid"
)

// FileStore keeps uploaded payloads on disk, addressed by a generated id.
// Content is written verbatim; consumers validate it when they read.
type FileStore struct {
	basePath string
}

func NewFileStore(basePath string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("upload base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// Save streams the payload to disk and returns its new id.
func (f *FileStore) Save(r io.Reader) (string, error) {
	id := uuid.NewString()
	out, err := os.Create(filepath.Join(f.basePath, id))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return id, nil
}

func (f *FileStore) Read(id string) ([]byte, error) {
	// ids are generated uuids; refuse anything that tries to escape the dir
	if id != filepath.Base(id) || strings.Contains(id, "..") {
		return nil, fmt.Errorf("file %q: %w", id, apperr.ErrNotFound)
	}
	b, err := os.ReadFile(filepath.Join(f.basePath, id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("file %q: %w", id, apperr.ErrNotFound)
	}
	return b, err
}
