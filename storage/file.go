package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aouyang1/go-riverforecast/metrics"
)

// FileDispatcher stores each key as a file below a root directory
type FileDispatcher struct {
	root string
}

// NewFileDispatcher stores every key as a file below root
func NewFileDispatcher(root string) *FileDispatcher {
	return &FileDispatcher{root: root}
}

func (f *FileDispatcher) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q, %w", key, ErrInvalidKey)
	}
	return filepath.Join(f.root, clean), nil
}

// Upload writes the data to a temporary file and renames it into place
func (f *FileDispatcher) Upload(ctx context.Context, key string, data []byte) (err error) {
	defer func() {
		metrics.StorageOpsTotal.WithLabelValues("file", "upload", metrics.Status(err)).Inc()
	}()

	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("unable to create directory for %s, %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("unable to create temporary file for %s, %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write %s, %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to write %s, %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("unable to write %s, %w", key, err)
	}
	return nil
}

// Download reads the file of key. Missing files return ErrNotFound.
func (f *FileDispatcher) Download(ctx context.Context, key string) (data []byte, err error) {
	defer func() {
		metrics.StorageOpsTotal.WithLabelValues("file", "download", metrics.Status(err)).Inc()
	}()

	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err = os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s, %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read %s, %w", key, err)
	}
	return data, nil
}
