package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore хранит снимок в файле <dir>/<namespace>.json.
// Запись атомарная: временный файл в том же каталоге, fsync, rename.
type FileStore struct {
	dir  string
	path string
}

var _ Adapter = (*FileStore)(nil)

// NewFileStore создает хранилище, каталог создается при необходимости.
func NewFileStore(dir, namespace string) (*FileStore, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store dir %s: %w", dir, err)
	}
	return &FileStore{
		dir:  dir,
		path: filepath.Join(dir, namespace+".json"),
	}, nil
}

// Path возвращает путь к файлу снимка.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Save(_ context.Context, snapshot []byte) error {
	tmp, err := os.CreateTemp(f.dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(snapshot); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func (f *FileStore) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", f.path, err)
	}
	return data, nil
}
