// Package fs stores attachment binaries as single files under the configured
// storage path. The file name is the attachment UUID with no extension; that
// equality is part of the persisted-state contract.
package fs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	federation "github.com/federatedsec/federation"
)

// Directory/File permission.
const permission os.FileMode = 0o750

// FileStore is the filesystem attachment store.
type FileStore struct {
	basePath string
}

// NewFileStore creates the storage directory if needed and returns the store.
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, permission); err != nil {
		return nil, err
	}
	return &FileStore{basePath: basePath}, nil
}

func (f *FileStore) path(id federation.UUID) string {
	return filepath.Join(f.basePath, id.String())
}

// Write streams r into the file named by id and returns the byte count.
// A partially written file is removed on failure.
func (f *FileStore) Write(ctx context.Context, id federation.UUID, r io.Reader) (int64, error) {
	fp := f.path(id)
	out, err := os.OpenFile(fp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, permission)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(fp)
		return 0, err
	}
	return n, nil
}

// Read opens the file named by id.
func (f *FileStore) Read(ctx context.Context, id federation.UUID) (io.ReadCloser, error) {
	return os.Open(f.path(id))
}

// Remove unlinks the file named by id. A missing file is a warning, not an
// error.
func (f *FileStore) Remove(ctx context.Context, id federation.UUID) error {
	err := os.Remove(f.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("attachment file already absent", "uuid", id.String())
			return nil
		}
		return err
	}
	return nil
}

var _ federation.FileStore = (*FileStore)(nil)
