package mocks

import (
	"bytes"
	"context"
	"io"
	"sync"

	federation "github.com/federatedsec/federation"
)

// FileStore keeps attachment binaries in memory.
type FileStore struct {
	mu    sync.RWMutex
	blobs map[federation.UUID][]byte
}

// NewFileStore returns an empty in-memory blob store.
func NewFileStore() *FileStore {
	return &FileStore{blobs: map[federation.UUID][]byte{}}
}

func (f *FileStore) Write(ctx context.Context, id federation.UUID, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[id] = data
	return int64(len(data)), nil
}

func (f *FileStore) Read(ctx context.Context, id federation.UUID) (io.ReadCloser, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.blobs[id]
	if !ok {
		return nil, federation.NewError(federation.NotFound, "blob not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *FileStore) Remove(ctx context.Context, id federation.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, id)
	return nil
}

// Exists reports whether a blob is stored, for cascade assertions in tests.
func (f *FileStore) Exists(id federation.UUID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.blobs[id]
	return ok
}

var _ federation.FileStore = (*FileStore)(nil)
