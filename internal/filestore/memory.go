package filestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory holds uploaded files until they are imported. It is safe for
// concurrent use.
type Memory struct {
	mu    sync.RWMutex
	files map[string]File
}

// NewMemory creates an empty in-memory source.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]File)}
}

// Put stores a copy of file and returns its mem:// URI.
func (m *Memory) Put(file File) string {
	id := uuid.NewString()
	file.Data = append([]byte(nil), file.Data...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[id] = file
	return "mem://" + id
}

// Delete drops a stored file. Unknown IDs are ignored.
func (m *Memory) Delete(uri string) {
	_, id := SplitURI(uri)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, id)
}

// Fetch implements Source.
func (m *Memory) Fetch(_ context.Context, id string) (File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[id]
	if !ok {
		return File{}, fmt.Errorf("%w: mem://%s", ErrNotFound, id)
	}
	return file, nil
}
