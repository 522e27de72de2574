// Package disk implements the backing-store side of the buffer pool
// subsystem: a flat-file page manager and a single-worker scheduler that
// serializes requests onto it.
package disk

import (
	"fmt"
	"os"
	"sync"
)

// PageSize is the fixed size, in bytes, of every page moved to or from the
// backing store.
const PageSize = 4096

// Manager persists fixed-size pages in a single flat file, addressed by
// pageID*PageSize.
type Manager struct {
	mu   sync.Mutex
	file *os.File
}

// NewManager opens (creating if necessary) the backing file at path.
func NewManager(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}
	return &Manager{file: f}, nil
}

// WritePage persists exactly PageSize bytes of data as pageID.
func (m *Manager) WritePage(pageID int64, data []byte) error {
	if len(data) != PageSize {
		return fmt.Errorf("disk: write page %d: buffer must be %d bytes, got %d", pageID, PageSize, len(data))
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	offset := pageID * PageSize
	if _, err := m.file.Seek(offset, 0); err != nil {
		return fmt.Errorf("disk: write page %d: seek: %w", pageID, err)
	}
	n, err := m.file.Write(data)
	if err != nil {
		return fmt.Errorf("disk: write page %d: %w", pageID, err)
	}
	if n != PageSize {
		return fmt.Errorf("disk: write page %d: wrote %d bytes, want %d", pageID, n, PageSize)
	}
	return m.file.Sync()
}

// ReadPage fills data (which must be exactly PageSize bytes) with the
// contents of pageID. Pages never written return zeroed bytes.
func (m *Manager) ReadPage(pageID int64, data []byte) error {
	if len(data) != PageSize {
		return fmt.Errorf("disk: read page %d: buffer must be %d bytes, got %d", pageID, PageSize, len(data))
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	offset := pageID * PageSize
	fi, err := m.file.Stat()
	if err != nil {
		return fmt.Errorf("disk: read page %d: stat: %w", pageID, err)
	}
	if offset >= fi.Size() {
		for i := range data {
			data[i] = 0
		}
		return nil
	}
	if _, err := m.file.Seek(offset, 0); err != nil {
		return fmt.Errorf("disk: read page %d: seek: %w", pageID, err)
	}
	n, err := m.file.Read(data[:PageSize])
	if err != nil {
		return fmt.Errorf("disk: read page %d: %w", pageID, err)
	}
	for i := n; i < PageSize; i++ {
		data[i] = 0
	}
	return nil
}

// DeallocatePage marks pageID free on the backing store. Page IDs are never
// reused by the allocator above this layer, so this is a bookkeeping no-op
// kept only to satisfy the contract.
func (m *Manager) DeallocatePage(pageID int64) error {
	return nil
}

// Close releases the underlying file handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Close()
}
