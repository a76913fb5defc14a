package metadatanode

import (
	"sync/atomic"

	"github.com/claudefs/claudefs/internal/domain"
	"github.com/claudefs/claudefs/pkg/cmap"
)

// OpenFlags mirrors the POSIX open(2) flag bits relevant to handle
// bookkeeping (read/write/append/truncate/create); the bit layout
// itself is opaque to this package.
type OpenFlags uint32

// FileHandle is one open-file reservation.
type FileHandle struct {
	FH       uint64
	Ino      uint64
	ClientID uint64
	Flags    OpenFlags
}

// FileHandleManager allocates opaque handle ids on open and releases
// them on close. The handle table is sharded to keep open/close/get
// off a single lock under concurrent client load.
type FileHandleManager struct {
	next    atomic.Uint64
	handles *cmap.Map[uint64, FileHandle]
}

// NewFileHandleManager creates an empty handle table.
func NewFileHandleManager() *FileHandleManager {
	return &FileHandleManager{handles: cmap.New[uint64, FileHandle]()}
}

// Open reserves and returns a new file handle id for ino.
func (m *FileHandleManager) Open(ino, clientID uint64, flags OpenFlags) uint64 {
	fh := m.next.Add(1)
	m.handles.Set(fh, FileHandle{FH: fh, Ino: ino, ClientID: clientID, Flags: flags})
	return fh
}

// Close releases fh, returning the handle that was closed.
func (m *FileHandleManager) Close(fh uint64) (FileHandle, error) {
	h, ok := m.handles.Get(fh)
	if !ok {
		return FileHandle{}, domain.ErrHandleNotFound
	}
	m.handles.Delete(fh)
	return h, nil
}

// Get looks up an open handle without closing it.
func (m *FileHandleManager) Get(fh uint64) (FileHandle, error) {
	h, ok := m.handles.Get(fh)
	if !ok {
		return FileHandle{}, domain.ErrHandleNotFound
	}
	return h, nil
}

// OpenCount returns the number of currently open handles.
func (m *FileHandleManager) OpenCount() int {
	return m.handles.Count()
}
