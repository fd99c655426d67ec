package ports

import "layered-remap/internal/types"

type ArchivePort interface {
	// ReadEntry returns the named entry of the archive or directory at
	// path. The boolean is false when the entry does not exist.
	ReadEntry(path string, name string) ([]byte, bool, error)
	// Walk visits every file entry in archive order.
	Walk(path string, fn func(entry types.ArchiveEntry) error) error
	Create(path string) (ArchiveWriter, error)
}

// ArchiveWriter writes a new archive. Abort discards everything written.
type ArchiveWriter interface {
	Put(entry types.ArchiveEntry) error
	Close() error
	Abort() error
}
