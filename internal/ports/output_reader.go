package ports

import (
	"layered-remap/internal/mappings"
	"layered-remap/internal/types"
)

type OutputReaderPort interface {
	ReadResolutionReport(path string) (types.ResolutionReport, error)
	// ReadTable accepts a tiny file or a jar carrying mappings/mappings.tiny.
	ReadTable(path string) (*mappings.Table, error)
}
