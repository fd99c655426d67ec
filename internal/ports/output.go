package ports

import (
	"layered-remap/internal/mappings"
	"layered-remap/internal/types"
)

type OutputPort interface {
	WriteTable(table *mappings.Table) error
	WriteMappingJar(table *mappings.Table, coordinateVersion string) error
	WriteResolutionReport(report types.ResolutionReport) error
}
