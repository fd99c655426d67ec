package ports

import (
	"context"

	"layered-remap/internal/mappings"
	"layered-remap/internal/types"
)

// TableCachePort stores unified tables keyed by their version string.
type TableCachePort interface {
	Load(ctx context.Context, version string) (*mappings.Table, types.ResolutionReport, bool, error)
	Store(ctx context.Context, table *mappings.Table, report types.ResolutionReport) error
	// Lock holds the exclusive right to build version until release is
	// called.
	Lock(ctx context.Context, version string) (func(), error)
	List(ctx context.Context) ([]types.CachedTableInfo, error)
	Delete(ctx context.Context, version string) error
}
