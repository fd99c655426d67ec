package ports

import (
	"context"

	"layered-remap/internal/types"
)

// ArtifactResolverPort materialises artifact references into local files.
type ArtifactResolverPort interface {
	Resolve(ctx context.Context, ref types.ArtifactRef) (types.ResolvedArtifact, error)
}

// OfficialMappingsPort locates the vendor's mapping file for a game version.
type OfficialMappingsPort interface {
	Locate(ctx context.Context, gameVersion string) (types.ResolvedArtifact, error)
}
