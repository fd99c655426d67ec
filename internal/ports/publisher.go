package ports

import (
	"context"

	"layered-remap/internal/types"
)

// PublisherPort uploads a packaged mapping jar into a maven repository.
type PublisherPort interface {
	Publish(ctx context.Context, repository string, coord types.Coordinate, data []byte) error
}
