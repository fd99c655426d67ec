package adapters

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"layered-remap/internal/ports"
	"layered-remap/internal/types"
)

// MappingPublisher writes packaged mapping jars into s3:// or directory
// repositories using the maven layout. HTTP repositories are read only.
type MappingPublisher struct {
	S3 S3Options
}

func NewMappingPublisher(s3 S3Options) MappingPublisher {
	return MappingPublisher{S3: s3}
}

func (p MappingPublisher) Publish(ctx context.Context, repository string, coord types.Coordinate, data []byte) error {
	repo, err := parseRepository(repository, HTTPOptions{}, p.S3)
	if err != nil {
		return types.ConfigurationError(fmt.Sprintf("publish repository %q: %s", repository, errorMessage(err)))
	}
	rel := coord.RepositoryPath()
	switch target := repo.(type) {
	case *s3Repository:
		if err := target.Put(ctx, rel, data); err != nil {
			return fmt.Errorf("publish %s to %s: %w", coord.String(), target.String(), err)
		}
	case dirRepository:
		if err := writeFileAtomic(filepath.Join(target.root, filepath.FromSlash(rel)), data); err != nil {
			return fmt.Errorf("publish %s to %s: %w", coord.String(), target.String(), err)
		}
	default:
		return types.ConfigurationError(fmt.Sprintf("repository %s does not accept uploads", repo.String()))
	}
	log.Ctx(ctx).Info().Str("artifact", coord.String()).Str("repository", repo.String()).Msg("mapping jar published")
	return nil
}

var _ ports.PublisherPort = MappingPublisher{}
