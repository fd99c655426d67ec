package app

import (
	"time"

	"layered-remap/internal/adapters"
	"layered-remap/internal/ports"
)

// Service wires the ports used by the CLI commands. Artifacts, Official and
// Cache depend on the project's settings; when nil they are built per call
// from Settings.
type Service struct {
	Projects  ports.ProjectPort
	Archives  ports.ArchivePort
	Rewriter  ports.RewriterPort
	Reader    ports.OutputReaderPort
	Publisher ports.PublisherPort
	Artifacts ports.ArtifactResolverPort
	Official  ports.OfficialMappingsPort
	Cache     ports.TableCachePort
	Clock     func() time.Time
}

func NewService() Service {
	return Service{
		Projects: adapters.NewProjectFileAdapter(),
		Archives: adapters.NewZipArchiveAdapter(),
		Rewriter: adapters.NewClassRewriter(),
		Reader:   adapters.NewOutputReaderAdapter(),
		Clock:    time.Now,
	}
}
