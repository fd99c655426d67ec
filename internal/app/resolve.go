package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"layered-remap/internal/adapters"
	"layered-remap/internal/core"
	"layered-remap/internal/types"
)

const (
	defaultPublishGroup    = "layered-remap"
	defaultPublishArtifact = "mappings"
)

// Resolve builds the unified table of a project and writes mappings.tiny,
// the packaged mapping jar and resolution.yaml into the output directory.
func (s Service) Resolve(ctx context.Context, req ResolveRequest) (ResolveResult, error) {
	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		return ResolveResult{}, types.ConfigurationError("output directory is required")
	}
	env, err := s.environment(ctx, req.ProjectPath, req.Settings)
	if err != nil {
		return ResolveResult{}, err
	}
	resolution, err := env.resolve(ctx)
	if err != nil {
		return ResolveResult{}, err
	}

	output := adapters.NewOutputFileAdapter(outputDir)
	if err := output.WriteTable(resolution.Table); err != nil {
		return ResolveResult{}, err
	}
	if !req.SkipJar {
		if err := output.WriteMappingJar(resolution.Table, resolution.CoordinateVersion); err != nil {
			return ResolveResult{}, err
		}
	}
	report := core.ReportFor(resolution, env.project.GameVersion, timeNow(s.Clock))
	if err := output.WriteResolutionReport(report); err != nil {
		return ResolveResult{}, err
	}
	result := ResolveResult{
		Version:           resolution.Version,
		Label:             resolution.Label,
		CoordinateVersion: resolution.CoordinateVersion,
		OutputDir:         outputDir,
		CacheHit:          resolution.CacheHit,
		Stats:             report.Stats,
		Warnings:          resolution.Warnings,
	}
	if repo := strings.TrimSpace(req.PublishRepo); repo != "" {
		coord, err := s.publish(ctx, req, resolution)
		if err != nil {
			return ResolveResult{}, err
		}
		result.Published = coord.String()
	}
	for _, warning := range resolution.Warnings {
		log.Ctx(ctx).Warn().Msg(warning)
	}
	return result, nil
}

func (s Service) publish(ctx context.Context, req ResolveRequest, resolution core.Resolution) (types.Coordinate, error) {
	publisher := s.Publisher
	if publisher == nil {
		publisher = adapters.NewMappingPublisher(s3Options(req.Settings))
	}
	coord := types.Coordinate{
		Group:     firstNonEmpty(req.PublishGroup, defaultPublishGroup),
		Artifact:  firstNonEmpty(req.PublishArtifact, defaultPublishArtifact),
		Version:   resolution.CoordinateVersion,
		Extension: "jar",
	}
	data, err := adapters.MappingJarBytes(resolution.Table)
	if err != nil {
		return types.Coordinate{}, err
	}
	if err := publisher.Publish(ctx, strings.TrimSpace(req.PublishRepo), coord, data); err != nil {
		return types.Coordinate{}, err
	}
	return coord, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
