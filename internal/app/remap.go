package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"layered-remap/internal/core"
	"layered-remap/internal/types"
)

// Remap resolves the project's unified table and rewrites every job with it.
// Empty job fields take the project's remap defaults.
func (s Service) Remap(ctx context.Context, req RemapRequest) (RemapResult, error) {
	if len(req.Jobs) == 0 {
		return RemapResult{}, types.ConfigurationError("at least one remap job is required")
	}
	env, err := s.environment(ctx, req.ProjectPath, req.Settings)
	if err != nil {
		return RemapResult{}, err
	}
	hints := checkRemapDefaultsHints(req.Jobs, env.project.Remap)
	jobs := make([]types.RemapJob, 0, len(req.Jobs))
	for _, job := range req.Jobs {
		jobs = append(jobs, applyRemapDefaults(job, env.project.Remap, env.dir))
	}
	resolution, err := env.resolve(ctx)
	if err != nil {
		return RemapResult{}, err
	}
	for _, warning := range resolution.Warnings {
		log.Ctx(ctx).Warn().Msg(warning)
	}
	driver := core.NewRemapDriver(s.Archives, s.Rewriter)
	results, err := driver.RemapAll(ctx, jobs, resolution.Table, req.Parallelism)
	if err != nil {
		return RemapResult{}, err
	}
	return RemapResult{
		Version: resolution.Version,
		Results: results,
		Hints:   hints,
	}, nil
}

func applyRemapDefaults(job types.RemapJob, defaults types.RemapDefaults, projectDir string) types.RemapJob {
	if strings.TrimSpace(job.From) == "" {
		job.From = defaults.From
	}
	if strings.TrimSpace(job.To) == "" {
		job.To = defaults.To
	}
	if len(job.Classpath) == 0 {
		job.Classpath = relativeTo(projectDir, defaults.Classpath)
	}
	if len(job.Overlays) == 0 {
		job.Overlays = relativeTo(projectDir, defaults.Overlays)
	}
	return job
}

func relativeTo(dir string, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		if filepath.IsAbs(path) {
			out = append(out, path)
			continue
		}
		out = append(out, filepath.Join(dir, path))
	}
	return out
}
