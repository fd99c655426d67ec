package app

import (
	"context"
	"path/filepath"
	"strings"

	"layered-remap/internal/adapters"
	"layered-remap/internal/core"
	"layered-remap/internal/ports"
	"layered-remap/internal/types"
)

// DefaultRepositories is used when neither the project nor the settings
// name a repository.
var DefaultRepositories = []string{"https://maven.fabricmc.net/"}

const defaultCacheDirName = ".layered-remap"

// environment is a loaded project with the adapters its settings select.
type environment struct {
	project  types.ProjectFile
	dir      string
	specs    []types.LayerSpec
	config   core.ResolutionConfig
	cache    ports.TableCachePort
	resolver core.LayerResolver
}

func projectPath(path string) string {
	if strings.TrimSpace(path) == "" {
		return adapters.DefaultProjectFile
	}
	return strings.TrimSpace(path)
}

func (s Service) loadProject(ctx context.Context, path string) (types.ProjectFile, []types.LayerSpec, error) {
	project, err := s.Projects.Load(projectPath(path))
	if err != nil {
		return types.ProjectFile{}, nil, err
	}
	compiler := core.NewProjectCompiler()
	if err := compiler.ValidateProject(ctx, project); err != nil {
		return types.ProjectFile{}, nil, err
	}
	specs, err := compiler.CompileLayers(project)
	if err != nil {
		return types.ProjectFile{}, nil, err
	}
	return project, specs, nil
}

func (s Service) environment(ctx context.Context, path string, settings Settings) (environment, error) {
	project, specs, err := s.loadProject(ctx, path)
	if err != nil {
		return environment{}, err
	}
	dir := filepath.Dir(projectPath(path))
	cacheDir := resolveCacheDir(settings, project, dir)
	cache := s.Cache
	if cache == nil {
		disk, err := adapters.NewTableCacheAdapter(cacheDir, settings.MemoryTables)
		if err != nil {
			return environment{}, err
		}
		cache = disk
	}
	artifacts := s.Artifacts
	if artifacts == nil {
		artifacts = adapters.MavenArtifactAdapter{
			CacheDir:     cacheDir,
			Repositories: repositories(settings, project),
			Offline:      settings.Offline || project.Offline,
			HTTP:         httpOptions(settings),
			S3:           s3Options(settings),
			BaseDir:      dir,
		}
	}
	official := s.Official
	if official == nil {
		manifest := adapters.NewVersionManifestAdapter(cacheDir, settings.Offline || project.Offline)
		if settings.ManifestURL != "" {
			manifest.ManifestURL = settings.ManifestURL
		}
		manifest.HTTP = httpOptions(settings)
		official = manifest
	}
	resolver := core.NewLayerResolver(artifacts, official, s.Archives, cache)
	resolver.Clock = s.Clock
	compiler := core.NewProjectCompiler()
	return environment{
		project: project,
		dir:     dir,
		specs:   specs,
		config: core.ResolutionConfig{
			GameVersion:                project.GameVersion,
			Namespaces:                 compiler.Namespaces(project),
			AcknowledgeOfficialLicense: project.AcknowledgeOfficialLicense,
		},
		cache:    cache,
		resolver: resolver,
	}, nil
}

func (e environment) resolve(ctx context.Context) (core.Resolution, error) {
	return e.resolver.Resolve(ctx, e.specs, e.config)
}

func resolveCacheDir(settings Settings, project types.ProjectFile, projectDir string) string {
	if dir := strings.TrimSpace(settings.CacheDir); dir != "" {
		return dir
	}
	if dir := strings.TrimSpace(project.CacheDir); dir != "" {
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(projectDir, dir)
	}
	return filepath.Join(projectDir, defaultCacheDirName)
}

func repositories(settings Settings, project types.ProjectFile) []string {
	var repos []string
	seen := map[string]struct{}{}
	for _, repo := range append(append([]string(nil), project.Repositories...), settings.Repositories...) {
		repo = strings.TrimSpace(repo)
		if repo == "" {
			continue
		}
		if _, ok := seen[repo]; ok {
			continue
		}
		seen[repo] = struct{}{}
		repos = append(repos, repo)
	}
	if len(repos) == 0 {
		return append([]string(nil), DefaultRepositories...)
	}
	return repos
}

func httpOptions(settings Settings) adapters.HTTPOptions {
	return adapters.HTTPOptions{
		TimeoutSec:   settings.HTTPTimeoutSec,
		Retries:      settings.HTTPRetries,
		RetryDelayMs: settings.HTTPRetryDelayMs,
		Auth: adapters.HTTPAuth{
			Username: settings.RepoUser,
			Password: settings.RepoPassword,
		},
	}
}

func s3Options(settings Settings) adapters.S3Options {
	return adapters.S3Options{
		Endpoint:  settings.S3Endpoint,
		Region:    settings.S3Region,
		AccessKey: settings.S3AccessKey,
		SecretKey: settings.S3SecretKey,
		UseSSL:    settings.S3UseSSL,
	}
}
