package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"layered-remap/internal/adapters"
)

func TestPruneCacheDeletesOutsidePolicy(t *testing.T) {
	projectPath := writeProject(t)
	service := testService()
	resolved, err := service.Resolve(t.Context(), ResolveRequest{
		ProjectPath: projectPath,
		OutputDir:   t.TempDir(),
	})
	require.NoError(t, err)

	dryRun, err := service.PruneCache(t.Context(), PruneRequest{ProjectPath: projectPath, DryRun: true})
	require.NoError(t, err)
	require.True(t, dryRun.DryRun)
	require.Equal(t, []string{resolved.Version}, dryRun.Deleted)

	kept, err := service.PruneCache(t.Context(), PruneRequest{ProjectPath: projectPath, KeepLast: 1})
	require.NoError(t, err)
	require.Equal(t, 1, kept.KeepCount)
	require.Zero(t, kept.DeleteCount)

	result, err := service.PruneCache(t.Context(), PruneRequest{ProjectPath: projectPath})
	require.NoError(t, err)
	require.Equal(t, []string{resolved.Version}, result.Deleted)

	cache, err := adapters.NewTableCacheAdapter(filepath.Join(filepath.Dir(projectPath), defaultCacheDirName), 0)
	require.NoError(t, err)
	tables, err := cache.List(t.Context())
	require.NoError(t, err)
	require.Empty(t, tables)
}

func TestPruneCacheExplicitCacheDir(t *testing.T) {
	result, err := testService().PruneCache(t.Context(), PruneRequest{
		ProjectPath: filepath.Join(t.TempDir(), "absent.yaml"),
		Settings:    Settings{CacheDir: t.TempDir()},
	})
	require.NoError(t, err)
	require.Zero(t, result.KeepCount)
	require.Zero(t, result.DeleteCount)
}
