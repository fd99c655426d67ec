package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"layered-remap/internal/adapters"
	"layered-remap/internal/ports"
	"layered-remap/internal/types"
)

// PruneCache removes cached unified tables that fall outside the retention
// policy.
func (s Service) PruneCache(ctx context.Context, req PruneRequest) (PruneResult, error) {
	cache, err := s.pruneCache(req)
	if err != nil {
		return PruneResult{}, err
	}
	tables, err := cache.List(ctx)
	if err != nil {
		return PruneResult{}, err
	}
	policy := types.CacheRetentionPolicy{
		KeepLast: req.KeepLast,
		KeepDays: req.KeepDays,
		Protect:  req.Protect,
		DryRun:   req.DryRun,
	}
	plan := BuildPrunePlan(tables, policy, timeNow(s.Clock))
	if policy.DryRun {
		return PruneResult{
			KeepCount:   len(plan.Keep),
			DeleteCount: len(plan.Delete),
			Deleted:     versions(plan.Delete),
			DryRun:      true,
		}, nil
	}
	var deleted []string
	for _, table := range plan.Delete {
		if err := cache.Delete(ctx, table.Version); err != nil {
			return PruneResult{}, err
		}
		deleted = append(deleted, table.Version)
	}
	return PruneResult{
		KeepCount:   len(plan.Keep),
		DeleteCount: len(deleted),
		Deleted:     deleted,
		DryRun:      false,
	}, nil
}

func timeNow(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}

// pruneCache locates the cache without validating the project, so a cache
// can be pruned even when its project no longer resolves.
func (s Service) pruneCache(req PruneRequest) (ports.TableCachePort, error) {
	if s.Cache != nil {
		return s.Cache, nil
	}
	var project types.ProjectFile
	path := projectPath(req.ProjectPath)
	if strings.TrimSpace(req.Settings.CacheDir) == "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := s.Projects.Load(path)
			if err != nil {
				return nil, err
			}
			project = loaded
		}
	}
	cache, err := adapters.NewTableCacheAdapter(resolveCacheDir(req.Settings, project, filepath.Dir(path)), req.Settings.MemoryTables)
	if err != nil {
		return nil, err
	}
	return cache, nil
}

func versions(tables []types.CachedTableInfo) []string {
	out := make([]string, 0, len(tables))
	for _, table := range tables {
		out = append(out, table.Version)
	}
	return out
}
