package app

import (
	"sort"
	"strings"
	"time"

	"layered-remap/internal/types"
)

// BuildPrunePlan splits cached tables into those to keep and those to delete.
// KeepLast applies per label, so every layer combination keeps its newest
// tables.
func BuildPrunePlan(tables []types.CachedTableInfo, policy types.CacheRetentionPolicy, now time.Time) types.CachePrunePlan {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	normalized := normalizeRetentionPolicy(policy)
	protected := normalizeSet(normalized.Protect)

	keepVersions := map[string]struct{}{}
	grouped := map[string][]types.CachedTableInfo{}
	for _, table := range tables {
		if isProtected(table, protected) {
			keepVersions[table.Version] = struct{}{}
		}
		if normalized.KeepDays > 0 && !table.CreatedAt.IsZero() {
			cutoff := now.AddDate(0, 0, -normalized.KeepDays)
			if !table.CreatedAt.Before(cutoff) {
				keepVersions[table.Version] = struct{}{}
			}
		}
		group := retentionGroupKey(table)
		grouped[group] = append(grouped[group], table)
	}

	if normalized.KeepLast > 0 {
		for _, group := range grouped {
			sorted := append([]types.CachedTableInfo(nil), group...)
			sort.Slice(sorted, func(i, j int) bool {
				if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
					return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
				}
				return sorted[i].Version < sorted[j].Version
			})
			limit := min(normalized.KeepLast, len(sorted))
			for i := 0; i < limit; i++ {
				keepVersions[sorted[i].Version] = struct{}{}
			}
		}
	}

	var keep []types.CachedTableInfo
	var del []types.CachedTableInfo
	for _, table := range tables {
		if _, ok := keepVersions[table.Version]; ok {
			keep = append(keep, table)
		} else {
			del = append(del, table)
		}
	}
	return types.CachePrunePlan{Keep: keep, Delete: del}
}

func normalizeRetentionPolicy(policy types.CacheRetentionPolicy) types.CacheRetentionPolicy {
	normalized := policy
	if normalized.KeepLast < 0 {
		normalized.KeepLast = 0
	}
	if normalized.KeepDays < 0 {
		normalized.KeepDays = 0
	}
	return normalized
}

func normalizeSet(values []string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, value := range values {
		key := strings.ToLower(strings.TrimSpace(value))
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	return set
}

// isProtected matches a protect entry against the version or the label.
func isProtected(table types.CachedTableInfo, protected map[string]struct{}) bool {
	for _, key := range []string{table.Version, table.Label} {
		if key == "" {
			continue
		}
		if _, ok := protected[strings.ToLower(key)]; ok {
			return true
		}
	}
	return false
}

func retentionGroupKey(table types.CachedTableInfo) string {
	if strings.TrimSpace(table.Label) != "" {
		return "label:" + strings.ToLower(table.Label)
	}
	return "default"
}
