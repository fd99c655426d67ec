package app

import (
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"layered-remap/internal/types"
)

func TestBuildPrunePlanKeepLastPerLabel(t *testing.T) {
	now := fixedClock()
	tables := []types.CachedTableInfo{
		{Version: "layered+hash.a1", Label: "yarn-1.20.1", CreatedAt: now.Add(-2 * time.Hour)},
		{Version: "layered+hash.a2", Label: "yarn-1.20.1", CreatedAt: now.Add(-1 * time.Hour)},
		{Version: "layered+hash.b1", Label: "mojmap-1.20.1", CreatedAt: now.Add(-3 * time.Hour)},
		{Version: "layered+hash.b2", Label: "mojmap-1.20.1", CreatedAt: now.Add(-30 * time.Minute)},
	}

	plan := BuildPrunePlan(tables, types.CacheRetentionPolicy{KeepLast: 1}, now)

	require.ElementsMatch(t, []string{"layered+hash.a2", "layered+hash.b2"}, versions(plan.Keep))
	require.ElementsMatch(t, []string{"layered+hash.a1", "layered+hash.b1"}, versions(plan.Delete))
}

func TestBuildPrunePlanKeepDays(t *testing.T) {
	now := fixedClock()
	tables := []types.CachedTableInfo{
		{Version: "recent", Label: "x", CreatedAt: now.AddDate(0, 0, -1)},
		{Version: "old", Label: "x", CreatedAt: now.AddDate(0, 0, -10)},
		{Version: "undated", Label: "x"},
	}

	plan := BuildPrunePlan(tables, types.CacheRetentionPolicy{KeepDays: 3}, now)

	require.ElementsMatch(t, []string{"recent"}, versions(plan.Keep))
	require.ElementsMatch(t, []string{"old", "undated"}, versions(plan.Delete))
}

func TestBuildPrunePlanProtectVersionsAndLabels(t *testing.T) {
	now := fixedClock()
	tables := []types.CachedTableInfo{
		{Version: "layered+hash.111", Label: "release", CreatedAt: now.AddDate(0, 0, -30)},
		{Version: "layered+hash.222", Label: "dev", CreatedAt: now.AddDate(0, 0, -30)},
		{Version: "layered+hash.333", Label: "misc", CreatedAt: now.AddDate(0, 0, -30)},
	}
	policy := types.CacheRetentionPolicy{Protect: []string{"Release", "layered+hash.222"}}

	plan := BuildPrunePlan(tables, policy, now)

	require.ElementsMatch(t, []string{"layered+hash.111", "layered+hash.222"}, versions(plan.Keep))
	require.ElementsMatch(t, []string{"layered+hash.333"}, versions(plan.Delete))
}

func TestBuildPrunePlanDeterministicOrdering(t *testing.T) {
	now := fixedClock()
	tables := []types.CachedTableInfo{
		{Version: "ccc", Label: "alpha", CreatedAt: now.Add(-1 * time.Hour)},
		{Version: "bbb", Label: "alpha", CreatedAt: now.Add(-1 * time.Hour)},
		{Version: "aaa", Label: "alpha", CreatedAt: now.Add(-1 * time.Hour)},
	}

	plan := BuildPrunePlan(tables, types.CacheRetentionPolicy{KeepLast: 1}, now)
	kept := versions(plan.Keep)
	sort.Strings(kept)
	if diff := cmp.Diff([]string{"aaa"}, kept); diff != "" {
		t.Fatalf("unexpected kept tables (-want +got):\n%s", diff)
	}
}

func TestBuildPrunePlanNegativePolicyKeepsNothing(t *testing.T) {
	tables := []types.CachedTableInfo{{Version: "a", Label: "x", CreatedAt: fixedClock()}}
	plan := BuildPrunePlan(tables, types.CacheRetentionPolicy{KeepLast: -1, KeepDays: -5}, fixedClock())
	require.Empty(t, plan.Keep)
	require.Len(t, plan.Delete, 1)
}
