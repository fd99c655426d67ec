package types

import "time"

// CachedTableInfo describes one unified table stored in the table cache.
type CachedTableInfo struct {
	Version   string
	Label     string
	Dir       string
	CreatedAt time.Time
}

type CacheRetentionPolicy struct {
	KeepLast int
	KeepDays int
	Protect  []string
	DryRun   bool
}

type CachePrunePlan struct {
	Keep   []CachedTableInfo
	Delete []CachedTableInfo
}
