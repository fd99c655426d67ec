package adapters

import (
	"os"
	"strings"
	"time"
)

// createdAtLayouts lists the timestamp forms found in resolution reports:
// RFC 3339 as written today and the space separated form of older caches.
var createdAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// cacheEntryTime returns the creation time recorded in a cache entry's
// metadata. Entries with a missing or unreadable timestamp fall back to the
// modification time of their metadata file, so retention still applies to
// them.
func cacheEntryTime(recorded string, metadataPath string) time.Time {
	if parsed, ok := parseCreatedAt(recorded); ok {
		return parsed
	}
	if info, err := os.Stat(metadataPath); err == nil {
		return info.ModTime().UTC()
	}
	return time.Time{}
}

func parseCreatedAt(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range createdAtLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}
