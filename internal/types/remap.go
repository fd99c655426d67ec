package types

import "time"

// RemapJob is a single-use request to rewrite Input into Output.
type RemapJob struct {
	Input     string
	Output    string
	Classpath []string
	From      string
	To        string
	Overlays  []string
}

type RemapResult struct {
	Output          string
	ClassesRemapped int
	ResourcesCopied int
	OverlayEntries  int
	Duration        time.Duration
}
