package app

import (
	"fmt"
	"os"
	"strings"

	"layered-remap/internal/types"
)

// defaultsHint pairs a flag name with a project key for hint messages.
type defaultsHint struct {
	FlagName   string
	ProjectKey string
}

// checkRemapDefaultsHints returns hints for remap flags that could be
// replaced by project defaults. A hint is generated when some job sets a
// value that the project also provides.
func checkRemapDefaultsHints(jobs []types.RemapJob, defaults types.RemapDefaults) []string {
	provided := func(pick func(types.RemapJob) bool) bool {
		for _, job := range jobs {
			if pick(job) {
				return true
			}
		}
		return false
	}
	checks := []struct {
		hint       defaultsHint
		provided   bool
		hasDefault bool
	}{
		{
			hint:       defaultsHint{"--from", "remap.from"},
			provided:   provided(func(job types.RemapJob) bool { return strings.TrimSpace(job.From) != "" }),
			hasDefault: defaults.From != "",
		},
		{
			hint:       defaultsHint{"--to", "remap.to"},
			provided:   provided(func(job types.RemapJob) bool { return strings.TrimSpace(job.To) != "" }),
			hasDefault: defaults.To != "",
		},
		{
			hint:       defaultsHint{"--classpath", "remap.classpath"},
			provided:   provided(func(job types.RemapJob) bool { return len(job.Classpath) > 0 }),
			hasDefault: len(defaults.Classpath) > 0,
		},
		{
			hint:       defaultsHint{"--overlay", "remap.overlays"},
			provided:   provided(func(job types.RemapJob) bool { return len(job.Overlays) > 0 }),
			hasDefault: len(defaults.Overlays) > 0,
		},
	}

	var hints []string
	for _, c := range checks {
		if c.provided && c.hasDefault {
			hints = append(hints, fmt.Sprintf(
				"hint: %s is also set in project (%s); you can omit the flag",
				c.hint.FlagName, c.hint.ProjectKey,
			))
		}
	}
	return hints
}

// EmitHints writes hint messages to stderr.
func EmitHints(hints []string) {
	for _, h := range hints {
		fmt.Fprintln(os.Stderr, h)
	}
}
