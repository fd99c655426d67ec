package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layered-remap/internal/types"
)

// ---------- Command tree tests ----------

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()
	names := make([]string, 0, len(root.Commands()))
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	expected := []string{"validate", "resolve", "remap", "inspect", "cache"}
	for _, name := range expected {
		assert.Contains(t, names, name, "missing subcommand: %s", name)
	}
}

func TestCacheCommandHasPrune(t *testing.T) {
	cmd := newCacheCommand(&settingsOptions{})
	prune, _, err := cmd.Find([]string{"prune"})
	require.NoError(t, err)
	assert.Equal(t, "prune", prune.Name())
	for _, name := range []string{"project", "keep-last", "keep-days", "protect", "dry-run"} {
		assert.NotNil(t, prune.Flags().Lookup(name), "missing flag: %s", name)
	}
}

func TestRootCommandVersion(t *testing.T) {
	root := newRootCommand()
	assert.Equal(t, "dev", root.Version)
}

func TestRootCommandSettingsFlags(t *testing.T) {
	root := newRootCommand()
	flags := []string{
		"config", "log-level", "cache-dir", "repository", "offline",
		"manifest-url", "http-timeout", "http-retries", "http-retry-delay-ms",
		"repo-user", "repo-password", "s3-endpoint", "s3-region",
		"s3-access-key", "s3-secret-key", "s3-ssl", "memory-tables",
	}
	for _, name := range flags {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "missing flag: %s", name)
	}
}

func TestResolveCommandFlags(t *testing.T) {
	cmd := newResolveCommand(&settingsOptions{})
	flags := []string{
		"project", "output", "skip-jar",
		"publish-repo", "publish-group", "publish-artifact",
	}
	for _, name := range flags {
		flag := cmd.Flags().Lookup(name)
		assert.NotNil(t, flag, "missing flag: %s", name)
	}
}

func TestRemapCommandFlags(t *testing.T) {
	cmd := newRemapCommand(&settingsOptions{})
	flags := []string{
		"project", "input", "output", "from", "to",
		"classpath", "overlay", "parallelism",
	}
	for _, name := range flags {
		flag := cmd.Flags().Lookup(name)
		assert.NotNil(t, flag, "missing flag: %s", name)
	}
}

func TestValidateCommandFlags(t *testing.T) {
	cmd := newValidateCommand()
	assert.NotNil(t, cmd.Flags().Lookup("project"))
}

func TestRemapJobsPairsInputsAndOutputs(t *testing.T) {
	jobs, err := remapJobs(nil, remapOptions{
		Inputs:    []string{"a.jar", "b.jar"},
		Outputs:   []string{"a-named.jar", " b-named.jar "},
		From:      "official",
		To:        "named",
		Classpath: []string{"lib.jar"},
	})
	require.NoError(t, err)
	require.Equal(t, []types.RemapJob{
		{Input: "a.jar", Output: "a-named.jar", From: "official", To: "named", Classpath: []string{"lib.jar"}},
		{Input: "b.jar", Output: "b-named.jar", From: "official", To: "named", Classpath: []string{"lib.jar"}},
	}, jobs)
}

func TestRemapJobsRejectsMismatchedOutputs(t *testing.T) {
	_, err := remapJobs(nil, remapOptions{Inputs: []string{"a.jar"}})
	require.True(t, types.IsKind(err, types.ErrorKindConfiguration))
	assert.Equal(t, 2, exitCodeForError(err))

	_, err = remapJobs(nil, remapOptions{})
	require.True(t, types.IsKind(err, types.ErrorKindConfiguration))
}

func TestSettingsFromFlags(t *testing.T) {
	opts := settingsOptions{
		CacheDir:       "/tmp/cache",
		Repositories:   []string{"s3://bucket/maven"},
		Offline:        true,
		HTTPTimeoutSec: 5,
		S3UseSSL:       true,
	}
	got := opts.settings(nil)
	assert.Equal(t, "/tmp/cache", got.CacheDir)
	assert.Equal(t, []string{"s3://bucket/maven"}, got.Repositories)
	assert.True(t, got.Offline)
	assert.Equal(t, 5, got.HTTPTimeoutSec)
	assert.True(t, got.S3UseSSL)
}

// ---------- Helper function tests ----------

func TestResolveString(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *cobra.Command
		value    string
		expected string
	}{
		{
			name:     "nil cmd with value returns value",
			cmd:      nil,
			value:    "explicit",
			expected: "explicit",
		},
		{
			name:     "nil cmd empty value returns empty",
			cmd:      nil,
			value:    "",
			expected: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveString(tt.cmd, tt.value, "test_key", "test-flag")
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveStrings(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *cobra.Command
		values   []string
		expected []string
	}{
		{
			name:     "nil cmd with values returns values",
			cmd:      nil,
			values:   []string{"a", "b"},
			expected: []string{"a", "b"},
		},
		{
			name:     "nil cmd empty returns nil",
			cmd:      nil,
			values:   nil,
			expected: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveStrings(tt.cmd, tt.values, "test_key", "test-flag")
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveBool(t *testing.T) {
	got := resolveBool(nil, true, "test_key", "test-flag")
	assert.True(t, got)

	got = resolveBool(nil, false, "test_key", "test-flag")
	assert.False(t, got)
}

func TestResolveInt(t *testing.T) {
	got := resolveInt(nil, 42, "test_key", "test-flag")
	assert.Equal(t, 42, got)
}

func TestFlagChanged(t *testing.T) {
	assert.False(t, flagChanged(nil, "anything"), "nil cmd should return false")
	assert.False(t, flagChanged(nil, ""), "nil cmd with empty name")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("myflag", "", "test flag")
	assert.False(t, flagChanged(cmd, "myflag"), "unchanged flag")
	assert.False(t, flagChanged(cmd, "nonexistent"), "nonexistent flag")
}

func TestFlagChangedAfterSet(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("myflag", "", "test flag")
	require.NoError(t, cmd.Flags().Set("myflag", "val"))
	assert.True(t, flagChanged(cmd, "myflag"))
}

// ---------- Exit code tests ----------

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "configuration",
			err:      types.ConfigurationError("bad project"),
			expected: 2,
		},
		{
			name:     "format",
			err:      types.FormatError("mappings.tiny", 3, "bad header"),
			expected: 2,
		},
		{
			name:     "consent required",
			err:      types.ConsentRequiredError(0, types.LayerKindOfficial, "licence not acknowledged"),
			expected: 3,
		},
		{
			name:     "resolution",
			err:      types.ResolutionError(1, types.LayerKindCommunity, "fetch failed", assert.AnError),
			expected: 4,
		},
		{
			name:     "missing artifact",
			err:      types.MissingArtifactError("input.jar", nil),
			expected: 4,
		},
		{
			name:     "integrity",
			err:      types.IntegrityError("client.txt", "sha1 mismatch", nil),
			expected: 5,
		},
		{
			name:     "rewrite wrapped",
			err:      fmt.Errorf("remap: %w", types.RewriteError("a.class", "truncated", nil)),
			expected: 5,
		},
		{
			name: "invalid argument",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("bad input"),
			expected: 2,
		},
		{
			name: "permission denied",
			err: errbuilder.New().
				WithCode(errbuilder.CodePermissionDenied).
				WithMsg("nope"),
			expected: 3,
		},
		{
			name: "not found",
			err: errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("file missing"),
			expected: 4,
		},
		{
			name: "internal error",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("boom"),
			expected: 5,
		},
		{
			name:     "unknown error",
			err:      assert.AnError,
			expected: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exitCodeForError(tt.err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// ---------- Command execution tests ----------

const cliProject = `api_version: v1
layers:
  - kind: intermediary
    path: intermediary.tiny
`

func writeCLIProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "intermediary.tiny"),
		[]byte("tiny\t2\t0\tofficial\tintermediary\nc\ta\tnet/minecraft/class_1\n"), 0o644))
	path := filepath.Join(dir, "layered-remap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cliProject), 0o644))
	return path
}

func TestRootCommandRunsValidate(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"validate", "--project", writeCLIProject(t), "--log-level", "error"})
	require.NoError(t, root.ExecuteContext(t.Context()))
}

func TestRootCommandResolveWritesOutputs(t *testing.T) {
	projectPath := writeCLIProject(t)
	outDir := filepath.Join(t.TempDir(), "out")
	root := newRootCommand()
	root.SetArgs([]string{
		"resolve",
		"--project", projectPath,
		"--output", outDir,
		"--cache-dir", filepath.Join(t.TempDir(), "cache"),
		"--skip-jar",
		"--log-level", "error",
	})
	require.NoError(t, root.ExecuteContext(t.Context()))
	assert.FileExists(t, filepath.Join(outDir, "mappings.tiny"))
	assert.FileExists(t, filepath.Join(outDir, "resolution.yaml"))
}

func TestRootCommandValidateFailureMapsToExitCode(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"validate", "--project", filepath.Join(t.TempDir(), "missing.yaml"), "--log-level", "error"})
	root.SetErr(io.Discard)
	err := root.ExecuteContext(t.Context())
	require.Error(t, err)
	assert.Equal(t, 2, exitCodeForError(err))
}

func TestResolveStringFallsBackToViper(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("cache_dir", "/from/config")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("cache-dir", "", "cache")
	assert.Equal(t, "/from/config", resolveString(cmd, "", "cache_dir", "cache-dir"))

	require.NoError(t, cmd.Flags().Set("cache-dir", "/from/flag"))
	assert.Equal(t, "/from/flag", resolveString(cmd, "/from/flag", "cache_dir", "cache-dir"))
}

func TestResolveStringsFallsBackToViper(t *testing.T) {
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringSlice("overlay", nil, "overlay")
	assert.Nil(t, resolveStrings(cmd, nil, "remap.overlays", "overlay"))

	viper.Set("remap.overlays", []string{"extra.tiny"})
	assert.Equal(t, []string{"extra.tiny"}, resolveStrings(cmd, nil, "remap.overlays", "overlay"))

	require.NoError(t, cmd.Flags().Set("overlay", "flag.tiny"))
	assert.Equal(t, []string{"flag.tiny"}, resolveStrings(cmd, []string{"flag.tiny"}, "remap.overlays", "overlay"))
}
