package integration

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layered-remap/internal/adapters"
	"layered-remap/internal/app"
	"layered-remap/internal/types"
	"layered-remap/tests/testutil"
)

// TestProjectFlow exercises the workflow a user follows with a project
// file:
//
//	validate -> resolve -> inspect -> remap -> cache prune
func TestProjectFlow(t *testing.T) {
	ctx := t.Context()
	projectPath := testutil.CopyFixtureProject(t)
	service := app.NewService()

	// Step 1: validate the project.
	validated, err := service.Validate(ctx, app.ValidateRequest{ProjectPath: projectPath})
	require.NoError(t, err)
	assert.Len(t, validated.Layers, 3)

	// Step 2: resolve and inspect the outputs.
	outDir := t.TempDir()
	resolved, err := service.Resolve(ctx, app.ResolveRequest{ProjectPath: projectPath, OutputDir: outDir})
	require.NoError(t, err)
	require.Empty(t, resolved.Warnings)

	inspected, err := service.Inspect(app.InspectRequest{Path: outDir})
	require.NoError(t, err)
	require.NotNil(t, inspected.Report)
	assert.Equal(t, resolved.Version, inspected.Report.Version)
	assert.Equal(t, resolved.Stats, inspected.Stats)

	// Step 3: remap a jar in place with the project defaults.
	jar := filepath.Join(t.TempDir(), "mod.jar")
	writer, err := adapters.NewZipArchiveAdapter().Create(jar)
	require.NoError(t, err)
	require.NoError(t, writer.Put(types.ArchiveEntry{Name: "fabric.mod.json", Data: []byte(`{"id":"mod"}`)}))
	require.NoError(t, writer.Close())

	remapped, err := service.Remap(ctx, app.RemapRequest{
		ProjectPath: projectPath,
		Jobs:        []types.RemapJob{{Input: jar, Output: jar}},
	})
	require.NoError(t, err)
	require.Equal(t, resolved.Version, remapped.Version)
	require.Len(t, remapped.Results, 1)
	assert.Equal(t, 1, remapped.Results[0].ResourcesCopied)

	data, ok, err := adapters.NewZipArchiveAdapter().ReadEntry(jar, "fabric.mod.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"id":"mod"}`, string(data))

	// Step 4: prune keeps the only table when asked to keep the last one.
	pruned, err := service.PruneCache(ctx, app.PruneRequest{ProjectPath: projectPath, KeepLast: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, pruned.KeepCount)
	assert.Zero(t, pruned.DeleteCount)
}

func TestProjectFlowRejectsBrokenLayer(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "intermediary.tiny", "tiny\t2\t0\tofficial\n")
	projectPath := testutil.WriteFile(t, dir, "layered-remap.yaml", `api_version: v1
layers:
  - kind: intermediary
    path: intermediary.tiny
`)

	_, err := app.NewService().Resolve(t.Context(), app.ResolveRequest{ProjectPath: projectPath, OutputDir: t.TempDir()})
	require.Error(t, err)
	kind, ok := types.KindOf(err)
	require.True(t, ok)
	assert.Contains(t, []types.ErrorKind{types.ErrorKindFormat, types.ErrorKindResolution}, kind)
}
