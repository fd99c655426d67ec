package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layered-remap/internal/adapters"
	"layered-remap/internal/app"
	"layered-remap/tests/testutil"
)

// TestGoldenResolve resolves the fixture project and compares mappings.tiny
// against the committed golden file. If the golden file does not exist yet
// (first run), it is written so it can be committed.
//
// To update the golden file after an intentional change, delete the
// testdata/golden/ directory and re-run the test.
func TestGoldenResolve(t *testing.T) {
	root := testutil.RepoRoot(t)
	goldenPath := filepath.Join(root, "tests", "integration", "testdata", "golden", adapters.TableFileName)

	outDir := t.TempDir()
	result, err := app.NewService().Resolve(t.Context(), app.ResolveRequest{
		ProjectPath: testutil.CopyFixtureProject(t),
		OutputDir:   outDir,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stats.Classes)
	assert.Equal(t, 1, result.Stats.Parameters)

	got, err := os.ReadFile(filepath.Join(outDir, adapters.TableFileName))
	require.NoError(t, err)

	want, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		require.NoError(t, os.MkdirAll(filepath.Dir(goldenPath), 0o755))
		require.NoError(t, os.WriteFile(goldenPath, got, 0o644))
		t.Logf("golden file written: %s", goldenPath)
		return
	}
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got), "mappings.tiny differs from golden file")
}

// TestResolveIsIndependentOfLocation resolves the same project from two
// directories and expects identical versions and table bytes.
func TestResolveIsIndependentOfLocation(t *testing.T) {
	service := app.NewService()
	first := t.TempDir()
	second := t.TempDir()

	a, err := service.Resolve(t.Context(), app.ResolveRequest{ProjectPath: testutil.CopyFixtureProject(t), OutputDir: first})
	require.NoError(t, err)
	b, err := service.Resolve(t.Context(), app.ResolveRequest{ProjectPath: testutil.CopyFixtureProject(t), OutputDir: second})
	require.NoError(t, err)

	require.Equal(t, a.Version, b.Version)
	require.Equal(t, a.Label, b.Label)
	tableA, err := os.ReadFile(filepath.Join(first, adapters.TableFileName))
	require.NoError(t, err)
	tableB, err := os.ReadFile(filepath.Join(second, adapters.TableFileName))
	require.NoError(t, err)
	require.Equal(t, tableA, tableB)
}
