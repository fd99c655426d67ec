package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layered-remap/internal/types"
)

func TestStageOutputWithoutPreviousOutput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "nested", "out.jar")

	stage, err := stageOutput(output)
	require.NoError(t, err)
	assert.False(t, stage.hadBackup)
	assert.DirExists(t, filepath.Join(dir, "nested"))

	require.NoError(t, os.WriteFile(stage.staging, []byte("new"), 0644))
	require.NoError(t, stage.promote())
	require.NoError(t, stage.verify())
	assert.FileExists(t, output)
}

func TestStageOutputDiscardKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	output := writeFile(t, dir, "out.jar", "old")

	stage, err := stageOutput(output)
	require.NoError(t, err)
	assert.True(t, stage.hadBackup)
	assert.NoFileExists(t, output)

	require.NoError(t, os.WriteFile(stage.staging, []byte("partial"), 0644))
	stage.discard()
	assert.NoFileExists(t, stage.staging)
	assert.NoFileExists(t, output)
	assert.FileExists(t, stage.backup)

	// discard after discard is a no-op; promote is ignored once finished.
	stage.discard()
	require.NoError(t, stage.promote())
}

func TestStageVerifyDetectsLeftovers(t *testing.T) {
	dir := t.TempDir()
	output := writeFile(t, dir, "out.jar", "new")
	stage := &stagedOutput{output: output, backup: writeFile(t, dir, "out.pre-remap.jar", "old"), staging: filepath.Join(dir, "out.remap-staging.jar")}

	err := stage.verify()
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindIntegrity))
}

func TestSiblingPath(t *testing.T) {
	assert.Equal(t, "/x/mod.pre-remap.jar", siblingPath("/x/mod.jar", backupSuffix))
	assert.Equal(t, "/x/mod.remap-staging", siblingPath("/x/mod", stagingSuffix))
}
