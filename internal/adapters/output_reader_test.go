package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layered-remap/internal/types"
)

func TestOutputReaderReadTableFromTinyAndJar(t *testing.T) {
	dir := t.TempDir()
	table := cacheTestTable(t)
	adapter := NewOutputFileAdapter(dir)
	require.NoError(t, adapter.WriteTable(table))
	require.NoError(t, adapter.WriteMappingJar(table, "packaged"))

	reader := NewOutputReaderAdapter()
	fromTiny, err := reader.ReadTable(filepath.Join(dir, TableFileName))
	require.NoError(t, err)
	assert.Equal(t, tinyBytes(t, table), tinyBytes(t, fromTiny))
	assert.Empty(t, fromTiny.Signatures().Signatures, "tiny files carry no signatures")

	fromJar, err := reader.ReadTable(filepath.Join(dir, "packaged.jar"))
	require.NoError(t, err)
	assert.Equal(t, tinyBytes(t, table), tinyBytes(t, fromJar))
	assert.Equal(t, table.Signatures(), fromJar.Signatures())
}

func TestOutputReaderErrors(t *testing.T) {
	dir := t.TempDir()
	reader := NewOutputReaderAdapter()

	_, err := reader.ReadTable(filepath.Join(dir, "missing.tiny"))
	assert.True(t, types.IsKind(err, types.ErrorKindMissingArtifact))

	broken := filepath.Join(dir, "broken.tiny")
	require.NoError(t, os.WriteFile(broken, []byte("tiny\t2\t0\tofficial\tnamed\nc\tonly-one\n"), 0o644))
	_, err = reader.ReadTable(broken)
	assert.True(t, types.IsKind(err, types.ErrorKindFormat))

	report := filepath.Join(dir, ReportFileName)
	require.NoError(t, os.WriteFile(report, []byte("label: x\n"), 0o644))
	_, err = reader.ReadResolutionReport(report)
	assert.True(t, types.IsKind(err, types.ErrorKindFormat))
}
