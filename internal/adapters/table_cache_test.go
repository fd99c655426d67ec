package adapters

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layered-remap/internal/mappings"
	"layered-remap/internal/types"
)

const cacheTiny = "tiny\t2\t0\tofficial\tintermediary\tnamed\n" +
	"c\ta\tnet/minecraft/class_1\tnet/example/Widget\n" +
	"\tf\tI\tb\tfield_1\tcount\n"

func cacheTestTable(t *testing.T) *mappings.Table {
	t.Helper()
	tree, err := mappings.ReadTiny(strings.NewReader(cacheTiny), "cache.tiny")
	require.NoError(t, err)
	builder := mappings.NewBuilder(tree.Namespaces)
	_, err = builder.Merge(tree, mappings.MergeOptions{})
	require.NoError(t, err)
	misses, err := builder.ApplySignatures("official", types.RecordSignatures{
		Signatures: map[string]string{"a": "Ljava/lang/Record;"},
	})
	require.NoError(t, err)
	require.Empty(t, misses)
	return builder.Build()
}

func tinyBytes(t *testing.T, table *mappings.Table) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, mappings.WriteTiny(&buf, table))
	return buf.Bytes()
}

func TestTableCacheStoreAndLoadFromDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	table := cacheTestTable(t)
	report := types.ResolutionReport{
		Version:   "layered+hash.0123456789abcdef",
		Label:     "widget",
		CreatedAt: "2026-10-01T10:00:00Z",
	}

	writer, err := NewTableCacheAdapter(dir, 2)
	require.NoError(t, err)
	require.NoError(t, writer.Store(ctx, table, report))
	assert.FileExists(t, filepath.Join(dir, "layers", "layered_hash_0123456789abcdef", cacheTableFile))
	assert.FileExists(t, filepath.Join(dir, "layers", "layered_hash_0123456789abcdef", cacheSignaturesFile))

	reader, err := NewTableCacheAdapter(dir, 2)
	require.NoError(t, err)
	loaded, loadedReport, ok, err := reader.Load(ctx, report.Version)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, report.Label, loadedReport.Label)
	assert.Equal(t, tinyBytes(t, table), tinyBytes(t, loaded))
	assert.Equal(t, table.Signatures(), loaded.Signatures())
}

func TestTableCacheLoadMiss(t *testing.T) {
	cache, err := NewTableCacheAdapter(t.TempDir(), 0)
	require.NoError(t, err)
	_, _, ok, err := cache.Load(context.Background(), "layered+hash.ffffffffffffffff")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTableCacheDetectsTampering(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	version := "layered+hash.00000000000000aa"
	writer, err := NewTableCacheAdapter(dir, 1)
	require.NoError(t, err)
	require.NoError(t, writer.Store(ctx, cacheTestTable(t), types.ResolutionReport{Version: version}))

	path := filepath.Join(dir, "layers", cacheDirName(version), cacheTableFile)
	require.NoError(t, os.WriteFile(path, []byte("tiny\t2\t0\tofficial\tnamed\n"), 0o644))

	reader, err := NewTableCacheAdapter(dir, 1)
	require.NoError(t, err)
	_, _, _, err = reader.Load(ctx, version)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindIntegrity))
}

func TestTableCacheListAndDelete(t *testing.T) {
	ctx := context.Background()
	cache, err := NewTableCacheAdapter(t.TempDir(), 4)
	require.NoError(t, err)
	table := cacheTestTable(t)
	require.NoError(t, cache.Store(ctx, table, types.ResolutionReport{Version: "layered+hash.1", CreatedAt: "2026-01-01T00:00:00Z"}))
	require.NoError(t, cache.Store(ctx, table, types.ResolutionReport{Version: "layered+hash.2", CreatedAt: "2026-02-01T00:00:00Z"}))

	infos, err := cache.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "layered+hash.2", infos[0].Version, "newest first")

	require.NoError(t, cache.Delete(ctx, "layered+hash.2"))
	_, _, ok, err := cache.Load(ctx, "layered+hash.2")
	require.NoError(t, err)
	assert.False(t, ok)

	infos, err = cache.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
}

func TestTableCacheLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	cache, err := NewTableCacheAdapter(t.TempDir(), 1)
	require.NoError(t, err)
	release, err := cache.Lock(ctx, "layered+hash.1")
	require.NoError(t, err)

	blocked, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = cache.Lock(blocked, "layered+hash.1")
	require.Error(t, err)

	release()
	again, err := cache.Lock(ctx, "layered+hash.1")
	require.NoError(t, err)
	again()
}
