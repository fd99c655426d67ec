package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"layered-remap/internal/mappings"
	"layered-remap/internal/ports"
	"layered-remap/internal/types"
)

// testArtifacts resolves coordinates to files registered by the test and
// paths to themselves.
type testArtifacts struct {
	files map[string]string
}

func (a testArtifacts) Resolve(ctx context.Context, ref types.ArtifactRef) (types.ResolvedArtifact, error) {
	if ref.Path != "" {
		if _, err := os.Stat(ref.Path); err != nil {
			return types.ResolvedArtifact{}, err
		}
		return types.ResolvedArtifact{Ref: ref, Path: ref.Path}, nil
	}
	path, ok := a.files[ref.Coordinate]
	if !ok {
		return types.ResolvedArtifact{}, types.MissingArtifactError(ref.Coordinate, fmt.Errorf("artifact %s not found", ref.Coordinate))
	}
	coord, err := types.ParseCoordinate(ref.Coordinate)
	if err != nil {
		return types.ResolvedArtifact{}, err
	}
	return types.ResolvedArtifact{Ref: ref, Coordinate: coord, Path: path}, nil
}

type testOfficial struct {
	path string
}

func (o testOfficial) Locate(ctx context.Context, gameVersion string) (types.ResolvedArtifact, error) {
	return types.ResolvedArtifact{Path: o.path}, nil
}

// testArchives stores an archive as a JSON list of entries so tests can
// inspect and fabricate jars without a zip codec.
type testArchives struct{}

func (testArchives) read(path string) ([]types.ArchiveEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []types.ArchiveEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (a testArchives) ReadEntry(path string, name string) ([]byte, bool, error) {
	entries, err := a.read(path)
	if err != nil {
		return nil, false, err
	}
	for _, entry := range entries {
		if entry.Name == name {
			return entry.Data, true, nil
		}
	}
	return nil, false, nil
}

func (a testArchives) Walk(path string, fn func(entry types.ArchiveEntry) error) error {
	entries, err := a.read(path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}

func (testArchives) Create(path string) (ports.ArchiveWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	// A partial write is visible until Close, like a real jar writer.
	_, _ = file.WriteString("[")
	return &testArchiveWriter{path: path, file: file}, nil
}

type testArchiveWriter struct {
	path    string
	file    *os.File
	entries []types.ArchiveEntry
}

func (w *testArchiveWriter) Put(entry types.ArchiveEntry) error {
	w.entries = append(w.entries, entry)
	return nil
}

func (w *testArchiveWriter) Close() error {
	data, err := json.Marshal(w.entries)
	if err != nil {
		return err
	}
	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.WriteAt(data, 0); err != nil {
		return err
	}
	return w.file.Close()
}

func (w *testArchiveWriter) Abort() error {
	_ = w.file.Close()
	return os.Remove(w.path)
}

func writeTestArchive(t *testing.T, path string, entries ...types.ArchiveEntry) {
	t.Helper()
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func readTestArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	entries, err := testArchives{}.read(path)
	require.NoError(t, err)
	out := map[string]string{}
	for _, entry := range entries {
		out[entry.Name] = string(entry.Data)
	}
	return out
}

// testRewriter treats a class body as "name" or "name:ref,ref" and maps
// every name through the provider. A body of "boom" fails.
type testRewriter struct{}

func (testRewriter) NewSession(provider mappings.SymbolProvider) ports.RewriteSession {
	return &testSession{provider: provider}
}

type testSession struct {
	provider   mappings.SymbolProvider
	registered int
}

func (s *testSession) Register(data []byte) error {
	s.registered++
	return nil
}

func (s *testSession) Rewrite(data []byte) (string, []byte, error) {
	body := string(data)
	if body == "boom" {
		return "", nil, errors.New("corrupt class file")
	}
	name, refs, _ := strings.Cut(body, ":")
	mapped := mappings.ClassName(s.provider, name)
	var out []string
	if refs != "" {
		for _, ref := range strings.Split(refs, ",") {
			out = append(out, mappings.ClassName(s.provider, ref))
		}
	}
	return mapped, []byte(mapped + ":" + strings.Join(out, ",")), nil
}

// testCache is an in-memory table cache.
type testCache struct {
	mu      sync.Mutex
	tables  map[string]*mappings.Table
	reports map[string]types.ResolutionReport
	stores  int
	locks   int
}

func newTestCache() *testCache {
	return &testCache{tables: map[string]*mappings.Table{}, reports: map[string]types.ResolutionReport{}}
}

func (c *testCache) Load(ctx context.Context, version string) (*mappings.Table, types.ResolutionReport, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	table, ok := c.tables[version]
	return table, c.reports[version], ok, nil
}

func (c *testCache) Store(ctx context.Context, table *mappings.Table, report types.ResolutionReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[report.Version] = table
	c.reports[report.Version] = report
	c.stores++
	return nil
}

func (c *testCache) Lock(ctx context.Context, version string) (func(), error) {
	c.mu.Lock()
	c.locks++
	c.mu.Unlock()
	return func() {}, nil
}

func (c *testCache) List(ctx context.Context) ([]types.CachedTableInfo, error) {
	return nil, nil
}

func (c *testCache) Delete(ctx context.Context, version string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, version)
	return nil
}

func writeFile(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
