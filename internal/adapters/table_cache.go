package adapters

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"layered-remap/internal/lockfile"
	"layered-remap/internal/mappings"
	"layered-remap/internal/types"
)

const (
	cacheTableFile      = "mappings.tiny"
	cacheMetadataFile   = "metadata.yaml"
	cacheSignaturesFile = "signatures.json"
	cacheLockFile       = ".lock"
	defaultMemoryTables = 16
)

// cacheMetadata is the metadata.yaml of a cached table.
type cacheMetadata struct {
	types.ResolutionReport `yaml:",inline"`
	Digest                 string `yaml:"digest"`
}

type cachedTable struct {
	table  *mappings.Table
	report types.ResolutionReport
}

// TableCacheAdapter keeps unified tables under <dir>/layers/<version>/ and
// the most recently used ones in memory.
type TableCacheAdapter struct {
	Dir    string
	memory *lru.Cache[string, cachedTable]
}

func NewTableCacheAdapter(dir string, memorySize int) (*TableCacheAdapter, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, types.ConfigurationError("cache directory is required")
	}
	if memorySize <= 0 {
		memorySize = defaultMemoryTables
	}
	memory, err := lru.New[string, cachedTable](memorySize)
	if err != nil {
		return nil, err
	}
	return &TableCacheAdapter{Dir: dir, memory: memory}, nil
}

func (a *TableCacheAdapter) root() string {
	return filepath.Join(a.Dir, "layers")
}

func (a *TableCacheAdapter) versionDir(version string) string {
	return filepath.Join(a.root(), cacheDirName(version))
}

func cacheDirName(version string) string {
	var builder strings.Builder
	for _, r := range version {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			builder.WriteRune(r)
		} else {
			builder.WriteByte('_')
		}
	}
	return builder.String()
}

func (a *TableCacheAdapter) Load(ctx context.Context, version string) (*mappings.Table, types.ResolutionReport, bool, error) {
	if cached, ok := a.memory.Get(version); ok {
		return cached.table, cached.report, true, nil
	}
	dir := a.versionDir(version)
	metadataPath := filepath.Join(dir, cacheMetadataFile)
	raw, err := os.ReadFile(metadataPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.ResolutionReport{}, false, nil
		}
		return nil, types.ResolutionReport{}, false, err
	}
	var metadata cacheMetadata
	if err := yaml.Unmarshal(raw, &metadata); err != nil {
		return nil, types.ResolutionReport{}, false, types.IntegrityError(metadataPath, "cached metadata is unreadable", err)
	}
	if metadata.Version != version {
		return nil, types.ResolutionReport{}, false, types.IntegrityError(metadataPath, fmt.Sprintf("cached metadata describes %s, expected %s", metadata.Version, version), nil)
	}
	tablePath := filepath.Join(dir, cacheTableFile)
	data, err := os.ReadFile(tablePath)
	if err != nil {
		return nil, types.ResolutionReport{}, false, types.IntegrityError(tablePath, "cached table is missing", err)
	}
	sum := sha256.Sum256(data)
	if actual := hex.EncodeToString(sum[:]); actual != metadata.Digest {
		return nil, types.ResolutionReport{}, false, types.IntegrityError(tablePath, fmt.Sprintf("digest mismatch: expected %s, got %s", metadata.Digest, actual), nil)
	}
	tree, err := mappings.ReadTiny(bytes.NewReader(data), tablePath)
	if err != nil {
		return nil, types.ResolutionReport{}, false, err
	}
	builder := mappings.NewBuilder(tree.Namespaces)
	if _, err := builder.Merge(tree, mappings.MergeOptions{}); err != nil {
		return nil, types.ResolutionReport{}, false, types.IntegrityError(tablePath, "cached table is inconsistent", err)
	}
	signaturesPath := filepath.Join(dir, cacheSignaturesFile)
	if sigData, err := os.ReadFile(signaturesPath); err == nil {
		var sigs types.RecordSignatures
		if err := json.Unmarshal(sigData, &sigs); err != nil {
			return nil, types.ResolutionReport{}, false, types.IntegrityError(signaturesPath, "cached signatures are unreadable", err)
		}
		if _, err := builder.ApplySignatures(tree.Namespaces[0], sigs); err != nil {
			return nil, types.ResolutionReport{}, false, types.IntegrityError(signaturesPath, "cached signatures are inconsistent", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, types.ResolutionReport{}, false, err
	}
	table := builder.Build()
	a.memory.Add(version, cachedTable{table: table, report: metadata.ResolutionReport})
	log.Ctx(ctx).Debug().Str("version", version).Str("dir", dir).Msg("cached table loaded")
	return table, metadata.ResolutionReport, true, nil
}

// Store writes the table into a staging directory and renames it into
// place, so readers never observe a partial entry.
func (a *TableCacheAdapter) Store(ctx context.Context, table *mappings.Table, report types.ResolutionReport) error {
	if report.Version == "" {
		return types.ConfigurationError("cannot cache a table without a version")
	}
	var tiny bytes.Buffer
	if err := mappings.WriteTiny(&tiny, table); err != nil {
		return err
	}
	sum := sha256.Sum256(tiny.Bytes())
	metadata := cacheMetadata{ResolutionReport: report, Digest: hex.EncodeToString(sum[:])}
	metadataData, err := yaml.Marshal(metadata)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(a.root(), 0o755); err != nil {
		return err
	}
	final := a.versionDir(report.Version)
	staging, err := os.MkdirTemp(a.root(), "."+cacheDirName(report.Version)+"-")
	if err != nil {
		return err
	}
	cleanup := func() { _ = os.RemoveAll(staging) }
	if err := os.WriteFile(filepath.Join(staging, cacheTableFile), tiny.Bytes(), 0o644); err != nil {
		cleanup()
		return err
	}
	if sigs := table.Signatures(); len(sigs.Signatures) > 0 || len(sigs.Fields) > 0 {
		sigData, err := json.MarshalIndent(sigs, "", "  ")
		if err != nil {
			cleanup()
			return err
		}
		if err := os.WriteFile(filepath.Join(staging, cacheSignaturesFile), sigData, 0o644); err != nil {
			cleanup()
			return err
		}
	}
	if err := os.WriteFile(filepath.Join(staging, cacheMetadataFile), metadataData, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.RemoveAll(final); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(staging, final); err != nil {
		cleanup()
		return err
	}
	a.memory.Add(report.Version, cachedTable{table: table, report: report})
	log.Ctx(ctx).Debug().Str("version", report.Version).Str("dir", final).Msg("table cached")
	return nil
}

func (a *TableCacheAdapter) Lock(ctx context.Context, version string) (func(), error) {
	path := filepath.Join(a.root(), cacheDirName(version)+cacheLockFile)
	lock, err := lockfile.TryAcquire(path)
	if errors.Is(err, lockfile.ErrAlreadyLocked) {
		event := log.Ctx(ctx).Info().Str("version", version).Str("lock", path)
		if holder, holderErr := lockfile.ReadHolder(path); holderErr == nil {
			event = event.Int("pid", holder.PID).Time("since", holder.Acquired)
		}
		event.Msg("waiting for another resolution of this version")
		lock, err = lockfile.Acquire(ctx, path)
	}
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Release(); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("lock", path).Msg("failed to release cache lock")
		}
	}, nil
}

func (a *TableCacheAdapter) List(ctx context.Context) ([]types.CachedTableInfo, error) {
	entries, err := os.ReadDir(a.root())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var infos []types.CachedTableInfo
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(a.root(), entry.Name())
		metadataPath := filepath.Join(dir, cacheMetadataFile)
		raw, err := os.ReadFile(metadataPath)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("dir", dir).Msg("skipping cache entry without metadata")
			continue
		}
		var metadata cacheMetadata
		if err := yaml.Unmarshal(raw, &metadata); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("dir", dir).Msg("skipping cache entry with unreadable metadata")
			continue
		}
		infos = append(infos, types.CachedTableInfo{
			Version:   metadata.Version,
			Label:     metadata.Label,
			Dir:       dir,
			CreatedAt: cacheEntryTime(metadata.CreatedAt, metadataPath),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.After(infos[j].CreatedAt)
		}
		return infos[i].Version < infos[j].Version
	})
	return infos, nil
}

func (a *TableCacheAdapter) Delete(ctx context.Context, version string) error {
	a.memory.Remove(version)
	dir := a.versionDir(version)
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	log.Ctx(ctx).Debug().Str("version", version).Str("dir", dir).Msg("cached table deleted")
	return nil
}
