package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"layered-remap/internal/mappings"
	"layered-remap/internal/ports"
	"layered-remap/internal/types"
)

type ResolutionConfig struct {
	GameVersion                string
	Namespaces                 []string
	AcknowledgeOfficialLicense bool
}

// Resolution is the outcome of resolving an ordered layer list.
type Resolution struct {
	Table             *mappings.Table
	Version           string
	Label             string
	CoordinateVersion string
	Layers            []types.LayerSummary
	Warnings          []string
	CacheHit          bool
}

// LayerResolver merges layer lists into unified tables. Cache is optional;
// without it every call builds the table.
type LayerResolver struct {
	Artifacts ports.ArtifactResolverPort
	Official  ports.OfficialMappingsPort
	Archives  ports.ArchivePort
	Cache     ports.TableCachePort
	Clock     func() time.Time

	group *singleflight.Group
}

func NewLayerResolver(artifacts ports.ArtifactResolverPort, official ports.OfficialMappingsPort, archives ports.ArchivePort, cache ports.TableCachePort) LayerResolver {
	return LayerResolver{
		Artifacts: artifacts,
		Official:  official,
		Archives:  archives,
		Cache:     cache,
		Clock:     time.Now,
		group:     &singleflight.Group{},
	}
}

func (r LayerResolver) Resolve(ctx context.Context, specs []types.LayerSpec, cfg ResolutionConfig) (Resolution, error) {
	if r.Artifacts == nil || r.Archives == nil {
		return Resolution{}, types.ConfigurationError("layer resolver requires artifact and archive ports")
	}
	namespaces := cfg.Namespaces
	if len(namespaces) == 0 {
		namespaces = types.DefaultNamespaces()
	}
	if err := validateNamespaces(namespaces); err != nil {
		return Resolution{}, err
	}
	if err := ValidateLayers(specs); err != nil {
		return Resolution{}, err
	}
	for i, spec := range specs {
		if spec.Kind() == types.LayerKindOfficial && !cfg.AcknowledgeOfficialLicense {
			return Resolution{}, types.ConsentRequiredError(i, spec.Kind(),
				"official mappings are subject to the vendor licence; set acknowledge_official_license to use them")
		}
	}

	layers, err := r.materialize(ctx, specs, cfg)
	if err != nil {
		return Resolution{}, err
	}
	summaries := make([]types.LayerSummary, len(layers))
	for i, layer := range layers {
		summaries[i] = types.LayerSummary{
			Index:       layer.index,
			Kind:        layer.spec.Kind(),
			Source:      layer.artifact.DisplayName(),
			Fingerprint: layer.fingerprint,
			Label:       layer.label,
		}
	}
	version := DeriveVersion(namespaces, summaries)
	log.Ctx(ctx).Debug().Str("version", version).Int("layers", len(layers)).Msg("layer list materialised")

	group := r.group
	if group == nil {
		group = &singleflight.Group{}
	}
	value, err, shared := group.Do(version, func() (any, error) {
		return r.resolveVersion(ctx, version, namespaces, layers, summaries, cfg)
	})
	if err != nil {
		return Resolution{}, err
	}
	resolution := value.(Resolution)
	if shared {
		log.Ctx(ctx).Debug().Str("version", version).Msg("resolution shared with a concurrent caller")
	}
	return resolution, nil
}

func (r LayerResolver) resolveVersion(ctx context.Context, version string, namespaces []string, layers []materializedLayer, summaries []types.LayerSummary, cfg ResolutionConfig) (Resolution, error) {
	base := Resolution{
		Version:           version,
		Label:             ReadableLabel(summaries),
		CoordinateVersion: CoordinateVersion(cfg.GameVersion, version),
		Layers:            summaries,
	}
	if r.Cache == nil {
		table, warnings, err := r.build(ctx, namespaces, layers)
		if err != nil {
			return Resolution{}, err
		}
		base.Table = table
		base.Warnings = warnings
		return base, nil
	}

	if resolution, ok, err := r.loadCached(ctx, base); err != nil || ok {
		return resolution, err
	}
	release, err := r.Cache.Lock(ctx, version)
	if err != nil {
		return Resolution{}, err
	}
	defer release()
	// Another process may have built the table while we waited for the lock.
	if resolution, ok, err := r.loadCached(ctx, base); err != nil || ok {
		return resolution, err
	}

	table, warnings, err := r.build(ctx, namespaces, layers)
	if err != nil {
		return Resolution{}, err
	}
	base.Table = table
	base.Warnings = warnings
	report := ReportFor(base, cfg.GameVersion, r.now())
	if err := r.Cache.Store(ctx, table, report); err != nil {
		return Resolution{}, err
	}
	log.Ctx(ctx).Info().Str("version", version).Str("label", base.Label).Msg("unified table cached")
	return base, nil
}

func (r LayerResolver) loadCached(ctx context.Context, base Resolution) (Resolution, bool, error) {
	table, report, ok, err := r.Cache.Load(ctx, base.Version)
	if err != nil || !ok {
		return Resolution{}, false, err
	}
	base.Table = table
	base.Warnings = report.Warnings
	base.CacheHit = true
	log.Ctx(ctx).Debug().Str("version", base.Version).Msg("unified table loaded from cache")
	return base, true, nil
}

func (r LayerResolver) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}

// build folds every layer, in order, into a fresh builder.
func (r LayerResolver) build(ctx context.Context, namespaces []string, layers []materializedLayer) (*mappings.Table, []string, error) {
	builder := mappings.NewBuilder(namespaces)
	var warnings []string
	for _, layer := range layers {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		added, err := r.contribute(ctx, layer, builder)
		if err != nil {
			return nil, nil, types.AttachLayer(err, layer.index, layer.spec.Kind())
		}
		warnings = append(warnings, added...)
		log.Ctx(ctx).Debug().Int("layer", layer.index).Str("kind", string(layer.spec.Kind())).Msg("layer merged")
	}
	table := builder.Build()
	assert.NotEmpty(ctx, table.Namespaces()[0], "unified table must have a primary namespace")
	return table, warnings, nil
}

// materialize fetches and digests the artifact of every layer without
// parsing it.
func (r LayerResolver) materialize(ctx context.Context, specs []types.LayerSpec, cfg ResolutionConfig) ([]materializedLayer, error) {
	layers := make([]materializedLayer, 0, len(specs))
	for i, spec := range specs {
		artifact, err := r.fetch(ctx, spec, cfg)
		if err != nil {
			if types.IsKind(err, types.ErrorKindConfiguration) {
				return nil, types.AttachLayer(err, i, spec.Kind())
			}
			return nil, types.ResolutionError(i, spec.Kind(), "failed to resolve layer artifact", err)
		}
		if artifact.Digest == "" {
			digest, err := fileDigest(artifact.Path)
			if err != nil {
				return nil, types.ResolutionError(i, spec.Kind(), "failed to read layer artifact", err)
			}
			artifact.Digest = digest
		}
		layers = append(layers, materializedLayer{
			index:       i,
			spec:        spec,
			artifact:    artifact,
			fingerprint: layerFingerprint(spec, artifact),
			label:       layerLabel(spec, artifact, cfg.GameVersion),
		})
	}
	return layers, nil
}

func (r LayerResolver) fetch(ctx context.Context, spec types.LayerSpec, cfg ResolutionConfig) (types.ResolvedArtifact, error) {
	if official, ok := spec.(types.OfficialLayer); ok && official.Artifact.IsZero() {
		if r.Official == nil {
			return types.ResolvedArtifact{}, types.ConfigurationError("official layer without artifact requires a version manifest source")
		}
		gameVersion := firstNonEmpty(official.GameVersion, cfg.GameVersion)
		if gameVersion == "" {
			return types.ResolvedArtifact{}, types.ConfigurationError("official layer requires a game version")
		}
		return r.Official.Locate(ctx, gameVersion)
	}
	if spec.Source().IsZero() {
		return types.ResolvedArtifact{}, types.ConfigurationError("layer has no artifact")
	}
	return r.Artifacts.Resolve(ctx, spec.Source())
}

func fileDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// ReportFor describes resolution for the on-disk resolution.yaml.
func ReportFor(resolution Resolution, gameVersion string, now time.Time) types.ResolutionReport {
	report := types.ResolutionReport{
		Version:           resolution.Version,
		Label:             resolution.Label,
		CoordinateVersion: resolution.CoordinateVersion,
		GameVersion:       gameVersion,
		Layers:            resolution.Layers,
		Warnings:          resolution.Warnings,
		CreatedAt:         now.UTC().Format(time.RFC3339),
	}
	if resolution.Table != nil {
		report.Namespaces = resolution.Table.Namespaces()
		report.Stats = resolution.Table.Stats()
	}
	return report
}

func (r Resolution) String() string {
	return fmt.Sprintf("%s (%s)", r.Version, r.Label)
}
