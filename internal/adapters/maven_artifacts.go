package adapters

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"layered-remap/internal/types"
)

// MavenArtifactAdapter resolves layer artifacts. Plain paths are used as
// they are; coordinates are looked up in the local cache and then in each
// repository in order.
type MavenArtifactAdapter struct {
	CacheDir     string
	Repositories []string
	Offline      bool
	HTTP         HTTPOptions
	S3           S3Options
	// BaseDir anchors relative artifact paths, usually the project file's
	// directory.
	BaseDir string
}

func NewMavenArtifactAdapter(cacheDir string, repositories []string, offline bool) MavenArtifactAdapter {
	return MavenArtifactAdapter{
		CacheDir:     cacheDir,
		Repositories: repositories,
		Offline:      offline,
	}
}

func (a MavenArtifactAdapter) Resolve(ctx context.Context, ref types.ArtifactRef) (types.ResolvedArtifact, error) {
	if strings.TrimSpace(ref.Path) != "" {
		return a.resolvePath(ref)
	}
	coord, err := types.ParseCoordinate(ref.Coordinate)
	if err != nil {
		return types.ResolvedArtifact{}, types.ConfigurationError(err.Error())
	}
	repos, err := a.repositories()
	if err != nil {
		return types.ResolvedArtifact{}, err
	}
	if isDynamicVersion(coord.Version) || isSpecifierSet(coord.Version) {
		version, err := a.selectRemoteVersion(ctx, coord, repos)
		if err != nil {
			return types.ResolvedArtifact{}, err
		}
		log.Debug().Str("coordinate", ref.Coordinate).Str("version", version).Msg("dynamic version selected")
		coord.Version = version
	}
	target := a.cachePath(coord)
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		return a.resolved(ref, coord, target)
	}
	if a.Offline {
		return types.ResolvedArtifact{}, types.MissingArtifactError(target, fmt.Errorf("%s is not cached and offline mode is enabled", coord.String()))
	}
	for _, repo := range repos {
		found, err := download(ctx, repo, coord.RepositoryPath(), target)
		if err != nil {
			return types.ResolvedArtifact{}, types.MissingArtifactError(target, fmt.Errorf("fetch %s from %s: %w", coord.String(), repo.String(), err))
		}
		if found {
			log.Info().Str("artifact", coord.String()).Str("repository", repo.String()).Msg("artifact downloaded")
			return a.resolved(ref, coord, target)
		}
	}
	return types.ResolvedArtifact{}, types.MissingArtifactError(target, fmt.Errorf("%s not found in %d repositories", coord.String(), len(repos)))
}

func (a MavenArtifactAdapter) resolvePath(ref types.ArtifactRef) (types.ResolvedArtifact, error) {
	path := strings.TrimSpace(ref.Path)
	if !filepath.IsAbs(path) && a.BaseDir != "" {
		path = filepath.Join(a.BaseDir, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return types.ResolvedArtifact{}, types.MissingArtifactError(path, err)
	}
	if info.IsDir() {
		return types.ResolvedArtifact{Ref: ref, Path: path}, nil
	}
	return a.resolved(ref, types.Coordinate{}, path)
}

func (a MavenArtifactAdapter) resolved(ref types.ArtifactRef, coord types.Coordinate, path string) (types.ResolvedArtifact, error) {
	digest, err := sha256File(path)
	if err != nil {
		return types.ResolvedArtifact{}, types.MissingArtifactError(path, err)
	}
	return types.ResolvedArtifact{
		Ref:        ref,
		Coordinate: coord,
		Path:       path,
		Digest:     digest,
	}, nil
}

func (a MavenArtifactAdapter) cachePath(coord types.Coordinate) string {
	return filepath.Join(a.CacheDir, "artifacts", filepath.FromSlash(coord.RepositoryPath()))
}

func (a MavenArtifactAdapter) repositories() ([]mavenRepository, error) {
	repos := make([]mavenRepository, 0, len(a.Repositories))
	for _, value := range a.Repositories {
		repo, err := parseRepository(value, a.HTTP, a.S3)
		if err != nil {
			return nil, types.ConfigurationError(fmt.Sprintf("repository %q: %s", value, errorMessage(err)))
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

// selectRemoteVersion merges the versions listed by every reachable
// repository's maven-metadata.xml, or the cached metadata when offline.
func (a MavenArtifactAdapter) selectRemoteVersion(ctx context.Context, coord types.Coordinate, repos []mavenRepository) (string, error) {
	metadataPath := filepath.Join(a.CacheDir, "artifacts", filepath.FromSlash(coord.ArtifactDir()), "maven-metadata.xml")
	seen := map[string]struct{}{}
	var versions []string
	collect := func(data []byte) error {
		metadata, err := parseMavenMetadata(data)
		if err != nil {
			return err
		}
		for _, version := range metadata.Versioning.Versions {
			if _, ok := seen[version]; ok {
				continue
			}
			seen[version] = struct{}{}
			versions = append(versions, version)
		}
		return nil
	}
	if a.Offline {
		data, err := os.ReadFile(metadataPath)
		if err != nil {
			return "", types.MissingArtifactError(metadataPath, err)
		}
		if err := collect(data); err != nil {
			return "", types.FormatError(metadataPath, 0, errorMessage(err))
		}
	} else {
		for _, repo := range repos {
			reader, found, err := repo.Open(ctx, coord.ArtifactDir()+"/maven-metadata.xml")
			if err != nil {
				return "", types.MissingArtifactError(metadataPath, err)
			}
			if !found {
				continue
			}
			data, err := io.ReadAll(reader)
			reader.Close()
			if err != nil {
				return "", types.MissingArtifactError(metadataPath, err)
			}
			if err := collect(data); err != nil {
				return "", types.FormatError(repo.String()+"/"+coord.ArtifactDir()+"/maven-metadata.xml", 0, errorMessage(err))
			}
			if err := writeFileAtomic(metadataPath, data); err != nil {
				log.Warn().Err(err).Str("path", metadataPath).Msg("failed to cache maven metadata")
			}
		}
	}
	version, err := selectVersion(coord.Version, versions)
	if err != nil {
		return "", types.MissingArtifactError(metadataPath, err)
	}
	return version, nil
}

// download copies rel from repo into target through a sibling .part file so
// an interrupted transfer never leaves a partial artifact in the cache.
func download(ctx context.Context, repo mavenRepository, rel string, target string) (bool, error) {
	reader, found, err := repo.Open(ctx, rel)
	if err != nil || !found {
		return false, err
	}
	defer reader.Close()
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return false, err
	}
	part := target + ".part"
	file, err := os.Create(part)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		_ = os.Remove(part)
		return false, err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(part)
		return false, err
	}
	if err := os.Rename(part, target); err != nil {
		_ = os.Remove(part)
		return false, err
	}
	return true, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	part := path + ".part"
	if err := os.WriteFile(part, data, 0o644); err != nil {
		return err
	}
	return os.Rename(part, path)
}

func sha256File(path string) (string, error) {
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

func errorMessage(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && builder.Msg != "" {
		return builder.Msg
	}
	return err.Error()
}
