package adapters

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"layered-remap/internal/types"
)

const DefaultVersionManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

// VersionManifestAdapter locates the vendor's client mappings for a game
// version: manifest, then the version document, then the client_mappings
// download. Results are cached under <cache>/official/<version>/.
type VersionManifestAdapter struct {
	ManifestURL string
	CacheDir    string
	Offline     bool
	HTTP        HTTPOptions
}

func NewVersionManifestAdapter(cacheDir string, offline bool) VersionManifestAdapter {
	return VersionManifestAdapter{
		ManifestURL: DefaultVersionManifestURL,
		CacheDir:    cacheDir,
		Offline:     offline,
	}
}

type versionManifest struct {
	Versions []struct {
		ID   string `json:"id"`
		URL  string `json:"url"`
		SHA1 string `json:"sha1"`
	} `json:"versions"`
}

type versionDocument struct {
	ID        string `json:"id"`
	Downloads map[string]struct {
		SHA1 string `json:"sha1"`
		Size int64  `json:"size"`
		URL  string `json:"url"`
	} `json:"downloads"`
}

func (a VersionManifestAdapter) Locate(ctx context.Context, gameVersion string) (types.ResolvedArtifact, error) {
	gameVersion = strings.TrimSpace(gameVersion)
	if gameVersion == "" {
		return types.ResolvedArtifact{}, types.ConfigurationError("game version is required to locate official mappings")
	}
	target := filepath.Join(a.CacheDir, "official", gameVersion, "client_mappings.txt")
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		return officialArtifact(gameVersion, target)
	}
	if a.Offline {
		return types.ResolvedArtifact{}, types.MissingArtifactError(target, fmt.Errorf("official mappings for %s are not cached and offline mode is enabled", gameVersion))
	}
	cfg := normalizeHTTPConfig(a.HTTP.TimeoutSec, a.HTTP.Retries, a.HTTP.RetryDelayMs)
	manifestURL := a.ManifestURL
	if manifestURL == "" {
		manifestURL = DefaultVersionManifestURL
	}
	var manifest versionManifest
	if err := fetchJSON(ctx, manifestURL, cfg, &manifest); err != nil {
		return types.ResolvedArtifact{}, types.MissingArtifactError(manifestURL, err)
	}
	versionURL := ""
	for _, entry := range manifest.Versions {
		if entry.ID == gameVersion {
			versionURL = entry.URL
			break
		}
	}
	if versionURL == "" {
		return types.ResolvedArtifact{}, types.MissingArtifactError(manifestURL, fmt.Errorf("game version %s is not listed in the version manifest", gameVersion))
	}
	var document versionDocument
	if err := fetchJSON(ctx, versionURL, cfg, &document); err != nil {
		return types.ResolvedArtifact{}, types.MissingArtifactError(versionURL, err)
	}
	download, ok := document.Downloads["client_mappings"]
	if !ok || download.URL == "" {
		return types.ResolvedArtifact{}, types.MissingArtifactError(versionURL, fmt.Errorf("game version %s publishes no client mappings", gameVersion))
	}
	data, err := fetchBytes(ctx, download.URL, cfg)
	if err != nil {
		return types.ResolvedArtifact{}, types.MissingArtifactError(download.URL, err)
	}
	if download.SHA1 != "" {
		sum := sha1.Sum(data)
		if actual := hex.EncodeToString(sum[:]); !strings.EqualFold(actual, download.SHA1) {
			return types.ResolvedArtifact{}, types.IntegrityError(download.URL, fmt.Sprintf("sha1 mismatch: expected %s, got %s", download.SHA1, actual), nil)
		}
	}
	if err := writeFileAtomic(target, data); err != nil {
		return types.ResolvedArtifact{}, types.MissingArtifactError(target, err)
	}
	log.Info().Str("game_version", gameVersion).Str("path", target).Msg("official mappings downloaded")
	return officialArtifact(gameVersion, target)
}

func officialArtifact(gameVersion string, path string) (types.ResolvedArtifact, error) {
	digest, err := sha256File(path)
	if err != nil {
		return types.ResolvedArtifact{}, types.MissingArtifactError(path, err)
	}
	return types.ResolvedArtifact{
		Ref: types.ArtifactRef{Path: path},
		Coordinate: types.Coordinate{
			Group:     "com.mojang",
			Artifact:  "client_mappings",
			Version:   gameVersion,
			Extension: "txt",
		},
		Path:   path,
		Digest: digest,
	}, nil
}

func fetchJSON(ctx context.Context, url string, cfg httpRetryConfig, target any) error {
	data, err := fetchBytes(ctx, url, cfg)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func fetchBytes(ctx context.Context, url string, cfg httpRetryConfig) ([]byte, error) {
	resp, err := doRequest(ctx, url, HTTPAuth{}, cfg)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, httpStatusError(resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}
