package core

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"layered-remap/internal/types"
)

const versionPrefix = "layered+hash."

// materializedLayer is a layer whose backing artifact has been fetched and
// digested but not parsed yet.
type materializedLayer struct {
	index       int
	spec        types.LayerSpec
	artifact    types.ResolvedArtifact
	fingerprint string
	label       string
}

// DeriveVersion hashes the namespace list and every layer fingerprint in
// order. Reordering layers or changing any artifact changes the result.
func DeriveVersion(namespaces []string, layers []types.LayerSummary) string {
	hash := sha256.New()
	hash.Write([]byte(strings.Join(namespaces, "\t")))
	hash.Write([]byte("\n"))
	for _, layer := range layers {
		hash.Write([]byte(string(layer.Kind)))
		hash.Write([]byte("\t"))
		hash.Write([]byte(layer.Fingerprint))
		hash.Write([]byte("\n"))
	}
	return versionPrefix + hex.EncodeToString(hash.Sum(nil))[:16]
}

// ReadableLabel joins the layer labels into a name such as
// official_1_20_1-yarn_1_20_1_build_1.
func ReadableLabel(layers []types.LayerSummary) string {
	labels := make([]string, 0, len(layers))
	for _, layer := range layers {
		if layer.Label != "" {
			labels = append(labels, layer.Label)
		}
	}
	return strings.Join(labels, "-")
}

// CoordinateVersion is the version used for generated coordinates, for
// example layers/1_20_1_layered_hash_0011223344556677.
func CoordinateVersion(gameVersion string, version string) string {
	replacer := strings.NewReplacer("+", "_", ".", "_")
	if strings.TrimSpace(gameVersion) == "" {
		return replacer.Replace(version)
	}
	return replacer.Replace(gameVersion + "_" + version)
}

// SanitizeVersion turns a version into a label segment made of letters,
// digits and underscores.
func SanitizeVersion(value string) string {
	var builder strings.Builder
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}
	return builder.String()
}

func layerLabel(spec types.LayerSpec, artifact types.ResolvedArtifact, gameVersion string) string {
	if official, ok := spec.(types.OfficialLayer); ok {
		return string(types.LayerKindOfficial) + "_" + SanitizeVersion(firstNonEmpty(official.GameVersion, gameVersion))
	}
	if artifact.Coordinate.Artifact != "" {
		return SanitizeVersion(artifact.Coordinate.Artifact) + "_" + SanitizeVersion(artifact.Coordinate.Version)
	}
	base := filepath.Base(artifact.Path)
	return SanitizeVersion(strings.TrimSuffix(base, filepath.Ext(base)))
}

func layerFingerprint(spec types.LayerSpec, artifact types.ResolvedArtifact) string {
	var builder strings.Builder
	// Local files are identified by base name so the version does not
	// depend on where the project is checked out.
	if artifact.Coordinate.Artifact != "" {
		builder.WriteString(artifact.Coordinate.String())
	} else {
		builder.WriteString(filepath.Base(artifact.Path))
	}
	builder.WriteString("@sha256:")
	builder.WriteString(artifact.Digest)
	switch layer := spec.(type) {
	case types.ParameterOverlayLayer:
		if layer.RemovePrefix {
			builder.WriteString(";remove-prefix")
		}
	case types.SignatureFixLayer:
		builder.WriteString(";namespace=")
		builder.WriteString(signatureNamespace(layer))
	}
	return builder.String()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
