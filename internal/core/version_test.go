package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layered-remap/internal/types"
)

// ---------------------------------------------------------------------------
// DeriveVersion
// ---------------------------------------------------------------------------

func TestDeriveVersionIsDeterministic(t *testing.T) {
	layers := []types.LayerSummary{
		{Kind: types.LayerKindOfficial, Fingerprint: "client.txt@sha256:aa"},
		{Kind: types.LayerKindCommunity, Fingerprint: "net.fabricmc:yarn:1.20.1+build.1@sha256:bb"},
	}
	first := DeriveVersion(types.DefaultNamespaces(), layers)
	second := DeriveVersion(types.DefaultNamespaces(), layers)
	assert.Equal(t, first, second)
	require.Len(t, first, len("layered+hash.")+16)
	assert.Regexp(t, `^layered\+hash\.[0-9a-f]{16}$`, first)
}

func TestDeriveVersionDependsOnLayers(t *testing.T) {
	a := types.LayerSummary{Kind: types.LayerKindIntermediary, Fingerprint: "a@sha256:01"}
	b := types.LayerSummary{Kind: types.LayerKindCommunity, Fingerprint: "b@sha256:02"}
	ns := types.DefaultNamespaces()

	base := DeriveVersion(ns, []types.LayerSummary{a, b})
	assert.NotEqual(t, base, DeriveVersion(ns, []types.LayerSummary{b, a}), "order matters")
	assert.NotEqual(t, base, DeriveVersion(ns, []types.LayerSummary{a}), "layer count matters")
	changed := b
	changed.Fingerprint = "b@sha256:03"
	assert.NotEqual(t, base, DeriveVersion(ns, []types.LayerSummary{a, changed}), "content matters")
	assert.NotEqual(t, base, DeriveVersion([]string{"official", "named"}, []types.LayerSummary{a, b}), "namespaces matter")
}

// ---------------------------------------------------------------------------
// Labels
// ---------------------------------------------------------------------------

func TestReadableLabelForOfficialAndYarn(t *testing.T) {
	yarn, err := types.ParseCoordinate("net.fabricmc:yarn:1.20.1+build.1:v2")
	require.NoError(t, err)

	layers := []types.LayerSummary{
		{Label: layerLabel(types.OfficialLayer{GameVersion: "1.20.1"}, types.ResolvedArtifact{Path: "/cache/client.txt"}, "1.20.1")},
		{Label: layerLabel(types.CommunityLayer{}, types.ResolvedArtifact{Coordinate: yarn}, "1.20.1")},
	}
	assert.Equal(t, "official_1_20_1-yarn_1_20_1_build_1", ReadableLabel(layers))
}

func TestLayerLabelForLocalFile(t *testing.T) {
	label := layerLabel(types.CraneLayer{}, types.ResolvedArtifact{Path: "/tmp/crane-1.20.1+build.3.tiny"}, "")
	assert.Equal(t, "crane_1_20_1_build_3", label)
}

func TestCoordinateVersion(t *testing.T) {
	assert.Equal(t, "1_20_1_yarn_1_20_1_build_1", CoordinateVersion("1.20.1", "yarn+1.20.1+build.1"))
	assert.Equal(t, "1_20_1_layered_hash_0123456789abcdef", CoordinateVersion("1.20.1", "layered+hash.0123456789abcdef"))
}

func TestSanitizeVersion(t *testing.T) {
	assert.Equal(t, "1_20_1_pre1", SanitizeVersion("1.20.1-pre1"))
	assert.Equal(t, "", SanitizeVersion("  "))
}

func TestLayerFingerprintIncludesFlags(t *testing.T) {
	artifact := types.ResolvedArtifact{Path: "parchment.json", Digest: "ff"}
	with := layerFingerprint(types.ParameterOverlayLayer{RemovePrefix: true}, artifact)
	without := layerFingerprint(types.ParameterOverlayLayer{RemovePrefix: false}, artifact)
	assert.NotEqual(t, with, without)
	assert.Equal(t, "parchment.json@sha256:ff", without)
}
