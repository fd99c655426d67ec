package types

import "strings"

// LayerSpec is one entry of an ordered layer list. The set of
// implementations is closed; resolvers switch over it exhaustively.
type LayerSpec interface {
	Kind() LayerKind
	Capabilities() Capability
	Source() ArtifactRef
	isLayerSpec()
}

// ArtifactRef points at the data backing a layer: either a maven style
// coordinate or a local file.
type ArtifactRef struct {
	Coordinate string
	Path       string
}

func (r ArtifactRef) IsZero() bool {
	return strings.TrimSpace(r.Coordinate) == "" && strings.TrimSpace(r.Path) == ""
}

func (r ArtifactRef) String() string {
	if strings.TrimSpace(r.Coordinate) != "" {
		return strings.TrimSpace(r.Coordinate)
	}
	return strings.TrimSpace(r.Path)
}

type IntermediaryLayer struct {
	Artifact ArtifactRef
}

func (IntermediaryLayer) Kind() LayerKind { return LayerKindIntermediary }
func (IntermediaryLayer) Capabilities() Capability {
	return CapabilityClassNames | CapabilityMemberNames
}
func (l IntermediaryLayer) Source() ArtifactRef { return l.Artifact }
func (IntermediaryLayer) isLayerSpec()          {}

// OfficialLayer contributes the game vendor's own names. When Artifact is
// zero the mappings are located through the version manifest.
type OfficialLayer struct {
	GameVersion string
	Artifact    ArtifactRef
}

func (OfficialLayer) Kind() LayerKind { return LayerKindOfficial }
func (OfficialLayer) Capabilities() Capability {
	return CapabilityClassNames | CapabilityMemberNames
}
func (l OfficialLayer) Source() ArtifactRef { return l.Artifact }
func (OfficialLayer) isLayerSpec()          {}

type CommunityLayer struct {
	Artifact ArtifactRef
}

func (CommunityLayer) Kind() LayerKind { return LayerKindCommunity }
func (CommunityLayer) Capabilities() Capability {
	return CapabilityClassNames | CapabilityMemberNames | CapabilityParameterNames
}
func (l CommunityLayer) Source() ArtifactRef { return l.Artifact }
func (CommunityLayer) isLayerSpec()          {}

// ParameterOverlayLayer reads a parchment style JSON export. RemovePrefix
// turns "pCount" into "count".
type ParameterOverlayLayer struct {
	Artifact     ArtifactRef
	RemovePrefix bool
}

func (ParameterOverlayLayer) Kind() LayerKind { return LayerKindParameterOverlay }
func (ParameterOverlayLayer) Capabilities() Capability {
	return CapabilityParameterNames
}
func (l ParameterOverlayLayer) Source() ArtifactRef { return l.Artifact }
func (ParameterOverlayLayer) isLayerSpec()          {}

type CraneLayer struct {
	Artifact ArtifactRef
}

func (CraneLayer) Kind() LayerKind { return LayerKindCrane }
func (CraneLayer) Capabilities() Capability {
	return CapabilityParameterNames
}
func (l CraneLayer) Source() ArtifactRef { return l.Artifact }
func (CraneLayer) isLayerSpec()          {}

// SignatureFixLayer applies extras/record_signatures.json from the
// referenced artifact. Namespace is the namespace the file is keyed in.
type SignatureFixLayer struct {
	Artifact  ArtifactRef
	Namespace string
}

func (SignatureFixLayer) Kind() LayerKind { return LayerKindSignatureFix }
func (SignatureFixLayer) Capabilities() Capability {
	return CapabilitySignaturePatches
}
func (l SignatureFixLayer) Source() ArtifactRef { return l.Artifact }
func (SignatureFixLayer) isLayerSpec()          {}
