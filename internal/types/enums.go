package types

type LayerKind string

const (
	LayerKindIntermediary     LayerKind = "intermediary"
	LayerKindOfficial         LayerKind = "official"
	LayerKindCommunity        LayerKind = "community"
	LayerKindParameterOverlay LayerKind = "parameter-overlay"
	LayerKindCrane            LayerKind = "crane"
	LayerKindSignatureFix     LayerKind = "signature-fix"
)

// Capability describes what a layer contributes to the merged table.
type Capability uint8

const (
	CapabilityClassNames Capability = 1 << iota
	CapabilityMemberNames
	CapabilityParameterNames
	CapabilitySignaturePatches
)

func (c Capability) Has(other Capability) bool {
	return c&other == other
}

const (
	NamespaceOfficial     = "official"
	NamespaceIntermediary = "intermediary"
	NamespaceNamed        = "named"
)

// DefaultNamespaces is the namespace order of a layered table. The first
// entry is the primary namespace every entry is keyed by.
func DefaultNamespaces() []string {
	return []string{NamespaceOfficial, NamespaceIntermediary, NamespaceNamed}
}
