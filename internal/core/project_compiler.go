package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"layered-remap/internal/types"
)

const projectAPIVersion = "v1"

type ProjectCompiler struct{}

var knownLayerKinds = map[types.LayerKind]struct{}{
	types.LayerKindIntermediary:     {},
	types.LayerKindOfficial:         {},
	types.LayerKindCommunity:        {},
	types.LayerKindParameterOverlay: {},
	types.LayerKindCrane:            {},
	types.LayerKindSignatureFix:     {},
}

func NewProjectCompiler() ProjectCompiler {
	return ProjectCompiler{}
}

// Namespaces returns the namespace list of project, defaulting to
// [official intermediary named].
func (c ProjectCompiler) Namespaces(project types.ProjectFile) []string {
	if len(project.Namespaces) == 0 {
		return types.DefaultNamespaces()
	}
	return append([]string(nil), project.Namespaces...)
}

func (c ProjectCompiler) ValidateProject(ctx context.Context, project types.ProjectFile) error {
	if strings.TrimSpace(project.APIVersion) == "" {
		return types.ConfigurationError("api_version must be set")
	}
	if project.APIVersion != projectAPIVersion {
		return types.ConfigurationError(fmt.Sprintf("unsupported api_version %q", project.APIVersion))
	}
	if err := validateNamespaces(c.Namespaces(project)); err != nil {
		return err
	}
	specs, err := c.CompileLayers(project)
	if err != nil {
		return err
	}
	if err := ValidateLayers(specs); err != nil {
		return err
	}
	log.Ctx(ctx).Debug().Int("layers", len(specs)).Msg("project validated")
	return nil
}

// CompileLayers converts the layer entries of project into layer specs,
// preserving their order.
func (c ProjectCompiler) CompileLayers(project types.ProjectFile) ([]types.LayerSpec, error) {
	specs := make([]types.LayerSpec, 0, len(project.Layers))
	for i, layer := range project.Layers {
		spec, err := compileLayer(i, layer, project.GameVersion)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func compileLayer(index int, layer types.LayerConfig, gameVersion string) (types.LayerSpec, error) {
	kind := types.LayerKind(strings.TrimSpace(string(layer.Kind)))
	if _, ok := knownLayerKinds[kind]; !ok {
		return nil, types.LayerConfigurationError(index, kind, fmt.Sprintf("unknown layer kind %q", layer.Kind))
	}
	ref := types.ArtifactRef{
		Coordinate: strings.TrimSpace(layer.Artifact),
		Path:       strings.TrimSpace(layer.Path),
	}
	if ref.Coordinate != "" && ref.Path != "" {
		return nil, types.LayerConfigurationError(index, kind, "artifact and path are mutually exclusive")
	}
	if ref.Coordinate != "" {
		if _, err := types.ParseCoordinate(ref.Coordinate); err != nil {
			return nil, types.LayerConfigurationError(index, kind, err.Error())
		}
	}
	if kind != types.LayerKindOfficial && ref.IsZero() {
		return nil, types.LayerConfigurationError(index, kind, "layer requires an artifact or a path")
	}
	switch kind {
	case types.LayerKindIntermediary:
		return types.IntermediaryLayer{Artifact: ref}, nil
	case types.LayerKindOfficial:
		version := firstNonEmpty(layer.GameVersion, gameVersion)
		if version == "" && ref.IsZero() {
			return nil, types.LayerConfigurationError(index, kind, "official layer requires game_version or an artifact")
		}
		return types.OfficialLayer{GameVersion: version, Artifact: ref}, nil
	case types.LayerKindCommunity:
		return types.CommunityLayer{Artifact: ref}, nil
	case types.LayerKindParameterOverlay:
		removePrefix := true
		if layer.RemovePrefix != nil {
			removePrefix = *layer.RemovePrefix
		}
		return types.ParameterOverlayLayer{Artifact: ref, RemovePrefix: removePrefix}, nil
	case types.LayerKindCrane:
		return types.CraneLayer{Artifact: ref}, nil
	default:
		return types.SignatureFixLayer{Artifact: ref, Namespace: strings.TrimSpace(layer.Namespace)}, nil
	}
}

// ValidateLayers rejects an empty list and a list without a layer that
// produces class names.
func ValidateLayers(specs []types.LayerSpec) error {
	if len(specs) == 0 {
		return types.ConfigurationError("layer list is empty")
	}
	hasBase := false
	for i, spec := range specs {
		if spec == nil {
			return types.LayerConfigurationError(i, "", "layer is nil")
		}
		if spec.Capabilities().Has(types.CapabilityClassNames) {
			hasBase = true
		}
	}
	if !hasBase {
		return types.ConfigurationError("layer list has no layer providing class names (intermediary, official or community)")
	}
	return nil
}

func validateNamespaces(namespaces []string) error {
	if len(namespaces) == 0 {
		return types.ConfigurationError("namespace list is empty")
	}
	seen := map[string]struct{}{}
	for _, ns := range namespaces {
		if strings.TrimSpace(ns) == "" {
			return types.ConfigurationError("namespace list contains an empty name")
		}
		if _, ok := seen[ns]; ok {
			return types.ConfigurationError(fmt.Sprintf("namespace %q is listed twice", ns))
		}
		seen[ns] = struct{}{}
	}
	return nil
}
