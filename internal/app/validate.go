package app

import (
	"context"
	"fmt"

	"layered-remap/internal/core"
)

func (s Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResult, error) {
	project, specs, err := s.loadProject(ctx, req.ProjectPath)
	if err != nil {
		return ValidateResult{}, err
	}
	layers := make([]string, 0, len(specs))
	for i, spec := range specs {
		source := spec.Source().String()
		if source == "" {
			source = "(version manifest)"
		}
		layers = append(layers, fmt.Sprintf("%d %s %s", i, spec.Kind(), source))
	}
	return ValidateResult{
		GameVersion: project.GameVersion,
		Namespaces:  core.NewProjectCompiler().Namespaces(project),
		Layers:      layers,
	}, nil
}
