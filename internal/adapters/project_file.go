package adapters

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"layered-remap/internal/types"
)

const DefaultProjectFile = "layered-remap.yaml"

type ProjectFileAdapter struct{}

func NewProjectFileAdapter() ProjectFileAdapter {
	return ProjectFileAdapter{}
}

// Load reads a project file. Unknown keys are rejected so a misspelt layer
// option cannot silently change the resolved version.
func (a ProjectFileAdapter) Load(path string) (types.ProjectFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.ProjectFile{}, types.ConfigurationError("project file not found: " + path)
		}
		return types.ProjectFile{}, types.ConfigurationError("failed to read project file " + path + ": " + err.Error())
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var project types.ProjectFile
	if err := decoder.Decode(&project); err != nil {
		if errors.Is(err, io.EOF) {
			return types.ProjectFile{}, types.FormatError(path, 0, "project file is empty")
		}
		return types.ProjectFile{}, types.FormatError(path, 0, "failed to parse project yaml: "+err.Error())
	}
	return project, nil
}
