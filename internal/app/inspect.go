package app

import (
	"os"
	"path/filepath"
	"strings"

	"layered-remap/internal/adapters"
	"layered-remap/internal/types"
)

// Inspect summarises a resolve output directory, a tiny file or a jar.
// Jars without packaged mappings are summarised by their entry counts.
func (s Service) Inspect(req InspectRequest) (InspectResult, error) {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return InspectResult{}, types.ConfigurationError("path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return InspectResult{}, types.MissingArtifactError(path, err)
	}
	if info.IsDir() {
		return s.inspectOutputDir(path)
	}
	if isArchive(path) {
		_, ok, err := s.Archives.ReadEntry(path, adapters.JarMappingsEntry)
		if err != nil {
			return InspectResult{}, err
		}
		if !ok {
			return s.inspectJar(path)
		}
	}
	table, err := s.Reader.ReadTable(path)
	if err != nil {
		return InspectResult{}, err
	}
	return InspectResult{
		Namespaces: table.Namespaces(),
		Stats:      table.Stats(),
	}, nil
}

func (s Service) inspectOutputDir(dir string) (InspectResult, error) {
	report, err := s.Reader.ReadResolutionReport(filepath.Join(dir, adapters.ReportFileName))
	if err != nil {
		return InspectResult{}, err
	}
	result := InspectResult{
		Report:     &report,
		Namespaces: report.Namespaces,
		Stats:      report.Stats,
	}
	tablePath := filepath.Join(dir, adapters.TableFileName)
	if _, err := os.Stat(tablePath); err == nil {
		table, err := s.Reader.ReadTable(tablePath)
		if err != nil {
			return InspectResult{}, err
		}
		result.Namespaces = table.Namespaces()
		result.Stats = table.Stats()
	}
	return result, nil
}

func (s Service) inspectJar(path string) (InspectResult, error) {
	var result InspectResult
	err := s.Archives.Walk(path, func(entry types.ArchiveEntry) error {
		if strings.HasSuffix(entry.Name, ".class") {
			result.Classes++
		} else {
			result.Resources++
		}
		return nil
	})
	if err != nil {
		return InspectResult{}, err
	}
	return result, nil
}

func isArchive(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jar", ".zip":
		return true
	default:
		return false
	}
}
