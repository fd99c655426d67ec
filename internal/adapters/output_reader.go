package adapters

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"layered-remap/internal/mappings"
	"layered-remap/internal/ports"
	"layered-remap/internal/types"
)

// OutputReaderAdapter reads back what OutputFileAdapter writes.
type OutputReaderAdapter struct {
	Archives ZipArchiveAdapter
}

func NewOutputReaderAdapter() OutputReaderAdapter {
	return OutputReaderAdapter{}
}

func (a OutputReaderAdapter) ReadResolutionReport(path string) (types.ResolutionReport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return types.ResolutionReport{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("resolution report not found").
			WithCause(err)
	}
	var report types.ResolutionReport
	if err := yaml.Unmarshal(content, &report); err != nil {
		return types.ResolutionReport{}, types.FormatError(path, 0, "invalid resolution report: "+err.Error())
	}
	if strings.TrimSpace(report.Version) == "" {
		return types.ResolutionReport{}, types.FormatError(path, 0, "resolution report missing version")
	}
	return report, nil
}

// ReadTable accepts a tiny file or a mapping jar. Signature patches packaged
// in a jar are applied to the table.
func (a OutputReaderAdapter) ReadTable(path string) (*mappings.Table, error) {
	if !strings.HasSuffix(path, mappingJarExtension) && !strings.HasSuffix(path, ".zip") {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, types.MissingArtifactError(path, err)
		}
		tree, err := mappings.ReadTiny(bytes.NewReader(content), path)
		if err != nil {
			return nil, err
		}
		return tableFromTree(path, tree, nil)
	}
	data, found, err := a.Archives.ReadEntry(path, JarMappingsEntry)
	if err != nil {
		return nil, types.MissingArtifactError(path, err)
	}
	if !found {
		return nil, types.FormatError(path, 0, "jar has no "+JarMappingsEntry)
	}
	tree, err := mappings.ReadTiny(bytes.NewReader(data), path+"!/"+JarMappingsEntry)
	if err != nil {
		return nil, err
	}
	var sigs *types.RecordSignatures
	sigData, found, err := a.Archives.ReadEntry(path, JarSignaturesEntry)
	if err != nil {
		return nil, types.MissingArtifactError(path, err)
	}
	if found {
		sigs = &types.RecordSignatures{}
		if err := json.Unmarshal(sigData, sigs); err != nil {
			return nil, types.FormatError(path+"!/"+JarSignaturesEntry, 0, "invalid signatures: "+err.Error())
		}
	}
	return tableFromTree(path, tree, sigs)
}

func tableFromTree(path string, tree *mappings.Tree, sigs *types.RecordSignatures) (*mappings.Table, error) {
	builder := mappings.NewBuilder(tree.Namespaces)
	if _, err := builder.Merge(tree, mappings.MergeOptions{}); err != nil {
		return nil, types.FormatError(path, 0, err.Error())
	}
	if sigs != nil {
		namespace := sigs.Namespace
		if namespace == "" {
			namespace = tree.Namespaces[0]
		}
		if _, err := builder.ApplySignatures(namespace, *sigs); err != nil {
			return nil, types.FormatError(path, 0, err.Error())
		}
	}
	return builder.Build(), nil
}

var _ ports.OutputReaderPort = OutputReaderAdapter{}
