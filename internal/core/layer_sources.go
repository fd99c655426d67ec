package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"

	"layered-remap/internal/mappings"
	"layered-remap/internal/types"
)

const (
	nestedMappingsEntry   = "mappings/mappings.tiny"
	parchmentEntry        = "parchment.json"
	recordSignaturesEntry = "extras/record_signatures.json"
)

// contribute parses one materialised layer and folds it into builder. It
// returns the warnings produced by entries that matched nothing.
func (r LayerResolver) contribute(ctx context.Context, layer materializedLayer, builder *mappings.Builder) ([]string, error) {
	switch spec := layer.spec.(type) {
	case types.IntermediaryLayer, types.CommunityLayer:
		tree, err := r.readTiny(layer.artifact.Path)
		if err != nil {
			return nil, err
		}
		_, err = mergeTree(builder, tree, mappings.MergeOptions{}, layer.artifact.Path)
		return nil, err
	case types.OfficialLayer:
		tree, err := readProGuard(layer.artifact.Path)
		if err != nil {
			return nil, err
		}
		_, err = mergeTree(builder, tree, mappings.MergeOptions{}, layer.artifact.Path)
		return nil, err
	case types.CraneLayer:
		tree, err := r.readTiny(layer.artifact.Path)
		if err != nil {
			return nil, err
		}
		report, err := mergeTree(builder, tree, overlayMergeOptions(), layer.artifact.Path)
		if err != nil {
			return nil, err
		}
		return layerWarnings(ctx, layer, report.Misses), nil
	case types.ParameterOverlayLayer:
		data, err := r.readParchment(layer.artifact.Path)
		if err != nil {
			return nil, err
		}
		report, err := mergeTree(builder, parchmentTree(data, spec.RemovePrefix), overlayMergeOptions(), layer.artifact.Path)
		if err != nil {
			return nil, err
		}
		return layerWarnings(ctx, layer, report.Misses), nil
	case types.SignatureFixLayer:
		sigs, err := r.readRecordSignatures(layer.artifact.Path)
		if err != nil {
			return nil, err
		}
		namespace := signatureNamespace(spec)
		if sigs.Namespace != "" {
			namespace = sigs.Namespace
		}
		misses, err := builder.ApplySignatures(namespace, sigs)
		if err != nil {
			return nil, types.FormatError(layer.artifact.Path, 0, err.Error())
		}
		return layerWarnings(ctx, layer, misses), nil
	default:
		return nil, types.ConfigurationError(fmt.Sprintf("unsupported layer type %T", layer.spec))
	}
}

func overlayMergeOptions() mappings.MergeOptions {
	return mappings.MergeOptions{ExistingOnly: true, ParamsAndCommentsOnly: true, IgnoreUnknownNamespaces: true}
}

func signatureNamespace(layer types.SignatureFixLayer) string {
	if layer.Namespace != "" {
		return layer.Namespace
	}
	return types.NamespaceIntermediary
}

func mergeTree(builder *mappings.Builder, tree *mappings.Tree, opts mappings.MergeOptions, path string) (mappings.MergeReport, error) {
	report, err := builder.Merge(tree, opts)
	if err != nil {
		return report, types.FormatError(path, 0, fmt.Sprintf("mapping namespaces %v do not fit table namespaces %v: %v", tree.Namespaces, builder.Namespaces(), err))
	}
	return report, nil
}

// layerWarnings logs and collects the entries of an overlay layer that did
// not match the table. They are dropped rather than failing the resolution.
func layerWarnings(ctx context.Context, layer materializedLayer, misses []string) []string {
	if len(misses) == 0 {
		return nil
	}
	log.Ctx(ctx).Warn().
		Int("layer", layer.index).
		Str("kind", string(layer.spec.Kind())).
		Int("unmatched", len(misses)).
		Msg("layer entries did not match any mapping and were dropped")
	warnings := make([]string, 0, len(misses))
	for _, miss := range misses {
		log.Ctx(ctx).Debug().Int("layer", layer.index).Str("entry", miss).Msg("unmatched layer entry")
		warnings = append(warnings, fmt.Sprintf("layer %d (%s): no match for %s", layer.index, layer.spec.Kind(), miss))
	}
	return warnings
}

// readTiny reads a tiny file directly, gzip compressed, or from the
// mappings/mappings.tiny entry of a jar.
func (r LayerResolver) readTiny(path string) (*mappings.Tree, error) {
	switch {
	case strings.HasSuffix(path, ".tiny"):
		file, err := os.Open(path)
		if err != nil {
			return nil, types.FormatError(path, 0, err.Error())
		}
		defer file.Close()
		return mappings.ReadTiny(file, path)
	case strings.HasSuffix(path, ".gz"):
		data, err := readGzip(path)
		if err != nil {
			return nil, err
		}
		return mappings.ReadTiny(bytes.NewReader(data), path)
	}
	data, ok, err := r.Archives.ReadEntry(path, nestedMappingsEntry)
	if err != nil {
		return nil, types.FormatError(path, 0, err.Error())
	}
	if !ok {
		return nil, types.FormatError(path, 0, "artifact does not contain "+nestedMappingsEntry)
	}
	return mappings.ReadTiny(bytes.NewReader(data), path+"!/"+nestedMappingsEntry)
}

func readProGuard(path string) (*mappings.Tree, error) {
	if strings.HasSuffix(path, ".gz") {
		data, err := readGzip(path)
		if err != nil {
			return nil, err
		}
		return mappings.ReadProGuard(bytes.NewReader(data), path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, types.FormatError(path, 0, err.Error())
	}
	defer file.Close()
	return mappings.ReadProGuard(file, path)
}

func readGzip(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, types.FormatError(path, 0, err.Error())
	}
	defer file.Close()
	reader, err := gzip.NewReader(file)
	if err != nil {
		return nil, types.FormatError(path, 0, err.Error())
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, types.FormatError(path, 0, err.Error())
	}
	return data, nil
}

func (r LayerResolver) readJSONSource(path string, entry string) ([]byte, string, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, path, types.FormatError(path, 0, err.Error())
		}
		return data, path, nil
	}
	data, ok, err := r.Archives.ReadEntry(path, entry)
	if err != nil {
		return nil, path, types.FormatError(path, 0, err.Error())
	}
	if !ok {
		return nil, path, types.FormatError(path, 0, "artifact does not contain "+entry)
	}
	return data, path + "!/" + entry, nil
}

func (r LayerResolver) readParchment(path string) (types.ParchmentData, error) {
	data, source, err := r.readJSONSource(path, parchmentEntry)
	if err != nil {
		return types.ParchmentData{}, err
	}
	var parchment types.ParchmentData
	if err := json.Unmarshal(data, &parchment); err != nil {
		return types.ParchmentData{}, jsonFormatError(source, data, err)
	}
	return parchment, nil
}

func (r LayerResolver) readRecordSignatures(path string) (types.RecordSignatures, error) {
	data, source, err := r.readJSONSource(path, recordSignaturesEntry)
	if err != nil {
		return types.RecordSignatures{}, err
	}
	var sigs types.RecordSignatures
	if err := json.Unmarshal(data, &sigs); err != nil {
		return types.RecordSignatures{}, jsonFormatError(source, data, err)
	}
	return sigs, nil
}

// jsonFormatError reports the line a syntax error occurred on.
func jsonFormatError(path string, data []byte, err error) error {
	line := 0
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		line = 1 + bytes.Count(data[:min(int(syntax.Offset), len(data))], []byte("\n"))
	}
	return types.FormatError(path, line, err.Error())
}

// parchmentTree converts a parchment export, keyed by named names, into a
// single namespace tree.
func parchmentTree(data types.ParchmentData, removePrefix bool) *mappings.Tree {
	tree := mappings.NewTree(types.NamespaceNamed)
	for _, class := range data.Classes {
		def := &mappings.ClassDef{Names: []string{class.Name}, Comment: strings.Join(class.Javadoc, "\n")}
		for _, field := range class.Fields {
			if len(field.Javadoc) == 0 {
				continue
			}
			def.Fields = append(def.Fields, &mappings.FieldDef{
				Names:   []string{field.Name},
				Desc:    field.Descriptor,
				Comment: strings.Join(field.Javadoc, "\n"),
			})
		}
		for _, method := range class.Methods {
			md := &mappings.MethodDef{
				Names:   []string{method.Name},
				Desc:    method.Descriptor,
				Comment: strings.Join(method.Javadoc, "\n"),
			}
			for _, param := range method.Parameters {
				name := param.Name
				if removePrefix {
					name = stripParameterPrefix(name)
				}
				md.Params = append(md.Params, &mappings.ParamDef{
					Index:   param.Index,
					Names:   []string{name},
					Comment: param.Javadoc,
				})
			}
			def.Methods = append(def.Methods, md)
		}
		tree.Classes = append(tree.Classes, def)
	}
	return tree
}

// stripParameterPrefix turns pCount into count.
func stripParameterPrefix(name string) string {
	if len(name) < 2 || name[0] != 'p' {
		return name
	}
	next, size := utf8.DecodeRuneInString(name[1:])
	if !unicode.IsUpper(next) {
		return name
	}
	return string(unicode.ToLower(next)) + name[1+size:]
}
