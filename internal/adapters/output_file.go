package adapters

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"layered-remap/internal/mappings"
	"layered-remap/internal/ports"
	"layered-remap/internal/types"
)

const (
	TableFileName       = "mappings.tiny"
	ReportFileName      = "resolution.yaml"
	JarMappingsEntry    = "mappings/mappings.tiny"
	JarSignaturesEntry  = "extras/record_signatures.json"
	mappingJarExtension = ".jar"
)

// OutputFileAdapter writes resolve outputs into Dir.
type OutputFileAdapter struct {
	Dir string
}

func NewOutputFileAdapter(dir string) OutputFileAdapter {
	return OutputFileAdapter{Dir: dir}
}

func (a OutputFileAdapter) WriteTable(table *mappings.Table) error {
	path, err := a.ensurePath(TableFileName)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := mappings.WriteTiny(&buf, table); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

// WriteMappingJar packages the table the way mapping artifacts are
// published: the tiny file under mappings/ and signature patches under
// extras/.
func (a OutputFileAdapter) WriteMappingJar(table *mappings.Table, coordinateVersion string) error {
	path, err := a.ensurePath(MappingJarName(coordinateVersion))
	if err != nil {
		return err
	}
	data, err := MappingJarBytes(table)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

func (a OutputFileAdapter) WriteResolutionReport(report types.ResolutionReport) error {
	path, err := a.ensurePath(ReportFileName)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(report)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode resolution report").
			WithCause(err)
	}
	return writeFileAtomic(path, data)
}

func MappingJarName(coordinateVersion string) string {
	return coordinateVersion + mappingJarExtension
}

// MappingJarBytes builds the packaged mapping jar in memory.
func MappingJarBytes(table *mappings.Table) ([]byte, error) {
	var tiny bytes.Buffer
	if err := mappings.WriteTiny(&tiny, table); err != nil {
		return nil, err
	}
	entries := []types.ArchiveEntry{{Name: JarMappingsEntry, Data: tiny.Bytes()}}
	if sigs := table.Signatures(); len(sigs.Signatures) > 0 || len(sigs.Fields) > 0 {
		data, err := json.MarshalIndent(sigs, "", "  ")
		if err != nil {
			return nil, err
		}
		entries = append(entries, types.ArchiveEntry{Name: JarSignaturesEntry, Data: data})
	}
	return zipBytes(entries)
}

func (a OutputFileAdapter) ensurePath(filename string) (string, error) {
	if a.Dir == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is empty")
	}
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create output directory").
			WithCause(err)
	}
	return filepath.Join(a.Dir, filename), nil
}

var _ ports.OutputPort = OutputFileAdapter{}
