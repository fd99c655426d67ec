package mappings

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"layered-remap/internal/types"
)

type ClassMapping struct {
	Names     []string
	Comment   string
	Signature string
	Fields    []FieldMapping
	Methods   []MethodMapping
}

// FieldMapping and MethodMapping descriptors are in the primary namespace.
type FieldMapping struct {
	Names     []string
	Desc      string
	Comment   string
	Signature string
}

type MethodMapping struct {
	Names   []string
	Desc    string
	Comment string
	Params  []ParamMapping
}

type ParamMapping struct {
	Index   int
	Names   []string
	Comment string
}

type mapperKey struct {
	from string
	to   string
}

// Table is an immutable unified mapping table. It is safe for concurrent
// use; the slices it returns must not be modified.
type Table struct {
	namespaces []string
	classes    []ClassMapping

	mu      sync.Mutex
	mappers map[mapperKey]*Mapper
}

func newTable(namespaces []string, classes []ClassMapping) *Table {
	return &Table{
		namespaces: append([]string(nil), namespaces...),
		classes:    classes,
		mappers:    map[mapperKey]*Mapper{},
	}
}

func (t *Table) Namespaces() []string {
	return append([]string(nil), t.namespaces...)
}

func (t *Table) NamespaceIndex(namespace string) int {
	for i, ns := range t.namespaces {
		if ns == namespace {
			return i
		}
	}
	return -1
}

func (t *Table) Classes() []ClassMapping {
	return t.classes
}

func (t *Table) Stats() types.TableStats {
	var stats types.TableStats
	for _, class := range t.classes {
		stats.Classes++
		if class.Comment != "" {
			stats.Comments++
		}
		if class.Signature != "" {
			stats.Signatures++
		}
		for _, field := range class.Fields {
			stats.Fields++
			if field.Comment != "" {
				stats.Comments++
			}
			if field.Signature != "" {
				stats.Signatures++
			}
		}
		for _, method := range class.Methods {
			stats.Methods++
			if method.Comment != "" {
				stats.Comments++
			}
			stats.Parameters += len(method.Params)
		}
	}
	return stats
}

// Signatures exports the signature patches of the table keyed by primary
// names.
func (t *Table) Signatures() types.RecordSignatures {
	sigs := types.RecordSignatures{
		Version:    1,
		Namespace:  t.namespaces[0],
		Signatures: map[string]string{},
	}
	for _, class := range t.classes {
		if class.Signature != "" {
			sigs.Signatures[class.Names[0]] = class.Signature
		}
		for _, field := range class.Fields {
			if field.Signature == "" {
				continue
			}
			if sigs.Fields == nil {
				sigs.Fields = map[string]map[string]string{}
			}
			if sigs.Fields[class.Names[0]] == nil {
				sigs.Fields[class.Names[0]] = map[string]string{}
			}
			sigs.Fields[class.Names[0]][field.Names[0]] = field.Signature
		}
	}
	return sigs
}

// Digest is the sha256 of the tiny v2 serialisation of the table.
func (t *Table) Digest() (string, error) {
	var buf bytes.Buffer
	if err := WriteTiny(&buf, t); err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

func (t *Table) needsEscaping() bool {
	check := func(values ...string) bool {
		for _, value := range values {
			if strings.ContainsAny(value, "\\\n\r\t\x00") {
				return true
			}
		}
		return false
	}
	for _, class := range t.classes {
		if check(class.Names...) {
			return true
		}
		for _, field := range class.Fields {
			if check(field.Names...) || check(field.Desc) {
				return true
			}
		}
		for _, method := range class.Methods {
			if check(method.Names...) || check(method.Desc) {
				return true
			}
			for _, param := range method.Params {
				if check(param.Names...) {
					return true
				}
			}
		}
	}
	return false
}

// Mapper returns the symbol mapper translating from one namespace into
// another. Mappers are built once per pair and shared.
func (t *Table) Mapper(from, to string) (*Mapper, error) {
	fromIdx := t.NamespaceIndex(from)
	toIdx := t.NamespaceIndex(to)
	if fromIdx < 0 || toIdx < 0 {
		return nil, types.ConfigurationError(fmt.Sprintf("namespaces %q -> %q are not both present in %v", from, to, t.namespaces))
	}
	key := mapperKey{from: from, to: to}
	t.mu.Lock()
	defer t.mu.Unlock()
	if mapper, ok := t.mappers[key]; ok {
		return mapper, nil
	}
	mapper := newMapper(t, fromIdx, toIdx)
	t.mappers[key] = mapper
	return mapper, nil
}
