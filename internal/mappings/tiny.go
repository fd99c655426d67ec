package mappings

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"layered-remap/internal/types"
)

const escapedNamesProperty = "escaped-names"

// ReadTiny parses a tiny v1 or v2 mapping file. path is only used for error
// context.
func ReadTiny(r io.Reader, path string) (*Tree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, types.FormatError(path, 0, err.Error())
		}
		return nil, types.FormatError(path, 1, "mapping file is empty")
	}
	header := strings.Split(strings.TrimSuffix(scanner.Text(), "\r"), "\t")
	switch {
	case len(header) >= 3 && header[0] == "tiny" && header[1] == "2":
		return readTinyV2(scanner, header, path)
	case len(header) >= 2 && header[0] == "v1":
		return readTinyV1(scanner, header, path)
	default:
		return nil, types.FormatError(path, 1, fmt.Sprintf("unrecognised mapping header %q", strings.Join(header, " ")))
	}
}

func validateNamespaces(namespaces []string, path string) error {
	if len(namespaces) == 0 {
		return types.FormatError(path, 1, "header declares no namespaces")
	}
	seen := map[string]struct{}{}
	for _, ns := range namespaces {
		if strings.TrimSpace(ns) == "" {
			return types.FormatError(path, 1, "header declares an empty namespace")
		}
		if _, ok := seen[ns]; ok {
			return types.FormatError(path, 1, fmt.Sprintf("namespace %q declared twice", ns))
		}
		seen[ns] = struct{}{}
	}
	return nil
}

func readTinyV1(scanner *bufio.Scanner, header []string, path string) (*Tree, error) {
	tree := NewTree(header[1:]...)
	if err := validateNamespaces(tree.Namespaces, path); err != nil {
		return nil, err
	}
	count := len(tree.Namespaces)
	classes := map[string]*ClassDef{}
	classFor := func(name string) *ClassDef {
		if class, ok := classes[name]; ok {
			return class
		}
		class := &ClassDef{Names: padNames([]string{name}, count)}
		classes[name] = class
		tree.Classes = append(tree.Classes, class)
		return class
	}
	line := 1
	for scanner.Scan() {
		line++
		text := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cols := strings.Split(text, "\t")
		switch cols[0] {
		case "CLASS":
			if len(cols) != 1+count {
				return nil, columnError(path, line, "CLASS", 1+count, len(cols))
			}
			class := classFor(cols[1])
			for i, name := range cols[1:] {
				if name != "" {
					class.Names[i] = name
				}
			}
		case "FIELD", "METHOD":
			if len(cols) != 3+count {
				return nil, columnError(path, line, cols[0], 3+count, len(cols))
			}
			class := classFor(cols[1])
			if cols[0] == "FIELD" {
				class.Fields = append(class.Fields, &FieldDef{Names: cols[3:], Desc: cols[2]})
			} else {
				class.Methods = append(class.Methods, &MethodDef{Names: cols[3:], Desc: cols[2]})
			}
		default:
			return nil, types.FormatError(path, line, fmt.Sprintf("unknown tiny v1 row %q", cols[0]))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, types.FormatError(path, line, err.Error())
	}
	return tree, nil
}

func readTinyV2(scanner *bufio.Scanner, header []string, path string) (*Tree, error) {
	tree := NewTree(header[3:]...)
	if err := validateNamespaces(tree.Namespaces, path); err != nil {
		return nil, err
	}
	count := len(tree.Namespaces)
	var (
		class   *ClassDef
		field   *FieldDef
		method  *MethodDef
		param   *ParamDef
		inBody  bool
		escaped bool
		line    = 1
	)
	for scanner.Scan() {
		line++
		text := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		depth := 0
		for depth < len(text) && text[depth] == '\t' {
			depth++
		}
		cols := strings.Split(text[depth:], "\t")
		if !inBody && depth == 1 {
			if len(cols) > 1 {
				tree.Properties[cols[0]] = cols[1]
			} else {
				tree.Properties[cols[0]] = ""
			}
			continue
		}
		if !inBody {
			inBody = true
			escaped = hasProperty(tree, escapedNamesProperty)
		}
		names := func(values []string) []string {
			return unescapeNames(values, escaped)
		}
		kind := cols[0]
		switch {
		case depth == 0 && kind == "c":
			if len(cols) != 1+count {
				return nil, columnError(path, line, "class", 1+count, len(cols))
			}
			class = &ClassDef{Names: names(cols[1:])}
			if class.Names[0] == "" {
				return nil, types.FormatError(path, line, "class has no name in the first namespace")
			}
			tree.Classes = append(tree.Classes, class)
			field, method, param = nil, nil, nil
		case depth == 1 && (kind == "f" || kind == "m"):
			if class == nil {
				return nil, types.FormatError(path, line, "member outside of a class")
			}
			if len(cols) != 2+count {
				return nil, columnError(path, line, memberLabel(kind), 2+count, len(cols))
			}
			desc := cols[1]
			if escaped {
				desc = unescapeTiny(desc)
			}
			field, method, param = nil, nil, nil
			if kind == "f" {
				field = &FieldDef{Names: names(cols[2:]), Desc: desc}
				class.Fields = append(class.Fields, field)
			} else {
				method = &MethodDef{Names: names(cols[2:]), Desc: desc}
				class.Methods = append(class.Methods, method)
			}
		case depth == 2 && kind == "p":
			if method == nil {
				return nil, types.FormatError(path, line, "parameter outside of a method")
			}
			if len(cols) != 2+count {
				return nil, columnError(path, line, "parameter", 2+count, len(cols))
			}
			index, err := strconv.Atoi(cols[1])
			if err != nil || index < 0 {
				return nil, types.FormatError(path, line, fmt.Sprintf("invalid parameter index %q", cols[1]))
			}
			param = &ParamDef{Index: index, Names: names(cols[2:])}
			method.Params = append(method.Params, param)
		case depth == 2 && kind == "v":
			// Local variables are not part of a layered table.
			if method == nil {
				return nil, types.FormatError(path, line, "local variable outside of a method")
			}
			param = nil
		case kind == "c":
			if len(cols) != 2 {
				return nil, columnError(path, line, "comment", 2, len(cols))
			}
			comment := unescapeTiny(cols[1])
			switch {
			case depth == 1 && class != nil:
				class.Comment = comment
			case depth == 2 && field != nil:
				field.Comment = comment
			case depth == 2 && method != nil:
				method.Comment = comment
			case depth == 3 && param != nil:
				param.Comment = comment
			case depth == 3:
				// Local variable comment.
			default:
				return nil, types.FormatError(path, line, "comment does not belong to any entry")
			}
		default:
			return nil, types.FormatError(path, line, fmt.Sprintf("unexpected row %q at depth %d", kind, depth))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, types.FormatError(path, line, err.Error())
	}
	return tree, nil
}

func memberLabel(kind string) string {
	if kind == "f" {
		return "field"
	}
	return "method"
}

func columnError(path string, line int, row string, want int, got int) error {
	return types.FormatError(path, line, fmt.Sprintf("%s row has %d columns, expected %d", row, got, want))
}

func unescapeNames(values []string, escaped bool) []string {
	out := make([]string, len(values))
	for i, value := range values {
		if escaped {
			out[i] = unescapeTiny(value)
		} else {
			out[i] = value
		}
	}
	return out
}

func hasProperty(tree *Tree, key string) bool {
	_, ok := tree.Properties[key]
	return ok
}

var (
	tinyEscaper   = strings.NewReplacer("\\", "\\\\", "\n", "\\n", "\r", "\\r", "\t", "\\t", "\x00", "\\0")
	tinyUnescaper = strings.NewReplacer("\\\\", "\\", "\\n", "\n", "\\r", "\r", "\\t", "\t", "\\0", "\x00")
)

func escapeTiny(value string) string {
	return tinyEscaper.Replace(value)
}

func unescapeTiny(value string) string {
	if !strings.Contains(value, "\\") {
		return value
	}
	return tinyUnescaper.Replace(value)
}

// WriteTiny serialises a table as tiny v2. Output is sorted and stable for a
// given table.
func WriteTiny(w io.Writer, table *Table) error {
	buf := bufio.NewWriter(w)
	escaped := table.needsEscaping()
	buf.WriteString("tiny\t2\t0\t")
	buf.WriteString(strings.Join(table.Namespaces(), "\t"))
	buf.WriteString("\n")
	if escaped {
		buf.WriteString("\t" + escapedNamesProperty + "\n")
	}
	name := func(value string) string {
		if escaped {
			return escapeTiny(value)
		}
		return value
	}
	names := func(values []string) string {
		out := make([]string, len(values))
		for i, value := range values {
			out[i] = name(value)
		}
		return strings.Join(out, "\t")
	}
	for _, class := range table.Classes() {
		buf.WriteString("c\t" + names(class.Names) + "\n")
		if class.Comment != "" {
			buf.WriteString("\tc\t" + escapeTiny(class.Comment) + "\n")
		}
		for _, field := range class.Fields {
			buf.WriteString("\tf\t" + name(field.Desc) + "\t" + names(field.Names) + "\n")
			if field.Comment != "" {
				buf.WriteString("\t\tc\t" + escapeTiny(field.Comment) + "\n")
			}
		}
		for _, method := range class.Methods {
			buf.WriteString("\tm\t" + name(method.Desc) + "\t" + names(method.Names) + "\n")
			if method.Comment != "" {
				buf.WriteString("\t\tc\t" + escapeTiny(method.Comment) + "\n")
			}
			for _, param := range method.Params {
				buf.WriteString("\t\tp\t" + strconv.Itoa(param.Index) + "\t" + names(param.Names) + "\n")
				if param.Comment != "" {
					buf.WriteString("\t\t\tc\t" + escapeTiny(param.Comment) + "\n")
				}
			}
		}
	}
	return buf.Flush()
}
