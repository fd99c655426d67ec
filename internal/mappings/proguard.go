package mappings

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"layered-remap/internal/types"
)

type proguardClass struct {
	named    string
	official string
	line     int
	members  []proguardMember
}

type proguardMember struct {
	line       int
	method     bool
	returnType string
	named      string
	args       []string
	official   string
}

// ReadProGuard parses an official ProGuard mapping file into a tree with the
// namespaces [official named]. Descriptors are expressed in official names.
func ReadProGuard(r io.Reader, path string) (*Tree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		classes []*proguardClass
		current *proguardClass
		line    int
	)
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if !strings.HasPrefix(text, " ") && !strings.HasPrefix(text, "\t") {
			if !strings.HasSuffix(trimmed, ":") {
				return nil, types.FormatError(path, line, "class row must end with ':'")
			}
			named, official, ok := splitArrow(strings.TrimSuffix(trimmed, ":"))
			if !ok {
				return nil, types.FormatError(path, line, "class row must be 'name -> obfuscated:'")
			}
			current = &proguardClass{
				named:    internalName(named),
				official: internalName(official),
				line:     line,
			}
			classes = append(classes, current)
			continue
		}
		if current == nil {
			return nil, types.FormatError(path, line, "member row outside of a class")
		}
		member, err := parseProGuardMember(trimmed)
		if err != nil {
			return nil, types.FormatError(path, line, err.Error())
		}
		member.line = line
		current.members = append(current.members, member)
	}
	if err := scanner.Err(); err != nil {
		return nil, types.FormatError(path, line, err.Error())
	}

	namedToOfficial := make(map[string]string, len(classes))
	for _, class := range classes {
		namedToOfficial[class.named] = class.official
	}
	toOfficial := func(name string) string {
		if official, ok := namedToOfficial[name]; ok {
			return official
		}
		return name
	}

	tree := NewTree(types.NamespaceOfficial, types.NamespaceNamed)
	for _, class := range classes {
		def := &ClassDef{Names: []string{class.official, class.named}}
		seen := map[string]struct{}{}
		for _, member := range class.members {
			if member.method && (member.named == "<init>" || member.named == "<clinit>") {
				continue
			}
			if member.method {
				var desc strings.Builder
				desc.WriteByte('(')
				for _, arg := range member.args {
					desc.WriteString(javaTypeToDescriptor(arg))
				}
				desc.WriteByte(')')
				desc.WriteString(javaTypeToDescriptor(member.returnType))
				officialDesc := RemapDescriptor(desc.String(), toOfficial)
				key := "m" + member.official + officialDesc
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				def.Methods = append(def.Methods, &MethodDef{
					Names: []string{member.official, member.named},
					Desc:  officialDesc,
				})
				continue
			}
			officialDesc := RemapDescriptor(javaTypeToDescriptor(member.returnType), toOfficial)
			key := "f" + member.official + officialDesc
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			def.Fields = append(def.Fields, &FieldDef{
				Names: []string{member.official, member.named},
				Desc:  officialDesc,
			})
		}
		tree.Classes = append(tree.Classes, def)
	}
	return tree, nil
}

func splitArrow(value string) (string, string, bool) {
	left, right, ok := strings.Cut(value, " -> ")
	if !ok {
		return "", "", false
	}
	left = strings.TrimSpace(left)
	right = strings.TrimSpace(right)
	if left == "" || right == "" {
		return "", "", false
	}
	return left, right, true
}

func parseProGuardMember(value string) (proguardMember, error) {
	left, official, ok := splitArrow(value)
	if !ok {
		return proguardMember{}, fmt.Errorf("member row must be 'type name -> obfuscated'")
	}
	left = stripLineNumbers(left)
	returnType, rest, ok := strings.Cut(left, " ")
	if !ok {
		return proguardMember{}, fmt.Errorf("member row %q has no type", value)
	}
	rest = strings.TrimSpace(rest)
	open := strings.IndexByte(rest, '(')
	if open < 0 {
		return proguardMember{returnType: returnType, named: rest, official: official}, nil
	}
	closeIdx := strings.IndexByte(rest, ')')
	if closeIdx < open {
		return proguardMember{}, fmt.Errorf("method row %q has unbalanced parentheses", value)
	}
	member := proguardMember{
		method:     true,
		returnType: returnType,
		named:      rest[:open],
		official:   official,
	}
	if args := strings.TrimSpace(rest[open+1 : closeIdx]); args != "" {
		for _, arg := range strings.Split(args, ",") {
			member.args = append(member.args, strings.TrimSpace(arg))
		}
	}
	return member, nil
}

// stripLineNumbers removes the "12:34:" prefix and ":12:34" suffix of
// inlined method rows.
func stripLineNumbers(value string) string {
	for {
		idx := strings.IndexByte(value, ':')
		if idx <= 0 || !isDigits(value[:idx]) {
			break
		}
		value = value[idx+1:]
	}
	if closeIdx := strings.LastIndexByte(value, ')'); closeIdx >= 0 {
		if suffix := value[closeIdx+1:]; strings.HasPrefix(suffix, ":") && isDigits(strings.ReplaceAll(suffix, ":", "")) {
			value = value[:closeIdx+1]
		}
	}
	return value
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, c := range value {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func internalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

var primitiveDescriptors = map[string]string{
	"boolean": "Z",
	"byte":    "B",
	"char":    "C",
	"short":   "S",
	"int":     "I",
	"long":    "J",
	"float":   "F",
	"double":  "D",
	"void":    "V",
}

func javaTypeToDescriptor(javaType string) string {
	dims := 0
	for strings.HasSuffix(javaType, "[]") {
		dims++
		javaType = strings.TrimSuffix(javaType, "[]")
	}
	desc, ok := primitiveDescriptors[javaType]
	if !ok {
		desc = "L" + internalName(javaType) + ";"
	}
	return strings.Repeat("[", dims) + desc
}
