// Package mappings holds the unified mapping table, the tiny and ProGuard
// codecs and the symbol mappers the remapper consumes.
package mappings

// Tree is a parsed mapping file before it is merged into a table. Member
// descriptors are expressed in the first namespace.
type Tree struct {
	Namespaces []string
	Properties map[string]string
	Classes    []*ClassDef
}

type ClassDef struct {
	Names   []string
	Comment string
	Fields  []*FieldDef
	Methods []*MethodDef
}

type FieldDef struct {
	Names   []string
	Desc    string
	Comment string
}

type MethodDef struct {
	Names   []string
	Desc    string
	Comment string
	Params  []*ParamDef
}

// ParamDef is a method parameter keyed by its local variable index.
type ParamDef struct {
	Index   int
	Names   []string
	Comment string
}

func NewTree(namespaces ...string) *Tree {
	return &Tree{
		Namespaces: append([]string(nil), namespaces...),
		Properties: map[string]string{},
	}
}

// NamespaceIndex returns the column of namespace in the tree or -1.
func (t *Tree) NamespaceIndex(namespace string) int {
	for i, ns := range t.Namespaces {
		if ns == namespace {
			return i
		}
	}
	return -1
}

// Class returns the class whose first-namespace name is name, adding it when
// absent.
func (t *Tree) Class(names ...string) *ClassDef {
	for _, class := range t.Classes {
		if len(class.Names) > 0 && len(names) > 0 && class.Names[0] == names[0] {
			return class
		}
	}
	class := &ClassDef{Names: padNames(names, len(t.Namespaces))}
	t.Classes = append(t.Classes, class)
	return class
}

func (c *ClassDef) AddField(desc string, names ...string) *FieldDef {
	field := &FieldDef{Names: append([]string(nil), names...), Desc: desc}
	c.Fields = append(c.Fields, field)
	return field
}

func (c *ClassDef) AddMethod(desc string, names ...string) *MethodDef {
	method := &MethodDef{Names: append([]string(nil), names...), Desc: desc}
	c.Methods = append(c.Methods, method)
	return method
}

func (m *MethodDef) AddParam(index int, names ...string) *ParamDef {
	param := &ParamDef{Index: index, Names: append([]string(nil), names...)}
	m.Params = append(m.Params, param)
	return param
}

func padNames(names []string, size int) []string {
	out := make([]string, size)
	copy(out, names)
	return out
}

// Size counts classes, fields and methods in the tree.
func (t *Tree) Size() int {
	total := 0
	for _, class := range t.Classes {
		total += 1 + len(class.Fields) + len(class.Methods)
	}
	return total
}
