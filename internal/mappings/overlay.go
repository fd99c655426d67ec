package mappings

import (
	"fmt"

	"layered-remap/internal/types"
)

// BuildOverlay merges job scoped mapping trees into one mapper from -> to.
// Trees that lack either namespace are rejected.
func BuildOverlay(trees []*Tree, from, to string) (*Mapper, error) {
	namespaces := []string{from}
	if to != from {
		namespaces = append(namespaces, to)
	}
	builder := NewBuilder(namespaces)
	for i, tree := range trees {
		if tree.NamespaceIndex(from) < 0 || tree.NamespaceIndex(to) < 0 {
			return nil, types.ConfigurationError(fmt.Sprintf("overlay %d does not declare namespaces %q and %q", i, from, to))
		}
		reordered := reorderTree(tree, namespaces)
		if _, err := builder.Merge(reordered, MergeOptions{IgnoreUnknownNamespaces: true}); err != nil {
			return nil, err
		}
	}
	table := builder.Build()
	return table.Mapper(from, to)
}

// reorderTree returns tree with columns rearranged so that namespaces come
// first. Descriptors are translated into the new first namespace.
func reorderTree(tree *Tree, namespaces []string) *Tree {
	if tree.Namespaces[0] == namespaces[0] {
		return tree
	}
	fromCol := tree.NamespaceIndex(namespaces[0])
	classMap := make(map[string]string, len(tree.Classes))
	for _, class := range tree.Classes {
		classMap[class.Names[0]] = effectiveName(class.Names, fromCol)
	}
	translate := lookupFunc(classMap)
	order := make([]int, 0, len(namespaces))
	for _, ns := range namespaces {
		order = append(order, tree.NamespaceIndex(ns))
	}
	pick := func(names []string) []string {
		out := make([]string, len(order))
		for i, col := range order {
			out[i] = effectiveName(names, col)
		}
		return out
	}
	out := NewTree(namespaces...)
	for _, class := range tree.Classes {
		def := &ClassDef{Names: pick(class.Names), Comment: class.Comment}
		for _, field := range class.Fields {
			def.Fields = append(def.Fields, &FieldDef{Names: pick(field.Names), Desc: RemapDescriptor(field.Desc, translate), Comment: field.Comment})
		}
		for _, method := range class.Methods {
			def.Methods = append(def.Methods, &MethodDef{Names: pick(method.Names), Desc: RemapDescriptor(method.Desc, translate), Comment: method.Comment})
		}
		out.Classes = append(out.Classes, def)
	}
	return out
}
