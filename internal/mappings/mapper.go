package mappings

import "strings"

// SymbolProvider maps class and member references between two namespaces.
// The boolean reports whether the provider knows the symbol.
type SymbolProvider interface {
	MapClass(name string) (string, bool)
	MapField(owner, name, desc string) (string, bool)
	MapMethod(owner, name, desc string) (string, bool)
}

// SignatureProvider exposes generic signature patches in the target
// namespace, keyed by source names.
type SignatureProvider interface {
	ClassSignature(name string) (string, bool)
	FieldSignature(owner, name string) (string, bool)
}

type memberRef struct {
	owner string
	name  string
	desc  string
}

type fieldRef struct {
	owner string
	name  string
}

// Mapper translates symbols between two namespaces of a table. Descriptors
// of member lookups are in the source namespace.
type Mapper struct {
	classes         map[string]string
	fields          map[memberRef]string
	methods         map[memberRef]string
	classSignatures map[string]string
	fieldSignatures map[fieldRef]string
}

func newMapper(table *Table, fromIdx, toIdx int) *Mapper {
	primaryToFrom := make(map[string]string, len(table.classes))
	primaryToTo := make(map[string]string, len(table.classes))
	m := &Mapper{
		classes:         make(map[string]string, len(table.classes)),
		fields:          map[memberRef]string{},
		methods:         map[memberRef]string{},
		classSignatures: map[string]string{},
		fieldSignatures: map[fieldRef]string{},
	}
	for _, class := range table.classes {
		primaryToFrom[class.Names[0]] = class.Names[fromIdx]
		primaryToTo[class.Names[0]] = class.Names[toIdx]
		m.classes[class.Names[fromIdx]] = class.Names[toIdx]
	}
	toFrom := lookupFunc(primaryToFrom)
	toTo := lookupFunc(primaryToTo)
	for _, class := range table.classes {
		owner := class.Names[fromIdx]
		if class.Signature != "" {
			m.classSignatures[owner] = RemapSignature(class.Signature, toTo)
		}
		for _, field := range class.Fields {
			ref := memberRef{owner: owner, name: field.Names[fromIdx], desc: RemapDescriptor(field.Desc, toFrom)}
			m.fields[ref] = field.Names[toIdx]
			if field.Signature != "" {
				m.fieldSignatures[fieldRef{owner: owner, name: ref.name}] = RemapSignature(field.Signature, toTo)
			}
		}
		for _, method := range class.Methods {
			ref := memberRef{owner: owner, name: method.Names[fromIdx], desc: RemapDescriptor(method.Desc, toFrom)}
			m.methods[ref] = method.Names[toIdx]
		}
	}
	return m
}

func lookupFunc(m map[string]string) ClassMapFunc {
	return func(name string) string {
		if mapped, ok := m[name]; ok {
			return mapped
		}
		return name
	}
}

// MapClass maps name, falling back to the mapped outer class for inner
// classes the table does not list.
func (m *Mapper) MapClass(name string) (string, bool) {
	if mapped, ok := m.LookupClass(name); ok {
		return mapped, true
	}
	if idx := strings.LastIndexByte(name, '$'); idx > 0 {
		if outer, ok := m.MapClass(name[:idx]); ok {
			return outer + name[idx:], true
		}
	}
	return name, false
}

// LookupClass maps name only if the table lists it.
func (m *Mapper) LookupClass(name string) (string, bool) {
	mapped, ok := m.classes[name]
	return mapped, ok
}

func (m *Mapper) MapField(owner, name, desc string) (string, bool) {
	mapped, ok := m.fields[memberRef{owner: owner, name: name, desc: desc}]
	if !ok {
		return name, false
	}
	return mapped, true
}

func (m *Mapper) MapMethod(owner, name, desc string) (string, bool) {
	mapped, ok := m.methods[memberRef{owner: owner, name: name, desc: desc}]
	if !ok {
		return name, false
	}
	return mapped, true
}

func (m *Mapper) ClassSignature(name string) (string, bool) {
	sig, ok := m.classSignatures[name]
	return sig, ok
}

func (m *Mapper) FieldSignature(owner, name string) (string, bool) {
	sig, ok := m.fieldSignatures[fieldRef{owner: owner, name: name}]
	return sig, ok
}

// Size is the number of classes, fields and methods the mapper knows.
func (m *Mapper) Size() int {
	return len(m.classes) + len(m.fields) + len(m.methods)
}

// Stack consults its providers in order; the first one that knows a symbol
// wins. Unknown symbols map to themselves.
type Stack []SymbolProvider

type classLookup interface {
	LookupClass(name string) (string, bool)
}

// MapClass prefers a listed class from any provider over an inner class
// derived from a mapped outer class.
func (s Stack) MapClass(name string) (string, bool) {
	for _, provider := range s {
		if exact, ok := provider.(classLookup); ok {
			if mapped, ok := exact.LookupClass(name); ok {
				return mapped, true
			}
		}
	}
	if idx := strings.LastIndexByte(name, '$'); idx > 0 {
		if outer, ok := s.MapClass(name[:idx]); ok {
			return outer + name[idx:], true
		}
	}
	for _, provider := range s {
		if _, ok := provider.(classLookup); ok {
			continue
		}
		if mapped, ok := provider.MapClass(name); ok {
			return mapped, true
		}
	}
	return name, false
}

func (s Stack) MapField(owner, name, desc string) (string, bool) {
	for _, provider := range s {
		if mapped, ok := provider.MapField(owner, name, desc); ok {
			return mapped, true
		}
	}
	return name, false
}

func (s Stack) MapMethod(owner, name, desc string) (string, bool) {
	for _, provider := range s {
		if mapped, ok := provider.MapMethod(owner, name, desc); ok {
			return mapped, true
		}
	}
	return name, false
}

func (s Stack) ClassSignature(name string) (string, bool) {
	for _, provider := range s {
		if sigs, ok := provider.(SignatureProvider); ok {
			if sig, found := sigs.ClassSignature(name); found {
				return sig, true
			}
		}
	}
	return "", false
}

func (s Stack) FieldSignature(owner, name string) (string, bool) {
	for _, provider := range s {
		if sigs, ok := provider.(SignatureProvider); ok {
			if sig, found := sigs.FieldSignature(owner, name); found {
				return sig, true
			}
		}
	}
	return "", false
}

// ClassName maps a class through provider, returning name when unknown.
func ClassName(provider SymbolProvider, name string) string {
	mapped, _ := provider.MapClass(name)
	return mapped
}

// MapDescriptor remaps a descriptor through provider.
func MapDescriptor(provider SymbolProvider, desc string) string {
	return RemapDescriptor(desc, func(name string) string {
		return ClassName(provider, name)
	})
}

func MapSignature(provider SymbolProvider, signature string) string {
	return RemapSignature(signature, func(name string) string {
		return ClassName(provider, name)
	})
}
