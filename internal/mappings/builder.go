package mappings

import (
	"errors"
	"fmt"
	"sort"

	"layered-remap/internal/types"
)

// ErrUnknownNamespace is returned when a tree uses a namespace the builder
// does not know.
var ErrUnknownNamespace = errors.New("unknown namespace")

type memberKey struct {
	name string
	desc string
}

type paramEntry struct {
	names   []string
	comment string
}

type memberEntry struct {
	names     []string
	desc      string
	comment   string
	signature string
	params    map[int]*paramEntry
}

type classEntry struct {
	names     []string
	comment   string
	signature string
	fields    map[memberKey]*memberEntry
	methods   map[memberKey]*memberEntry
}

// MergeOptions restricts what a tree may contribute.
type MergeOptions struct {
	// ExistingOnly drops entries whose key is not already present.
	ExistingOnly bool
	// ParamsAndCommentsOnly keeps class and member names untouched.
	ParamsAndCommentsOnly bool
	// IgnoreUnknownNamespaces skips columns the builder does not know.
	IgnoreUnknownNamespaces bool
}

type MergeReport struct {
	Added   int
	Updated int
	Misses  []string
}

// Builder accumulates layers into a table. The first namespace is the
// primary namespace and the name of an entry in it never changes once set.
type Builder struct {
	namespaces []string
	classes    map[string]*classEntry
}

func NewBuilder(namespaces []string) *Builder {
	return &Builder{
		namespaces: append([]string(nil), namespaces...),
		classes:    map[string]*classEntry{},
	}
}

func (b *Builder) Namespaces() []string {
	return append([]string(nil), b.namespaces...)
}

func (b *Builder) namespaceIndex(namespace string) int {
	for i, ns := range b.namespaces {
		if ns == namespace {
			return i
		}
	}
	return -1
}

// effectiveName completes an empty name from the previous namespace.
func effectiveName(names []string, idx int) string {
	for i := idx; i >= 0; i-- {
		if i < len(names) && names[i] != "" {
			return names[i]
		}
	}
	return ""
}

// classIndex maps the names of column col to primary keys. When names
// collide, a class that sets col itself beats one that inherits the name
// from an earlier column, then the smallest primary key wins.
func (b *Builder) classIndex(col int) map[string]string {
	index := make(map[string]string, len(b.classes))
	explicit := make(map[string]bool, len(b.classes))
	for _, primary := range sortedKeys(b.classes) {
		names := b.classes[primary].names
		name := effectiveName(names, col)
		own := col < len(names) && names[col] != ""
		if _, taken := index[name]; taken && (explicit[name] || !own) {
			continue
		}
		index[name] = primary
		explicit[name] = own
	}
	return index
}

// mergeContext translates keys of one tree into primary keys.
type mergeContext struct {
	b           *Builder
	columns     []int
	keyColumn   int
	primaryCol  int
	classIndex  map[string]string
	memberIndex map[string]map[string]memberKey
}

func (b *Builder) newMergeContext(tree *Tree, opts MergeOptions) (*mergeContext, error) {
	if len(tree.Namespaces) == 0 {
		return nil, fmt.Errorf("%w: tree declares no namespaces", ErrUnknownNamespace)
	}
	ctx := &mergeContext{b: b, columns: make([]int, len(tree.Namespaces)), primaryCol: -1}
	for i, ns := range tree.Namespaces {
		idx := b.namespaceIndex(ns)
		if idx < 0 && !opts.IgnoreUnknownNamespaces {
			return nil, fmt.Errorf("%w %q", ErrUnknownNamespace, ns)
		}
		ctx.columns[i] = idx
		if idx == 0 {
			ctx.primaryCol = i
		}
	}
	ctx.keyColumn = ctx.columns[0]
	if ctx.keyColumn < 0 {
		return nil, fmt.Errorf("%w %q", ErrUnknownNamespace, tree.Namespaces[0])
	}
	if ctx.keyColumn != 0 {
		ctx.classIndex = b.classIndex(ctx.keyColumn)
		ctx.memberIndex = map[string]map[string]memberKey{}
	}
	return ctx, nil
}

func (c *mergeContext) primaryClass(name string) (string, bool) {
	if c.keyColumn == 0 {
		_, ok := c.b.classes[name]
		return name, ok
	}
	primary, ok := c.classIndex[name]
	return primary, ok
}

// toPrimary maps a class name in the key namespace to the primary namespace.
func (c *mergeContext) toPrimary(name string) string {
	if c.keyColumn == 0 {
		return name
	}
	if primary, ok := c.classIndex[name]; ok {
		return primary
	}
	return name
}

func (c *mergeContext) fromPrimary(name string) string {
	if class, ok := c.b.classes[name]; ok {
		return effectiveName(class.names, c.keyColumn)
	}
	return name
}

// memberFor locates a member of class by its key namespace name and
// descriptor.
func (c *mergeContext) memberFor(primaryOwner string, class *classEntry, method bool, name, desc string) (memberKey, bool) {
	members := class.fields
	if method {
		members = class.methods
	}
	if c.keyColumn == 0 {
		key := memberKey{name: name, desc: desc}
		_, ok := members[key]
		return key, ok
	}
	indexKey := "f" + primaryOwner
	if method {
		indexKey = "m" + primaryOwner
	}
	index, ok := c.memberIndex[indexKey]
	if !ok {
		index = make(map[string]memberKey, len(members))
		for key, member := range members {
			keyName := effectiveName(member.names, c.keyColumn)
			keyDesc := RemapDescriptor(member.desc, c.fromPrimary)
			index[keyName+keyDesc] = key
		}
		c.memberIndex[indexKey] = index
	}
	key, ok := index[name+desc]
	return key, ok
}

// Merge folds a tree into the builder. Later layers overwrite names of
// entries that already exist and add the rest.
func (b *Builder) Merge(tree *Tree, opts MergeOptions) (MergeReport, error) {
	var report MergeReport
	ctx, err := b.newMergeContext(tree, opts)
	if err != nil {
		return report, err
	}
	newNames := func(src []string, keyName string) []string {
		names := make([]string, len(b.namespaces))
		if ctx.primaryCol >= 0 && ctx.primaryCol < len(src) && src[ctx.primaryCol] != "" {
			names[0] = src[ctx.primaryCol]
		} else {
			names[0] = keyName
		}
		return names
	}
	for _, def := range tree.Classes {
		if len(def.Names) == 0 || def.Names[0] == "" {
			continue
		}
		keyName := def.Names[0]
		primary, ok := ctx.primaryClass(keyName)
		var class *classEntry
		if ok {
			class = b.classes[primary]
			report.Updated++
		} else {
			if opts.ExistingOnly {
				report.Misses = append(report.Misses, "class "+keyName)
				continue
			}
			names := newNames(def.Names, keyName)
			if existing, found := b.classes[names[0]]; found {
				class = existing
				report.Updated++
			} else {
				class = &classEntry{
					names:   names,
					fields:  map[memberKey]*memberEntry{},
					methods: map[memberKey]*memberEntry{},
				}
				b.classes[names[0]] = class
				report.Added++
			}
			primary = class.names[0]
			if ctx.classIndex != nil {
				ctx.classIndex[keyName] = primary
			}
		}
		if !opts.ParamsAndCommentsOnly {
			ctx.applyNames(class.names, def.Names)
		}
		if def.Comment != "" {
			class.comment = def.Comment
		}
		for _, field := range def.Fields {
			ctx.mergeMember(&report, primary, class, false, field.Names, field.Desc, field.Comment, nil, opts)
		}
		for _, method := range def.Methods {
			ctx.mergeMember(&report, primary, class, true, method.Names, method.Desc, method.Comment, method.Params, opts)
		}
	}
	return report, nil
}

func (c *mergeContext) applyNames(dst []string, src []string) {
	for col, name := range src {
		if col >= len(c.columns) || name == "" {
			continue
		}
		idx := c.columns[col]
		if idx <= 0 {
			continue
		}
		dst[idx] = name
	}
}

func (c *mergeContext) mergeMember(report *MergeReport, owner string, class *classEntry, method bool, names []string, desc, comment string, params []*ParamDef, opts MergeOptions) {
	if len(names) == 0 || names[0] == "" {
		return
	}
	members := class.fields
	kind := "field"
	if method {
		members = class.methods
		kind = "method"
	}
	key, ok := c.memberFor(owner, class, method, names[0], desc)
	var member *memberEntry
	if ok {
		member = members[key]
		report.Updated++
	} else {
		if opts.ExistingOnly {
			report.Misses = append(report.Misses, fmt.Sprintf("%s %s.%s%s", kind, c.fromPrimary(owner), names[0], desc))
			return
		}
		primaryName := names[0]
		if c.primaryCol >= 0 && c.primaryCol < len(names) && names[c.primaryCol] != "" {
			primaryName = names[c.primaryCol]
		}
		key = memberKey{name: primaryName, desc: RemapDescriptor(desc, c.toPrimary)}
		if existing, found := members[key]; found {
			member = existing
			report.Updated++
		} else {
			memberNames := make([]string, len(c.b.namespaces))
			memberNames[0] = primaryName
			member = &memberEntry{names: memberNames, desc: key.desc}
			members[key] = member
			report.Added++
		}
		if c.memberIndex != nil {
			indexKey := "f" + owner
			if method {
				indexKey = "m" + owner
			}
			if index, built := c.memberIndex[indexKey]; built {
				index[names[0]+desc] = key
			}
		}
	}
	if !opts.ParamsAndCommentsOnly {
		c.applyNames(member.names, names)
	}
	if comment != "" {
		member.comment = comment
	}
	for _, param := range params {
		if member.params == nil {
			member.params = map[int]*paramEntry{}
		}
		entry, ok := member.params[param.Index]
		if !ok {
			entry = &paramEntry{names: make([]string, len(c.b.namespaces))}
			member.params[param.Index] = entry
		}
		for col, name := range param.Names {
			if col >= len(c.columns) || name == "" || c.columns[col] < 0 {
				continue
			}
			entry.names[c.columns[col]] = name
		}
		if param.Comment != "" {
			entry.comment = param.Comment
		}
	}
}

// ApplySignatures records generic signature patches keyed in namespace. It
// returns the entries that matched nothing.
func (b *Builder) ApplySignatures(namespace string, sigs types.RecordSignatures) ([]string, error) {
	idx := b.namespaceIndex(namespace)
	if idx < 0 {
		return nil, fmt.Errorf("%w %q", ErrUnknownNamespace, namespace)
	}
	ctx := &mergeContext{b: b, keyColumn: idx, primaryCol: -1}
	if idx != 0 {
		ctx.classIndex = b.classIndex(idx)
	}
	var misses []string
	for _, name := range sortedKeys(sigs.Signatures) {
		primary, ok := ctx.primaryClass(name)
		if !ok {
			misses = append(misses, "class "+name)
			continue
		}
		b.classes[primary].signature = RemapSignature(sigs.Signatures[name], ctx.toPrimary)
	}
	for _, owner := range sortedKeys(sigs.Fields) {
		primary, ok := ctx.primaryClass(owner)
		if !ok {
			misses = append(misses, "class "+owner)
			continue
		}
		class := b.classes[primary]
		for _, fieldName := range sortedKeys(sigs.Fields[owner]) {
			var target *memberEntry
			for _, key := range sortedMemberKeys(class.fields) {
				if effectiveName(class.fields[key].names, idx) == fieldName {
					target = class.fields[key]
					break
				}
			}
			if target == nil {
				misses = append(misses, "field "+owner+"."+fieldName)
				continue
			}
			target.signature = RemapSignature(sigs.Fields[owner][fieldName], ctx.toPrimary)
		}
	}
	return misses, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedMemberKeys(m map[memberKey]*memberEntry) []memberKey {
	keys := make([]memberKey, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].desc < keys[j].desc
	})
	return keys
}

func completeNames(names []string) []string {
	out := make([]string, len(names))
	for i := range names {
		out[i] = effectiveName(names, i)
	}
	return out
}

// Build freezes the builder into an immutable table. Missing names are
// completed from the previous namespace.
func (b *Builder) Build() *Table {
	classes := make([]ClassMapping, 0, len(b.classes))
	for _, primary := range sortedKeys(b.classes) {
		entry := b.classes[primary]
		class := ClassMapping{
			Names:     completeNames(entry.names),
			Comment:   entry.comment,
			Signature: entry.signature,
		}
		for _, key := range sortedMemberKeys(entry.fields) {
			field := entry.fields[key]
			class.Fields = append(class.Fields, FieldMapping{
				Names:     completeNames(field.names),
				Desc:      field.desc,
				Comment:   field.comment,
				Signature: field.signature,
			})
		}
		for _, key := range sortedMemberKeys(entry.methods) {
			method := entry.methods[key]
			mapping := MethodMapping{
				Names:   completeNames(method.names),
				Desc:    method.desc,
				Comment: method.comment,
			}
			indexes := make([]int, 0, len(method.params))
			for index := range method.params {
				indexes = append(indexes, index)
			}
			sort.Ints(indexes)
			for _, index := range indexes {
				param := method.params[index]
				mapping.Params = append(mapping.Params, ParamMapping{
					Index:   index,
					Names:   append([]string(nil), param.names...),
					Comment: param.comment,
				})
			}
			class.Methods = append(class.Methods, mapping)
		}
		classes = append(classes, class)
	}
	return newTable(b.namespaces, classes)
}

// TableFromTree builds a table holding exactly the content of tree.
func TableFromTree(tree *Tree) (*Table, error) {
	builder := NewBuilder(tree.Namespaces)
	if _, err := builder.Merge(tree, MergeOptions{}); err != nil {
		return nil, err
	}
	return builder.Build(), nil
}
