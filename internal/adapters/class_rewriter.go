package adapters

import (
	"encoding/binary"
	"fmt"
	"strings"

	"layered-remap/internal/mappings"
	"layered-remap/internal/ports"
)

const lambdaMetafactory = "java/lang/invoke/LambdaMetafactory"

// ClassRewriter remaps compiled JVM classes. References are re-pointed at
// appended constants, so shared constant pool entries such as string
// literals keep their original value.
type ClassRewriter struct{}

func NewClassRewriter() ClassRewriter {
	return ClassRewriter{}
}

func (ClassRewriter) NewSession(provider mappings.SymbolProvider) ports.RewriteSession {
	session := &classSession{
		provider:  provider,
		hierarchy: map[string]classNode{},
	}
	if signatures, ok := provider.(mappings.SignatureProvider); ok {
		session.signatures = signatures
	}
	return session
}

type classNode struct {
	super      string
	interfaces []string
}

type classSession struct {
	provider   mappings.SymbolProvider
	signatures mappings.SignatureProvider
	hierarchy  map[string]classNode
}

func (s *classSession) Register(data []byte) error {
	cf, err := parseClass(data)
	if err != nil {
		return err
	}
	name, err := cf.className(cf.this)
	if err != nil {
		return err
	}
	node := classNode{}
	if cf.super != 0 {
		if node.super, err = cf.className(cf.super); err != nil {
			return err
		}
	}
	for _, index := range cf.interfaces {
		iface, err := cf.className(index)
		if err != nil {
			return err
		}
		node.interfaces = append(node.interfaces, iface)
	}
	s.hierarchy[name] = node
	return nil
}

// lookupMember resolves a member against owner and then its registered
// supertypes, breadth first.
func (s *classSession) lookupMember(owner string, lookup func(owner string) (string, bool)) (string, bool) {
	visited := map[string]bool{}
	queue := []string{owner}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		if mapped, ok := lookup(current); ok {
			return mapped, true
		}
		node, ok := s.hierarchy[current]
		if !ok {
			continue
		}
		if node.super != "" {
			queue = append(queue, node.super)
		}
		queue = append(queue, node.interfaces...)
	}
	return "", false
}

func (s *classSession) mapMethod(owner, name, desc string) string {
	if strings.HasPrefix(name, "<") {
		return name
	}
	mapped, ok := s.lookupMember(owner, func(current string) (string, bool) {
		return s.provider.MapMethod(current, name, desc)
	})
	if !ok {
		return name
	}
	return mapped
}

func (s *classSession) mapField(owner, name, desc string) string {
	mapped, ok := s.lookupMember(owner, func(current string) (string, bool) {
		return s.provider.MapField(current, name, desc)
	})
	if !ok {
		return name
	}
	return mapped
}

func (s *classSession) mapClass(name string) string {
	if strings.HasPrefix(name, "[") {
		return mappings.MapDescriptor(s.provider, name)
	}
	return mappings.ClassName(s.provider, name)
}

func (s *classSession) Rewrite(data []byte) (string, []byte, error) {
	cf, err := parseClass(data)
	if err != nil {
		return "", nil, err
	}
	rw := &classRewrite{session: s, cf: cf, pool: newPoolBuilder(cf), classes: map[uint16]string{}, methodTypes: map[uint16]string{}}
	if err := rw.run(); err != nil {
		return "", nil, err
	}
	out, err := cf.bytes()
	if err != nil {
		return "", nil, err
	}
	return s.mapClass(rw.thisName), out, nil
}

// classRewrite holds the state of one class. methodTypes keeps the source
// descriptors of MethodType constants.
type classRewrite struct {
	session     *classSession
	cf          *classFile
	pool        *poolBuilder
	classes     map[uint16]string
	methodTypes map[uint16]string
	thisName    string
}

func (rw *classRewrite) utf8(index uint16) (string, error) {
	return rw.cf.utf8(index)
}

func (rw *classRewrite) mapDesc(desc string) string {
	return mappings.MapDescriptor(rw.session.provider, desc)
}

func (rw *classRewrite) mapSignature(signature string) string {
	return mappings.MapSignature(rw.session.provider, signature)
}

func (rw *classRewrite) run() error {
	original := len(rw.cf.pool)
	for i := 1; i < original; i++ {
		tag := rw.cf.pool[i].tag
		if tag != cpClass && tag != cpMethodType {
			continue
		}
		value, err := rw.utf8(rw.cf.pool[i].a)
		if err != nil {
			return err
		}
		if tag == cpClass {
			rw.classes[uint16(i)] = value
		} else {
			rw.methodTypes[uint16(i)] = value
		}
	}
	this, ok := rw.classes[rw.cf.this]
	if !ok {
		return fmt.Errorf("this_class %d is not a class entry", rw.cf.this)
	}
	rw.thisName = this
	bootstraps, err := rw.bootstrapMethods()
	if err != nil {
		return err
	}

	// The pool grows while it is rewritten, so entries are copied out and
	// written back by index.
	for i := 1; i < original; i++ {
		entry := rw.cf.pool[i]
		switch entry.tag {
		case cpFieldref, cpMethodref, cpInterfaceMethodref:
			owner := rw.classes[entry.a]
			name, desc, err := rw.nameAndType(entry.b)
			if err != nil {
				return err
			}
			var mapped string
			if entry.tag == cpFieldref {
				mapped = rw.session.mapField(owner, name, desc)
			} else {
				mapped = rw.session.mapMethod(owner, name, desc)
			}
			entry.b = rw.pool.addNameAndType(mapped, rw.mapDesc(desc))
		case cpInvokeDynamic, cpDynamic:
			name, desc, err := rw.nameAndType(entry.b)
			if err != nil {
				return err
			}
			mapped := name
			if entry.tag == cpInvokeDynamic {
				mapped = rw.lambdaName(bootstraps, entry.a, name, desc)
			}
			entry.b = rw.pool.addNameAndType(mapped, rw.mapDesc(desc))
		case cpMethodType:
			entry.a = rw.pool.addUtf8(rw.mapDesc(rw.methodTypes[uint16(i)]))
		default:
			continue
		}
		rw.cf.pool[i] = entry
	}
	for i := 1; i < original; i++ {
		if name, ok := rw.classes[uint16(i)]; ok {
			index := rw.pool.addUtf8(rw.session.mapClass(name))
			rw.cf.pool[i].a = index
		}
	}

	for i := range rw.cf.fields {
		if err := rw.field(&rw.cf.fields[i]); err != nil {
			return err
		}
	}
	for i := range rw.cf.methods {
		if err := rw.method(&rw.cf.methods[i]); err != nil {
			return err
		}
	}
	attrs, err := rw.attributes(rw.cf.attrs)
	if err != nil {
		return err
	}
	if rw.session.signatures != nil {
		if signature, ok := rw.session.signatures.ClassSignature(rw.thisName); ok {
			attrs = rw.setSignature(attrs, signature)
		}
	}
	rw.cf.attrs = attrs
	return nil
}

func (rw *classRewrite) nameAndType(index uint16) (string, string, error) {
	if int(index) >= len(rw.cf.pool) || rw.cf.pool[index].tag != cpNameAndType {
		return "", "", fmt.Errorf("constant %d is not a name and type entry", index)
	}
	entry := rw.cf.pool[index]
	name, err := rw.utf8(entry.a)
	if err != nil {
		return "", "", err
	}
	desc, err := rw.utf8(entry.b)
	if err != nil {
		return "", "", err
	}
	return name, desc, nil
}

func (rw *classRewrite) field(field *memberInfo) error {
	name, err := rw.utf8(field.name)
	if err != nil {
		return err
	}
	desc, err := rw.utf8(field.desc)
	if err != nil {
		return err
	}
	mapped, _ := rw.session.provider.MapField(rw.thisName, name, desc)
	field.name = rw.pool.addUtf8(mapped)
	field.desc = rw.pool.addUtf8(rw.mapDesc(desc))
	attrs, err := rw.attributes(field.attrs)
	if err != nil {
		return err
	}
	if rw.session.signatures != nil {
		if signature, ok := rw.session.signatures.FieldSignature(rw.thisName, name); ok {
			attrs = rw.setSignature(attrs, signature)
		}
	}
	field.attrs = attrs
	return nil
}

func (rw *classRewrite) method(method *memberInfo) error {
	name, err := rw.utf8(method.name)
	if err != nil {
		return err
	}
	desc, err := rw.utf8(method.desc)
	if err != nil {
		return err
	}
	method.name = rw.pool.addUtf8(rw.session.mapMethod(rw.thisName, name, desc))
	method.desc = rw.pool.addUtf8(rw.mapDesc(desc))
	attrs, err := rw.attributes(method.attrs)
	if err != nil {
		return err
	}
	method.attrs = attrs
	return nil
}

// setSignature replaces the Signature attribute or appends one. signature
// is already in the target namespace.
func (rw *classRewrite) setSignature(attrs []attribute, signature string) []attribute {
	data := binary.BigEndian.AppendUint16(nil, rw.pool.addUtf8(signature))
	for i, attr := range attrs {
		if rw.cf.attributeName(attr) == "Signature" {
			attrs[i].data = data
			return attrs
		}
	}
	return append(attrs, attribute{name: rw.pool.addUtf8("Signature"), data: data})
}

func (rw *classRewrite) attributes(attrs []attribute) ([]attribute, error) {
	for i := range attrs {
		name := rw.cf.attributeName(attrs[i])
		var err error
		switch name {
		case "Signature":
			err = rw.rewriteSignatureAttr(attrs[i].data)
		case "Code":
			err = rw.rewriteCode(attrs[i].data)
		case "InnerClasses":
			err = rw.rewriteInnerClasses(attrs[i].data)
		case "EnclosingMethod":
			err = rw.rewriteEnclosingMethod(attrs[i].data)
		case "Record":
			err = rw.rewriteRecord(attrs[i].data)
		case "RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations":
			err = rw.rewriteAnnotations(&patcher{data: attrs[i].data})
		case "RuntimeVisibleParameterAnnotations", "RuntimeInvisibleParameterAnnotations":
			err = rw.rewriteParameterAnnotations(attrs[i].data)
		case "RuntimeVisibleTypeAnnotations", "RuntimeInvisibleTypeAnnotations":
			err = rw.rewriteTypeAnnotations(&patcher{data: attrs[i].data})
		case "AnnotationDefault":
			err = rw.rewriteElementValue(&patcher{data: attrs[i].data})
		}
		if err != nil {
			return nil, fmt.Errorf("%s attribute: %w", name, err)
		}
	}
	return attrs, nil
}

// patcher walks attribute bytes and replaces constant pool indices in
// place. Index rewrites never change attribute lengths.
type patcher struct {
	data []byte
	pos  int
}

func (p *patcher) need(n int) error {
	if p.pos+n > len(p.data) {
		return errTruncatedClass
	}
	return nil
}

func (p *patcher) u1() (byte, error) {
	if err := p.need(1); err != nil {
		return 0, err
	}
	value := p.data[p.pos]
	p.pos++
	return value, nil
}

func (p *patcher) u2() (uint16, error) {
	if err := p.need(2); err != nil {
		return 0, err
	}
	value := binary.BigEndian.Uint16(p.data[p.pos:])
	p.pos += 2
	return value, nil
}

func (p *patcher) u4() (uint32, error) {
	if err := p.need(4); err != nil {
		return 0, err
	}
	value := binary.BigEndian.Uint32(p.data[p.pos:])
	p.pos += 4
	return value, nil
}

func (p *patcher) skip(n int) error {
	if err := p.need(n); err != nil {
		return err
	}
	p.pos += n
	return nil
}

// replace overwrites the u2 that was just read.
func (p *patcher) replace(value uint16) {
	binary.BigEndian.PutUint16(p.data[p.pos-2:], value)
}

// mapUtf8 reads a utf8 index and replaces it with the mapped value.
func (rw *classRewrite) mapUtf8(p *patcher, mapValue func(string) string) (string, error) {
	index, err := p.u2()
	if err != nil {
		return "", err
	}
	if index == 0 {
		return "", nil
	}
	value, err := rw.utf8(index)
	if err != nil {
		return "", err
	}
	p.replace(rw.pool.addUtf8(mapValue(value)))
	return value, nil
}

func (rw *classRewrite) rewriteSignatureAttr(data []byte) error {
	_, err := rw.mapUtf8(&patcher{data: data}, rw.mapSignature)
	return err
}

func (rw *classRewrite) rewriteCode(data []byte) error {
	p := &patcher{data: data}
	if err := p.skip(4); err != nil {
		return err
	}
	codeLength, err := p.u4()
	if err != nil {
		return err
	}
	if err := p.skip(int(codeLength)); err != nil {
		return err
	}
	exceptions, err := p.u2()
	if err != nil {
		return err
	}
	if err := p.skip(int(exceptions) * 8); err != nil {
		return err
	}
	count, err := p.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		nameIndex, err := p.u2()
		if err != nil {
			return err
		}
		length, err := p.u4()
		if err != nil {
			return err
		}
		if err := p.need(int(length)); err != nil {
			return err
		}
		body := data[p.pos : p.pos+int(length)]
		name, _ := rw.utf8(nameIndex)
		switch name {
		case "LocalVariableTable":
			err = rw.rewriteLocals(body, rw.mapDesc)
		case "LocalVariableTypeTable":
			err = rw.rewriteLocals(body, rw.mapSignature)
		case "RuntimeVisibleTypeAnnotations", "RuntimeInvisibleTypeAnnotations":
			err = rw.rewriteTypeAnnotations(&patcher{data: body})
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		p.pos += int(length)
	}
	return nil
}

func (rw *classRewrite) rewriteLocals(data []byte, mapValue func(string) string) error {
	p := &patcher{data: data}
	count, err := p.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if err := p.skip(6); err != nil {
			return err
		}
		if _, err := rw.mapUtf8(p, mapValue); err != nil {
			return err
		}
		if err := p.skip(2); err != nil {
			return err
		}
	}
	return nil
}

func (rw *classRewrite) rewriteInnerClasses(data []byte) error {
	p := &patcher{data: data}
	count, err := p.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		innerIndex, err := p.u2()
		if err != nil {
			return err
		}
		if err := p.skip(2); err != nil {
			return err
		}
		nameIndex, err := p.u2()
		if err != nil {
			return err
		}
		if nameIndex != 0 {
			if inner, ok := rw.classes[innerIndex]; ok {
				simple, err := rw.utf8(nameIndex)
				if err != nil {
					return err
				}
				p.replace(rw.pool.addUtf8(rw.innerSimpleName(inner, simple)))
			}
		}
		if err := p.skip(2); err != nil {
			return err
		}
	}
	return nil
}

// innerSimpleName derives the simple name of a remapped inner class from
// its mapped binary name.
func (rw *classRewrite) innerSimpleName(inner string, simple string) string {
	if !strings.HasSuffix(inner, "$"+simple) {
		return simple
	}
	mapped := rw.session.mapClass(inner)
	if idx := strings.LastIndexByte(mapped, '$'); idx >= 0 {
		return mapped[idx+1:]
	}
	if idx := strings.LastIndexByte(mapped, '/'); idx >= 0 {
		return mapped[idx+1:]
	}
	return mapped
}

func (rw *classRewrite) rewriteEnclosingMethod(data []byte) error {
	p := &patcher{data: data}
	classIndex, err := p.u2()
	if err != nil {
		return err
	}
	natIndex, err := p.u2()
	if err != nil {
		return err
	}
	if natIndex == 0 {
		return nil
	}
	name, desc, err := rw.nameAndType(natIndex)
	if err != nil {
		return err
	}
	owner := rw.classes[classIndex]
	p.replace(rw.pool.addNameAndType(rw.session.mapMethod(owner, name, desc), rw.mapDesc(desc)))
	return nil
}

func (rw *classRewrite) rewriteRecord(data []byte) error {
	p := &patcher{data: data}
	count, err := p.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		nameIndex, err := p.u2()
		if err != nil {
			return err
		}
		descIndex, err := p.u2()
		if err != nil {
			return err
		}
		name, err := rw.utf8(nameIndex)
		if err != nil {
			return err
		}
		desc, err := rw.utf8(descIndex)
		if err != nil {
			return err
		}
		mapped, _ := rw.session.provider.MapField(rw.thisName, name, desc)
		binary.BigEndian.PutUint16(data[p.pos-4:], rw.pool.addUtf8(mapped))
		p.replace(rw.pool.addUtf8(rw.mapDesc(desc)))
		attrCount, err := p.u2()
		if err != nil {
			return err
		}
		for j := 0; j < int(attrCount); j++ {
			attrName, err := p.u2()
			if err != nil {
				return err
			}
			length, err := p.u4()
			if err != nil {
				return err
			}
			if err := p.need(int(length)); err != nil {
				return err
			}
			body := data[p.pos : p.pos+int(length)]
			switch attrNameValue, _ := rw.utf8(attrName); attrNameValue {
			case "Signature":
				err = rw.rewriteSignatureAttr(body)
			case "RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations":
				err = rw.rewriteAnnotations(&patcher{data: body})
			case "RuntimeVisibleTypeAnnotations", "RuntimeInvisibleTypeAnnotations":
				err = rw.rewriteTypeAnnotations(&patcher{data: body})
			}
			if err != nil {
				return err
			}
			p.pos += int(length)
		}
	}
	return nil
}

func (rw *classRewrite) rewriteParameterAnnotations(data []byte) error {
	p := &patcher{data: data}
	params, err := p.u1()
	if err != nil {
		return err
	}
	for i := 0; i < int(params); i++ {
		if err := rw.rewriteAnnotations(p); err != nil {
			return err
		}
	}
	return nil
}

func (rw *classRewrite) rewriteAnnotations(p *patcher) error {
	count, err := p.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if err := rw.rewriteAnnotation(p); err != nil {
			return err
		}
	}
	return nil
}

func (rw *classRewrite) rewriteAnnotation(p *patcher) error {
	if _, err := rw.mapUtf8(p, rw.mapDesc); err != nil {
		return err
	}
	pairs, err := p.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(pairs); i++ {
		if err := p.skip(2); err != nil {
			return err
		}
		if err := rw.rewriteElementValue(p); err != nil {
			return err
		}
	}
	return nil
}

func (rw *classRewrite) rewriteElementValue(p *patcher) error {
	tag, err := p.u1()
	if err != nil {
		return err
	}
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		return p.skip(2)
	case 'e':
		typeDesc, err := rw.mapUtf8(p, rw.mapDesc)
		if err != nil {
			return err
		}
		owner := strings.TrimSuffix(strings.TrimPrefix(typeDesc, "L"), ";")
		_, err = rw.mapUtf8(p, func(name string) string {
			return rw.session.mapField(owner, name, typeDesc)
		})
		return err
	case 'c':
		_, err := rw.mapUtf8(p, rw.mapDesc)
		return err
	case '@':
		return rw.rewriteAnnotation(p)
	case '[':
		count, err := p.u2()
		if err != nil {
			return err
		}
		for i := 0; i < int(count); i++ {
			if err := rw.rewriteElementValue(p); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown element value tag %q", tag)
	}
}

func (rw *classRewrite) rewriteTypeAnnotations(p *patcher) error {
	count, err := p.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		target, err := p.u1()
		if err != nil {
			return err
		}
		if err := skipTargetInfo(p, target); err != nil {
			return err
		}
		pathLength, err := p.u1()
		if err != nil {
			return err
		}
		if err := p.skip(int(pathLength) * 2); err != nil {
			return err
		}
		if err := rw.rewriteAnnotation(p); err != nil {
			return err
		}
	}
	return nil
}

func skipTargetInfo(p *patcher, target byte) error {
	switch {
	case target == 0x00 || target == 0x01 || target == 0x16:
		return p.skip(1)
	case target == 0x10 || target == 0x17 || (target >= 0x42 && target <= 0x46):
		return p.skip(2)
	case target == 0x11 || target == 0x12:
		return p.skip(2)
	case target >= 0x13 && target <= 0x15:
		return nil
	case target == 0x40 || target == 0x41:
		length, err := p.u2()
		if err != nil {
			return err
		}
		return p.skip(int(length) * 6)
	case target >= 0x47 && target <= 0x4B:
		return p.skip(3)
	default:
		return fmt.Errorf("unknown type annotation target 0x%02x", target)
	}
}

// bootstrapMethods returns the bootstrap method handle and arguments of
// every BootstrapMethods entry.
func (rw *classRewrite) bootstrapMethods() ([][]uint16, error) {
	for _, attr := range rw.cf.attrs {
		if rw.cf.attributeName(attr) != "BootstrapMethods" {
			continue
		}
		p := &patcher{data: attr.data}
		count, err := p.u2()
		if err != nil {
			return nil, err
		}
		methods := make([][]uint16, count)
		for i := range methods {
			handle, err := p.u2()
			if err != nil {
				return nil, err
			}
			argc, err := p.u2()
			if err != nil {
				return nil, err
			}
			entry := []uint16{handle}
			for j := 0; j < int(argc); j++ {
				arg, err := p.u2()
				if err != nil {
					return nil, err
				}
				entry = append(entry, arg)
			}
			methods[i] = entry
		}
		return methods, nil
	}
	return nil, nil
}

// lambdaName maps the interface method name of a LambdaMetafactory call
// site. The functional interface is the return type of the call site
// descriptor and the erased method type is the first static argument.
func (rw *classRewrite) lambdaName(bootstraps [][]uint16, index uint16, name string, desc string) string {
	if int(index) >= len(bootstraps) || len(bootstraps[index]) < 2 {
		return name
	}
	entry := bootstraps[index]
	handle := entry[0]
	if int(handle) >= len(rw.cf.pool) || rw.cf.pool[handle].tag != cpMethodHandle {
		return name
	}
	ref := rw.cf.pool[handle].a
	if int(ref) >= len(rw.cf.pool) || rw.classes[rw.cf.pool[ref].a] != lambdaMetafactory {
		return name
	}
	samType := entry[1]
	if int(samType) >= len(rw.cf.pool) || rw.cf.pool[samType].tag != cpMethodType {
		return name
	}
	samDesc, ok := rw.methodTypes[samType]
	if !ok {
		return name
	}
	ret := desc[strings.LastIndexByte(desc, ')')+1:]
	if !strings.HasPrefix(ret, "L") || !strings.HasSuffix(ret, ";") {
		return name
	}
	return rw.session.mapMethod(ret[1:len(ret)-1], name, samDesc)
}
