package adapters

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const classMagic = 0xCAFEBABE

const (
	cpUtf8               = 1
	cpInteger            = 3
	cpFloat              = 4
	cpLong               = 5
	cpDouble             = 6
	cpClass              = 7
	cpString             = 8
	cpFieldref           = 9
	cpMethodref          = 10
	cpInterfaceMethodref = 11
	cpNameAndType        = 12
	cpMethodHandle       = 15
	cpMethodType         = 16
	cpDynamic            = 17
	cpInvokeDynamic      = 18
	cpModule             = 19
	cpPackage            = 20
)

var errTruncatedClass = errors.New("truncated class file")

// constant is one constant pool slot. Long and double values take two
// slots; the second one has tag 0.
type constant struct {
	tag  byte
	utf8 string
	a    uint16
	b    uint16
	kind byte
	raw  []byte
}

type attribute struct {
	name uint16
	data []byte
}

type memberInfo struct {
	access uint16
	name   uint16
	desc   uint16
	attrs  []attribute
}

type classFile struct {
	minor      uint16
	major      uint16
	pool       []constant
	access     uint16
	this       uint16
	super      uint16
	interfaces []uint16
	fields     []memberInfo
	methods    []memberInfo
	attrs      []attribute
}

type classReader struct {
	data []byte
	pos  int
	err  error
}

func (r *classReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = errTruncatedClass
		return nil
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out
}

func (r *classReader) u1() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *classReader) u2() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *classReader) u4() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func parseClass(data []byte) (*classFile, error) {
	r := &classReader{data: data}
	if r.u4() != classMagic {
		if r.err != nil {
			return nil, r.err
		}
		return nil, errors.New("not a class file")
	}
	cf := &classFile{minor: r.u2(), major: r.u2()}
	count := int(r.u2())
	cf.pool = make([]constant, count)
	for i := 1; i < count; i++ {
		entry := constant{tag: r.u1()}
		switch entry.tag {
		case cpUtf8:
			entry.utf8 = string(r.take(int(r.u2())))
		case cpInteger, cpFloat:
			entry.raw = r.take(4)
		case cpLong, cpDouble:
			entry.raw = r.take(8)
		case cpClass, cpString, cpMethodType, cpModule, cpPackage:
			entry.a = r.u2()
		case cpFieldref, cpMethodref, cpInterfaceMethodref, cpNameAndType, cpDynamic, cpInvokeDynamic:
			entry.a = r.u2()
			entry.b = r.u2()
		case cpMethodHandle:
			entry.kind = r.u1()
			entry.a = r.u2()
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, fmt.Errorf("unknown constant pool tag %d at index %d", entry.tag, i)
		}
		cf.pool[i] = entry
		if entry.tag == cpLong || entry.tag == cpDouble {
			i++
		}
	}
	cf.access = r.u2()
	cf.this = r.u2()
	cf.super = r.u2()
	cf.interfaces = make([]uint16, r.u2())
	for i := range cf.interfaces {
		cf.interfaces[i] = r.u2()
	}
	cf.fields = readMembers(r)
	cf.methods = readMembers(r)
	cf.attrs = readAttributes(r)
	if r.err != nil {
		return nil, r.err
	}
	return cf, nil
}

func readMembers(r *classReader) []memberInfo {
	members := make([]memberInfo, r.u2())
	for i := range members {
		if r.err != nil {
			return nil
		}
		members[i] = memberInfo{
			access: r.u2(),
			name:   r.u2(),
			desc:   r.u2(),
			attrs:  readAttributes(r),
		}
	}
	return members
}

func readAttributes(r *classReader) []attribute {
	attrs := make([]attribute, r.u2())
	for i := range attrs {
		if r.err != nil {
			return nil
		}
		name := r.u2()
		data := r.take(int(r.u4()))
		attrs[i] = attribute{name: name, data: append([]byte(nil), data...)}
	}
	return attrs
}

func (cf *classFile) utf8(index uint16) (string, error) {
	if int(index) >= len(cf.pool) || cf.pool[index].tag != cpUtf8 {
		return "", fmt.Errorf("constant %d is not a utf8 entry", index)
	}
	return cf.pool[index].utf8, nil
}

func (cf *classFile) className(index uint16) (string, error) {
	if int(index) >= len(cf.pool) || cf.pool[index].tag != cpClass {
		return "", fmt.Errorf("constant %d is not a class entry", index)
	}
	return cf.utf8(cf.pool[index].a)
}

func (cf *classFile) attributeName(attr attribute) string {
	name, _ := cf.utf8(attr.name)
	return name
}

func (cf *classFile) bytes() ([]byte, error) {
	if len(cf.pool) > 0xFFFF {
		return nil, fmt.Errorf("constant pool overflow: %d entries", len(cf.pool))
	}
	out := make([]byte, 0, 1024)
	out = binary.BigEndian.AppendUint32(out, classMagic)
	out = binary.BigEndian.AppendUint16(out, cf.minor)
	out = binary.BigEndian.AppendUint16(out, cf.major)
	out = binary.BigEndian.AppendUint16(out, uint16(len(cf.pool)))
	for i := 1; i < len(cf.pool); i++ {
		entry := cf.pool[i]
		if entry.tag == 0 {
			continue
		}
		out = append(out, entry.tag)
		switch entry.tag {
		case cpUtf8:
			if len(entry.utf8) > 0xFFFF {
				return nil, fmt.Errorf("utf8 constant %d too long", i)
			}
			out = binary.BigEndian.AppendUint16(out, uint16(len(entry.utf8)))
			out = append(out, entry.utf8...)
		case cpInteger, cpFloat, cpLong, cpDouble:
			out = append(out, entry.raw...)
		case cpClass, cpString, cpMethodType, cpModule, cpPackage:
			out = binary.BigEndian.AppendUint16(out, entry.a)
		case cpMethodHandle:
			out = append(out, entry.kind)
			out = binary.BigEndian.AppendUint16(out, entry.a)
		default:
			out = binary.BigEndian.AppendUint16(out, entry.a)
			out = binary.BigEndian.AppendUint16(out, entry.b)
		}
	}
	out = binary.BigEndian.AppendUint16(out, cf.access)
	out = binary.BigEndian.AppendUint16(out, cf.this)
	out = binary.BigEndian.AppendUint16(out, cf.super)
	out = binary.BigEndian.AppendUint16(out, uint16(len(cf.interfaces)))
	for _, iface := range cf.interfaces {
		out = binary.BigEndian.AppendUint16(out, iface)
	}
	out = appendMembers(out, cf.fields)
	out = appendMembers(out, cf.methods)
	out = appendAttributes(out, cf.attrs)
	return out, nil
}

func appendMembers(out []byte, members []memberInfo) []byte {
	out = binary.BigEndian.AppendUint16(out, uint16(len(members)))
	for _, member := range members {
		out = binary.BigEndian.AppendUint16(out, member.access)
		out = binary.BigEndian.AppendUint16(out, member.name)
		out = binary.BigEndian.AppendUint16(out, member.desc)
		out = appendAttributes(out, member.attrs)
	}
	return out
}

func appendAttributes(out []byte, attrs []attribute) []byte {
	out = binary.BigEndian.AppendUint16(out, uint16(len(attrs)))
	for _, attr := range attrs {
		out = binary.BigEndian.AppendUint16(out, attr.name)
		out = binary.BigEndian.AppendUint32(out, uint32(len(attr.data)))
		out = append(out, attr.data...)
	}
	return out
}

// poolBuilder appends constants, reusing an existing entry with the same
// content when there is one.
type poolBuilder struct {
	cf   *classFile
	utf8 map[string]uint16
	nat  map[[2]uint16]uint16
}

func newPoolBuilder(cf *classFile) *poolBuilder {
	b := &poolBuilder{cf: cf, utf8: map[string]uint16{}, nat: map[[2]uint16]uint16{}}
	for i, entry := range cf.pool {
		switch entry.tag {
		case cpUtf8:
			if _, ok := b.utf8[entry.utf8]; !ok {
				b.utf8[entry.utf8] = uint16(i)
			}
		case cpNameAndType:
			key := [2]uint16{entry.a, entry.b}
			if _, ok := b.nat[key]; !ok {
				b.nat[key] = uint16(i)
			}
		}
	}
	return b
}

func (b *poolBuilder) add(entry constant) uint16 {
	if len(b.cf.pool) == 0 {
		b.cf.pool = append(b.cf.pool, constant{})
	}
	b.cf.pool = append(b.cf.pool, entry)
	return uint16(len(b.cf.pool) - 1)
}

func (b *poolBuilder) addUtf8(value string) uint16 {
	if index, ok := b.utf8[value]; ok {
		return index
	}
	index := b.add(constant{tag: cpUtf8, utf8: value})
	b.utf8[value] = index
	return index
}

func (b *poolBuilder) addNameAndType(name string, desc string) uint16 {
	key := [2]uint16{b.addUtf8(name), b.addUtf8(desc)}
	if index, ok := b.nat[key]; ok {
		return index
	}
	index := b.add(constant{tag: cpNameAndType, a: key[0], b: key[1]})
	b.nat[key] = index
	return index
}
