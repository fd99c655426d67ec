package mappings

import (
	"errors"
	"strings"
)

// ClassMapFunc maps an internal class name (a/b/C) to another namespace.
type ClassMapFunc func(name string) string

var errMalformedSignature = errors.New("malformed signature")

// RemapDescriptor rewrites every class reference of a field or method
// descriptor. Malformed input is returned unchanged.
func RemapDescriptor(desc string, mapClass ClassMapFunc) string {
	if !strings.Contains(desc, "L") {
		return desc
	}
	var builder strings.Builder
	builder.Grow(len(desc))
	for i := 0; i < len(desc); i++ {
		c := desc[i]
		builder.WriteByte(c)
		if c != 'L' {
			continue
		}
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return desc
		}
		builder.WriteString(mapClass(desc[i+1 : i+end]))
		builder.WriteByte(';')
		i += end
	}
	return builder.String()
}

// RemapSignature rewrites the class references of a generic signature as
// found in Signature attributes. Malformed input is returned unchanged.
func RemapSignature(signature string, mapClass ClassMapFunc) string {
	if signature == "" {
		return signature
	}
	p := signatureParser{in: signature, mapClass: mapClass}
	if err := p.parse(); err != nil {
		return signature
	}
	return p.out.String()
}

type signatureParser struct {
	in       string
	pos      int
	out      strings.Builder
	mapClass ClassMapFunc
}

func (p *signatureParser) peek() byte {
	if p.pos >= len(p.in) {
		return 0
	}
	return p.in[p.pos]
}

func (p *signatureParser) emit() {
	p.out.WriteByte(p.in[p.pos])
	p.pos++
}

func (p *signatureParser) parse() error {
	if p.peek() == '<' {
		if err := p.formalTypeParameters(); err != nil {
			return err
		}
	}
	for p.pos < len(p.in) {
		switch p.peek() {
		case '(', ')', '^':
			p.emit()
		default:
			if err := p.typeSignature(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *signatureParser) formalTypeParameters() error {
	p.emit()
	for p.peek() != '>' {
		colon := strings.IndexByte(p.in[p.pos:], ':')
		if colon <= 0 {
			return errMalformedSignature
		}
		p.out.WriteString(p.in[p.pos : p.pos+colon])
		p.pos += colon
		for p.peek() == ':' {
			p.emit()
			if c := p.peek(); c != ':' && c != '>' && !isIdentifierStart(p.in, p.pos) {
				if err := p.typeSignature(); err != nil {
					return err
				}
			}
		}
		if p.pos >= len(p.in) {
			return errMalformedSignature
		}
	}
	p.emit()
	return nil
}

// isIdentifierStart reports whether a new formal type parameter starts at
// pos, which happens after an empty class bound such as "T::".
func isIdentifierStart(in string, pos int) bool {
	colon := strings.IndexByte(in[pos:], ':')
	if colon <= 0 {
		return false
	}
	return !strings.ContainsAny(in[pos:pos+colon], ";<>/[")
}

func (p *signatureParser) typeSignature() error {
	switch c := p.peek(); c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		p.emit()
		return nil
	case '[':
		p.emit()
		return p.typeSignature()
	case 'T':
		end := strings.IndexByte(p.in[p.pos:], ';')
		if end < 0 {
			return errMalformedSignature
		}
		p.out.WriteString(p.in[p.pos : p.pos+end+1])
		p.pos += end + 1
		return nil
	case 'L':
		return p.classTypeSignature()
	default:
		return errMalformedSignature
	}
}

func (p *signatureParser) classTypeSignature() error {
	p.emit()
	start := p.pos
	for p.pos < len(p.in) && !strings.ContainsRune("<.;", rune(p.in[p.pos])) {
		p.pos++
	}
	if p.pos >= len(p.in) {
		return errMalformedSignature
	}
	original := p.in[start:p.pos]
	mapped := p.mapClass(original)
	p.out.WriteString(mapped)
	for {
		if p.peek() == '<' {
			if err := p.typeArguments(); err != nil {
				return err
			}
		}
		switch p.peek() {
		case ';':
			p.emit()
			return nil
		case '.':
			p.emit()
			start = p.pos
			for p.pos < len(p.in) && !strings.ContainsRune("<.;", rune(p.in[p.pos])) {
				p.pos++
			}
			if p.pos >= len(p.in) {
				return errMalformedSignature
			}
			inner := p.in[start:p.pos]
			original = original + "$" + inner
			next := p.mapClass(original)
			if strings.HasPrefix(next, mapped+"$") {
				p.out.WriteString(next[len(mapped)+1:])
			} else if idx := strings.LastIndexByte(next, '$'); idx >= 0 {
				p.out.WriteString(next[idx+1:])
			} else {
				p.out.WriteString(inner)
			}
			mapped = next
		default:
			return errMalformedSignature
		}
	}
}

func (p *signatureParser) typeArguments() error {
	p.emit()
	for p.peek() != '>' {
		switch p.peek() {
		case 0:
			return errMalformedSignature
		case '*':
			p.emit()
		case '+', '-':
			p.emit()
			if err := p.typeSignature(); err != nil {
				return err
			}
		default:
			if err := p.typeSignature(); err != nil {
				return err
			}
		}
	}
	p.emit()
	return nil
}
