package nquads

import (
	"io"
	"sort"
	"strings"

	types "github.com/underlay/canonize/types"
)

const hex = "0123456789ABCDEF"

// escape renders a literal lexical form in canonical N-Quads: the ECHAR
// forms for the characters that have one, UCHAR for the remaining
// control characters, everything else verbatim.
func escape(str string) string {
	var b strings.Builder
	b.Grow(len(str) + 2)
	for i := 0; i < len(str); i++ {
		c := str[i]
		switch c {
		case '\\':
			b.WriteString("\\\\")
		case '"':
			b.WriteString("\\\"")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		case '\b':
			b.WriteString("\\b")
		case '\f':
			b.WriteString("\\f")
		default:
			if c < 0x20 || c == 0x7F {
				b.WriteString("\\u00")
				b.WriteByte(hex[c>>4])
				b.WriteByte(hex[c&0xF])
			} else {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

// AppendTerm appends the N-Quads form of term to b. The default graph
// has no textual form.
func AppendTerm(b *strings.Builder, term types.Term) {
	switch term.Type {
	case types.IRIType:
		b.WriteByte('<')
		b.WriteString(term.Value)
		b.WriteByte('>')
	case types.BlankNodeType:
		b.WriteString("_:")
		b.WriteString(term.Value)
	case types.LiteralType:
		b.WriteByte('"')
		b.WriteString(escape(term.Value))
		b.WriteByte('"')
		if term.Language != "" {
			b.WriteByte('@')
			b.WriteString(term.Language)
		} else if term.Datatype != "" && term.Datatype != types.XSDString {
			b.WriteString("^^<")
			b.WriteString(term.Datatype)
			b.WriteByte('>')
		}
	}
}

// TermString returns the N-Quads form of term
func TermString(term types.Term) string {
	var b strings.Builder
	AppendTerm(&b, term)
	return b.String()
}

// SerializeQuad returns the canonical N-Quads line for quad, including
// the terminating newline
func SerializeQuad(quad *types.Quad) string {
	var b strings.Builder
	AppendTerm(&b, quad.Subject)
	b.WriteByte(' ')
	AppendTerm(&b, quad.Predicate)
	b.WriteByte(' ')
	AppendTerm(&b, quad.Object)
	if quad.Graph.Type != types.DefaultGraphType && quad.Graph != (types.Term{}) {
		b.WriteByte(' ')
		AppendTerm(&b, quad.Graph)
	}
	b.WriteString(" .\n")
	return b.String()
}

// Lines returns the serialized lines of dataset sorted by code point
func Lines(dataset types.Dataset) []string {
	lines := make([]string, len(dataset))
	for i := range dataset {
		lines[i] = SerializeQuad(&dataset[i])
	}
	sort.Strings(lines)
	return lines
}

// Serialize returns the sorted N-Quads document for dataset
func Serialize(dataset types.Dataset) string {
	return strings.Join(Lines(dataset), "")
}

// Write writes the sorted N-Quads document for dataset to w
func Write(w io.Writer, dataset types.Dataset) error {
	for _, line := range Lines(dataset) {
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}
