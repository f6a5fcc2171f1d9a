// Package xmlstanza implements the frame codec of spec.md §4.1: a
// streaming parser that turns a byte stream into structured Element trees,
// and a serializer that turns them back into text.
//
// It deliberately does not implement a general-purpose XML processor —
// only the structural subset spec.md requires (elements, attributes,
// children, text, self-closing tags, XML declarations) with namespace
// handling limited to string equality on the literal "xmlns" attribute, per
// spec.md §4.1. It is built on encoding/xml's raw tokenizer rather than its
// namespace-aware one, because letting encoding/xml resolve namespace
// prefixes would do more than spec.md asks for.
package xmlstanza

import "strings"

// Attr is a single attribute. Order of Attrs on an Element is the order
// attributes were parsed (or appended); equality of an attribute set is
// value-based and ignores order (spec.md §3).
type Attr struct {
	Key   string
	Value string
}

// Element is the structured frame of spec.md §3: name, an insertion-ordered
// set of attributes, an ordered sequence of children, and inline text.
type Element struct {
	Name     string
	Attrs    []Attr
	Children []Element
	Text     string
}

// New returns an empty template Element with the given name. It is meant to
// be used as a package-level constant that call sites Clone() before
// mutating, the way xmpp::elm::iq etc. are used in original_source.
func New(name string) Element {
	return Element{Name: name}
}

// FindAttr returns the value of the named attribute, if present.
func (e Element) FindAttr(key string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// IsAttrEqual reports whether the named attribute is present and equals
// value.
func (e Element) IsAttrEqual(key, value string) bool {
	v, ok := e.FindAttr(key)
	return ok && v == value
}

// FindChild returns the first child with the given name.
func (e Element) FindChild(name string) (Element, bool) {
	for _, c := range e.Children {
		if c.Name == name {
			return c, true
		}
	}
	return Element{}, false
}

// Children of the given name, in order.
func (e Element) FindChildren(name string) []Element {
	var r []Element
	for _, c := range e.Children {
		if c.Name == name {
			r = append(r, c)
		}
	}
	return r
}

// Clone returns a deep copy of e, safe to mutate (via AppendAttrs /
// AppendChildren / SetText) without affecting e or anything else that was
// cloned from the same template.
func (e Element) Clone() Element {
	c := Element{Name: e.Name, Text: e.Text}
	if len(e.Attrs) > 0 {
		c.Attrs = append([]Attr(nil), e.Attrs...)
	}
	if len(e.Children) > 0 {
		c.Children = make([]Element, len(e.Children))
		for i, ch := range e.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// AppendAttrs returns a copy of e with the given attributes appended. It
// does not mutate e's own Attrs backing array.
func (e Element) AppendAttrs(attrs ...Attr) Element {
	e.Attrs = append(append([]Attr(nil), e.Attrs...), attrs...)
	return e
}

// AppendChildren returns a copy of e with the given children appended.
func (e Element) AppendChildren(children ...Element) Element {
	e.Children = append(append([]Element(nil), e.Children...), children...)
	return e
}

// SetText returns a copy of e with its text content replaced.
func (e Element) SetText(text string) Element {
	e.Text = text
	return e
}

// Equal compares two Elements structurally; attribute order is irrelevant,
// attribute/child/text values are not (spec.md §8, frame codec round-trip
// property).
func Equal(a, b Element) bool {
	if a.Name != b.Name || a.Text != b.Text {
		return false
	}
	if len(a.Attrs) != len(b.Attrs) || len(a.Children) != len(b.Children) {
		return false
	}
	for _, av := range a.Attrs {
		bv, ok := b.FindAttr(av.Key)
		if !ok || bv != av.Value {
			return false
		}
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Serialize renders e back to text. Attributes are emitted in insertion
// order; elements with no children and no text are self-closed.
func Serialize(e Element) string {
	var b strings.Builder
	writeElement(&b, e)
	return b.String()
}

func writeElement(b *strings.Builder, e Element) {
	b.WriteByte('<')
	b.WriteString(e.Name)
	for _, a := range e.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(escape(a.Value))
		b.WriteByte('"')
	}
	if len(e.Children) == 0 && e.Text == "" {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	if e.Text != "" {
		b.WriteString(escape(e.Text))
	}
	for _, c := range e.Children {
		writeElement(b, c)
	}
	b.WriteString("</")
	b.WriteString(e.Name)
	b.WriteByte('>')
}
