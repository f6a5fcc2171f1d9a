package xmlstanza

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// ErrIncomplete is returned by Parse when data does not yet contain a
// complete top-level element; the caller should append more bytes and
// retry (spec.md §4.1).
var ErrIncomplete = errors.New("xmlstanza: incomplete frame")

// ErrMalformed is returned by Parse when data can never become valid,
// regardless of how many more bytes are appended — a structural error such
// as mismatched tags, not merely a truncated buffer. Wrapped with details
// via fmt.Errorf("%w: ...").
var ErrMalformed = errors.New("xmlstanza: malformed frame")

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// Parse reads one top-level element from the front of data and returns it
// together with the number of bytes it consumed. On success, data[n:] is
// whatever bytes followed the element (empty, whitespace, or the start of
// the next frame); the caller decides how to handle it.
//
// Parse uses the decoder's raw, non-namespace-translating tokenizer
// (xml.Decoder.RawToken) rather than Token, so "xmlns" and "xmlns:foo"
// survive as ordinary attributes instead of being consumed into namespace
// resolution — spec.md §4.1 asks only for string equality on the literal
// xmlns attribute, not real namespace handling.
func Parse(data []byte) (Element, int, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true

	var stack []Element
	for {
		tok, err := dec.RawToken()
		if err != nil {
			if err == io.EOF {
				return Element{}, 0, ErrIncomplete
			}
			// A buffer cut off inside a tag surfaces as a syntax error rather
			// than io.EOF; it is still only truncated, not malformed.
			var syn *xml.SyntaxError
			if errors.As(err, &syn) && syn.Msg == "unexpected EOF" {
				return Element{}, 0, ErrIncomplete
			}
			return Element{}, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			e := Element{Name: qualifiedName(t.Name)}
			for _, a := range t.Attr {
				e.Attrs = append(e.Attrs, Attr{Key: qualifiedName(a.Name), Value: a.Value})
			}
			stack = append(stack, e)

		case xml.EndElement:
			if len(stack) == 0 {
				return Element{}, 0, fmt.Errorf("%w: unexpected closing tag </%s>", ErrMalformed, qualifiedName(t.Name))
			}
			finished := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			name := qualifiedName(t.Name)
			if finished.Name != name {
				return Element{}, 0, fmt.Errorf("%w: closing tag </%s> does not match opening tag <%s>", ErrMalformed, name, finished.Name)
			}
			if len(stack) == 0 {
				return finished, int(dec.InputOffset()), nil
			}
			parent := &stack[len(stack)-1]
			parent.Children = append(parent.Children, finished)

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}

		case xml.ProcInst, xml.Comment, xml.Directive:
			// not part of the structural subset this codec cares about.
		}
	}
}
