package xmlstanza

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSerializeRoundTrip(t *testing.T) {
	src := `<iq type="set" id="iq_1"><jingle xmlns="urn:xmpp:jingle:1" action="session-initiate"><content name="audio"/></jingle></iq>`

	e, n, err := Parse([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, len(src), n)
	assert.Equal(t, "iq", e.Name)

	v, ok := e.FindAttr("type")
	require.True(t, ok)
	assert.Equal(t, "set", v)

	jingle, ok := e.FindChild("jingle")
	require.True(t, ok)
	assert.True(t, jingle.IsAttrEqual("xmlns", "urn:xmpp:jingle:1"))

	again, n2, err := Parse([]byte(Serialize(e)))
	require.NoError(t, err)
	assert.Equal(t, n2, len(Serialize(e)))
	assert.True(t, Equal(e, again))
}

func TestParseIncompleteThenComplete(t *testing.T) {
	partial := []byte(`<presence from="a@b/c">`)
	_, _, err := Parse(partial)
	assert.ErrorIs(t, err, ErrIncomplete)

	full := append(partial, []byte(`</presence>`)...)
	e, n, err := Parse(full)
	require.NoError(t, err)
	assert.Equal(t, len(full), n)
	assert.Equal(t, "presence", e.Name)
}

func TestParseMalformedMismatchedTags(t *testing.T) {
	_, _, err := Parse([]byte(`<iq><foo></bar></iq>`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseConsumesOnlyFirstFrame(t *testing.T) {
	data := []byte(`<a/><b/>`)
	e, n, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "a", e.Name)
	assert.Less(t, n, len(data))

	e2, _, err := Parse(data[n:])
	require.NoError(t, err)
	assert.Equal(t, "b", e2.Name)
}

func TestSerializeEscaping(t *testing.T) {
	e := New("body").AppendAttrs(Attr{Key: "x", Value: `a"b<c`}).SetText(`<hi> & "there"`)
	out := Serialize(e)
	assert.Contains(t, out, `x="a&quot;b&lt;c"`)
	assert.Contains(t, out, "&lt;hi&gt; &amp; &quot;there&quot;")
}

func TestCloneDoesNotShareBackingArray(t *testing.T) {
	template := New("iq").AppendAttrs(Attr{Key: "type", Value: "get"})
	a := template.Clone().AppendAttrs(Attr{Key: "id", Value: "iq_1"})
	b := template.Clone().AppendAttrs(Attr{Key: "id", Value: "iq_2"})

	av, _ := a.FindAttr("id")
	bv, _ := b.FindAttr("id")
	assert.Equal(t, "iq_1", av)
	assert.Equal(t, "iq_2", bv)
	_, ok := template.FindAttr("id")
	assert.False(t, ok)
}
