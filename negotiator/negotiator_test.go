package negotiator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullHandshakeReachesDone(t *testing.T) {
	var sent [][]byte
	n := New("example.com", func(b []byte) error {
		sent = append(sent, b)
		return nil
	}, nil)

	require.NoError(t, n.Start())
	require.Len(t, sent, 1)

	feed := func(frames ...string) Result {
		var last Result
		for _, f := range frames {
			r, err := n.Feed([]byte(f))
			require.NoError(t, err)
			last = r
		}
		return last
	}

	r := feed(`<open xmlns="urn:ietf:params:xml:ns:xmpp-framing"/>`)
	assert.Equal(t, Continue, r)

	r = feed(`<stream:features xmlns:stream="http://etherx.jabber.org/streams"><mechanisms xmlns="urn:ietf:params:xml:ns:xmpp-sasl"><mechanism>ANONYMOUS</mechanism></mechanisms></stream:features>`)
	assert.Equal(t, Continue, r)
	require.Len(t, sent, 2)

	r = feed(`<success xmlns="urn:ietf:params:xml:ns:xmpp-sasl"/>`)
	assert.Equal(t, Continue, r)
	require.Len(t, sent, 3)

	r = feed(`<open xmlns="urn:ietf:params:xml:ns:xmpp-framing"/>`)
	assert.Equal(t, Continue, r)

	r = feed(`<stream:features xmlns:stream="http://etherx.jabber.org/streams"><bind xmlns="urn:ietf:params:xml:ns:xmpp-bind"/></stream:features>`)
	assert.Equal(t, Continue, r)
	require.Len(t, sent, 4)

	r = feed(`<iq type="result" id="bind_1"><bind xmlns="urn:ietf:params:xml:ns:xmpp-bind"><jid>room-123@example.com/resourceA</jid></bind></iq>`)
	assert.Equal(t, Continue, r)
	require.Len(t, sent, 5)

	r = feed(`<iq type="result" id="services_2"><services xmlns="urn:xmpp:extdisco:2"><service type="stun" host="stun.example.com" port="3478"/></services></iq>`)
	assert.Equal(t, Done, r)

	assert.Equal(t, "room-123@example.com/resourceA", n.Jid())
	require.Len(t, n.Services(), 1)
	assert.Equal(t, "stun.example.com", n.Services()[0].Host)
}

func TestMissingAnonymousMechanismErrors(t *testing.T) {
	n := New("example.com", func(b []byte) error { return nil }, nil)
	require.NoError(t, n.Start())

	_, err := n.Feed([]byte(`<open xmlns="urn:ietf:params:xml:ns:xmpp-framing"/>`))
	require.NoError(t, err)

	r, err := n.Feed([]byte(`<stream:features xmlns:stream="http://etherx.jabber.org/streams"><mechanisms xmlns="urn:ietf:params:xml:ns:xmpp-sasl"><mechanism>PLAIN</mechanism></mechanisms></stream:features>`))
	assert.Equal(t, Errored, r)
	assert.Error(t, err)
}
