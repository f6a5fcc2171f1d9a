package transport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mojyack/libjitsimeet/xmlstanza"
)

func TestParseWebSocketURIRoundTrip(t *testing.T) {
	u, err := ParseWebSocketURI("wss://example.com:443/xmpp-websocket")
	require.NoError(t, err)
	assert.Equal(t, "wss", u.Protocol)
	assert.Equal(t, "example.com", u.Domain)
	assert.Equal(t, uint32(443), u.Port)
	assert.Equal(t, "xmpp-websocket", u.Path)
}

func TestParseWebSocketURIRejectsMalformed(t *testing.T) {
	_, err := ParseWebSocketURI("not-a-uri")
	assert.Error(t, err)
}

func TestParseServicesToleratesBrokenEntries(t *testing.T) {
	elem, _, err := xmlstanza.Parse([]byte(
		`<services xmlns="urn:xmpp:extdisco:2">` +
			`<service type="stun" host="stun.example.com" port="3478"/>` +
			`<service type="turn" host="turn.example.com" port="3478" username="u" password="p" transport="udp" restricted="1"/>` +
			`<service host="missing-type.example.com"/>` +
			`</services>`))
	require.NoError(t, err)

	services := ParseServices(elem)
	require.Len(t, services, 2)
	assert.Equal(t, "stun", services[0].Type)
	assert.Equal(t, 3478, services[0].Port)
	assert.True(t, services[1].Restricted)
	assert.Equal(t, "u", services[1].Username)
}

func TestGenerateSelfSignedCertFingerprintRoundTrip(t *testing.T) {
	c := StdlibCrypto{}
	certPEM, keyPEM, fingerprint, err := c.GenerateSelfSignedCert()
	require.NoError(t, err)
	assert.Contains(t, certPEM, "BEGIN CERTIFICATE")
	assert.Contains(t, keyPEM, "BEGIN PRIVATE KEY")
	assert.Equal(t, 32, strings.Count(fingerprint, ":")+1)

	_, _, fingerprint2, err := c.GenerateSelfSignedCert()
	require.NoError(t, err)
	assert.NotEqual(t, fingerprint, fingerprint2)
}
