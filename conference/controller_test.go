package conference

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mojyack/libjitsimeet/jid"
	"github.com/mojyack/libjitsimeet/jingle"
	"github.com/mojyack/libjitsimeet/protoerr"
	"github.com/mojyack/libjitsimeet/xmlstanza"
)

type recordingCallbacks struct {
	BaseCallbacks
	sent           [][]byte
	joined         []Participant
	left           []Participant
	muteChanges    int
	terminated     bool
	fatalErr       error
	initiateCalled bool
}

func (r *recordingCallbacks) SendPayload(p []byte)            { r.sent = append(r.sent, p) }
func (r *recordingCallbacks) OnJingleInitiate(jingle.Jingle) bool {
	r.initiateCalled = true
	return true
}
func (r *recordingCallbacks) OnParticipantJoined(p Participant)  { r.joined = append(r.joined, p) }
func (r *recordingCallbacks) OnParticipantLeft(p Participant)    { r.left = append(r.left, p) }
func (r *recordingCallbacks) OnMuteStateChanged(Participant, bool, bool) { r.muteChanges++ }
func (r *recordingCallbacks) OnSessionTerminate()                { r.terminated = true }
func (r *recordingCallbacks) OnFatalError(err error)              { r.fatalErr = err }

func (r *recordingCallbacks) lastSent() string {
	if len(r.sent) == 0 {
		return ""
	}
	return string(r.sent[len(r.sent)-1])
}

func newTestController(t *testing.T) (*Controller, *recordingCallbacks) {
	t.Helper()
	localJid, err := jid.Parse("abc-session@example.com/resourceX")
	require.NoError(t, err)
	cb := &recordingCallbacks{}
	cfg := Config{Jid: localJid, Room: "room1", Nick: "tester", VideoCodecType: jingle.CodecVP8}
	c := New(cfg, cb, nil, nil)
	return c, cb
}

func TestDiscoProbeRepliesWithCachedDiscoInfo(t *testing.T) {
	c, cb := newTestController(t)

	err := c.Feed([]byte(`<iq type="get" id="abc" from="focus@auth.example.com/focus"><query xmlns="http://jabber.org/protocol/disco#info"/></iq>`))
	require.NoError(t, err)

	require.Len(t, cb.sent, 1)
	out := cb.lastSent()
	assert.Contains(t, out, `id="abc"`)
	assert.Contains(t, out, `type="result"`)
	assert.Contains(t, out, `to="focus@auth.example.com/focus"`)
	assert.Contains(t, out, "disco#info")
}

func TestDiscoProbeMismatchedNodeIsSilentlyDropped(t *testing.T) {
	c, cb := newTestController(t)

	err := c.Feed([]byte(`<iq type="get" id="abc" from="focus@auth.example.com/focus"><query xmlns="http://jabber.org/protocol/disco#info" node="` + DiscoNode + `#not-the-real-hash"/></iq>`))
	require.NoError(t, err)
	assert.Empty(t, cb.sent)
}

func TestConferenceCreateThenJoinPresence(t *testing.T) {
	c, cb := newTestController(t)

	c.StartNegotiation()
	require.Len(t, cb.sent, 1)
	create := cb.lastSent()
	assert.Contains(t, create, `type="set"`)
	assert.Contains(t, create, `to="focus@auth.example.com/focus"`)
	assert.Contains(t, create, `room="room1@conference.example.com"`)
	assert.Contains(t, create, `machine-uid=`)

	elem, _, err := xmlstanza.Parse([]byte(create))
	require.NoError(t, err)
	id, ok := elem.FindAttr("id")
	require.True(t, ok)

	err = c.Feed([]byte(`<iq type="result" id="` + id + `"><conference xmlns="http://jitsi.org/protocol/focus" ready="true"/></iq>`))
	require.NoError(t, err)

	require.Len(t, cb.sent, 2)
	presence := cb.lastSent()
	assert.True(t, strings.HasPrefix(presence, "<presence"))
	assert.Contains(t, presence, `to="room1@conference.example.com/abc"`)
	assert.Contains(t, presence, `xmlns="http://jabber.org/protocol/muc"`)
	assert.Contains(t, presence, `hash="sha-1"`)
	assert.Contains(t, presence, `algo="sha-256"`)
	assert.Contains(t, presence, "<nick")
	assert.Equal(t, PhaseActive, c.Phase())

	c.Close()
}

func TestParticipantTrackingJoinLeave(t *testing.T) {
	c, cb := newTestController(t)

	require.NoError(t, c.Feed([]byte(`<presence from="room1@conference.example.com/A"><nick xmlns="http://jabber.org/protocol/nick">Alice</nick></presence>`)))
	require.NoError(t, c.Feed([]byte(`<presence from="room1@conference.example.com/B"><nick xmlns="http://jabber.org/protocol/nick">Bob</nick></presence>`)))
	require.NoError(t, c.Feed([]byte(`<presence from="room1@conference.example.com/A" type="unavailable"/>`)))

	participants := c.Participants()
	require.Len(t, participants, 1)
	assert.Equal(t, "B", participants[0].ParticipantID)

	require.Len(t, cb.joined, 2)
	require.Len(t, cb.left, 1)
	assert.Equal(t, "A", cb.left[0].ParticipantID)
}

func TestMuteStateChangeCallback(t *testing.T) {
	c, cb := newTestController(t)

	require.NoError(t, c.Feed([]byte(`<presence from="room1@conference.example.com/A"><audiomuted>false</audiomuted></presence>`)))
	assert.Equal(t, 0, cb.muteChanges)

	require.NoError(t, c.Feed([]byte(`<presence from="room1@conference.example.com/A"><audiomuted>true</audiomuted></presence>`)))
	assert.Equal(t, 1, cb.muteChanges)

	// Re-sending the same value is not a change.
	require.NoError(t, c.Feed([]byte(`<presence from="room1@conference.example.com/A"><audiomuted>true</audiomuted></presence>`)))
	assert.Equal(t, 1, cb.muteChanges)
}

func TestSessionInitiateDispatchedAndAcked(t *testing.T) {
	c, cb := newTestController(t)

	offer := `<iq type="set" id="iq_1" from="focus@auth.example.com/focus">` +
		`<jingle xmlns="urn:xmpp:jingle:1" action="session-initiate" sid="sid1" initiator="focus@auth.example.com/focus"/>` +
		`</iq>`
	require.NoError(t, c.Feed([]byte(offer)))

	assert.True(t, cb.initiateCalled)
	require.Len(t, cb.sent, 1)
	ack := cb.lastSent()
	assert.Contains(t, ack, `type="result"`)
	assert.Contains(t, ack, `id="iq_1"`)
}

func TestSessionInitiateFromUntrustedSenderIsIgnored(t *testing.T) {
	c, cb := newTestController(t)

	offer := `<iq type="set" id="iq_1" from="someone@conference.example.com/notfocus">` +
		`<jingle xmlns="urn:xmpp:jingle:1" action="session-initiate" sid="sid1"/>` +
		`</iq>`
	require.NoError(t, c.Feed([]byte(offer)))

	assert.False(t, cb.initiateCalled)
	assert.Empty(t, cb.sent)
}

func TestSessionTerminateShutsDownAndAcks(t *testing.T) {
	c, cb := newTestController(t)

	term := `<iq type="set" id="iq_9" from="focus@auth.example.com/focus">` +
		`<jingle xmlns="urn:xmpp:jingle:1" action="session-terminate" sid="sid1"/>` +
		`</iq>`
	require.NoError(t, c.Feed([]byte(term)))

	assert.True(t, cb.terminated)
	assert.Equal(t, PhaseTerminated, c.Phase())
	require.Len(t, cb.sent, 1)
	assert.Contains(t, cb.lastSent(), `type="result"`)
}

func TestMalformedJingleIsFatal(t *testing.T) {
	c, cb := newTestController(t)

	bad := `<iq type="set" id="iq_1" from="focus@auth.example.com/focus">` +
		`<jingle xmlns="urn:xmpp:jingle:1" action="session-initiate"/>` + // missing sid
		`</iq>`
	require.NoError(t, c.Feed([]byte(bad)))

	require.Error(t, cb.fatalErr)
	assert.True(t, protoerr.IsFatal(cb.fatalErr))
	assert.Equal(t, PhaseTerminated, c.Phase())
	assert.Empty(t, cb.sent)
}

func TestUnmatchedIqResultIsDroppedNotPanicked(t *testing.T) {
	c, _ := newTestController(t)
	require.NoError(t, c.Feed([]byte(`<iq type="result" id="never-sent"/>`)))
}
