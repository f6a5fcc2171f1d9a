package jingle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mojyack/libjitsimeet/xmlstanza"
)

type fakeRNG struct{ next uint32 }

func (r *fakeRNG) Uint32() uint32 {
	r.next++
	return r.next
}

type fakeCrypto struct{}

func (fakeCrypto) GenerateSelfSignedCert() (string, string, string, error) {
	return "CERT-PEM", "KEY-PEM", "AA:BB:CC", nil
}

func offerXML() string {
	return `<jingle xmlns="urn:xmpp:jingle:1" action="session-initiate" sid="sid1" initiator="focus@auth.example/focus">` +
		`<content name="audio" creator="initiator">` +
		`<description xmlns="urn:xmpp:jingle:apps:rtp:1" media="audio">` +
		`<payload-type id="111" name="opus" clockrate="48000" channels="2"/>` +
		`<source xmlns="urn:xmpp:jingle:apps:rtp:ssma:0" ssrc="1111"><ssrc-info xmlns="http://jitsi.org/jitmeet" owner="a@b/c"/></source>` +
		`<rtp-hdrext xmlns="urn:xmpp:jingle:apps:rtp:rtp-hdrext:0" id="1" uri="urn:ietf:params:rtp-hdrext:ssrc-audio-level"/>` +
		`</description>` +
		`<transport xmlns="urn:xmpp:jingle:transports:ice-udp:1" pwd="pwd1" ufrag="ufrag1"/>` +
		`</content>` +
		`<content name="video" creator="initiator">` +
		`<description xmlns="urn:xmpp:jingle:apps:rtp:1" media="video">` +
		`<payload-type id="100" name="VP8" clockrate="90000"/>` +
		`<payload-type id="101" name="rtx" clockrate="90000"><parameter name="apt" value="100"/></payload-type>` +
		`<source xmlns="urn:xmpp:jingle:apps:rtp:ssma:0" ssrc="2222"><ssrc-info xmlns="http://jitsi.org/jitmeet" owner="a@b/c"/></source>` +
		`</description>` +
		`</content>` +
		`</jingle>`
}

func TestParseOfferBuildSessionAndAccept(t *testing.T) {
	elem, _, err := xmlstanza.Parse([]byte(offerXML()))
	require.NoError(t, err)

	offer, err := ParseOffer(elem)
	require.NoError(t, err)
	assert.Equal(t, ActionSessionInitiate, offer.Action)
	assert.Len(t, offer.Contents, 2)

	rng := &fakeRNG{}
	session, transport, err := BuildSessionFromOffer(offer, rng, fakeCrypto{})
	require.NoError(t, err)
	assert.NotNil(t, transport)
	assert.Equal(t, "pwd1", transport.Pwd)

	require.NotNil(t, session.FindCodecByType(CodecOpus))
	vp8 := session.FindCodecByType(CodecVP8)
	require.NotNil(t, vp8)
	assert.Equal(t, 101, vp8.RtxPT)

	assert.Equal(t, "a@b/c", session.SSRCMap[1111].ParticipantID)
	assert.Equal(t, SourceTypeAudio, session.SSRCMap[1111].Type)

	session.LocalPwd = "localpwd"
	session.LocalUfrag = "localufrag"

	accept, err := BuildAccept(session, CodecOpus, CodecVP8, "me@example/resource", nil, rng)
	require.NoError(t, err)
	assert.Equal(t, ActionSessionAccept, accept.Action)
	assert.Len(t, accept.Contents, 2)
	require.NotNil(t, accept.Group)
	assert.Equal(t, GroupSemanticsBundle, accept.Group.Semantics)

	var videoContent *Content
	for i := range accept.Contents {
		if accept.Contents[i].Name == "video" {
			videoContent = &accept.Contents[i]
		}
	}
	require.NotNil(t, videoContent)
	require.Len(t, videoContent.Descriptions, 1)
	require.Len(t, videoContent.Descriptions[0].SSRCGroups, 1)
	assert.Equal(t, SSRCSemanticsFid, videoContent.Descriptions[0].SSRCGroups[0].Semantics)
	assert.Len(t, videoContent.Descriptions[0].SSRCGroups[0].Ssrcs, 2)

	// Encode's output must be well-formed XML, but it is never fed back
	// through ParseOffer by this client: ParseOffer is only ever used on
	// the focus agent's own offers and source-adds, which always carry a
	// <ssrc-info/> owner, unlike the sources this client emits for itself
	// in BuildAccept. Asserting a ParseOffer round-trip here would require
	// owner to be optional on parse, which would let a malformed remote
	// offer silently pass validation instead of being rejected.
	serialized := xmlstanza.Serialize(Encode(accept))
	again, _, err := xmlstanza.Parse([]byte(serialized))
	require.NoError(t, err)
	assert.Equal(t, "jingle", again.Name)
	assert.True(t, again.IsAttrEqual("action", string(ActionSessionAccept)))
	assert.Len(t, again.FindChildren("content"), 2)
}

func TestApplySourceAddIsIdempotent(t *testing.T) {
	session := &JingleSession{SSRCMap: SSRCMap{}}
	add := Jingle{Contents: []Content{{
		Descriptions: []RTPDescription{{
			Media:   "video",
			Sources: []Source{{Ssrc: 555, Owner: "x@y/z"}},
		}},
	}}}

	ApplySourceAdd(session, add)
	ApplySourceAdd(session, add)

	assert.Len(t, session.SSRCMap, 1)
	assert.Equal(t, "x@y/z", session.SSRCMap[555].ParticipantID)
}
