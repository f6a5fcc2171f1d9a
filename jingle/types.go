// Package jingle implements the XEP-0166/XEP-0167/XEP-0176/XEP-0293-ish
// subset of Jingle this client needs to negotiate one audio and one video
// stream with a Jitsi-style focus agent: parsing a session-initiate offer,
// tracking the resulting media/SSRC state, answering with session-accept,
// and folding in source-add updates.
package jingle

// Action is the Jingle action attribute (urn:xmpp:jingle:1).
type Action string

const (
	ActionContentAccept     Action = "content-accept"
	ActionContentAdd        Action = "content-add"
	ActionContentModify     Action = "content-modify"
	ActionContentReject     Action = "content-reject"
	ActionContentRemove     Action = "content-remove"
	ActionDescriptionInfo   Action = "description-info"
	ActionSecurityInfo      Action = "security-info"
	ActionSessionAccept     Action = "session-accept"
	ActionSessionInfo       Action = "session-info"
	ActionSessionInitiate   Action = "session-initiate"
	ActionSessionTerminate  Action = "session-terminate"
	ActionTransportAccept   Action = "transport-accept"
	ActionTransportInfo     Action = "transport-info"
	ActionTransportReject   Action = "transport-reject"
	ActionTransportReplace  Action = "transport-replace"
	ActionSourceAdd         Action = "source-add"
	ActionSourceRemove      Action = "source-remove"
)

// SSRCSemantics is the semantics attribute of an <ssrc-group/>.
type SSRCSemantics string

const (
	SSRCSemanticsLs   SSRCSemantics = "LS"
	SSRCSemanticsFid  SSRCSemantics = "FID"
	SSRCSemanticsSrf  SSRCSemantics = "SRF"
	SSRCSemanticsAnat SSRCSemantics = "ANAT"
	SSRCSemanticsFec  SSRCSemantics = "FEC"
	SSRCSemanticsDdp  SSRCSemantics = "DDP"
)

// GroupSemantics is the semantics attribute of a Jingle <group/>.
type GroupSemantics string

const (
	GroupSemanticsLipSync GroupSemantics = "LS"
	GroupSemanticsBundle  GroupSemantics = "BUNDLE"
)

// CandidateType is the type attribute of an ICE-UDP <candidate/>.
type CandidateType string

const (
	CandidateTypeHost  CandidateType = "host"
	CandidateTypePrflx CandidateType = "prflx"
	CandidateTypeRelay CandidateType = "relay"
	CandidateTypeSrflx CandidateType = "srflx"
)

// Senders is the senders attribute of a Jingle <content/>.
type Senders string

const (
	SendersBoth      Senders = "both"
	SendersInitiator Senders = "initiator"
	SendersResponder Senders = "responder"
	SendersNone      Senders = "none"
)

// Jingle is the top-level <jingle/> payload of an iq.
type Jingle struct {
	Action     Action
	Sid        string
	Initiator  string
	Responder  string
	Contents   []Content
	Group      *Group
}

// Content is one <content/> — one media description plus its transport.
type Content struct {
	Name            string
	Senders         Senders
	IsFromInitiator bool
	Descriptions    []RTPDescription
	Transports      []IceUdpTransport
}

// RTPDescription is a <description xmlns="urn:xmpp:jingle:apps:rtp:1"/>.
// Ssrc is -1 when the element carried no ssrc attribute (the per-content
// ssrc attribute is legacy and rarely present; per-source ssrc values are
// what matters).
type RTPDescription struct {
	Media          string
	Ssrc           int64
	PayloadTypes   []PayloadType
	Sources        []Source
	RTPHeaderExts  []RTPHeaderExt
	SSRCGroups     []SSRCGroup
	SupportMux     bool
}

// RTCPFeedBack is a <rtcp-fb/> under a payload-type.
type RTCPFeedBack struct {
	Type    string
	Subtype string
}

// Parameter is a generic name/value <parameter/>.
type Parameter struct {
	Name  string
	Value string
}

// PayloadType is one <payload-type/>. Clockrate and Channels are -1 when
// absent.
type PayloadType struct {
	ID         int
	Clockrate  int
	Channels   int
	Name       string
	RTCPFbs    []RTCPFeedBack
	Parameters []Parameter
}

// Source is one <source xmlns="urn:xmpp:jingle:apps:rtp:ssma:0"/>, with its
// owner lifted out of the nested Jitsi-specific <ssrc-info/>.
type Source struct {
	Ssrc       uint32
	Name       string
	VideoType  string
	Parameters []Parameter
	Owner      string
}

// RTPHeaderExt is one <rtp-hdrext/>.
type RTPHeaderExt struct {
	ID  int
	URI string
}

// SSRCGroup is one <ssrc-group/>.
type SSRCGroup struct {
	Semantics SSRCSemantics
	Ssrcs     []uint32
}

// FingerPrint is one DTLS <fingerprint/>.
type FingerPrint struct {
	HashType string
	Setup    string
	Required bool
	Data     string
}

// Candidate is one ICE-UDP <candidate/>.
type Candidate struct {
	Component  int
	Generation int
	Port       int
	Priority   int
	Type       CandidateType
	Foundation string
	ID         string
	IP         string
}

// IceUdpTransport is a <transport xmlns="urn:xmpp:jingle:transports:ice-udp:1"/>.
type IceUdpTransport struct {
	Pwd          string
	Ufrag        string
	WebSocket    string
	SupportMux   bool
	Fingerprints []FingerPrint
	Candidates   []Candidate
}

// Group is a <group xmlns="urn:xmpp:jingle:apps:grouping:0"/>.
type Group struct {
	Semantics GroupSemantics
	Contents  []string
}

const (
	RTPHdrExtSSRCAudioLevelURI = "urn:ietf:params:rtp-hdrext:ssrc-audio-level"
	RTPHdrExtTransportCCURI    = "http://www.ietf.org/id/draft-holmer-rmcat-transport-wide-cc-extensions-01"
)

// CodecType is a codec this client knows how to negotiate.
type CodecType string

const (
	CodecOpus CodecType = "opus"
	CodecH264 CodecType = "H264"
	CodecVP8  CodecType = "VP8"
	CodecVP9  CodecType = "VP9"
	CodecAV1  CodecType = "AV1"
)

// SourceType distinguishes the two media kinds this client negotiates.
type SourceType string

const (
	SourceTypeAudio SourceType = "audio"
	SourceTypeVideo SourceType = "video"
)

// Codec is a negotiated payload-type pair: the codec's own payload type and
// its paired retransmission (rtx) payload type, if any. RtxPT is -1 when
// the offer carried no rtx payload type for this codec.
type Codec struct {
	Type     CodecType
	TxPT     int
	RtxPT    int
	RTCPFbs  []RTCPFeedBack
}

// MediaSource maps one SSRC to the participant that owns it and the media
// kind it carries.
type MediaSource struct {
	Ssrc          uint32
	Type          SourceType
	ParticipantID string
}

// SSRCMap is the session-wide table of every SSRC seen so far, keyed by
// SSRC value, built from session-initiate and kept current by source-add.
type SSRCMap map[uint32]MediaSource

// JingleSession is the negotiated state of one ongoing Jingle session: the
// original offer, the codecs and SSRCs it carried, this client's own
// generated SSRCs and DTLS identity, and the local ICE credentials once
// established.
type JingleSession struct {
	InitiateJingle Jingle

	Codecs  []Codec
	SSRCMap SSRCMap

	AudioSSRC    uint32
	VideoSSRC    uint32
	VideoRtxSSRC uint32

	VideoHdrExtTransportCC     int
	AudioHdrExtTransportCC     int
	AudioHdrExtSSRCAudioLevel  int

	LocalUfrag string
	LocalPwd   string

	FingerprintStr string
	DTLSCertPEM    string
	DTLSPrivKeyPEM string
}

// FindCodecByType returns the negotiated codec of the given type, if any.
func (s *JingleSession) FindCodecByType(t CodecType) *Codec {
	for i := range s.Codecs {
		if s.Codecs[i].Type == t {
			return &s.Codecs[i]
		}
	}
	return nil
}

// FindCodecByTxPT returns the negotiated codec whose primary payload type
// is tx, if any.
func (s *JingleSession) FindCodecByTxPT(tx int) *Codec {
	for i := range s.Codecs {
		if s.Codecs[i].TxPT == tx {
			return &s.Codecs[i]
		}
	}
	return nil
}

// RNG is the randomness this package needs: fresh SSRC and stream-id
// values. transport.MathRNG is the default implementation.
type RNG interface {
	Uint32() uint32
}

// Crypto is the DTLS identity this package needs for session-accept.
// transport.StdlibCrypto is the default implementation.
type Crypto interface {
	// GenerateSelfSignedCert returns a fresh self-signed certificate's PEM
	// encoding, its private key's PEM encoding, and the colon-separated
	// uppercase hex SHA-256 fingerprint of the certificate's DER form.
	GenerateSelfSignedCert() (certPEM, privKeyPEM, fingerprintSHA256 string, err error)
}
