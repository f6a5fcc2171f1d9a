package jingle

import (
	"strconv"

	"github.com/mojyack/libjitsimeet/xmlstanza"
)

// Encode renders a Jingle back into the <jingle/> element it should be sent
// as, the mirror of ParseOffer.
func Encode(j Jingle) xmlstanza.Element {
	e := xmlstanza.New("jingle").AppendAttrs(
		xmlstanza.Attr{Key: "xmlns", Value: nsJingle},
		xmlstanza.Attr{Key: "action", Value: string(j.Action)},
		xmlstanza.Attr{Key: "sid", Value: j.Sid},
	)
	if j.Initiator != "" {
		e = e.AppendAttrs(xmlstanza.Attr{Key: "initiator", Value: j.Initiator})
	}
	if j.Responder != "" {
		e = e.AppendAttrs(xmlstanza.Attr{Key: "responder", Value: j.Responder})
	}
	for _, c := range j.Contents {
		e = e.AppendChildren(encodeContent(c))
	}
	if j.Group != nil {
		e = e.AppendChildren(encodeGroup(*j.Group))
	}
	return e
}

func encodeContent(c Content) xmlstanza.Element {
	creator := "initiator"
	if !c.IsFromInitiator {
		creator = "responder"
	}
	e := xmlstanza.New("content").AppendAttrs(
		xmlstanza.Attr{Key: "name", Value: c.Name},
		xmlstanza.Attr{Key: "creator", Value: creator},
	)
	if c.Senders != "" {
		e = e.AppendAttrs(xmlstanza.Attr{Key: "senders", Value: string(c.Senders)})
	}
	for _, d := range c.Descriptions {
		e = e.AppendChildren(encodeRTPDescription(d))
	}
	for _, t := range c.Transports {
		e = e.AppendChildren(encodeIceUdpTransport(t))
	}
	return e
}

func encodeRTPDescription(d RTPDescription) xmlstanza.Element {
	e := xmlstanza.New("description").AppendAttrs(
		xmlstanza.Attr{Key: "xmlns", Value: nsRTP},
		xmlstanza.Attr{Key: "media", Value: d.Media},
	)
	if d.Ssrc >= 0 {
		e = e.AppendAttrs(xmlstanza.Attr{Key: "ssrc", Value: strconv.FormatInt(d.Ssrc, 10)})
	}
	for _, pt := range d.PayloadTypes {
		e = e.AppendChildren(encodePayloadType(pt))
	}
	for _, src := range d.Sources {
		e = e.AppendChildren(encodeSource(src))
	}
	for _, ext := range d.RTPHeaderExts {
		e = e.AppendChildren(encodeRTPHeaderExt(ext))
	}
	for _, g := range d.SSRCGroups {
		e = e.AppendChildren(encodeSSRCGroup(g))
	}
	if d.SupportMux {
		e = e.AppendChildren(xmlstanza.New("rtcp-mux"))
	}
	return e
}

func encodePayloadType(pt PayloadType) xmlstanza.Element {
	e := xmlstanza.New("payload-type").AppendAttrs(
		xmlstanza.Attr{Key: "id", Value: strconv.Itoa(pt.ID)},
		xmlstanza.Attr{Key: "name", Value: pt.Name},
	)
	if pt.Clockrate != -1 {
		e = e.AppendAttrs(xmlstanza.Attr{Key: "clockrate", Value: strconv.Itoa(pt.Clockrate)})
	}
	if pt.Channels != -1 {
		e = e.AppendAttrs(xmlstanza.Attr{Key: "channels", Value: strconv.Itoa(pt.Channels)})
	}
	for _, fb := range pt.RTCPFbs {
		fbElem := xmlstanza.New("rtcp-fb").AppendAttrs(
			xmlstanza.Attr{Key: "xmlns", Value: nsRTPRtcpFb},
			xmlstanza.Attr{Key: "type", Value: fb.Type},
		)
		if fb.Subtype != "" {
			fbElem = fbElem.AppendAttrs(xmlstanza.Attr{Key: "subtype", Value: fb.Subtype})
		}
		e = e.AppendChildren(fbElem)
	}
	for _, p := range pt.Parameters {
		e = e.AppendChildren(encodeParameter(p))
	}
	return e
}

func encodeParameter(p Parameter) xmlstanza.Element {
	return xmlstanza.New("parameter").AppendAttrs(
		xmlstanza.Attr{Key: "name", Value: p.Name},
		xmlstanza.Attr{Key: "value", Value: p.Value},
	)
}

func encodeSource(s Source) xmlstanza.Element {
	e := xmlstanza.New("source").AppendAttrs(
		xmlstanza.Attr{Key: "xmlns", Value: nsRTPSsma},
		xmlstanza.Attr{Key: "ssrc", Value: strconv.FormatUint(uint64(s.Ssrc), 10)},
	)
	for _, p := range s.Parameters {
		e = e.AppendChildren(encodeParameter(p))
	}
	if s.Owner != "" {
		e = e.AppendChildren(xmlstanza.New("ssrc-info").AppendAttrs(
			xmlstanza.Attr{Key: "xmlns", Value: nsJitsiJitmeet},
			xmlstanza.Attr{Key: "owner", Value: s.Owner},
		))
	}
	return e
}

func encodeRTPHeaderExt(ext RTPHeaderExt) xmlstanza.Element {
	return xmlstanza.New("rtp-hdrext").AppendAttrs(
		xmlstanza.Attr{Key: "xmlns", Value: nsRTPHeaderExt},
		xmlstanza.Attr{Key: "id", Value: strconv.Itoa(ext.ID)},
		xmlstanza.Attr{Key: "uri", Value: ext.URI},
	)
}

func encodeSSRCGroup(g SSRCGroup) xmlstanza.Element {
	e := xmlstanza.New("ssrc-group").AppendAttrs(
		xmlstanza.Attr{Key: "xmlns", Value: nsRTPSsma},
		xmlstanza.Attr{Key: "semantics", Value: string(g.Semantics)},
	)
	for _, ssrc := range g.Ssrcs {
		e = e.AppendChildren(xmlstanza.New("source").AppendAttrs(
			xmlstanza.Attr{Key: "ssrc", Value: strconv.FormatUint(uint64(ssrc), 10)},
		))
	}
	return e
}

func encodeIceUdpTransport(t IceUdpTransport) xmlstanza.Element {
	e := xmlstanza.New("transport").AppendAttrs(
		xmlstanza.Attr{Key: "xmlns", Value: nsTransportICEUDP},
		xmlstanza.Attr{Key: "pwd", Value: t.Pwd},
		xmlstanza.Attr{Key: "ufrag", Value: t.Ufrag},
	)
	for _, c := range t.Candidates {
		e = e.AppendChildren(encodeCandidate(c))
	}
	for _, fp := range t.Fingerprints {
		e = e.AppendChildren(encodeFingerprint(fp))
	}
	if t.SupportMux {
		e = e.AppendChildren(xmlstanza.New("rtcp-mux"))
	}
	return e
}

func encodeCandidate(c Candidate) xmlstanza.Element {
	return xmlstanza.New("candidate").AppendAttrs(
		xmlstanza.Attr{Key: "component", Value: strconv.Itoa(c.Component)},
		xmlstanza.Attr{Key: "generation", Value: strconv.Itoa(c.Generation)},
		xmlstanza.Attr{Key: "port", Value: strconv.Itoa(c.Port)},
		xmlstanza.Attr{Key: "priority", Value: strconv.Itoa(c.Priority)},
		xmlstanza.Attr{Key: "type", Value: string(c.Type)},
		xmlstanza.Attr{Key: "foundation", Value: c.Foundation},
		xmlstanza.Attr{Key: "id", Value: c.ID},
		xmlstanza.Attr{Key: "ip", Value: c.IP},
		xmlstanza.Attr{Key: "protocol", Value: "udp"},
	)
}

func encodeFingerprint(fp FingerPrint) xmlstanza.Element {
	required := "false"
	if fp.Required {
		required = "true"
	}
	return xmlstanza.New("fingerprint").AppendAttrs(
		xmlstanza.Attr{Key: "xmlns", Value: nsDTLS},
		xmlstanza.Attr{Key: "hash", Value: fp.HashType},
		xmlstanza.Attr{Key: "setup", Value: fp.Setup},
		xmlstanza.Attr{Key: "required", Value: required},
	).SetText(fp.Data)
}

func encodeGroup(g Group) xmlstanza.Element {
	e := xmlstanza.New("group").AppendAttrs(
		xmlstanza.Attr{Key: "xmlns", Value: nsGrouping},
		xmlstanza.Attr{Key: "semantics", Value: string(g.Semantics)},
	)
	for _, name := range g.Contents {
		e = e.AppendChildren(xmlstanza.New("content").AppendAttrs(xmlstanza.Attr{Key: "name", Value: name}))
	}
	return e
}
