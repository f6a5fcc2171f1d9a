package jingle

import (
	"fmt"
	"strconv"

	"github.com/mojyack/libjitsimeet/xmlstanza"
)

const (
	nsJingle           = "urn:xmpp:jingle:1"
	nsRTP              = "urn:xmpp:jingle:apps:rtp:1"
	nsRTPSsma          = "urn:xmpp:jingle:apps:rtp:ssma:0"
	nsRTPHeaderExt     = "urn:xmpp:jingle:apps:rtp:rtp-hdrext:0"
	nsRTPRtcpFb        = "urn:xmpp:jingle:apps:rtp:rtcp-fb:0"
	nsDTLS             = "urn:xmpp:jingle:apps:dtls:0"
	nsGrouping         = "urn:xmpp:jingle:apps:grouping:0"
	nsTransportICEUDP  = "urn:xmpp:jingle:transports:ice-udp:1"
	nsJitsiJitmeet     = "http://jitsi.org/jitmeet"
	nsJitsiColibri     = "http://jitsi.org/protocol/colibri"
)

func atoiOr(s string, or int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return or
	}
	return n
}

// ParseOffer parses a <jingle/> element into a Jingle, the way
// original_source's jingle::parse walks the node tree: known
// attributes/children are consumed, unknown ones are tolerated.
func ParseOffer(node xmlstanza.Element) (Jingle, error) {
	j := Jingle{}
	var haveAction, haveSid bool

	for _, a := range node.Attrs {
		switch a.Key {
		case "action":
			j.Action = Action(a.Value)
			haveAction = true
		case "sid":
			j.Sid = a.Value
			haveSid = true
		case "initiator":
			j.Initiator = a.Value
		case "responder":
			j.Responder = a.Value
		case "xmlns":
			if a.Value != nsJingle {
				return Jingle{}, fmt.Errorf("jingle: unsupported xmlns %q", a.Value)
			}
		}
	}
	if !haveAction || !haveSid {
		return Jingle{}, fmt.Errorf("jingle: <jingle/> missing action or sid")
	}

	for _, c := range node.Children {
		switch c.Name {
		case "content":
			content, err := parseContent(c)
			if err != nil {
				return Jingle{}, err
			}
			j.Contents = append(j.Contents, content)
		case "group":
			group, err := parseGroup(c)
			if err != nil {
				return Jingle{}, err
			}
			j.Group = &group
		case "bridge-session":
			// not used by this client.
		}
	}
	return j, nil
}

func parseContent(node xmlstanza.Element) (Content, error) {
	c := Content{Senders: SendersBoth, IsFromInitiator: true}
	var haveName bool

	for _, a := range node.Attrs {
		switch a.Key {
		case "name":
			c.Name = a.Value
			haveName = true
		case "senders":
			c.Senders = Senders(a.Value)
		case "creator":
			switch a.Value {
			case "initiator":
				c.IsFromInitiator = true
			case "responder":
				c.IsFromInitiator = false
			}
		}
	}
	if !haveName {
		return Content{}, fmt.Errorf("jingle: <content/> missing name")
	}

	for _, ch := range node.Children {
		switch ch.Name {
		case "description":
			xmlns, _ := ch.FindAttr("xmlns")
			if xmlns != nsRTP {
				continue
			}
			desc, err := parseRTPDescription(ch)
			if err != nil {
				return Content{}, err
			}
			c.Descriptions = append(c.Descriptions, desc)
		case "transport":
			xmlns, ok := ch.FindAttr("xmlns")
			if !ok || xmlns != nsTransportICEUDP {
				continue
			}
			transport, err := parseIceUdpTransport(ch)
			if err != nil {
				return Content{}, err
			}
			c.Transports = append(c.Transports, transport)
		}
	}
	return c, nil
}

func parseRTPDescription(node xmlstanza.Element) (RTPDescription, error) {
	d := RTPDescription{Ssrc: -1}

	for _, a := range node.Attrs {
		switch a.Key {
		case "media":
			d.Media = a.Value
		case "ssrc":
			if n, err := strconv.ParseInt(a.Value, 10, 64); err == nil {
				d.Ssrc = n
			}
		}
	}

	for _, c := range node.Children {
		switch c.Name {
		case "payload-type":
			pt, err := parsePayloadType(c)
			if err != nil {
				return RTPDescription{}, err
			}
			d.PayloadTypes = append(d.PayloadTypes, pt)
		case "source":
			src, err := parseSource(c)
			if err != nil {
				return RTPDescription{}, err
			}
			d.Sources = append(d.Sources, src)
		case "rtp-hdrext":
			ext, err := parseRTPHeaderExt(c)
			if err != nil {
				return RTPDescription{}, err
			}
			d.RTPHeaderExts = append(d.RTPHeaderExts, ext)
		case "ssrc-group":
			g, err := parseSSRCGroup(c)
			if err != nil {
				return RTPDescription{}, err
			}
			d.SSRCGroups = append(d.SSRCGroups, g)
		case "rtcp-mux":
			d.SupportMux = true
		}
	}
	return d, nil
}

func parseRTCPFeedBack(node xmlstanza.Element) (RTCPFeedBack, error) {
	fb := RTCPFeedBack{}
	var haveType bool
	for _, a := range node.Attrs {
		switch a.Key {
		case "type":
			fb.Type = a.Value
			haveType = true
		case "subtype":
			fb.Subtype = a.Value
		}
	}
	if !haveType {
		return RTCPFeedBack{}, fmt.Errorf("jingle: <rtcp-fb/> missing type")
	}
	return fb, nil
}

func parseParameter(node xmlstanza.Element) (Parameter, error) {
	p := Parameter{}
	var haveName bool
	for _, a := range node.Attrs {
		switch a.Key {
		case "name":
			p.Name = a.Value
			haveName = true
		case "value":
			p.Value = a.Value
		}
	}
	if !haveName {
		return Parameter{}, fmt.Errorf("jingle: <parameter/> missing name")
	}
	return p, nil
}

func parsePayloadType(node xmlstanza.Element) (PayloadType, error) {
	pt := PayloadType{Clockrate: -1, Channels: -1}
	var haveID bool

	for _, a := range node.Attrs {
		switch a.Key {
		case "id":
			pt.ID = atoiOr(a.Value, 0)
			haveID = true
		case "clockrate":
			pt.Clockrate = atoiOr(a.Value, -1)
		case "channels":
			pt.Channels = atoiOr(a.Value, -1)
		case "name":
			pt.Name = a.Value
		}
	}
	if !haveID {
		return PayloadType{}, fmt.Errorf("jingle: <payload-type/> missing id")
	}

	for _, c := range node.Children {
		switch c.Name {
		case "rtcp-fb":
			fb, err := parseRTCPFeedBack(c)
			if err != nil {
				return PayloadType{}, err
			}
			pt.RTCPFbs = append(pt.RTCPFbs, fb)
		case "parameter":
			p, err := parseParameter(c)
			if err != nil {
				return PayloadType{}, err
			}
			pt.Parameters = append(pt.Parameters, p)
		}
	}
	return pt, nil
}

func parseSource(node xmlstanza.Element) (Source, error) {
	s := Source{}
	var haveSsrc bool

	for _, a := range node.Attrs {
		switch a.Key {
		case "ssrc":
			n, err := strconv.ParseUint(a.Value, 10, 32)
			if err != nil {
				return Source{}, fmt.Errorf("jingle: invalid ssrc %q: %w", a.Value, err)
			}
			s.Ssrc = uint32(n)
			haveSsrc = true
		case "name":
			s.Name = a.Value
		case "videoType":
			s.VideoType = a.Value
		}
	}
	if !haveSsrc {
		return Source{}, fmt.Errorf("jingle: <source/> missing ssrc")
	}

	var haveOwner bool
	for _, c := range node.Children {
		switch c.Name {
		case "parameter":
			p, err := parseParameter(c)
			if err != nil {
				return Source{}, err
			}
			s.Parameters = append(s.Parameters, p)
		case "ssrc-info":
			if !c.IsAttrEqual("xmlns", nsJitsiJitmeet) {
				return Source{}, fmt.Errorf("jingle: invalid ssrc-info")
			}
			owner, ok := c.FindAttr("owner")
			if !ok {
				return Source{}, fmt.Errorf("jingle: ssrc-info has no owner")
			}
			s.Owner = owner
			haveOwner = true
		}
	}
	if !haveOwner {
		return Source{}, fmt.Errorf("jingle: <source/> missing ssrc-info owner")
	}
	return s, nil
}

func parseRTPHeaderExt(node xmlstanza.Element) (RTPHeaderExt, error) {
	ext := RTPHeaderExt{}
	var haveID, haveURI bool
	for _, a := range node.Attrs {
		switch a.Key {
		case "id":
			ext.ID = atoiOr(a.Value, 0)
			haveID = true
		case "uri":
			ext.URI = a.Value
			haveURI = true
		}
	}
	if !haveID || !haveURI {
		return RTPHeaderExt{}, fmt.Errorf("jingle: <rtp-hdrext/> missing id or uri")
	}
	return ext, nil
}

var ssrcGroupSemantics = map[string]SSRCSemantics{
	"LS": SSRCSemanticsLs, "FID": SSRCSemanticsFid, "SRF": SSRCSemanticsSrf,
	"ANAT": SSRCSemanticsAnat, "FEC": SSRCSemanticsFec, "DDP": SSRCSemanticsDdp,
}

func parseSSRCGroup(node xmlstanza.Element) (SSRCGroup, error) {
	g := SSRCGroup{}
	var haveSemantics bool
	for _, a := range node.Attrs {
		if a.Key == "semantics" {
			sem, ok := ssrcGroupSemantics[a.Value]
			if !ok {
				return SSRCGroup{}, fmt.Errorf("jingle: unknown ssrc-group semantics %q", a.Value)
			}
			g.Semantics = sem
			haveSemantics = true
		}
	}
	if !haveSemantics {
		return SSRCGroup{}, fmt.Errorf("jingle: <ssrc-group/> missing semantics")
	}
	for _, c := range node.Children {
		if c.Name != "source" {
			continue
		}
		attr, ok := c.FindAttr("ssrc")
		if !ok {
			return SSRCGroup{}, fmt.Errorf("jingle: ssrc-group source missing ssrc")
		}
		n, err := strconv.ParseUint(attr, 10, 32)
		if err != nil {
			return SSRCGroup{}, fmt.Errorf("jingle: invalid ssrc-group source ssrc %q: %w", attr, err)
		}
		g.Ssrcs = append(g.Ssrcs, uint32(n))
	}
	return g, nil
}

func parseFingerprint(node xmlstanza.Element) (FingerPrint, error) {
	if node.Text == "" {
		return FingerPrint{}, fmt.Errorf("jingle: empty <fingerprint/>")
	}
	fp := FingerPrint{Data: node.Text}
	var haveHash, haveSetup bool
	for _, a := range node.Attrs {
		switch a.Key {
		case "hash":
			fp.HashType = a.Value
			haveHash = true
		case "setup":
			fp.Setup = a.Value
			haveSetup = true
		case "required":
			switch a.Value {
			case "true":
				fp.Required = true
			case "false":
				fp.Required = false
			default:
				return FingerPrint{}, fmt.Errorf("jingle: invalid fingerprint required %q", a.Value)
			}
		}
	}
	if !haveHash || !haveSetup {
		return FingerPrint{}, fmt.Errorf("jingle: <fingerprint/> missing hash or setup")
	}
	return fp, nil
}

var candidateTypes = map[string]CandidateType{
	"host": CandidateTypeHost, "prflx": CandidateTypePrflx,
	"relay": CandidateTypeRelay, "srflx": CandidateTypeSrflx,
}

func parseCandidate(node xmlstanza.Element) (Candidate, error) {
	c := Candidate{}
	var have struct {
		component, generation, port, priority, typ, foundation, id, ip bool
	}

	for _, a := range node.Attrs {
		switch a.Key {
		case "component":
			c.Component = atoiOr(a.Value, 0)
			have.component = true
		case "generation":
			c.Generation = atoiOr(a.Value, 0)
			have.generation = true
		case "port":
			c.Port = atoiOr(a.Value, 0)
			have.port = true
		case "priority":
			c.Priority = atoiOr(a.Value, 0)
			have.priority = true
		case "type":
			t, ok := candidateTypes[a.Value]
			if !ok {
				return Candidate{}, fmt.Errorf("jingle: unknown candidate type %q", a.Value)
			}
			c.Type = t
			have.typ = true
		case "foundation":
			c.Foundation = a.Value
			have.foundation = true
		case "id":
			c.ID = a.Value
			have.id = true
		case "ip":
			c.IP = a.Value
			have.ip = true
		case "protocol":
			if a.Value != "udp" {
				return Candidate{}, fmt.Errorf("jingle: unsupported candidate protocol %q", a.Value)
			}
		}
	}
	if !(have.component && have.generation && have.port && have.priority && have.typ && have.foundation && have.id && have.ip) {
		return Candidate{}, fmt.Errorf("jingle: <candidate/> missing a required attribute")
	}
	return c, nil
}

func parseIceUdpTransport(node xmlstanza.Element) (IceUdpTransport, error) {
	t := IceUdpTransport{}
	var havePwd, haveUfrag, haveWebSocket bool

	for _, a := range node.Attrs {
		switch a.Key {
		case "pwd":
			t.Pwd = a.Value
			havePwd = true
		case "ufrag":
			t.Ufrag = a.Value
			haveUfrag = true
		}
	}
	if !havePwd || !haveUfrag {
		return IceUdpTransport{}, fmt.Errorf("jingle: <transport/> missing pwd or ufrag")
	}

	for _, c := range node.Children {
		switch c.Name {
		case "web-socket":
			if !c.IsAttrEqual("xmlns", nsJitsiColibri) {
				continue
			}
			if url, ok := c.FindAttr("url"); ok {
				t.WebSocket = url
				haveWebSocket = true
			}
		case "rtcp-mux":
			t.SupportMux = true
		case "fingerprint":
			fp, err := parseFingerprint(c)
			if err != nil {
				return IceUdpTransport{}, err
			}
			t.Fingerprints = append(t.Fingerprints, fp)
		case "candidate":
			cand, err := parseCandidate(c)
			if err != nil {
				return IceUdpTransport{}, err
			}
			t.Candidates = append(t.Candidates, cand)
		}
	}
	_ = haveWebSocket
	return t, nil
}

var groupSemantics = map[string]GroupSemantics{
	"LS": GroupSemanticsLipSync, "BUNDLE": GroupSemanticsBundle,
}

func parseGroup(node xmlstanza.Element) (Group, error) {
	g := Group{}
	var haveSemantics bool
	for _, a := range node.Attrs {
		if a.Key == "semantics" {
			sem, ok := groupSemantics[a.Value]
			if !ok {
				return Group{}, fmt.Errorf("jingle: unknown group semantics %q", a.Value)
			}
			g.Semantics = sem
			haveSemantics = true
		}
	}
	if !haveSemantics {
		return Group{}, fmt.Errorf("jingle: <group/> missing semantics")
	}
	for _, c := range node.Children {
		if c.Name != "content" {
			continue
		}
		if name, ok := c.FindAttr("name"); ok {
			g.Contents = append(g.Contents, name)
		}
	}
	return g, nil
}
