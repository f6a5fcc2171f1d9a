package conference

import (
	"fmt"
	"strings"

	"github.com/mojyack/libjitsimeet/jid"
	"github.com/mojyack/libjitsimeet/jingle"
	"github.com/mojyack/libjitsimeet/protoerr"
	"github.com/mojyack/libjitsimeet/xmlstanza"
)

const nsDiscoInfo = "http://jabber.org/protocol/disco#info"

// handleIq dispatches a top-level <iq/>, mirroring original_source's
// Conference::handle_iq: get is a disco#info query, set is a Jingle
// message from the focus agent, result/error complete a pending request
// tracked by the correlator.
func (c *Controller) handleIq(elem xmlstanza.Element) {
	iqType, _ := elem.FindAttr("type")
	switch iqType {
	case "get":
		c.handleIqGet(elem)
	case "set":
		c.handleIqSet(elem)
	case "result":
		c.handleIqResult(elem, true)
	case "error":
		c.handleIqResult(elem, false)
	default:
		c.log.Warnf("conference: iq with unknown type %q", iqType)
	}
}

func (c *Controller) handleIqResult(elem xmlstanza.Element, success bool) {
	id, ok := elem.FindAttr("id")
	if !ok {
		c.log.Warn("conference: iq result/error without id")
		return
	}
	c.correlator.Deliver(id, elem, success)
}

// handleIqGet answers a disco#info query. The queried node is
// "<DiscoNode>#<ver>"; if it has no '#' separator, or either half doesn't
// match this client's own node URI and disco hash, the query is silently
// ignored — a client should only be asked about its own capabilities
// hash, and a mismatch means the question is stale or meant for someone
// else, not an error worth reporting back.
func (c *Controller) handleIqGet(elem xmlstanza.Element) {
	query, ok := elem.FindChild("query")
	if !ok || !query.IsAttrEqual("xmlns", nsDiscoInfo) {
		c.log.Warnf("conference: iq get without disco#info query")
		return
	}

	node, hasNode := query.FindAttr("node")
	if hasNode {
		idx := strings.LastIndexByte(node, '#')
		if idx < 0 {
			return
		}
		uri, hash := node[:idx], node[idx+1:]
		if uri != DiscoNode || hash != c.disco.Ver() {
			return
		}
	}

	result := xmlstanza.New("query").AppendAttrs(xmlstanza.Attr{Key: "xmlns", Value: nsDiscoInfo})
	result = result.AppendChildren(c.disco.DiscoInfoElement().Children...)
	if hasNode {
		result = result.AppendAttrs(xmlstanza.Attr{Key: "node", Value: node})
	}

	from, _ := elem.FindAttr("from")
	id, _ := elem.FindAttr("id")
	reply := xmlstanza.New("iq").AppendAttrs(
		xmlstanza.Attr{Key: "to", Value: from},
		xmlstanza.Attr{Key: "type", Value: "result"},
		xmlstanza.Attr{Key: "id", Value: id},
	).AppendChildren(result)
	c.send(reply)
}

// handleIqSet dispatches a Jingle action from the focus agent. Only a
// "focus" resource is trusted, mirroring original_source's check that
// from.resource == "focus" before acting on anything.
func (c *Controller) handleIqSet(elem xmlstanza.Element) {
	fromStr, _ := elem.FindAttr("from")
	from, err := jid.Parse(fromStr)
	if err != nil || from.Resource != "focus" {
		c.log.Warnf("conference: iq set from untrusted sender %q", fromStr)
		return
	}

	jingleElem, ok := elem.FindChild("jingle")
	if !ok {
		c.log.Warn("conference: iq set without jingle child")
		return
	}
	j, err := jingle.ParseOffer(jingleElem)
	if err != nil {
		// A structurally invalid Jingle payload is a contract violation,
		// not a frame the loop can shrug off (spec.md §7): no ack is sent,
		// and the controller stops itself.
		c.fail(protoerr.Fatalf(fmt.Errorf("conference: malformed jingle: %w", err)))
		return
	}

	switch j.Action {
	case jingle.ActionSessionInitiate:
		if !c.callbacks.OnJingleInitiate(j) {
			c.log.Warn("conference: session-initiate rejected by callbacks")
		}
	case jingle.ActionSourceAdd:
		if !c.callbacks.OnJingleAddSource(j) {
			c.log.Warn("conference: source-add rejected by callbacks")
		}
	case jingle.ActionSessionTerminate:
		c.terminate()
	default:
		c.log.Warnf("conference: unhandled jingle action %q", j.Action)
	}

	id, _ := elem.FindAttr("id")
	ack := xmlstanza.New("iq").AppendAttrs(
		xmlstanza.Attr{Key: "to", Value: fromStr},
		xmlstanza.Attr{Key: "type", Value: "result"},
		xmlstanza.Attr{Key: "id", Value: id},
	)
	c.send(ack)
}

// handlePresence tracks room membership and mute state, mirroring
// original_source's Conference::handle_presence. The original never reads
// <audiomuted/>/<videomuted/> despite Participant carrying those fields
// and ConferenceCallbacks declaring on_mute_state_changed; this restores
// that wiring.
func (c *Controller) handlePresence(elem xmlstanza.Element) {
	fromStr, _ := elem.FindAttr("from")
	from, err := jid.Parse(fromStr)
	if err != nil {
		c.log.Warnf("conference: presence with unparseable from %q", fromStr)
		return
	}
	participantID := from.Resource

	if elem.IsAttrEqual("type", "unavailable") {
		p, ok := c.participants[participantID]
		if !ok {
			c.log.Warnf("conference: unavailable presence from unknown participant %q", participantID)
			return
		}
		delete(c.participants, participantID)
		c.callbacks.OnParticipantLeft(*p)
		return
	}

	p, existed := c.participants[participantID]
	if !existed {
		p = &Participant{ParticipantID: participantID}
		c.participants[participantID] = p
	}

	if nick, ok := elem.FindChild("nick"); ok {
		p.Nick = nick.Text
	}

	if audiomuted, ok := elem.FindChild("audiomuted"); ok {
		muted := audiomuted.Text == "true"
		if muted != p.AudioMuted {
			p.AudioMuted = muted
			c.callbacks.OnMuteStateChanged(*p, true, muted)
		}
	}
	if videomuted, ok := elem.FindChild("videomuted"); ok {
		muted := videomuted.Text == "true"
		if muted != p.VideoMuted {
			p.VideoMuted = muted
			c.callbacks.OnMuteStateChanged(*p, false, muted)
		}
	}

	if !existed {
		c.callbacks.OnParticipantJoined(*p)
	}
}
