// Package negotiator drives the XMPP-over-WebSocket (RFC 7395) handshake
// this client performs before it can join a conference: stream open,
// feature negotiation, anonymous SASL, a stream restart, resource bind,
// and external-service discovery. It is fed raw frames the same way
// conference.Controller is, and reports Continue/Done/Errored per frame.
package negotiator

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mojyack/libjitsimeet/protoerr"
	"github.com/mojyack/libjitsimeet/transport"
	"github.com/mojyack/libjitsimeet/xmlstanza"
)

const (
	nsFraming  = "urn:ietf:params:xml:ns:xmpp-framing"
	nsSASL     = "urn:ietf:params:xml:ns:xmpp-sasl"
	nsBind     = "urn:ietf:params:xml:ns:xmpp-bind"
	nsExtDisco = "urn:xmpp:extdisco:2"
)

// Result is what Feed reports after consuming as many complete frames as
// the buffer currently holds.
type Result int

const (
	// Continue means more bytes are needed before anything else can happen.
	Continue Result = iota
	// Done means the handshake finished; call Jid/Services.
	Done
	// Errored means the handshake failed and cannot be retried.
	Errored
)

type state int

const (
	stateWaitOpen state = iota
	stateWaitFeatures
	stateWaitSASLResult
	stateWaitOpenAfterRestart
	stateWaitFeaturesAfterRestart
	stateWaitBindResult
	stateWaitServicesResult
	stateDone
)

// Negotiator runs the handshake. Construct with New, call Start once, then
// feed it inbound bytes via Feed until it reports Done or Errored.
type Negotiator struct {
	host string
	send func([]byte) error
	log  *logrus.Entry

	state state
	buf   []byte

	nextID int

	jid      string
	services []transport.ServiceEndpoint

	err error
}

// New returns a Negotiator that will send frames via send and authenticate
// against host.
func New(host string, send func([]byte) error, log *logrus.Entry) *Negotiator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Negotiator{host: host, send: send, log: log}
}

// Jid returns the full Jid the server assigned, valid once Feed has
// returned Done.
func (n *Negotiator) Jid() string { return n.jid }

// Services returns the external STUN/TURN services the server advertised,
// valid once Feed has returned Done.
func (n *Negotiator) Services() []transport.ServiceEndpoint { return n.services }

// Start sends the initial stream-open frame.
func (n *Negotiator) Start() error {
	n.state = stateWaitOpen
	return n.sendOpen()
}

func (n *Negotiator) sendOpen() error {
	open := xmlstanza.New("open").AppendAttrs(
		xmlstanza.Attr{Key: "xmlns", Value: nsFraming},
		xmlstanza.Attr{Key: "to", Value: n.host},
		xmlstanza.Attr{Key: "version", Value: "1.0"},
	)
	return n.send([]byte(xmlstanza.Serialize(open)))
}

func (n *Negotiator) genID(prefix string) string {
	n.nextID++
	return fmt.Sprintf("%s_%d", prefix, n.nextID)
}

// Feed appends data to the internal buffer and processes every complete
// frame it can extract. A malformed frame discards the whole buffer, the
// same fail-safe behavior conference.Controller uses, since a structurally
// broken handshake cannot be recovered by waiting for more bytes.
func (n *Negotiator) Feed(data []byte) (Result, error) {
	n.buf = append(n.buf, data...)

	for {
		elem, consumed, err := xmlstanza.Parse(n.buf)
		if err != nil {
			if errors.Is(err, xmlstanza.ErrIncomplete) {
				return Continue, nil
			}
			n.buf = nil
			n.err = protoerr.Fatalf(err)
			return Errored, n.err
		}
		n.buf = n.buf[consumed:]

		if err := n.handle(elem); err != nil {
			// spec.md §4.3: any error during the handshake is fatal — there
			// is no recoverable branch for a broken negotiation.
			n.err = protoerr.Fatalf(err)
			return Errored, n.err
		}
		if n.state == stateDone {
			return Done, nil
		}
	}
}

func (n *Negotiator) handle(elem xmlstanza.Element) error {
	switch elem.Name {
	case "open":
		if n.state == stateWaitOpen {
			n.state = stateWaitFeatures
		} else if n.state == stateWaitOpenAfterRestart {
			n.state = stateWaitFeaturesAfterRestart
		}
		return nil

	case "stream:features", "features":
		return n.handleFeatures(elem)

	case "stream:error", "error":
		return fmt.Errorf("negotiator: stream error received")

	case "success":
		if n.state != stateWaitSASLResult {
			return fmt.Errorf("negotiator: unexpected <success/> in state %d", n.state)
		}
		n.state = stateWaitOpenAfterRestart
		return n.sendOpen()

	case "failure":
		return fmt.Errorf("negotiator: sasl authentication failed")

	case "iq":
		return n.handleIq(elem)
	}
	return nil
}

func (n *Negotiator) handleFeatures(elem xmlstanza.Element) error {
	switch n.state {
	case stateWaitFeatures:
		mechanisms, ok := elem.FindChild("mechanisms")
		if !ok {
			return fmt.Errorf("negotiator: stream features carried no SASL mechanisms")
		}
		hasAnonymous := false
		for _, m := range mechanisms.FindChildren("mechanism") {
			if m.Text == "ANONYMOUS" {
				hasAnonymous = true
			}
		}
		if !hasAnonymous {
			return fmt.Errorf("negotiator: server does not offer ANONYMOUS authentication")
		}
		n.state = stateWaitSASLResult
		auth := xmlstanza.New("auth").AppendAttrs(
			xmlstanza.Attr{Key: "xmlns", Value: nsSASL},
			xmlstanza.Attr{Key: "mechanism", Value: "ANONYMOUS"},
		)
		return n.send([]byte(xmlstanza.Serialize(auth)))

	case stateWaitFeaturesAfterRestart:
		if _, ok := elem.FindChild("bind"); !ok {
			return fmt.Errorf("negotiator: post-auth stream features carried no bind")
		}
		n.state = stateWaitBindResult
		bind := xmlstanza.New("iq").AppendAttrs(
			xmlstanza.Attr{Key: "type", Value: "set"},
			xmlstanza.Attr{Key: "id", Value: n.genID("bind")},
		).AppendChildren(xmlstanza.New("bind").AppendAttrs(xmlstanza.Attr{Key: "xmlns", Value: nsBind}))
		return n.send([]byte(xmlstanza.Serialize(bind)))

	default:
		return fmt.Errorf("negotiator: unexpected stream features in state %d", n.state)
	}
}

func (n *Negotiator) handleIq(elem xmlstanza.Element) error {
	switch n.state {
	case stateWaitBindResult:
		bind, ok := elem.FindChild("bind")
		if !ok {
			return fmt.Errorf("negotiator: bind result carried no <bind/>")
		}
		jidElem, ok := bind.FindChild("jid")
		if !ok {
			return fmt.Errorf("negotiator: bind result carried no <jid/>")
		}
		n.jid = jidElem.Text
		n.state = stateWaitServicesResult

		req := xmlstanza.New("iq").AppendAttrs(
			xmlstanza.Attr{Key: "type", Value: "get"},
			xmlstanza.Attr{Key: "id", Value: n.genID("services")},
			xmlstanza.Attr{Key: "to", Value: n.host},
		).AppendChildren(xmlstanza.New("services").AppendAttrs(xmlstanza.Attr{Key: "xmlns", Value: nsExtDisco}))
		return n.send([]byte(xmlstanza.Serialize(req)))

	case stateWaitServicesResult:
		services, ok := elem.FindChild("services")
		if !ok {
			return fmt.Errorf("negotiator: expected external-services result")
		}
		n.services = transport.ParseServices(services)
		n.state = stateDone
		return nil

	default:
		n.log.Warnf("negotiator: unexpected iq in state %d", n.state)
		return nil
	}
}
