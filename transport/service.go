// Package transport holds the pluggable I/O this library needs — the wire
// transport, the ICE agent, the DTLS/fingerprint crypto, and the source of
// randomness — plus one default implementation of each, so a caller that
// doesn't care can just use transport.WebSocketTransport,
// transport.PionICEAgent, transport.StdlibCrypto and transport.MathRNG.
package transport

import (
	"fmt"
	"strconv"

	"github.com/mojyack/libjitsimeet/xmlstanza"
)

// ServiceEndpoint is one <service/> of a disco#items external-service-discovery
// reply (XEP-0215): a STUN, TURN or TURN-TLS endpoint the ICE agent should
// be told about.
type ServiceEndpoint struct {
	Type       string
	Host       string
	Name       string
	Transport  string
	Username   string
	Password   string
	Port       int
	Restricted bool
}

// ParseServices parses every <service/> child of a <services/> element,
// skipping (and logging nothing for — the caller is better placed to log)
// any that fail to parse, the way original_source's extdisco::parse_services
// tolerates a partially-broken list rather than failing the whole reply.
func ParseServices(services xmlstanza.Element) []ServiceEndpoint {
	var r []ServiceEndpoint
	for _, c := range services.Children {
		if c.Name != "service" {
			continue
		}
		if s, err := parseService(c); err == nil {
			r = append(r, s)
		}
	}
	return r
}

func parseService(node xmlstanza.Element) (ServiceEndpoint, error) {
	s := ServiceEndpoint{}
	var haveType, haveHost bool

	for _, a := range node.Attrs {
		switch a.Key {
		case "type":
			s.Type = a.Value
			haveType = true
		case "host":
			s.Host = a.Value
			haveHost = true
		case "name":
			s.Name = a.Value
		case "transport":
			s.Transport = a.Value
		case "username":
			s.Username = a.Value
		case "password":
			s.Password = a.Value
		case "port":
			n, err := strconv.Atoi(a.Value)
			if err != nil {
				return ServiceEndpoint{}, fmt.Errorf("transport: invalid service port %q: %w", a.Value, err)
			}
			s.Port = n
		case "restricted":
			switch a.Value {
			case "1", "true":
				s.Restricted = true
			case "0", "false":
				s.Restricted = false
			default:
				return ServiceEndpoint{}, fmt.Errorf("transport: unknown restricted value %q", a.Value)
			}
		}
	}
	if !haveType || !haveHost {
		return ServiceEndpoint{}, fmt.Errorf("transport: <service/> missing type or host")
	}
	return s, nil
}
