package transport

import (
	"fmt"
	"strconv"
	"strings"
)

// WebSocketURI is a parsed "protocol://domain:port/path" endpoint, the Go
// form of original_source's URI::parse.
type WebSocketURI struct {
	Protocol string
	Domain   string
	Port     uint32
	Path     string
}

func cutHead(s *string, sep string) (string, error) {
	i := strings.Index(*s, sep)
	if i < 0 {
		return "", fmt.Errorf("transport: missing %q", sep)
	}
	head := (*s)[:i]
	*s = (*s)[i+len(sep):]
	return head, nil
}

// ParseWebSocketURI parses a URI of the form "wss://host:port/path".
func ParseWebSocketURI(s string) (WebSocketURI, error) {
	rest := s
	protocol, err := cutHead(&rest, "://")
	if err != nil {
		return WebSocketURI{}, err
	}
	domain, err := cutHead(&rest, ":")
	if err != nil {
		return WebSocketURI{}, err
	}
	portStr, err := cutHead(&rest, "/")
	if err != nil {
		return WebSocketURI{}, err
	}
	port, err := strconv.ParseUint(portStr, 10, 32)
	if err != nil {
		return WebSocketURI{}, fmt.Errorf("transport: invalid port %q: %w", portStr, err)
	}
	return WebSocketURI{Protocol: protocol, Domain: domain, Port: uint32(port), Path: rest}, nil
}

func (u WebSocketURI) String() string {
	return fmt.Sprintf("%s://%s:%d/%s", u.Protocol, u.Domain, u.Port, u.Path)
}
