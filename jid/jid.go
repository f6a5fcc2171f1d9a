// Package jid implements the node@domain/resource identifier used
// throughout the signaling protocol, and the four conference-scoped Jids
// the conference controller derives from it.
package jid

import (
	"fmt"
	"strings"
)

// Jid is the (node, domain, resource) triple of spec.md §3.
type Jid struct {
	Node     string
	Domain   string
	Resource string
}

// Parse splits a full or bare Jid string of the form
// "node@domain[/resource]" into its parts. A Jid with no "@" has an empty
// Node (matching the teacher's tolerant parsing style elsewhere in this
// codebase: malformed input that can still be used is accepted rather than
// rejected).
func Parse(s string) (Jid, error) {
	if s == "" {
		return Jid{}, fmt.Errorf("jid: empty string")
	}

	rest := s
	node := ""
	if at := strings.IndexByte(rest, '@'); at >= 0 {
		node = rest[:at]
		rest = rest[at+1:]
	}

	domain := rest
	resource := ""
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		domain = rest[:slash]
		resource = rest[slash+1:]
	}
	if domain == "" {
		return Jid{}, fmt.Errorf("jid: %q has no domain", s)
	}

	return Jid{Node: node, Domain: domain, Resource: resource}, nil
}

// AsFull renders the full form: node@domain/resource. The resource segment
// is omitted if empty, the node segment (and its "@") if empty too.
func (j Jid) AsFull() string {
	s := j.AsBare()
	if j.Resource != "" {
		s += "/" + j.Resource
	}
	return s
}

// AsBare renders the bare form: node@domain, dropping the resource.
func (j Jid) AsBare() string {
	if j.Node == "" {
		return j.Domain
	}
	return j.Node + "@" + j.Domain
}

func (j Jid) String() string {
	return j.AsFull()
}

// MucResourceFromNode returns the first non-empty hyphen-delimited segment
// of node, used to derive a MUC resource from a full local Jid's node part
// (spec.md §3, muc_local_jid). Grounded on
// original_source/src/conference.cpp's jid_node_to_muc_resource.
func MucResourceFromNode(node string) string {
	for _, part := range strings.Split(node, "-") {
		if part != "" {
			return part
		}
	}
	return node
}

// ConferenceJids holds the four Jids the conference controller derives from
// the local full Jid and a room name (spec.md §3).
type ConferenceJids struct {
	Focus          Jid
	Muc            Jid
	MucLocal       Jid
	MucLocalFocus  Jid
}

// DeriveConferenceJids computes the four room-scoped Jids from the client's
// own full Jid and the target room name.
func DeriveConferenceJids(local Jid, room string) ConferenceJids {
	mucDomain := "conference." + local.Domain
	return ConferenceJids{
		Focus: Jid{
			Node:     "focus",
			Domain:   "auth." + local.Domain,
			Resource: "focus",
		},
		Muc: Jid{
			Node:   room,
			Domain: mucDomain,
		},
		MucLocal: Jid{
			Node:     room,
			Domain:   mucDomain,
			Resource: MucResourceFromNode(local.Node),
		},
		MucLocalFocus: Jid{
			Node:     room,
			Domain:   mucDomain,
			Resource: "focus",
		},
	}
}
