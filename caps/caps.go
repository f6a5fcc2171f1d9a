// Package caps computes the entity-capabilities hash (XEP-0115, with the
// XEP-0390 SHA-256 variant) this client advertises in its MUC presence so
// other participants and the focus agent know which Jingle/ICE/DTLS
// features it supports without a round-trip disco#info query.
package caps

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"sort"
	"strings"

	"github.com/mojyack/libjitsimeet/xmlstanza"
)

const nsDiscoInfo = "http://jabber.org/protocol/disco#info"

// Identity is one <identity/> of the disco#info the hash is derived from.
type Identity struct {
	Category string
	Type     string
	Lang     string
	Name     string
}

// Set is the fixed disco#info this client publishes: one identity plus the
// feature list spec.md §4.3 requires (Jingle RTP audio/video, ICE-UDP,
// DTLS, source grouping/muxing/retransmission, transport-cc). It is
// immutable for the lifetime of a controller, so both digests are computed
// once and cached.
type Set struct {
	Identities []Identity
	Features   []string

	canonical  string
	ver        string
	hashSHA256 string
}

// Default is the disco#info this library advertises.
var Default = New(
	[]Identity{{Category: "client", Type: "bot", Name: "libjitsimeet", Lang: "en"}},
	[]string{
		"http://jabber.org/protocol/disco#info",
		"urn:xmpp:jingle:apps:rtp:audio",
		"urn:xmpp:jingle:apps:rtp:video",
		"urn:xmpp:jingle:transports:ice-udp:1",
		"urn:xmpp:jingle:apps:dtls:0",
		"urn:ietf:rfc:5761",
		"urn:ietf:rfc:5888",
		"urn:ietf:rfc:4588",
		"http://jitsi.org/tcc",
	},
)

// New builds a Set and precomputes its canonical string and both digests.
func New(identities []Identity, features []string) *Set {
	s := &Set{Identities: identities, Features: features}
	s.canonical = s.buildCanonical()
	sum1 := sha1.Sum([]byte(s.canonical))
	s.ver = base64.StdEncoding.EncodeToString(sum1[:])
	sum256 := sha256.Sum256([]byte(s.canonical))
	s.hashSHA256 = base64.StdEncoding.EncodeToString(sum256[:])
	return s
}

// Canonical returns the XEP-0115 canonicalization string: each identity as
// "category/type/lang/name<", sorted, followed by each feature as
// "feature<", sorted, all concatenated.
func (s *Set) Canonical() string {
	return s.canonical
}

func (s *Set) buildCanonical() string {
	identities := append([]Identity(nil), s.Identities...)
	sort.Slice(identities, func(i, j int) bool {
		a, b := identities[i], identities[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Lang < b.Lang
	})

	features := append([]string(nil), s.Features...)
	sort.Strings(features)

	var b strings.Builder
	for _, id := range identities {
		b.WriteString(id.Category)
		b.WriteByte('/')
		b.WriteString(id.Type)
		b.WriteByte('/')
		b.WriteString(id.Lang)
		b.WriteByte('/')
		b.WriteString(id.Name)
		b.WriteByte('<')
	}
	for _, f := range features {
		b.WriteString(f)
		b.WriteByte('<')
	}
	return b.String()
}

// Ver returns the XEP-0115 'ver' attribute: base64(SHA-1(canonical)).
func (s *Set) Ver() string {
	return s.ver
}

// HashSHA256 returns the XEP-0390 hash attribute value:
// base64(SHA-256(canonical)), to be published alongside algo="sha-256".
func (s *Set) HashSHA256() string {
	return s.hashSHA256
}

// DiscoInfoElement renders this Set as the <query/> of a disco#info result:
// one <identity/> per Identity followed by one <feature/> per Feature.
func (s *Set) DiscoInfoElement() xmlstanza.Element {
	e := xmlstanza.New("query").AppendAttrs(xmlstanza.Attr{Key: "xmlns", Value: nsDiscoInfo})
	for _, id := range s.Identities {
		attrs := []xmlstanza.Attr{
			{Key: "category", Value: id.Category},
			{Key: "type", Value: id.Type},
			{Key: "name", Value: id.Name},
		}
		if id.Lang != "" {
			attrs = append(attrs, xmlstanza.Attr{Key: "xml:lang", Value: id.Lang})
		}
		e = e.AppendChildren(xmlstanza.New("identity").AppendAttrs(attrs...))
	}
	for _, f := range s.Features {
		e = e.AppendChildren(xmlstanza.New("feature").AppendAttrs(xmlstanza.Attr{Key: "var", Value: f}))
	}
	return e
}
