package transport

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pion/ice/v4"
	"github.com/sirupsen/logrus"

	"github.com/mojyack/libjitsimeet/internal/volatile"
	"github.com/mojyack/libjitsimeet/jingle"
)

// PionICEAgent is the default ICEAgent, backed by pion/ice. It mirrors
// original_source's ice.cpp: services become STUN/TURN URLs handed to the
// agent, gathered candidates are translated into Jingle candidates and
// forwarded to the caller's callback, and the eventual peer connection is
// established in the background since gathering/connecting can take a
// while and must not block the cooperative scheduler.
type PionICEAgent struct {
	log   *logrus.Entry
	agent *ice.Agent
	// conn is written from the background Dial goroutine in Start and read
	// from Close, which may run on a different goroutine once the embedder
	// decides to tear the session down — the same cross-goroutine handoff
	// internal/volatile was built for.
	conn *volatile.Value[*ice.Conn]

	onCandidate func(jingle.Candidate)
}

// NewPionICEAgent returns an agent that will log through log (nil uses the
// standard logger).
func NewPionICEAgent(log *logrus.Entry) *PionICEAgent {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &PionICEAgent{log: log, conn: volatile.NewValue[*ice.Conn](nil)}
}

func (p *PionICEAgent) OnCandidate(fn func(jingle.Candidate)) {
	p.onCandidate = fn
}

func serviceToURL(s ServiceEndpoint) (*ice.URL, error) {
	scheme := ice.SchemeTypeSTUN
	switch s.Type {
	case "stun":
		scheme = ice.SchemeTypeSTUN
	case "turn":
		scheme = ice.SchemeTypeTURN
	case "turns":
		scheme = ice.SchemeTypeTURNS
	default:
		return nil, fmt.Errorf("transport: unsupported external service type %q", s.Type)
	}

	transport := ice.ProtoTypeUDP
	if s.Transport == "tcp" {
		transport = ice.ProtoTypeTCP
	}

	return &ice.URL{
		Scheme:   scheme,
		Host:     s.Host,
		Port:     s.Port,
		Username: s.Username,
		Password: s.Password,
		Proto:    transport,
	}, nil
}

// Start builds a pion ice.Agent from the given services, starts candidate
// gathering, and kicks off the (controlling-side) connection establishment
// against remoteUfrag/remotePwd in the background.
func (p *PionICEAgent) Start(ctx context.Context, services []ServiceEndpoint, remoteUfrag, remotePwd string) error {
	var urls []*ice.URL
	for _, s := range services {
		u, err := serviceToURL(s)
		if err != nil {
			p.log.WithError(err).Warn("skipping external service")
			continue
		}
		urls = append(urls, u)
	}

	agent, err := ice.NewAgent(&ice.AgentConfig{
		Urls:         urls,
		NetworkTypes: []ice.NetworkType{ice.NetworkTypeUDP4, ice.NetworkTypeUDP6},
	})
	if err != nil {
		return fmt.Errorf("transport: creating ice agent: %w", err)
	}
	p.agent = agent

	if err := agent.OnCandidate(func(c ice.Candidate) {
		if c == nil || p.onCandidate == nil {
			return
		}
		p.onCandidate(p.translateCandidate(c))
	}); err != nil {
		return fmt.Errorf("transport: registering candidate callback: %w", err)
	}

	if err := agent.GatherCandidates(); err != nil {
		return fmt.Errorf("transport: gathering candidates: %w", err)
	}

	go func() {
		conn, err := agent.Dial(ctx, remoteUfrag, remotePwd)
		if err != nil {
			p.log.WithError(err).Warn("ice dial failed")
			return
		}
		p.conn.Store(conn)
	}()

	return nil
}

func (p *PionICEAgent) LocalCredentials() (string, string) {
	ufrag, pwd, err := p.agent.GetLocalUserCredentials()
	if err != nil {
		p.log.WithError(err).Warn("reading local ice credentials")
		return "", ""
	}
	return ufrag, pwd
}

func (p *PionICEAgent) AddRemoteCandidate(c jingle.Candidate) error {
	candidate, err := ice.UnmarshalCandidate(fmt.Sprintf(
		"%s %d udp %d %s %d typ %s",
		c.Foundation, c.Component, c.Priority, c.IP, c.Port, string(c.Type),
	))
	if err != nil {
		return fmt.Errorf("transport: parsing remote candidate: %w", err)
	}
	return p.agent.AddRemoteCandidate(candidate)
}

func (p *PionICEAgent) Close() error {
	if conn := p.conn.Load(); conn != nil {
		_ = conn.Close()
	}
	if p.agent == nil {
		return nil
	}
	return p.agent.Close()
}

func (p *PionICEAgent) translateCandidate(c ice.Candidate) jingle.Candidate {
	typ := jingle.CandidateTypeHost
	switch c.Type() {
	case ice.CandidateTypeHost:
		typ = jingle.CandidateTypeHost
	case ice.CandidateTypeServerReflexive:
		typ = jingle.CandidateTypeSrflx
	case ice.CandidateTypePeerReflexive:
		typ = jingle.CandidateTypePrflx
	case ice.CandidateTypeRelay:
		typ = jingle.CandidateTypeRelay
	}

	return jingle.Candidate{
		Component:  int(c.Component()),
		Generation: 0,
		Port:       c.Port(),
		Priority:   int(c.Priority()),
		Type:       typ,
		Foundation: c.Foundation(),
		ID:         uuid.NewString(),
		IP:         c.Address(),
	}
}
