package transport

import (
	"context"

	"github.com/mojyack/libjitsimeet/jingle"
)

// Transport is the wire adapter the negotiator/conference layers read
// frames from and write frames to. WebSocketTransport is the default
// implementation.
type Transport interface {
	// Connect dials the endpoint and blocks until the connection is
	// established or ctx is done.
	Connect(ctx context.Context, uri string, insecureSkipVerify bool) error
	// Send writes one frame.
	Send(data []byte) error
	// Frames delivers received frames in order. It is closed when the
	// connection is closed, after which Errors may have one final value.
	Frames() <-chan []byte
	// Errors delivers a single value if the connection ends abnormally.
	Errors() <-chan error
	Close() error
}

// ICEAgent is the ICE adapter the Jingle layer drives: it is handed the
// external services and the offer's remote credentials, gathers and
// reports local candidates, and accepts remote candidates as they arrive.
// PionICEAgent is the default implementation.
type ICEAgent interface {
	// Start begins gathering local candidates against the given STUN/TURN
	// services and prepares to connect to the given remote credentials.
	Start(ctx context.Context, services []ServiceEndpoint, remoteUfrag, remotePwd string) error
	// LocalCredentials returns this agent's own ufrag/pwd, valid once
	// Start has returned.
	LocalCredentials() (ufrag, pwd string)
	// OnCandidate registers a callback invoked once per gathered local
	// candidate. Must be called before Start.
	OnCandidate(func(jingle.Candidate))
	// AddRemoteCandidate feeds one remote candidate to the agent.
	AddRemoteCandidate(c jingle.Candidate) error
	Close() error
}
