// Command headless-client restores the operational surface of
// original_source's example.cpp: connect, negotiate the XMPP-over-WebSocket
// handshake, join one conference room, accept the focus agent's Jingle
// offer, and sit in the steady state printing participant and mute-state
// events until the process is killed or the session terminates.
//
// It exercises the library end to end the same way example.cpp drove
// xmpp::Negotiator then conference::Conference, just without the stackful
// coroutine: negotiator.Negotiator and conference.Controller are fed bytes
// from one goroutine's read loop instead.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mojyack/libjitsimeet/conference"
	"github.com/mojyack/libjitsimeet/jid"
	"github.com/mojyack/libjitsimeet/jingle"
	"github.com/mojyack/libjitsimeet/negotiator"
	"github.com/mojyack/libjitsimeet/task"
	"github.com/mojyack/libjitsimeet/transport"
)

// candidateGatherWindow is how long OnJingleInitiate waits for ICE
// candidate gathering before sending the session-accept. example.cpp had a
// real media bridge to wait on instead; this is a generous fixed
// substitute.
const candidateGatherWindow = 2 * time.Second

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("headless-client: exiting")
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("headless-client: invalid -log-level %q: %w", cfg.LogLevel, err)
	}
	logrus.SetLevel(level)
	log := logrus.NewEntry(logrus.StandardLogger())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ws := transport.NewWebSocketTransport()
	uri := transport.WebSocketURI{
		Protocol: "wss",
		Domain:   cfg.Host,
		Port:     443,
		Path:     "xmpp-websocket?room=" + cfg.Room,
	}
	log.Infof("headless-client: connecting to %s", uri.String())
	if err := ws.Connect(ctx, uri.String(), cfg.InsecureSkipVerify); err != nil {
		return fmt.Errorf("headless-client: %w", err)
	}
	defer ws.Close()

	neg := negotiator.New(cfg.Host, ws.Send, log.WithField("component", "negotiator"))
	if err := neg.Start(); err != nil {
		return fmt.Errorf("headless-client: starting negotiation: %w", err)
	}

	localJid, err := runNegotiation(ctx, ws, neg)
	if err != nil {
		return fmt.Errorf("headless-client: %w", err)
	}
	log.Infof("headless-client: bound as %s", localJid.AsFull())

	cb := &clientCallbacks{
		log:      log.WithField("component", "client"),
		send:     ws.Send,
		services: neg.Services(),
		localJid: localJid,
	}
	cfgC := conference.Config{
		Jid:            localJid,
		Room:           cfg.Room,
		Nick:           cfg.Nick,
		VideoCodecType: jingle.CodecVP8,
	}
	ctrl := conference.New(cfgC, cb, nil, log.WithField("component", "conference"))
	cb.ctrl = ctrl

	ctrl.StartNegotiation()

	for {
		select {
		case <-ctx.Done():
			ctrl.Close()
			return nil
		case frame, ok := <-ws.Frames():
			if !ok {
				return fmt.Errorf("headless-client: connection closed")
			}
			if err := ctrl.Feed(frame); err != nil {
				log.WithError(err).Warn("headless-client: conference.Feed")
			}
			if ctrl.Phase() == conference.PhaseTerminated {
				log.Info("headless-client: conference terminated, exiting")
				return nil
			}
		case err := <-ws.Errors():
			return fmt.Errorf("headless-client: transport error: %w", err)
		}
	}
}

// runNegotiation drives neg with ws's frames until it reports Done or
// Errored, the Go re-expression of example.cpp's `event.wait()` before the
// Negotiator handed off jid/ext_sv to main().
func runNegotiation(ctx context.Context, ws *transport.WebSocketTransport, neg *negotiator.Negotiator) (jid.Jid, error) {
	for {
		select {
		case <-ctx.Done():
			return jid.Jid{}, ctx.Err()
		case frame, ok := <-ws.Frames():
			if !ok {
				return jid.Jid{}, fmt.Errorf("connection closed during negotiation")
			}
			result, err := neg.Feed(frame)
			if err != nil {
				return jid.Jid{}, err
			}
			switch result {
			case negotiator.Done:
				return jid.Parse(neg.Jid())
			case negotiator.Errored:
				return jid.Jid{}, fmt.Errorf("negotiation failed")
			}
		case err := <-ws.Errors():
			return jid.Jid{}, fmt.Errorf("transport error during negotiation: %w", err)
		}
	}
}

// clientCallbacks wires conference.Controller to the transport and to an
// ICE agent per Jingle session. It mirrors example.cpp's lambda-based
// ConferenceCallbacks, one session at a time since this example only ever
// joins a single room.
type clientCallbacks struct {
	conference.BaseCallbacks

	log      *logrus.Entry
	send     func([]byte) error
	services []transport.ServiceEndpoint
	localJid jid.Jid

	ctrl *conference.Controller

	mu      sync.Mutex
	session *jingle.JingleSession
	ice     transport.ICEAgent
}

func (c *clientCallbacks) SendPayload(payload []byte) {
	if err := c.send(payload); err != nil {
		c.log.WithError(err).Warn("headless-client: send failed")
	}
}

func (c *clientCallbacks) OnParticipantJoined(p conference.Participant) {
	c.log.Infof("headless-client: participant joined: %s (%s)", p.ParticipantID, p.Nick)
}

func (c *clientCallbacks) OnParticipantLeft(p conference.Participant) {
	c.log.Infof("headless-client: participant left: %s", p.ParticipantID)
}

func (c *clientCallbacks) OnMuteStateChanged(p conference.Participant, isAudio, newMuted bool) {
	kind := "video"
	if isAudio {
		kind = "audio"
	}
	c.log.Infof("headless-client: %s %s muted=%v", p.ParticipantID, kind, newMuted)
}

func (c *clientCallbacks) OnSessionTerminate() {
	c.log.Info("headless-client: session terminated by focus agent")
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ice != nil {
		_ = c.ice.Close()
	}
}

func (c *clientCallbacks) OnFatalError(err error) {
	c.log.WithError(err).Error("headless-client: protocol-fatal error, shutting down")
}

// OnJingleInitiate builds the session from the offer, stands up an ICE
// agent against its transport, and once a short gathering window elapses
// sends the session-accept. example.cpp's build_accept ran right after
// connecting a Colibri media bridge; without a real media pipeline here,
// the wakeup event simply fires once gathering has had a chance to collect
// host and server-reflexive candidates.
func (c *clientCallbacks) OnJingleInitiate(offer jingle.Jingle) bool {
	session, remoteTransport, err := jingle.BuildSessionFromOffer(offer, transport.MathRNG{}, transport.StdlibCrypto{})
	if err != nil {
		c.log.WithError(err).Error("headless-client: parsing session-initiate")
		return false
	}
	if remoteTransport == nil {
		c.log.Error("headless-client: offer carried no ICE-UDP transport")
		return false
	}

	ice := transport.NewPionICEAgent(c.log.WithField("component", "ice"))
	var candidates []jingle.Candidate
	var candidatesMu sync.Mutex
	ice.OnCandidate(func(cand jingle.Candidate) {
		candidatesMu.Lock()
		candidates = append(candidates, cand)
		candidatesMu.Unlock()
	})

	if err := ice.Start(context.Background(), c.services, remoteTransport.Ufrag, remoteTransport.Pwd); err != nil {
		c.log.WithError(err).Error("headless-client: starting ice agent")
		return false
	}
	session.LocalUfrag, session.LocalPwd = ice.LocalCredentials()

	c.mu.Lock()
	c.session = session
	c.ice = ice
	c.mu.Unlock()

	gathered := task.NewWakeupEvent()
	time.AfterFunc(candidateGatherWindow, gathered.Wakeup)

	go func() {
		gathered.Wait()
		candidatesMu.Lock()
		snapshot := append([]jingle.Candidate(nil), candidates...)
		candidatesMu.Unlock()

		if err := c.ctrl.SendJingleAccept(session, jingle.CodecOpus, jingle.CodecVP8, snapshot, transport.MathRNG{}); err != nil {
			c.log.WithError(err).Error("headless-client: sending session-accept")
		}
	}()

	return true
}

func (c *clientCallbacks) OnJingleAddSource(j jingle.Jingle) bool {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return false
	}
	jingle.ApplySourceAdd(session, j)
	return true
}
