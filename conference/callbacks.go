package conference

import "github.com/mojyack/libjitsimeet/jingle"

// Participant is one other endpoint present in the room.
type Participant struct {
	ParticipantID string
	Nick          string
	AudioMuted    bool
	VideoMuted    bool
}

// Callbacks is how the controller reports outbound traffic and inbound
// events to its owner. Embed BaseCallbacks to get no-op defaults for the
// ones you don't care about, the Go equivalent of the optional virtual
// methods in original_source's ConferenceCallbacks.
type Callbacks interface {
	SendPayload(payload []byte)

	OnJingleInitiate(j jingle.Jingle) bool
	OnJingleAddSource(j jingle.Jingle) bool

	OnParticipantJoined(p Participant)
	OnParticipantLeft(p Participant)
	OnMuteStateChanged(p Participant, isAudio, newMuted bool)

	// OnSessionTerminate fires once, when the focus agent sends
	// session-terminate. The embedder should tear down its transport.
	OnSessionTerminate()
	// OnFatalError fires for a protocol-fatal condition (spec.md §7): the
	// controller has already stopped itself by the time this is called.
	OnFatalError(err error)
}

// BaseCallbacks implements Callbacks with no-ops for everything, the Go
// equivalent of original_source's default virtual-method bodies. Embed it
// and override only the methods a particular caller cares about —
// SendPayload included, since a caller with no transport of its own has
// nothing sensible to do there either.
type BaseCallbacks struct{}

func (BaseCallbacks) SendPayload(payload []byte)                            {}
func (BaseCallbacks) OnJingleInitiate(j jingle.Jingle) bool                  { return true }
func (BaseCallbacks) OnJingleAddSource(j jingle.Jingle) bool                 { return true }
func (BaseCallbacks) OnParticipantJoined(p Participant)                     {}
func (BaseCallbacks) OnParticipantLeft(p Participant)                       {}
func (BaseCallbacks) OnMuteStateChanged(p Participant, isAudio, muted bool) {}
func (BaseCallbacks) OnSessionTerminate()                                  {}
func (BaseCallbacks) OnFatalError(err error)                               {}
