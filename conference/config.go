package conference

import (
	"github.com/mojyack/libjitsimeet/jid"
	"github.com/mojyack/libjitsimeet/jingle"
)

// Config is the fixed configuration of one conference join: the client's
// own Jid, the room to join, the nickname and media state to publish.
type Config struct {
	Jid            jid.Jid
	Room           string
	Nick           string
	VideoCodecType jingle.CodecType
	AudioMuted     bool
	VideoMuted     bool
}

// jids returns the four room-scoped Jids this config derives, computed
// fresh each time rather than cached since Config is expected to be
// constructed once and never mutated.
func (c Config) jids() jid.ConferenceJids {
	return jid.DeriveConferenceJids(c.Jid, c.Room)
}

func (c Config) FocusJid() jid.Jid         { return c.jids().Focus }
func (c Config) MucJid() jid.Jid           { return c.jids().Muc }
func (c Config) MucLocalJid() jid.Jid      { return c.jids().MucLocal }
func (c Config) MucLocalFocusJid() jid.Jid { return c.jids().MucLocalFocus }
