package task

import "sync"

// WakeupEvent is a single-shot signal/wait primitive: one goroutine calls
// Wait until another calls Wakeup, after which every past and future Wait
// returns immediately. It backs the Jingle engine's "let the media pipeline
// stand up before the answer is sent" suspension point (spec §4.6.1, §5).
type WakeupEvent struct {
	once sync.Once
	ch   chan signal
}

// NewWakeupEvent returns a ready-to-use WakeupEvent.
func NewWakeupEvent() *WakeupEvent {
	return &WakeupEvent{ch: make(chan signal)}
}

// Wakeup signals the event. Safe to call more than once; only the first
// call has effect.
func (e *WakeupEvent) Wakeup() {
	e.once.Do(func() { close(e.ch) })
}

// Wait blocks until Wakeup has been called.
func (e *WakeupEvent) Wait() {
	<-e.ch
}

// Done returns a channel that is closed when Wakeup has been called, for use
// in a select alongside other events.
func (e *WakeupEvent) Done() <-chan signal {
	return e.ch
}
