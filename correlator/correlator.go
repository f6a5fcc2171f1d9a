// Package correlator assigns ids to outgoing iq-shaped requests and matches
// the eventual result or error back to the caller that sent them,
// mirroring original_source/src/conference.cpp's generate_iq_id/send_iq
// pair.
package correlator

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mojyack/libjitsimeet/xmlstanza"
)

// ResultCallback is invoked once, when a reply for the request arrives.
// success is false if the reply was an iq of type "error".
type ResultCallback func(response xmlstanza.Element, success bool)

type pendingRequest struct {
	id       string
	callback ResultCallback
}

// Correlator generates "iq_<n>" ids and keeps an ordered list of requests
// still awaiting a reply.
type Correlator struct {
	mu      sync.Mutex
	next    uint64
	pending []pendingRequest
	log     *logrus.Entry
}

// New returns an empty Correlator. log may be nil, in which case the
// standard logrus logger is used.
func New(log *logrus.Entry) *Correlator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Correlator{log: log}
}

// NextID returns the next id in the monotonic "iq_<n>" sequence without
// registering a pending request for it.
func (c *Correlator) NextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextIDLocked()
}

func (c *Correlator) nextIDLocked() string {
	c.next++
	return fmt.Sprintf("iq_%d", c.next)
}

// Send stamps elem with a fresh id attribute and, if callback is non-nil,
// registers it to be invoked when Deliver is called with that id. It
// returns the stamped element; elem itself is not mutated.
func (c *Correlator) Send(elem xmlstanza.Element, callback ResultCallback) xmlstanza.Element {
	c.mu.Lock()
	id := c.nextIDLocked()
	if callback != nil {
		c.pending = append(c.pending, pendingRequest{id: id, callback: callback})
	}
	c.mu.Unlock()

	return elem.Clone().AppendAttrs(xmlstanza.Attr{Key: "id", Value: id})
}

// Deliver matches id against the pending-request list and invokes the
// registered callback, removing the entry. It reports whether a matching
// request was found; an id with no matching request is logged and dropped,
// since a stray or duplicate result is not a protocol-fatal condition.
func (c *Correlator) Deliver(id string, response xmlstanza.Element, success bool) bool {
	c.mu.Lock()
	var cb ResultCallback
	for i, p := range c.pending {
		if p.id == id {
			cb = p.callback
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	if cb == nil {
		c.log.Warnf("correlator: dropping result for unknown or already-delivered id %q", id)
		return false
	}
	cb(response, success)
	return true
}

// Pending returns the number of requests still awaiting a reply.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
