package correlator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mojyack/libjitsimeet/xmlstanza"
)

func TestSendAssignsMonotonicIDs(t *testing.T) {
	c := New(nil)
	a := c.Send(xmlstanza.New("iq"), nil)
	b := c.Send(xmlstanza.New("iq"), nil)

	aid, _ := a.FindAttr("id")
	bid, _ := b.FindAttr("id")
	assert.Equal(t, "iq_1", aid)
	assert.Equal(t, "iq_2", bid)
}

func TestDeliverInvokesCallbackOnce(t *testing.T) {
	c := New(nil)
	var gotSuccess bool
	var calls int
	stamped := c.Send(xmlstanza.New("iq"), func(response xmlstanza.Element, success bool) {
		calls++
		gotSuccess = success
	})
	id, _ := stamped.FindAttr("id")

	ok := c.Deliver(id, xmlstanza.New("iq"), true)
	require.True(t, ok)
	assert.Equal(t, 1, calls)
	assert.True(t, gotSuccess)

	ok = c.Deliver(id, xmlstanza.New("iq"), true)
	assert.False(t, ok)
	assert.Equal(t, 1, calls)
}

func TestDeliverUnknownIDIsDroppedNotPanicked(t *testing.T) {
	c := New(nil)
	ok := c.Deliver("iq_999", xmlstanza.New("iq"), false)
	assert.False(t, ok)
}

func TestSendWithoutCallbackDoesNotTrackPending(t *testing.T) {
	c := New(nil)
	c.Send(xmlstanza.New("iq"), nil)
	assert.Equal(t, 0, c.Pending())
}
