// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"strconv"
)

// ChanState is the state of a B-channel.
type ChanState uint8

const (
	ChanAvailable ChanState = iota
	ChanSelected
	ChanConnected
	ChanDisconnected
)

var chanSt2String = [...]string{
	ChanAvailable:    "available",
	ChanSelected:     "selected",
	ChanConnected:    "connected",
	ChanDisconnected: "disconnected",
}

func (s ChanState) String() string {
	if int(s) >= len(chanSt2String) {
		return "invalid"
	}
	return chanSt2String[s]
}

// Channel is one B-channel of an interface. It is owned by the interface
// and referenced by the call that selected it.
type Channel struct {
	intf  *Intf
	ID    int
	State ChanState
	call  *Call
}

// Intf returns the interface the channel belongs to.
func (ch *Channel) Intf() *Intf {
	return ch.intf
}

// Call returns the call using the channel or nil.
func (ch *Channel) Call() *Call {
	return ch.call
}

func (ch *Channel) String() string {
	return ch.intf.Name + "/B" + strconv.Itoa(ch.ID)
}

func (ch *Channel) sel(c *Call) {
	ch.State = ChanSelected
	ch.call = c
	c.Channel = ch
}

// connect switches the channel through (ConnectChannel callback).
func (ch *Channel) connect() {
	if ch.State == ChanConnected {
		return
	}
	ch.State = ChanConnected
	if f := ch.intf.cb.ConnectChannel; f != nil {
		f(ch)
	}
}

// disconnect stops the channel traffic (DisconnectChannel callback).
func (ch *Channel) disconnect() {
	if ch.State != ChanConnected {
		return
	}
	ch.State = ChanDisconnected
	if f := ch.intf.cb.DisconnectChannel; f != nil {
		f(ch)
	}
}

// release makes the channel available again.
func (ch *Channel) release() {
	ch.disconnect()
	if ch.call != nil && ch.call.Channel == ch {
		ch.call.Channel = nil
	}
	ch.call = nil
	ch.State = ChanAvailable
}

// channel numbers for the supported interface types
func chanNumbers(t IntfType) []int {
	if t == IntfBRA {
		return []int{1, 2}
	}
	// E1: timeslot 16 carries the D-channel
	n := make([]int, 0, 30)
	for i := 1; i <= 31; i++ {
		if i != 16 {
			n = append(n, i)
		}
	}
	return n
}

func (intf *Intf) initChannels() {
	ids := chanNumbers(intf.Type)
	intf.Channels = make([]*Channel, len(ids))
	for i, id := range ids {
		intf.Channels[i] = &Channel{intf: intf, ID: id}
	}
}

// Channel returns the channel with number id or nil.
func (intf *Intf) Channel(id int) *Channel {
	for _, ch := range intf.Channels {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

// freeChannel returns the first available channel.
func (intf *Intf) freeChannel() *Channel {
	for _, ch := range intf.Channels {
		if ch.State == ChanAvailable {
			return ch
		}
	}
	return nil
}

// selectChannel picks a channel for c according to the requested channel
// identification (nil means any). It returns the cause to use for
// rejecting the call on failure.
func (intf *Intf) selectChannel(c *Call, ie *IEChannelID) (*Channel, Cause) {
	if ie != nil && !ie.Any() && !ie.NoChannel() {
		for i := 0; i < ie.Chans.Len(); i++ {
			ch := intf.Channel(ie.Chans.Get(i))
			if ch == nil {
				if ie.Exclusive {
					return nil, CauseIdentifiedChanNotExist
				}
				continue
			}
			if ch.State == ChanAvailable {
				ch.sel(c)
				return ch, CauseNone
			}
		}
		if ie.Exclusive {
			return nil, CauseRequestedChanNotAvailable
		}
	}
	ch := intf.freeChannel()
	if ch == nil {
		return nil, CauseNoCircuitChannelAvailable
	}
	ch.sel(c)
	return ch, CauseNone
}

// acceptChannel records the channel indicated by the peer in a response
// to an outbound call. It returns false if the indicated channel cannot
// be used.
func (intf *Intf) acceptChannel(c *Call, ie *IEChannelID) bool {
	if ie == nil || ie.Chans.Empty() {
		return c.Channel != nil || ie == nil
	}
	id := ie.Chans.Get(0)
	if c.Channel != nil && c.Channel.ID == id {
		return true
	}
	ch := intf.Channel(id)
	if ch == nil || (ch.State != ChanAvailable && ch.call != c) {
		return false
	}
	if c.Channel != nil {
		c.Channel.release()
	}
	ch.sel(c)
	return true
}

// chanIE returns the channel identification for c's selected channel.
func (c *Call) chanIE(exclusive bool) *IEChannelID {
	if c.Channel == nil {
		return NewIEChannelID(c.intf.Type, false)
	}
	return NewIEChannelID(c.intf.Type, exclusive, c.Channel.ID)
}
