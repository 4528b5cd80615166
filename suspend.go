// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"bytes"
)

// SuspendedCall is a call parked by SUSPEND on the network side,
// waiting for a RESUME with the same call identity (or for T307).
type SuspendedCall struct {
	next, prev *SuspendedCall // suspended list links

	intf     *Intf
	Identity []byte
	Pvt      interface{} // owner data of the suspended call
	Channel  *Channel    // reserved channel
	call     *Call       // the old call, in the null state
	t307     Timer
}

// Call returns the call that was suspended.
func (s *SuspendedCall) Call() *Call {
	return s.call
}

// SuspendedLst is the list of the suspended calls of an interface.
// No internal locking, see CallLst.
type SuspendedLst struct {
	head    SuspendedCall // used only as list head
	entries int
}

func (lst *SuspendedLst) Init() {
	lst.head.next = &lst.head
	lst.head.prev = &lst.head
}

func (lst *SuspendedLst) Len() int {
	return lst.entries
}

func (lst *SuspendedLst) Insert(s *SuspendedCall) {
	s.prev = &lst.head
	s.next = lst.head.next
	s.next.prev = s
	lst.head.next = s
	lst.entries++
}

func (lst *SuspendedLst) Rm(s *SuspendedCall) {
	s.prev.next = s.next
	s.next.prev = s.prev
	s.next = s
	s.prev = s
	lst.entries--
}

func (lst *SuspendedLst) Detached(s *SuspendedCall) bool {
	return s == s.next
}

// FindIdentity returns the suspended call with identity id. An empty id
// matches only a call suspended without identity.
func (lst *SuspendedLst) FindIdentity(id []byte) *SuspendedCall {
	for s := lst.head.next; s != &lst.head; s = s.next {
		if bytes.Equal(s.Identity, id) {
			return s
		}
	}
	return nil
}

func suspTimerExpired(t *Timer, data interface{}) {
	s := data.(*SuspendedCall)
	s.intf.suspendExpired(s)
}

// Suspended returns the suspended calls of the interface.
func (intf *Intf) Suspended() []*SuspendedCall {
	r := make([]*SuspendedCall, 0, intf.susp.Len())
	for s := intf.susp.head.next; s != &intf.susp.head; s = s.next {
		r = append(r, s)
	}
	return r
}

// suspend parks the call c (N15, SUSPEND ACKNOWLEDGE sent). The channel
// stays reserved for the RESUME.
func (intf *Intf) suspend(c *Call) {
	s := &SuspendedCall{
		intf:     intf,
		Identity: c.suspID,
		Pvt:      c.Pvt,
		Channel:  c.Channel,
		call:     c,
	}
	s.t307.Init(T307.String(), suspTimerExpired, s)
	if ch := c.Channel; ch != nil {
		ch.disconnect()
		ch.call = nil
		c.Channel = nil
	}
	c.Flags |= CFSuspended
	c.Ref() // suspended record reference
	c.toNull()
	intf.susp.Insert(s)
	intf.te.Start(&s.t307, intf.timer(T307))
	intf.Stats.set(&intf.Stats.Suspended, intf.Stats.hSuspended,
		uint64(intf.susp.Len()))
	if DBGon() {
		DBG("%s: call %s suspended (id %q)\n", intf.Name, c, s.Identity)
	}
}

func (intf *Intf) rmSuspended(s *SuspendedCall) {
	intf.te.Stop(&s.t307)
	intf.susp.Rm(s)
	intf.Stats.set(&intf.Stats.Suspended, intf.Stats.hSuspended,
		uint64(intf.susp.Len()))
}

// suspendExpired releases a call not resumed before T307.
func (intf *Intf) suspendExpired(s *SuspendedCall) {
	if intf.susp.Detached(s) {
		return
	}
	intf.Stats.inc(&intf.Stats.TimerExp, intf.Stats.hTimerExp)
	intf.dropSuspended(s, EvGenTimeout, CauseRecoveryOnTimerExpiry)
}

// dropSuspended ends a suspended call, freeing its reserved channel.
func (intf *Intf) dropSuspended(s *SuspendedCall, gen EvGenPos,
	cause Cause) {
	intf.rmSuspended(s)
	if s.Channel != nil {
		s.Channel.release()
	}
	c := s.call
	c.evGen = gen
	c.indicateCause(EvReleaseInd, cause)
	c.Unref()
}

// dropSuspendedChans ends the suspended calls holding a channel from
// chans (all of them for an empty set).
func (intf *Intf) dropSuspendedChans(chans *ChanSet, gen EvGenPos) {
	for s := intf.susp.head.next; s != &intf.susp.head; {
		next := s.next
		if chans.Empty() ||
			(s.Channel != nil && chans.Contains(s.Channel.ID)) {
			intf.dropSuspended(s, gen, CauseTemporaryFailure)
		}
		s = next
	}
}

// recvResume handles a RESUME received on the network side for an
// unknown call reference. On success the suspended *Call is linked again
// under the new call reference, so the owner keeps the same handle (and
// Pvt) across SUSPEND and RESUME.
func (intf *Intf) recvResume(d *DLC, m *Message) {
	if intf.Type != IntfBRA {
		intf.replyCause(d, m, MsgResumeReject, CauseServiceNotImplemented)
		return
	}
	if e, ok := m.IEErr(); ok && e.Kind.Fatal() {
		intf.Stats.inc(&intf.Stats.IEErrors, intf.Stats.hIEErr)
		intf.replyCause(d, m, MsgResumeReject, e.Kind.Cause())
		return
	}
	var id []byte
	if ie := m.IEs.CallIdentity(); ie != nil {
		id = ie.Identity
	}
	if intf.susp.Len() == 0 {
		intf.replyCause(d, m, MsgResumeReject, CauseNoCallSuspended)
		return
	}
	s := intf.susp.FindIdentity(id)
	if s == nil {
		intf.replyCause(d, m, MsgResumeReject, CauseSuspendedNotThis)
		return
	}
	intf.rmSuspended(s)
	c := s.call
	c.relink(m.CallRef.Value, int(m.CallRef.Len), d)
	c.evGen = EvGenMsg
	c.MsgBT.Add(m.Type, false, false)
	c.Pvt = s.Pvt
	if s.Channel != nil {
		s.Channel.sel(c)
	}
	c.setState(N17ResumeRequest)
	c.indicate(EvResumeInd, &m.IEs)
}

// relink puts a suspended call back in the interface list under a new
// call reference. The suspended record reference becomes the list one.
func (c *Call) relink(cr uint32, crLen int, d *DLC) {
	c.CallRef = cr
	c.crLen = uint8(crLen)
	c.Dir = CallDirInbound
	c.dlc = d
	c.Flags &= CFTonesOption
	c.discCause = nil
	c.relCause = nil
	c.override = CauseNone
	c.suspID = nil
	c.intf.calls.Insert(c)
}
