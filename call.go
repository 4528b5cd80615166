// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"strconv"
	"sync/atomic"
)

// Call is a Q.931 call. It is identified on its interface by the call
// reference value and direction.
//
// Calls are created by Intf.NewCall (outbound) or by a received SETUP or
// RESUME (inbound) and are unlinked from the interface when they return
// to the null state. The owner may keep the handle past that point by
// using Ref() / Unref().
type Call struct {
	next, prev *Call // call list links

	intf    *Intf
	CallRef uint32
	crLen   uint8
	Dir     CallDir
	State   CallState
	Flags   CallFlags
	Pvt     interface{} // owner data
	Channel *Channel

	dlc    *DLC
	ces    []*CES // broadcast SETUP responders
	selCES *CES
	Causes CauseSet // causes from the released CESs

	setupIEs  IESet    // sent SETUP, kept for retransmission
	discCause *IECause // cause of the sent DISCONNECT
	relCause  *IECause // cause of the sent RELEASE
	override  Cause    // cause replacing an invalid DISCONNECT cause
	suspID    []byte   // call identity of a pending SUSPEND
	tone      ToneType

	timers [TimerNumber]Timer
	refCnt int32

	EvFlags EventFlags
	lastEv  EventType
	crtEv   EventType
	evGen   EvGenPos
	StateBT StateBackTrace
	MsgBT   MsgBackTrace
}

// timer callback data
type callTimer struct {
	c  *Call
	id TimerID
}

func callTimerExpired(t *Timer, data interface{}) {
	ct := data.(callTimer)
	ct.c.timerExpired(ct.id)
}

// newCall creates a call in the null state and links it to the
// interface.
func (intf *Intf) newCall(cr uint32, crLen int, dir CallDir, d *DLC) *Call {
	c := &Call{
		intf:    intf,
		CallRef: cr,
		crLen:   uint8(crLen),
		Dir:     dir,
		State:   NullState(intf.Role),
		dlc:     d,
		refCnt:  1, // interface list reference
	}
	for id := T301; id < TimerNumber; id++ {
		c.timers[id].Init(id.String(), callTimerExpired, callTimer{c, id})
	}
	if intf.Flags&IntfTonesOption != 0 {
		c.Flags |= CFTonesOption
	}
	c.StateBT.Add(c.State)
	intf.calls.Insert(c)
	intf.Stats.callCreated(c.State)
	return c
}

// Intf returns the interface of the call.
func (c *Call) Intf() *Intf {
	return c.intf
}

func (c *Call) String() string {
	if c == nil {
		return "nil-call"
	}
	return c.intf.Name + ":" + strconv.FormatUint(uint64(c.CallRef), 10) +
		"/" + c.Dir.String() + " [" + c.State.Name() + "]"
}

// Ref increases the internal reference counter and returns the new value.
func (c *Call) Ref() int32 {
	return atomic.AddInt32(&c.refCnt, 1)
}

// Unref decrements the reference counter. Returns true if this was the
// last reference.
func (c *Call) Unref() bool {
	n := atomic.AddInt32(&c.refCnt, -1)
	if n == 0 {
		if !c.intf.calls.Detached(c) {
			BUG("Call.Unref(): 0 refCnt but still linked: %s\n", c)
			return true
		}
		c.intf.Stats.callFreed(c.State)
		return true
	}
	if n < 0 {
		BUG("Call.Unref(): negative refCnt for %s\n", c)
	}
	return false
}

// Released returns true once the call returned to the null state and
// was unlinked from its interface.
func (c *Call) Released() bool {
	return c.intf.calls.Detached(c)
}

// CES returns the connection endpoint suffixes of a broadcast call.
func (c *Call) CES() []*CES {
	return c.ces
}

// SelectedCES returns the CES chosen by a broadcast call or nil.
func (c *Call) SelectedCES() *CES {
	return c.selCES
}

// DLC returns the datalink used by the call (nil for a broadcast call
// with no selected CES).
func (c *Call) DLC() *DLC {
	return c.dlc
}

// setState changes the call state. Entering a state of the other role
// is a program bug.
func (c *Call) setState(s CallState) {
	if r, ok := s.Role(); !ok || r != c.intf.Role {
		Log.PANIC("call %s: state %s not valid for role %s\n",
			c, s, c.intf.Role)
	}
	if s == c.State {
		return
	}
	if DBGon() {
		DBG("call %s: %s -> %s\n", c, c.State, s)
	}
	c.intf.Stats.stateChange(c.State, s)
	c.State = s
	c.StateBT.Add(s)
}

// st returns the TE or the NT state, according to the call role.
func (c *Call) st(te, nt CallState) CallState {
	if c.intf.Role == RoleNT {
		return nt
	}
	return te
}

func (c *Call) startTimer(id TimerID) {
	c.intf.te.Start(&c.timers[id], c.intf.timer(id))
}

func (c *Call) stopTimer(id TimerID) {
	c.intf.te.Stop(&c.timers[id])
}

// TimerPending returns true if the timer id of the call is armed.
func (c *Call) TimerPending(id TimerID) bool {
	return c.timers[id].Pending()
}

func (c *Call) stopAllTimers() {
	for id := T301; id < TimerNumber; id++ {
		c.intf.te.Stop(&c.timers[id])
	}
}

// stopSetupTimers disarms the timers supervising the call establishment.
func (c *Call) stopSetupTimers() {
	c.stopTimer(T301)
	c.stopTimer(T302)
	c.stopTimer(T303)
	c.stopTimer(T304)
	c.stopTimer(T310)
	c.stopTimer(T312)
	c.stopTimer(T313)
}

func (c *Call) causeLoc() CauseLoc {
	return CauseLocation(c.Dir, c.intf.NetRole, c.intf.Role)
}

func (c *Call) newCause(cause Cause) *IECause {
	return NewIECause(c.causeLoc(), cause)
}

// outCallRef returns the call reference used in sent messages.
func (c *Call) outCallRef() CallRef {
	return CallRef{Value: c.CallRef, Len: c.crLen,
		Flag: c.Dir == CallDirInbound}
}

func (c *Call) sendDLC(t MsgType) *DLC {
	if c.dlc != nil {
		return c.dlc
	}
	if t == MsgSetup && c.intf.broadcastSetup() {
		return c.intf.bcast
	}
	return nil
}

// send encodes and sends a message for the call. On error nothing was
// sent.
func (c *Call) send(t MsgType, ies *IESet) error {
	return c.sendOn(c.sendDLC(t), t, ies, false)
}

func (c *Call) sendOn(d *DLC, t MsgType, ies *IESet, retr bool) error {
	if err := c.intf.sendMsg(d, t, c.outCallRef(), ies); err != nil {
		return err
	}
	c.MsgBT.Add(t, true, retr)
	return nil
}

// sendCause sends a message carrying a cause (and the call state for
// STATUS). Errors are only logged.
func (c *Call) sendCause(t MsgType, cause Cause) {
	var ies IESet
	ies.Add(c.newCause(cause))
	if t == MsgStatus {
		ies.Add(&IECallState{Value: c.State.Code()})
	}
	if err := c.send(t, &ies); err != nil {
		ERR("call %s: failed to send %s: %s\n", c, t, err)
	}
}

func (c *Call) sendStatus(cause Cause) {
	c.sendCause(MsgStatus, cause)
}

// withCause returns a copy of ies with a cause added if missing.
func (c *Call) withCause(ies *IESet, cause Cause) IESet {
	var out IESet
	if ies != nil {
		out = ies.Clone()
	}
	if out.Cause() == nil {
		out.Add(c.newCause(cause))
	}
	return out
}

// addChanIE adds the channel identification to the first response to
// an inbound SETUP.
func (c *Call) addChanIE(ies *IESet) {
	if c.Flags&CFChanSent != 0 || c.Channel == nil {
		return
	}
	if ies.ChannelID() == nil {
		ies.Add(c.chanIE(true))
	}
	c.Flags |= CFChanSent
}

func (c *Call) indicate(ev EventType, ies *IESet) {
	c.intf.cb.indicate(c, ev, ies)
}

func (c *Call) confirm(ev EventType, ies *IESet, st ConfirmStatus) {
	c.intf.cb.confirm(c, ev, ies, st)
}

// indicateCause delivers an indication carrying only a cause.
func (c *Call) indicateCause(ev EventType, cause Cause) {
	var ies IESet
	ies.Add(c.newCause(cause))
	c.indicate(ev, &ies)
}

func (c *Call) startTone(t ToneType) {
	if c.intf.Role != RoleNT || c.Flags&CFTonesOption == 0 {
		return
	}
	c.tone = t
	if f := c.intf.cb.StartTone; f != nil {
		f(c, t)
	}
}

func (c *Call) stopTone() {
	if c.tone == ToneNone {
		return
	}
	c.tone = ToneNone
	if f := c.intf.cb.StopTone; f != nil {
		f(c)
	}
}

// inbandIE returns a progress indicator announcing in-band information.
func (c *Call) inbandIE() *IEProgress {
	return &IEProgress{Location: c.causeLoc(), Description: ProgressInband}
}

// toNull moves the call to the null state, frees its resources and
// unlinks it from the interface.
func (c *Call) toNull() {
	c.stopAllTimers()
	c.stopTone()
	if c.Channel != nil {
		c.Channel.release()
	}
	for _, ces := range c.ces {
		ces.stopTimers()
		ces.State = CESNull
	}
	c.ces = nil
	c.selCES = nil
	c.setState(NullState(c.intf.Role))
	if c.Flags&CFRestart != 0 {
		c.intf.Global.callCleared(c)
	}
	if !c.intf.calls.Detached(c) {
		c.intf.calls.Rm(c)
		c.Unref()
	}
}

// releaseInd clears the call locally and delivers the final indication.
func (c *Call) releaseInd(cause Cause) {
	c.toNull()
	c.indicateCause(EvReleaseInd, cause)
}

// sendDisconnect sends DISCONNECT and enters the disconnect request
// state (U11 / N12).
func (c *Call) sendDisconnect(ies *IESet, cause Cause) error {
	out := c.withCause(ies, cause)
	tones := c.intf.Role == RoleNT && c.Flags&CFTonesOption != 0
	if tones && out.Progress() == nil {
		out.Add(c.inbandIE())
	}
	if err := c.send(MsgDisconnect, &out); err != nil {
		return err
	}
	c.discCause = out.Cause()
	c.stopAllTimers()
	if tones {
		c.startTimer(T306)
		if c.discCause.Value == CauseUserBusy {
			c.startTone(ToneBusy)
		} else {
			c.startTone(ToneFailure)
		}
	} else {
		c.stopTone()
		c.startTimer(T305)
		if c.Channel != nil {
			c.Channel.disconnect()
		}
	}
	c.setState(c.st(U11DisconnectRequest, N12DisconnectIndication))
	return nil
}

// sendRelease sends RELEASE, starts T308 and enters U19 / N19.
func (c *Call) sendRelease(ies *IESet, cause Cause) error {
	var out IESet
	if ies != nil {
		out = ies.Clone()
	}
	if c.Flags&CFDiscCauseOverride != 0 {
		out.Set(c.newCause(c.override))
	} else if out.Cause() == nil {
		out.Add(c.newCause(cause))
	}
	if err := c.send(MsgRelease, &out); err != nil {
		return err
	}
	c.relCause = out.Cause()
	c.stopAllTimers()
	c.stopTone()
	if c.Channel != nil {
		c.Channel.disconnect()
	}
	c.Flags &^= CFT308Retr
	c.startTimer(T308)
	c.setState(c.st(U19ReleaseRequest, N19ReleaseRequest))
	return nil
}

// sendReleaseComplete answers with RELEASE COMPLETE.
func (c *Call) sendReleaseComplete(ies *IESet, cause Cause) error {
	out := c.withCause(ies, cause)
	return c.send(MsgReleaseComplete, &out)
}

// clear clears the call after a local error or a procedure failure. The
// final indication is a release indication.
func (c *Call) clear(cause Cause) {
	c.Flags |= CFReleaseOnError
	switch c.State {
	case U0Null, N0Null:
		return
	case U6CallPresent, N1CallInitiated:
		if err := c.sendReleaseComplete(nil, cause); err != nil {
			ERR("call %s: clear: %s\n", c, err)
		}
		c.releaseInd(cause)
	case U12DisconnectIndication, N11DisconnectRequest:
		if err := c.sendRelease(nil, cause); err != nil {
			ERR("call %s: clear: %s\n", c, err)
			c.releaseInd(cause)
		}
	case U11DisconnectRequest, N12DisconnectIndication,
		U19ReleaseRequest, N19ReleaseRequest, N22CallAbort:
		// already clearing
	default:
		if c.broadcastPending() {
			c.abortBroadcast(cause)
			return
		}
		if err := c.sendDisconnect(nil, cause); err != nil {
			ERR("call %s: clear: %s\n", c, err)
			c.releaseInd(cause)
		}
	}
}

// unexpectedMsg handles a message not allowed in the current state:
// STATUS with cause 101, state unchanged.
func (c *Call) unexpectedMsg(m *Message) {
	c.intf.unexpected("message %s in state %s for call %s\n",
		m.Type, c.State, c)
	c.sendStatus(CauseWrongMessage)
}

// unexpectedPrim reports a primitive not allowed in the current state.
func (c *Call) unexpectedPrim(p Primitive) error {
	c.intf.unexpected("primitive %s in state %s for call %s\n",
		p, c.State, c)
	return ErrUnexpectedState
}
