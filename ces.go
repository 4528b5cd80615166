// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"strconv"
)

// CESState is the state of a connection endpoint suffix, the per
// terminal leg of a SETUP broadcast on a multipoint network side
// interface.
type CESState uint8

const (
	CESNull                   CESState = iota // I0
	CESCallReceived                           // I7
	CESConnectRequest                         // I8
	CESIncomingCallProceeding                 // I9
	CESReleaseRequest                         // I19
	CESOverlapReceiving                       // I25
)

var cesSt2String = [...]string{
	CESNull:                   "I0 null",
	CESCallReceived:           "I7 call received",
	CESConnectRequest:         "I8 connect request",
	CESIncomingCallProceeding: "I9 incoming call proceeding",
	CESReleaseRequest:         "I19 release request",
	CESOverlapReceiving:       "I25 overlap receiving",
}

var cesSt2Code = [...]uint8{
	CESNull:                   0,
	CESCallReceived:           7,
	CESConnectRequest:         8,
	CESIncomingCallProceeding: 9,
	CESReleaseRequest:         19,
	CESOverlapReceiving:       25,
}

func (s CESState) String() string {
	if int(s) >= len(cesSt2String) {
		return "invalid"
	}
	return cesSt2String[s]
}

// Code returns the Q.931 call state value.
func (s CESState) Code() uint8 {
	if int(s) >= len(cesSt2Code) {
		return 0xff
	}
	return cesSt2Code[s]
}

// per CES timers
const (
	cesT304 = iota
	cesT308
	cesT322
	cesTimersNo
)

var cesTimerIDs = [cesTimersNo]TimerID{T304, T308, T322}

// CES is one terminal answering a broadcast SETUP.
type CES struct {
	call     *Call
	dlc      *DLC
	State    CESState
	relCause *IECause
	t308Retr bool
	t322Retr bool
	timers   [cesTimersNo]Timer
}

type cesTimer struct {
	ces *CES
	idx int
}

func cesTimerExpired(t *Timer, data interface{}) {
	ct := data.(cesTimer)
	ct.ces.call.cesTimerExpired(ct.ces, ct.idx)
}

// DLC returns the terminal datalink of the CES.
func (ces *CES) DLC() *DLC {
	return ces.dlc
}

func (ces *CES) String() string {
	return ces.call.String() + "/ces" + strconv.Itoa(ces.dlc.TEI) +
		" [" + ces.State.String() + "]"
}

func (ces *CES) startTimer(idx int) {
	intf := ces.call.intf
	intf.te.Start(&ces.timers[idx], intf.timer(cesTimerIDs[idx]))
}

func (ces *CES) stopTimer(idx int) {
	ces.call.intf.te.Stop(&ces.timers[idx])
}

func (ces *CES) stopTimers() {
	for i := range ces.timers {
		ces.stopTimer(i)
	}
}

// viable returns true if the terminal may still accept the call.
func (ces *CES) viable() bool {
	switch ces.State {
	case CESCallReceived, CESConnectRequest, CESIncomingCallProceeding,
		CESOverlapReceiving:
		return true
	}
	return false
}

func (c *Call) findCES(d *DLC) *CES {
	for _, ces := range c.ces {
		if ces.dlc == d {
			return ces
		}
	}
	return nil
}

func (c *Call) newCES(d *DLC) *CES {
	ces := &CES{call: c, dlc: d}
	for i := range ces.timers {
		ces.timers[i].Init(cesTimerIDs[i].String(), cesTimerExpired,
			cesTimer{ces, i})
	}
	c.ces = append(c.ces, ces)
	return ces
}

func (c *Call) rmCES(ces *CES) {
	ces.stopTimers()
	ces.State = CESNull
	for i, e := range c.ces {
		if e == ces {
			c.ces = append(c.ces[:i], c.ces[i+1:]...)
			break
		}
	}
}

func (c *Call) cesSend(ces *CES, t MsgType, ies *IESet, retr bool) error {
	return c.sendOn(ces.dlc, t, ies, retr)
}

func (c *Call) cesSendCause(ces *CES, t MsgType, cause Cause) {
	var ies IESet
	ies.Add(c.newCause(cause))
	if t == MsgStatus {
		ies.Add(&IECallState{Value: ces.State.Code()})
	}
	if err := c.cesSend(ces, t, &ies, false); err != nil {
		ERR("ces %s: failed to send %s: %s\n", ces, t, err)
	}
}

// cesRelease sends RELEASE to the terminal and waits for RELEASE
// COMPLETE (T308).
func (c *Call) cesRelease(ces *CES, cause Cause) {
	ces.stopTimers()
	ces.relCause = c.newCause(cause)
	var ies IESet
	ies.Add(ces.relCause)
	if err := c.cesSend(ces, MsgRelease, &ies, false); err != nil {
		ERR("ces %s: %s\n", ces, err)
		c.rmCES(ces)
		return
	}
	ces.t308Retr = false
	ces.State = CESReleaseRequest
	ces.startTimer(cesT308)
}

// ableToProceed returns true if a CES other than exclude may still
// accept the call.
func (c *Call) ableToProceed(exclude *CES) bool {
	for _, ces := range c.ces {
		if ces != exclude && ces.viable() {
			return true
		}
	}
	return false
}

// broadcastPending returns true for a broadcast SETUP not yet answered
// by a CONNECT.
func (c *Call) broadcastPending() bool {
	return c.Flags&CFBroadcastSetup != 0 && c.selCES == nil
}

// abortBroadcast releases all the terminals of a broadcast call that was
// not yet connected (N22).
func (c *Call) abortBroadcast(cause Cause) {
	c.stopSetupTimers()
	for _, ces := range append([]*CES(nil), c.ces...) {
		if ces.viable() {
			c.cesRelease(ces, cause)
		}
	}
	if len(c.ces) == 0 {
		var ies IESet
		ies.Add(c.newCause(cause))
		c.releaseDone(&ies)
		return
	}
	c.setState(N22CallAbort)
}

// cesReleased is called after a CES was removed, to check if the call is
// finished.
func (c *Call) cesReleased() {
	if c.Released() || c.selCES != nil {
		return
	}
	if c.State == N22CallAbort {
		if len(c.ces) == 0 {
			var ies IESet
			if best, ok := c.Causes.Best(); ok {
				ies.Add(NewIECause(best.Loc, best.Value, best.Diag...))
			}
			c.releaseDone(&ies)
		}
		return
	}
	if c.ableToProceed(nil) || len(c.ces) != 0 ||
		c.TimerPending(T303) || c.TimerPending(T312) {
		return
	}
	c.rejectBroadcast()
}

func (c *Call) cesAddCause(m *Message) {
	if ie := m.IEs.Cause(); ie != nil {
		c.Causes.AddIE(ie)
	}
}

// cesRecv processes a message received on a terminal datalink for a
// broadcast call with no selected CES (or for a late answer).
func (c *Call) cesRecv(d *DLC, m *Message) {
	c.evGen = EvGenMsg
	c.MsgBT.Add(m.Type, false, false)
	ces := c.findCES(d)
	if ces == nil {
		switch m.Type {
		case MsgReleaseComplete:
			c.cesAddCause(m)
			c.cesReleased()
			return
		case MsgRelease:
			c.cesAddCause(m)
			c.intf.replyMsg(d, m, MsgReleaseComplete, nil)
			c.cesReleased()
			return
		case MsgStatus, MsgStatusEnquiry, MsgInformation, MsgNotify,
			MsgProgress:
			c.intf.replyCause(d, m, MsgReleaseComplete,
				CauseInvalidCallReference)
			return
		}
		ces = c.newCES(d)
		if c.selCES != nil || c.State == N22CallAbort {
			// late answer
			c.cesRelease(ces, CauseNonSelectedUserClearing)
			return
		}
	}
	if m.UnknownMsg {
		c.intf.unexpected("unknown message 0x%02x for ces %s\n",
			uint8(m.Type), ces)
		c.cesSendCause(ces, MsgStatus, CauseMsgTypeNonExistent)
		return
	}
	if e, ok := m.IEErr(); ok {
		c.intf.Stats.inc(&c.intf.Stats.IEErrors, c.intf.Stats.hIEErr)
		if e.Kind.Fatal() {
			switch m.Type {
			case MsgReleaseComplete:
			case MsgRelease:
				c.cesSendCause(ces, MsgReleaseComplete, e.Kind.Cause())
				c.rmCES(ces)
				c.cesReleased()
				return
			case MsgDisconnect:
				c.cesRelease(ces, e.Kind.Cause())
				return
			default:
				c.cesSendCause(ces, MsgStatus, e.Kind.Cause())
				return
			}
		}
	}

	switch m.Type {
	case MsgAlerting:
		c.cesAlerting(ces, m)
	case MsgCallProceeding:
		c.cesCallProceeding(ces, m)
	case MsgSetupAck:
		c.cesSetupAck(ces, m)
	case MsgConnect:
		c.cesConnect(ces, m)
	case MsgReleaseComplete:
		c.cesAddCause(m)
		c.rmCES(ces)
		c.cesReleased()
	case MsgRelease:
		c.cesAddCause(m)
		if ces.State != CESReleaseRequest {
			if err := c.cesSend(ces, MsgReleaseComplete, nil,
				false); err != nil {
				ERR("ces %s: %s\n", ces, err)
			}
		}
		c.rmCES(ces)
		c.cesReleased()
	case MsgDisconnect:
		c.cesAddCause(m)
		if ces.State != CESReleaseRequest {
			c.cesRelease(ces, CauseNormalCallClearing)
		}
	case MsgInformation:
		if ces.State == CESOverlapReceiving {
			ces.startTimer(cesT304)
		}
		c.indicate(EvInfoInd, &m.IEs)
	case MsgProgress:
		c.indicate(EvProgressInd, &m.IEs)
	case MsgNotify:
		c.indicate(EvNotifyInd, &m.IEs)
	case MsgStatusEnquiry:
		c.cesSendCause(ces, MsgStatus, CauseResponseToStatusEnquiry)
	case MsgStatus:
		ces.stopTimer(cesT322)
		if cs := m.IEs.CallState(); cs != nil && cs.Value == 0 {
			c.cesAddCause(m)
			c.rmCES(ces)
			c.cesReleased()
		}
	default:
		c.cesUnexpected(ces, m)
	}
}

func (c *Call) cesUnexpected(ces *CES, m *Message) {
	c.intf.unexpected("message %s in state %s for ces %s\n",
		m.Type, ces.State, ces)
	c.cesSendCause(ces, MsgStatus, CauseWrongMessage)
}

func (c *Call) cesAlerting(ces *CES, m *Message) {
	switch ces.State {
	case CESNull, CESIncomingCallProceeding, CESOverlapReceiving:
	default:
		c.cesUnexpected(ces, m)
		return
	}
	ces.stopTimer(cesT304)
	ces.State = CESCallReceived
	switch c.State {
	case N6CallPresent, N9IncomingCallProceeding, N25OverlapReceiving:
		c.stopTimer(T303)
		c.stopTimer(T304)
		c.stopTimer(T310)
		c.startTimer(T301)
		c.setState(N7CallReceived)
	}
	if !c.EvFlags.Test(EvAlertingInd) {
		c.indicate(EvAlertingInd, &m.IEs)
	}
}

func (c *Call) cesCallProceeding(ces *CES, m *Message) {
	switch ces.State {
	case CESNull, CESOverlapReceiving:
	default:
		c.cesUnexpected(ces, m)
		return
	}
	ces.stopTimer(cesT304)
	ces.State = CESIncomingCallProceeding
	switch c.State {
	case N6CallPresent, N25OverlapReceiving:
		c.stopTimer(T303)
		c.stopTimer(T304)
		c.startTimer(T310)
		c.setState(N9IncomingCallProceeding)
	}
	if !c.EvFlags.Test(EvProceedingInd) {
		c.indicate(EvProceedingInd, &m.IEs)
	}
}

func (c *Call) cesSetupAck(ces *CES, m *Message) {
	if ces.State != CESNull {
		c.cesUnexpected(ces, m)
		return
	}
	ces.State = CESOverlapReceiving
	ces.startTimer(cesT304)
	if c.State == N6CallPresent {
		c.stopTimer(T303)
		c.setState(N25OverlapReceiving)
	}
	if !c.EvFlags.Test(EvMoreInfoInd) {
		c.indicate(EvMoreInfoInd, &m.IEs)
	}
}

// cesConnect selects the first terminal answering with CONNECT and
// releases all the others.
func (c *Call) cesConnect(ces *CES, m *Message) {
	if ces.State == CESReleaseRequest {
		return
	}
	ces.stopTimers()
	ces.State = CESConnectRequest
	if c.selCES != nil || c.State == N22CallAbort {
		c.cesRelease(ces, CauseNonSelectedUserClearing)
		return
	}
	c.selCES = ces
	c.dlc = ces.dlc
	c.stopSetupTimers()
	for _, o := range append([]*CES(nil), c.ces...) {
		if o != ces && o.State != CESReleaseRequest {
			c.cesRelease(o, CauseNonSelectedUserClearing)
		}
	}
	c.setState(N8ConnectRequest)
	c.indicate(EvConnectInd, &m.IEs)
}

// cesStatusEnquiry sends STATUS ENQUIRY to all the terminals of a
// pending broadcast call.
func (c *Call) cesStatusEnquiry(ies *IESet) error {
	var last error
	for _, ces := range c.ces {
		if err := c.cesSend(ces, MsgStatusEnquiry, ies, false); err != nil {
			last = err
			continue
		}
		if !ces.timers[cesT322].Pending() {
			ces.t322Retr = false
			ces.startTimer(cesT322)
		}
	}
	return last
}

func (c *Call) cesTimerExpired(ces *CES, idx int) {
	if c.Released() {
		return
	}
	c.evGen = EvGenTimeout
	c.intf.Stats.inc(&c.intf.Stats.TimerExp, c.intf.Stats.hTimerExp)
	if DBGon() {
		DBG("ces %s: %s expired\n", ces, cesTimerIDs[idx])
	}
	switch idx {
	case cesT304:
		c.cesRelease(ces, CauseRecoveryOnTimerExpiry)
	case cesT308:
		if !ces.t308Retr {
			ces.t308Retr = true
			var ies IESet
			if ces.relCause != nil {
				ies.Add(ces.relCause)
			}
			if err := c.cesSend(ces, MsgRelease, &ies, true); err == nil {
				ces.startTimer(cesT308)
				return
			}
		}
		c.rmCES(ces)
		c.cesReleased()
	case cesT322:
		if !ces.t322Retr {
			ces.t322Retr = true
			if err := c.cesSend(ces, MsgStatusEnquiry, nil,
				true); err == nil {
				ces.startTimer(cesT322)
				return
			}
		}
		c.cesRelease(ces, CauseTemporaryFailure)
	}
}

// cesDLReleased drops the CES using the released datalink d.
func (c *Call) cesDLReleased(d *DLC) {
	ces := c.findCES(d)
	if ces == nil {
		return
	}
	c.Causes.Add(CauseTemporaryFailure, c.causeLoc(), nil)
	c.rmCES(ces)
	c.cesReleased()
}
