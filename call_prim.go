// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

// Primitive is a request from the call owner.
type Primitive uint8

const (
	PrimNone Primitive = iota
	PrimAlerting
	PrimDisconnect
	PrimInfo
	PrimMoreInfo
	PrimNotify
	PrimProceeding
	PrimProgress
	PrimReject
	PrimRelease
	PrimResume
	PrimResumeReject
	PrimResumeResponse
	PrimSetup
	PrimSetupComplete
	PrimSetupResponse
	PrimStatusEnquiry
	PrimSuspend
	PrimSuspendReject
	PrimSuspendResponse
	PrimRestart
	PrimUnref
)

var prim2String = [...]string{
	PrimNone:            "none",
	PrimAlerting:        "ALERTING-REQ",
	PrimDisconnect:      "DISCONNECT-REQ",
	PrimInfo:            "INFO-REQ",
	PrimMoreInfo:        "MORE-INFO-REQ",
	PrimNotify:          "NOTIFY-REQ",
	PrimProceeding:      "PROCEEDING-REQ",
	PrimProgress:        "PROGRESS-REQ",
	PrimReject:          "REJECT-REQ",
	PrimRelease:         "RELEASE-REQ",
	PrimResume:          "RESUME-REQ",
	PrimResumeReject:    "RESUME-REJECT-REQ",
	PrimResumeResponse:  "RESUME-RSP",
	PrimSetup:           "SETUP-REQ",
	PrimSetupComplete:   "SETUP-COMPLETE-REQ",
	PrimSetupResponse:   "SETUP-RSP",
	PrimStatusEnquiry:   "STATUS-ENQUIRY-REQ",
	PrimSuspend:         "SUSPEND-REQ",
	PrimSuspendReject:   "SUSPEND-REJECT-REQ",
	PrimSuspendResponse: "SUSPEND-RSP",
	PrimRestart:         "RESTART-REQ",
	PrimUnref:           "UNREF",
}

func (p Primitive) String() string {
	if int(p) >= len(prim2String) {
		return "invalid"
	}
	return prim2String[p]
}

// The request primitives below must be called from the dispatch
// goroutine (from a callback, or through Lib.Submit). ies may be nil.
// A request for a call already released is a no-op returning
// ErrCallReleased. A request not allowed in the current state returns
// ErrUnexpectedState and leaves the call unchanged.

func (c *Call) checkReleased() error {
	if c.Released() {
		if DBGon() {
			DBG("call %s: request on released call\n", c)
		}
		return ErrCallReleased
	}
	c.evGen = EvGenPrim
	return nil
}

func (c *Call) checkBRA() error {
	if c.intf.Type != IntfBRA {
		return ErrNotBRA
	}
	return nil
}

// SetupRequest starts an outbound call created with Intf.NewCall.
func (c *Call) SetupRequest(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	if c.State != c.st(U0Null, N0Null) || c.Dir != CallDirOutbound ||
		c.MsgBT.N != 0 {
		return c.unexpectedPrim(PrimSetup)
	}
	var out IESet
	if ies != nil {
		out = ies.Clone()
	}
	if c.intf.Role == RoleNT {
		ch, cause := c.intf.selectChannel(c, out.ChannelID())
		if ch == nil {
			WARN("call %s: no channel for SETUP: %s\n", c, cause)
			return ErrNoChannel
		}
		out.Set(c.chanIE(true))
		if c.intf.Flags&IntfHideRestricted != 0 {
			if n := out.CallingNumber(); n != nil &&
				n.HasPresentation && n.Presentation == PresRestricted {
				out.Del(IDCallingNumber)
			}
		}
	} else {
		if out.ChannelID() == nil {
			out.Add(NewIEChannelID(c.intf.Type, false))
		}
		if c.intf.Flags&IntfCLIR != 0 {
			if n := out.CallingNumber(); n != nil {
				cp := *n
				cp.HasPresentation = true
				cp.Presentation = PresRestricted
				out.Set(&cp)
			}
		}
	}
	if c.intf.broadcastSetup() {
		c.dlc = nil
	}
	if err := c.send(MsgSetup, &out); err != nil {
		if c.Channel != nil {
			c.Channel.release()
		}
		return err
	}
	c.setupIEs = out
	if out.SendingComplete() {
		c.Flags |= CFSendingComplete
	}
	if c.intf.broadcastSetup() {
		c.Flags |= CFBroadcastSetup
		c.startTimer(T312)
	}
	c.Flags &^= CFT303Retr
	c.startTimer(T303)
	c.setState(c.st(U1CallInitiated, N6CallPresent))
	return nil
}

// MoreInfoRequest asks for more called number digits on an inbound call
// (SETUP ACKNOWLEDGE).
func (c *Call) MoreInfoRequest(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	if c.State != U6CallPresent && c.State != N1CallInitiated {
		return c.unexpectedPrim(PrimMoreInfo)
	}
	return c.sendSetupAck(ies)
}

func (c *Call) sendSetupAck(ies *IESet) error {
	var out IESet
	if ies != nil {
		out = ies.Clone()
	}
	c.addChanIE(&out)
	tones := c.intf.Role == RoleNT && c.Flags&CFTonesOption != 0
	if tones && out.Progress() == nil {
		out.Add(c.inbandIE())
	}
	if err := c.send(MsgSetupAck, &out); err != nil {
		c.Flags &^= CFChanSent
		return err
	}
	c.startTimer(T302)
	c.setState(c.st(U25OverlapReceiving, N2OverlapSending))
	c.startTone(ToneDial)
	return nil
}

// ProceedingRequest accepts an inbound call (CALL PROCEEDING).
func (c *Call) ProceedingRequest(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	switch c.State {
	case U6CallPresent, U25OverlapReceiving,
		N1CallInitiated, N2OverlapSending:
	default:
		return c.unexpectedPrim(PrimProceeding)
	}
	var out IESet
	if ies != nil {
		out = ies.Clone()
	}
	c.addChanIE(&out)
	if err := c.send(MsgCallProceeding, &out); err != nil {
		c.Flags &^= CFChanSent
		return err
	}
	c.stopTimer(T302)
	c.stopTone()
	c.setState(c.st(U9IncomingCallProceeding, N3OutgoingCallProceeding))
	return nil
}

// AlertingRequest signals that the called user is being alerted.
func (c *Call) AlertingRequest(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	switch c.State {
	case U6CallPresent, U9IncomingCallProceeding, U25OverlapReceiving,
		N1CallInitiated, N2OverlapSending, N3OutgoingCallProceeding:
	default:
		return c.unexpectedPrim(PrimAlerting)
	}
	var out IESet
	if ies != nil {
		out = ies.Clone()
	}
	c.addChanIE(&out)
	tones := c.intf.Role == RoleNT && c.Flags&CFTonesOption != 0
	if tones && out.Progress() == nil {
		out.Add(c.inbandIE())
	}
	if err := c.send(MsgAlerting, &out); err != nil {
		c.Flags &^= CFChanSent
		return err
	}
	c.stopTimer(T302)
	c.setState(c.st(U7CallReceived, N4CallDelivered))
	c.stopTone()
	c.startTone(ToneRingback)
	return nil
}

// SetupResponse answers an inbound call (CONNECT).
func (c *Call) SetupResponse(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	switch c.State {
	case U6CallPresent, U7CallReceived, U9IncomingCallProceeding,
		U25OverlapReceiving, N1CallInitiated, N2OverlapSending,
		N3OutgoingCallProceeding, N4CallDelivered:
	default:
		return c.unexpectedPrim(PrimSetupResponse)
	}
	var out IESet
	if ies != nil {
		out = ies.Clone()
	}
	c.addChanIE(&out)
	if err := c.send(MsgConnect, &out); err != nil {
		c.Flags &^= CFChanSent
		return err
	}
	c.Flags |= CFConnectSent
	c.stopTimer(T302)
	c.stopTone()
	if c.intf.Role == RoleNT {
		c.setState(N10Active)
		if c.Channel != nil {
			c.Channel.connect()
		}
		return nil
	}
	c.startTimer(T313)
	c.setState(U8ConnectRequest)
	return nil
}

// SetupCompleteRequest acknowledges a CONNECT on the network side
// (CONNECT ACKNOWLEDGE). The user side acknowledges automatically.
func (c *Call) SetupCompleteRequest(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	if c.State != N8ConnectRequest {
		return c.unexpectedPrim(PrimSetupComplete)
	}
	if err := c.send(MsgConnectAck, ies); err != nil {
		return err
	}
	c.setState(N10Active)
	if c.Channel != nil {
		c.Channel.connect()
	}
	return nil
}

// InfoRequest sends INFORMATION (e.g. overlap sending digits).
func (c *Call) InfoRequest(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	switch c.State {
	case U2OverlapSending, U3OutgoingCallProceeding, U4CallDelivered,
		U7CallReceived, U8ConnectRequest, U9IncomingCallProceeding,
		U10Active, U11DisconnectRequest, U12DisconnectIndication,
		U25OverlapReceiving,
		N2OverlapSending, N3OutgoingCallProceeding, N4CallDelivered,
		N7CallReceived, N8ConnectRequest, N9IncomingCallProceeding,
		N10Active, N11DisconnectRequest, N12DisconnectIndication,
		N25OverlapReceiving:
	default:
		return c.unexpectedPrim(PrimInfo)
	}
	if err := c.send(MsgInformation, ies); err != nil {
		return err
	}
	if c.State == U2OverlapSending || c.State == N25OverlapReceiving {
		c.startTimer(T304)
	}
	return nil
}

// ProgressRequest sends PROGRESS.
func (c *Call) ProgressRequest(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	switch c.State {
	case U6CallPresent, U7CallReceived, U9IncomingCallProceeding,
		U25OverlapReceiving,
		N1CallInitiated, N2OverlapSending, N3OutgoingCallProceeding,
		N4CallDelivered:
	default:
		return c.unexpectedPrim(PrimProgress)
	}
	var out IESet
	if ies != nil {
		out = ies.Clone()
	}
	if out.Progress() == nil {
		out.Add(c.inbandIE())
	}
	return c.send(MsgProgress, &out)
}

// NotifyRequest sends NOTIFY.
func (c *Call) NotifyRequest(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	switch c.State {
	case U0Null, U1CallInitiated, U6CallPresent, U19ReleaseRequest,
		U11DisconnectRequest, U12DisconnectIndication,
		N0Null, N1CallInitiated, N6CallPresent, N19ReleaseRequest,
		N22CallAbort, N11DisconnectRequest, N12DisconnectIndication:
		return c.unexpectedPrim(PrimNotify)
	}
	if c.sendDLC(MsgNotify) == nil {
		return c.unexpectedPrim(PrimNotify)
	}
	return c.send(MsgNotify, ies)
}

// DisconnectRequest starts clearing the call (DISCONNECT). On a call
// already being cleared it is a no-op.
func (c *Call) DisconnectRequest(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	switch c.State {
	case U11DisconnectRequest, U19ReleaseRequest,
		N12DisconnectIndication, N19ReleaseRequest, N22CallAbort:
		return nil
	case U6CallPresent, N1CallInitiated:
		return c.RejectRequest(ies)
	case U1CallInitiated, U2OverlapSending, U3OutgoingCallProceeding,
		U4CallDelivered, U7CallReceived, U8ConnectRequest,
		U9IncomingCallProceeding, U10Active, U25OverlapReceiving,
		N2OverlapSending, N3OutgoingCallProceeding, N4CallDelivered,
		N6CallPresent, N7CallReceived, N8ConnectRequest,
		N9IncomingCallProceeding, N10Active, N25OverlapReceiving:
		if c.broadcastPending() {
			cause := CauseNormalCallClearing
			if ies != nil && ies.Cause() != nil {
				cause = ies.Cause().Value
			}
			c.abortBroadcast(cause)
			return nil
		}
		return c.sendDisconnect(ies, CauseNormalCallClearing)
	}
	return c.unexpectedPrim(PrimDisconnect)
}

// ReleaseRequest answers a received DISCONNECT (RELEASE).
func (c *Call) ReleaseRequest(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	switch c.State {
	case U19ReleaseRequest, N19ReleaseRequest:
		return nil
	case U12DisconnectIndication, N11DisconnectRequest:
		return c.sendRelease(ies, CauseNormalCallClearing)
	}
	return c.unexpectedPrim(PrimRelease)
}

// RejectRequest rejects an inbound call (RELEASE COMPLETE).
func (c *Call) RejectRequest(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	if c.State != U6CallPresent && c.State != N1CallInitiated {
		return c.unexpectedPrim(PrimReject)
	}
	if err := c.sendReleaseComplete(ies, CauseCallRejected); err != nil {
		return err
	}
	c.toNull()
	return nil
}

// StatusEnquiryRequest asks the peer for its call state.
func (c *Call) StatusEnquiryRequest(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	if c.State.Null() {
		return c.unexpectedPrim(PrimStatusEnquiry)
	}
	if c.broadcastPending() {
		return c.cesStatusEnquiry(ies)
	}
	if c.sendDLC(MsgStatusEnquiry) == nil {
		return c.unexpectedPrim(PrimStatusEnquiry)
	}
	if err := c.send(MsgStatusEnquiry, ies); err != nil {
		return err
	}
	if !c.TimerPending(T322) {
		c.Flags &^= CFT322Retr
		c.startTimer(T322)
	}
	return nil
}

// SuspendRequest suspends an active call (user side, BRA only).
func (c *Call) SuspendRequest(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	if err := c.checkBRA(); err != nil {
		return err
	}
	if c.State != U10Active {
		return c.unexpectedPrim(PrimSuspend)
	}
	if err := c.send(MsgSuspend, ies); err != nil {
		return err
	}
	c.startTimer(T319)
	c.setState(U15SuspendRequest)
	return nil
}

// ResumeRequest resumes a suspended call on a call created with
// Intf.NewCall (user side, BRA only).
func (c *Call) ResumeRequest(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	if err := c.checkBRA(); err != nil {
		return err
	}
	if c.State != U0Null || c.MsgBT.N != 0 {
		return c.unexpectedPrim(PrimResume)
	}
	if err := c.send(MsgResume, ies); err != nil {
		return err
	}
	c.startTimer(T318)
	c.setState(U17ResumeRequest)
	return nil
}

// SuspendResponse accepts a SUSPEND (network side). The call is parked
// until resumed or until T307 expires.
func (c *Call) SuspendResponse(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	if c.State != N15SuspendRequest {
		return c.unexpectedPrim(PrimSuspendResponse)
	}
	if err := c.send(MsgSuspendAck, ies); err != nil {
		return err
	}
	c.intf.suspend(c)
	return nil
}

// SuspendReject refuses a SUSPEND (network side).
func (c *Call) SuspendReject(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	if c.State != N15SuspendRequest {
		return c.unexpectedPrim(PrimSuspendReject)
	}
	out := c.withCause(ies, CauseFacilityRejected)
	if err := c.send(MsgSuspendReject, &out); err != nil {
		return err
	}
	c.suspID = nil
	c.setState(N10Active)
	return nil
}

// ResumeResponse accepts a RESUME (network side).
func (c *Call) ResumeResponse(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	if c.State != N17ResumeRequest {
		return c.unexpectedPrim(PrimResumeResponse)
	}
	var out IESet
	if ies != nil {
		out = ies.Clone()
	}
	if out.ChannelID() == nil {
		out.Add(c.chanIE(true))
	}
	if err := c.send(MsgResumeAck, &out); err != nil {
		return err
	}
	c.setState(N10Active)
	if c.Channel != nil {
		c.Channel.connect()
	}
	return nil
}

// ResumeReject refuses a RESUME (network side).
func (c *Call) ResumeReject(ies *IESet) error {
	if err := c.checkReleased(); err != nil {
		return err
	}
	if c.State != N17ResumeRequest {
		return c.unexpectedPrim(PrimResumeReject)
	}
	out := c.withCause(ies, CauseCallRejected)
	if err := c.send(MsgResumeReject, &out); err != nil {
		return err
	}
	c.toNull()
	return nil
}
