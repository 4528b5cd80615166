// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

// states in which a call message may be received, anything else is
// answered with STATUS (message not compatible with the call state).
// Messages missing here are checked by their handlers.
var recvStates = map[MsgType]callStSet{
	MsgAlerting: stSet(U1CallInitiated, U2OverlapSending,
		U3OutgoingCallProceeding, N6CallPresent, N9IncomingCallProceeding,
		N25OverlapReceiving),
	MsgCallProceeding: stSet(U1CallInitiated, U2OverlapSending,
		N6CallPresent, N25OverlapReceiving),
	MsgSetupAck: stSet(U1CallInitiated, N6CallPresent),
	MsgConnect: stSet(U1CallInitiated, U2OverlapSending,
		U3OutgoingCallProceeding, U4CallDelivered, U10Active,
		N6CallPresent, N7CallReceived, N8ConnectRequest,
		N9IncomingCallProceeding, N25OverlapReceiving),
	MsgConnectAck:      stSet(U8ConnectRequest, U10Active, N10Active),
	MsgDisconnect:      stNotNull,
	MsgRelease:         stNotNull,
	MsgReleaseComplete: stNotNull,
	MsgInformation: stSet(U2OverlapSending, U3OutgoingCallProceeding,
		U4CallDelivered, U7CallReceived, U8ConnectRequest,
		U9IncomingCallProceeding, U10Active, U11DisconnectRequest,
		U12DisconnectIndication, U19ReleaseRequest, U25OverlapReceiving,
		N2OverlapSending, N3OutgoingCallProceeding, N4CallDelivered,
		N7CallReceived, N8ConnectRequest, N9IncomingCallProceeding,
		N10Active, N11DisconnectRequest, N12DisconnectIndication,
		N19ReleaseRequest, N25OverlapReceiving),
	MsgProgress: stSet(U2OverlapSending, U3OutgoingCallProceeding,
		U4CallDelivered, U10Active, N6CallPresent, N7CallReceived,
		N9IncomingCallProceeding, N25OverlapReceiving),
	MsgNotify: stSet(U2OverlapSending, U3OutgoingCallProceeding,
		U4CallDelivered, U7CallReceived, U8ConnectRequest,
		U9IncomingCallProceeding, U10Active, U11DisconnectRequest,
		U12DisconnectIndication, U25OverlapReceiving,
		N2OverlapSending, N3OutgoingCallProceeding, N4CallDelivered,
		N7CallReceived, N8ConnectRequest, N9IncomingCallProceeding,
		N10Active, N11DisconnectRequest, N12DisconnectIndication,
		N25OverlapReceiving),
	MsgSuspendAck:    stSet(U15SuspendRequest),
	MsgSuspendReject: stSet(U15SuspendRequest),
	MsgResumeAck:     stSet(U17ResumeRequest),
	MsgResumeReject:  stSet(U17ResumeRequest),
}

// recv processes a message received for c on its own datalink (for a
// broadcast call only after a CES was selected, see cesRecv).
func (c *Call) recv(m *Message) {
	c.evGen = EvGenMsg
	c.MsgBT.Add(m.Type, false, false)
	if m.UnknownMsg {
		c.intf.unexpected("unknown message 0x%02x for call %s\n",
			uint8(m.Type), c)
		c.sendStatus(CauseMsgTypeNonExistent)
		return
	}
	if sts, ok := recvStates[m.Type]; ok && !sts.Has(c.State) {
		c.unexpectedMsg(m)
		return
	}
	var status, relErr Cause
	if e, ok := m.IEErr(); ok {
		c.intf.Stats.inc(&c.intf.Stats.IEErrors, c.intf.Stats.hIEErr)
		cause := e.Kind.Cause()
		if DBGon() {
			DBG("call %s: %s: %s %s (%s)\n", c, m.Type, e.ID, e.Kind, e.Err)
		}
		switch m.Type {
		case MsgReleaseComplete:
			// no answer to a final message
		case MsgRelease:
			relErr = cause
			if e.Kind.Fatal() {
				m.IEs.Set(c.newCause(CauseNormalUnspecified))
			}
		case MsgDisconnect:
			c.Flags |= CFDiscCauseOverride
			c.override = cause
			if e.Kind.Fatal() {
				m.IEs.Set(c.newCause(CauseNormalUnspecified))
			}
		default:
			if e.Kind.Fatal() {
				c.sendStatus(cause)
				return
			}
			status = cause
		}
	}

	switch m.Type {
	case MsgAlerting:
		c.recvAlerting(m)
	case MsgCallProceeding:
		c.recvCallProceeding(m)
	case MsgSetupAck:
		c.recvSetupAck(m)
	case MsgConnect:
		c.recvConnect(m)
	case MsgConnectAck:
		c.recvConnectAck(m)
	case MsgDisconnect:
		c.recvDisconnect(m)
	case MsgRelease:
		c.recvRelease(m, relErr)
	case MsgReleaseComplete:
		c.recvReleaseComplete(m)
	case MsgInformation:
		c.recvInformation(m)
	case MsgProgress:
		c.recvProgress(m)
	case MsgNotify:
		c.indicate(EvNotifyInd, &m.IEs)
	case MsgStatusEnquiry:
		c.sendStatus(CauseResponseToStatusEnquiry)
	case MsgStatus:
		c.recvStatus(m)
	case MsgSuspend:
		c.recvSuspend(m)
	case MsgSuspendAck, MsgSuspendReject:
		c.recvSuspendAnswer(m)
	case MsgResumeAck, MsgResumeReject:
		c.recvResumeAnswer(m)
	case MsgSetup, MsgResume:
		// retransmission from the peer
		if DBGon() {
			DBG("call %s: ignoring duplicate %s\n", c, m.Type)
		}
	case MsgHold, MsgRetrieve:
		if c.intf.Role == RoleNT {
			t := MsgHoldReject
			if m.Type == MsgRetrieve {
				t = MsgRetrieveReject
			}
			c.sendCause(t, CauseFacilityNotImplemented)
			return
		}
		c.unexpectedMsg(m)
	case MsgHoldAck, MsgHoldReject, MsgRetrieveAck, MsgRetrieveReject:
		WARN("call %s: ignoring %s\n", c, m.Type)
	default:
		// FACILITY, USER INFORMATION, CONGESTION CONTROL, SEGMENT
		c.intf.unexpected("unsupported message %s for call %s\n", m.Type, c)
		c.sendStatus(CauseMsgTypeNonExistent)
		return
	}
	if status != CauseNone && !c.Released() {
		c.sendStatus(status)
	}
}

// acceptChan checks the channel indicated in a response to an outbound
// call, clearing the call if it cannot be used.
func (c *Call) acceptChan(m *Message) bool {
	if c.intf.acceptChannel(c, m.IEs.ChannelID()) {
		return true
	}
	WARN("call %s: channel in %s not acceptable\n", c, m.Type)
	c.stopSetupTimers()
	if c.intf.Role == RoleTE {
		c.clear(CauseChannelUnacceptable)
	} else {
		c.clear(CauseRequestedChanNotAvailable)
	}
	return false
}

func (c *Call) recvAlerting(m *Message) {
	switch c.State {
	case U1CallInitiated, U2OverlapSending, U3OutgoingCallProceeding,
		N6CallPresent, N9IncomingCallProceeding, N25OverlapReceiving:
		c.stopSetupTimers()
		if !c.acceptChan(m) {
			return
		}
		c.startTimer(T301)
		c.setState(c.st(U4CallDelivered, N7CallReceived))
		c.indicate(EvAlertingInd, &m.IEs)
	default:
		c.unexpectedMsg(m)
	}
}

func (c *Call) recvCallProceeding(m *Message) {
	switch c.State {
	case U1CallInitiated, U2OverlapSending,
		N6CallPresent, N25OverlapReceiving:
		c.stopTimer(T303)
		c.stopTimer(T304)
		if !c.acceptChan(m) {
			return
		}
		c.startTimer(T310)
		c.setState(c.st(U3OutgoingCallProceeding, N9IncomingCallProceeding))
		c.indicate(EvProceedingInd, &m.IEs)
	default:
		c.unexpectedMsg(m)
	}
}

func (c *Call) recvSetupAck(m *Message) {
	switch c.State {
	case U1CallInitiated, N6CallPresent:
		c.stopTimer(T303)
		if !c.acceptChan(m) {
			return
		}
		c.startTimer(T304)
		c.setState(c.st(U2OverlapSending, N25OverlapReceiving))
		c.indicate(EvMoreInfoInd, &m.IEs)
	default:
		c.unexpectedMsg(m)
	}
}

func (c *Call) recvConnect(m *Message) {
	switch c.State {
	case U1CallInitiated, U2OverlapSending, U3OutgoingCallProceeding,
		U4CallDelivered:
		c.stopSetupTimers()
		if !c.acceptChan(m) {
			return
		}
		if err := c.send(MsgConnectAck, nil); err != nil {
			ERR("call %s: %s\n", c, err)
		}
		c.setState(U10Active)
		if c.Channel != nil {
			c.Channel.connect()
		}
		c.indicate(EvConnectInd, &m.IEs)
	case N6CallPresent, N7CallReceived, N9IncomingCallProceeding,
		N25OverlapReceiving:
		c.stopSetupTimers()
		if !c.acceptChan(m) {
			return
		}
		c.setState(N8ConnectRequest)
		c.indicate(EvConnectInd, &m.IEs)
	case U10Active:
		// our CONNECT ACKNOWLEDGE was lost
		if err := c.send(MsgConnectAck, nil); err != nil {
			ERR("call %s: %s\n", c, err)
		}
	case N8ConnectRequest:
	default:
		c.unexpectedMsg(m)
	}
}

func (c *Call) recvConnectAck(m *Message) {
	switch c.State {
	case U8ConnectRequest:
		c.stopTimer(T313)
		c.setState(U10Active)
		if c.Channel != nil {
			c.Channel.connect()
		}
		c.indicate(EvSetupCompleteInd, &m.IEs)
	case N10Active:
		if c.Flags&CFConnectSent != 0 && !c.EvFlags.Test(EvSetupCompleteInd) {
			c.indicate(EvSetupCompleteInd, &m.IEs)
		}
	case U10Active:
	default:
		c.unexpectedMsg(m)
	}
}

func (c *Call) recvDisconnect(m *Message) {
	switch c.State {
	case U11DisconnectRequest, N12DisconnectIndication:
		// clearing collision
		c.stopTimer(T305)
		c.stopTimer(T306)
		if err := c.sendRelease(nil, CauseNormalCallClearing); err != nil {
			ERR("call %s: %s\n", c, err)
			c.releaseInd(CauseTemporaryFailure)
		}
	case U12DisconnectIndication, U19ReleaseRequest,
		N11DisconnectRequest, N19ReleaseRequest, N22CallAbort:
		if DBGon() {
			DBG("call %s: ignoring DISCONNECT\n", c)
		}
	case U17ResumeRequest:
		// the resumed call is cleared before being established
		c.stopTimer(T318)
		c.Flags |= CFFinalSent
		if err := c.sendRelease(nil, CauseNormalCallClearing); err != nil {
			ERR("call %s: %s\n", c, err)
			c.toNull()
		}
		c.confirm(EvResumeConf, &m.IEs, ConfirmError)
	case U15SuspendRequest:
		c.suspendFailed()
		if c.Released() {
			return
		}
		c.disconnectInd(m)
	case N15SuspendRequest:
		c.suspID = nil
		c.disconnectInd(m)
	case U1CallInitiated, U2OverlapSending, U3OutgoingCallProceeding,
		U4CallDelivered, U6CallPresent, U7CallReceived, U8ConnectRequest,
		U9IncomingCallProceeding, U10Active, U25OverlapReceiving,
		N1CallInitiated, N2OverlapSending, N3OutgoingCallProceeding,
		N4CallDelivered, N6CallPresent, N7CallReceived, N8ConnectRequest,
		N9IncomingCallProceeding, N10Active, N17ResumeRequest,
		N25OverlapReceiving:
		c.disconnectInd(m)
	default:
		c.unexpectedMsg(m)
	}
}

func (c *Call) disconnectInd(m *Message) {
	c.stopAllTimers()
	c.stopTone()
	if c.Channel != nil && m.IEs.Progress() == nil {
		c.Channel.disconnect()
	}
	c.setState(c.st(U12DisconnectIndication, N11DisconnectRequest))
	c.indicate(EvDisconnectInd, &m.IEs)
}

// suspendFailed ends a pending suspend request (U15) with an error, the
// call goes back to active.
func (c *Call) suspendFailed() {
	c.stopTimer(T319)
	c.setState(U10Active)
	c.confirm(EvSuspendConf, nil, ConfirmError)
}

// final indication or confirmation for a locally started release
func (c *Call) releaseDone(ies *IESet) {
	c.toNull()
	if c.Flags&CFFinalSent != 0 {
		return
	}
	if c.Flags&CFReleaseOnError != 0 {
		c.indicate(EvReleaseInd, ies)
		return
	}
	c.confirm(EvReleaseConf, ies, ConfirmOk)
}

func (c *Call) recvRelease(m *Message, errCause Cause) {
	switch c.State {
	case U19ReleaseRequest, N19ReleaseRequest:
		// RELEASE collision, no answer
		c.releaseDone(&m.IEs)
		return
	case U15SuspendRequest:
		c.suspendFailed()
		if c.Released() {
			return
		}
	}
	var ies IESet
	if errCause != CauseNone {
		ies.Add(c.newCause(errCause))
	}
	if err := c.send(MsgReleaseComplete, &ies); err != nil {
		ERR("call %s: %s\n", c, err)
	}
	resuming := c.State == U17ResumeRequest
	c.toNull()
	if resuming {
		c.confirm(EvResumeConf, &m.IEs, ConfirmError)
		return
	}
	c.indicate(EvReleaseInd, &m.IEs)
}

func (c *Call) recvReleaseComplete(m *Message) {
	switch c.State {
	case U19ReleaseRequest, N19ReleaseRequest:
		c.releaseDone(&m.IEs)
	case U1CallInitiated, N6CallPresent:
		c.toNull()
		c.indicate(EvRejectInd, &m.IEs)
	case U17ResumeRequest:
		c.toNull()
		c.confirm(EvResumeConf, &m.IEs, ConfirmError)
	case U15SuspendRequest:
		c.suspendFailed()
		if c.Released() {
			return
		}
		c.toNull()
		c.indicate(EvReleaseInd, &m.IEs)
	case U2OverlapSending, U3OutgoingCallProceeding, U4CallDelivered,
		U6CallPresent, U7CallReceived, U8ConnectRequest,
		U9IncomingCallProceeding, U10Active, U11DisconnectRequest,
		U12DisconnectIndication, U25OverlapReceiving,
		N1CallInitiated, N2OverlapSending, N3OutgoingCallProceeding,
		N4CallDelivered, N7CallReceived, N8ConnectRequest,
		N9IncomingCallProceeding, N10Active, N11DisconnectRequest,
		N12DisconnectIndication, N15SuspendRequest, N17ResumeRequest,
		N22CallAbort, N25OverlapReceiving:
		c.toNull()
		c.indicate(EvReleaseInd, &m.IEs)
	default:
		c.unexpectedMsg(m)
	}
}

// numberComplete returns true if the INFORMATION / SETUP ies end the
// called number.
func numberComplete(ies *IESet) bool {
	if ies.SendingComplete() {
		return true
	}
	n := ies.CalledNumber()
	return n != nil && n.Complete()
}

func (c *Call) recvInformation(m *Message) {
	switch c.State {
	case U19ReleaseRequest, N19ReleaseRequest:
	case U25OverlapReceiving, N2OverlapSending:
		if numberComplete(&m.IEs) {
			c.Flags |= CFSendingComplete
			c.stopTimer(T302)
		} else {
			c.startTimer(T302)
		}
		c.indicate(EvInfoInd, &m.IEs)
	case U2OverlapSending, U3OutgoingCallProceeding, U4CallDelivered,
		U7CallReceived, U8ConnectRequest, U9IncomingCallProceeding,
		U10Active, U11DisconnectRequest, U12DisconnectIndication,
		N3OutgoingCallProceeding, N4CallDelivered, N7CallReceived,
		N8ConnectRequest, N9IncomingCallProceeding, N10Active,
		N11DisconnectRequest, N12DisconnectIndication, N25OverlapReceiving:
		c.indicate(EvInfoInd, &m.IEs)
	default:
		c.unexpectedMsg(m)
	}
}

func (c *Call) recvProgress(m *Message) {
	switch c.State {
	case U3OutgoingCallProceeding, N9IncomingCallProceeding:
		c.stopTimer(T310)
		c.indicate(EvProgressInd, &m.IEs)
	case U2OverlapSending, U4CallDelivered, U10Active,
		N6CallPresent, N7CallReceived, N25OverlapReceiving:
		c.indicate(EvProgressInd, &m.IEs)
	default:
		c.unexpectedMsg(m)
	}
}

func (c *Call) recvStatus(m *Message) {
	c.stopTimer(T322)
	cs := m.IEs.CallState()
	if cs == nil {
		// mandatory, never reached for a parsed message
		return
	}
	c.indicate(EvStatusInd, &m.IEs)
	if c.Released() {
		return
	}
	switch {
	case cs.Value == 0:
		if c.State.Null() {
			return
		}
		cause := CauseWrongMessage
		if ie := m.IEs.Cause(); ie != nil {
			cause = ie.Value
		}
		c.releaseInd(cause)
	case c.State == U19ReleaseRequest || c.State == N19ReleaseRequest:
	case !StatesCompatible(c.State, cs.Value):
		WARN("call %s: peer in incompatible state %d\n", c, cs.Value)
		c.clear(CauseWrongMessage)
	}
}

func (c *Call) recvSuspend(m *Message) {
	if c.intf.Role != RoleNT {
		c.unexpectedMsg(m)
		return
	}
	if c.intf.Type != IntfBRA {
		c.sendCause(MsgSuspendReject, CauseServiceNotImplemented)
		return
	}
	if c.State != N10Active {
		c.intf.unexpected("SUSPEND in state %s for call %s\n", c.State, c)
		c.sendCause(MsgSuspendReject, CauseWrongMessage)
		return
	}
	var id []byte
	if ie := m.IEs.CallIdentity(); ie != nil {
		id = ie.Identity
	}
	if c.intf.susp.FindIdentity(id) != nil {
		c.sendCause(MsgSuspendReject, CauseCallIdentityInUse)
		return
	}
	c.suspID = append([]byte{}, id...)
	c.setState(N15SuspendRequest)
	c.indicate(EvSuspendInd, &m.IEs)
}

func (c *Call) recvSuspendAnswer(m *Message) {
	if c.State != U15SuspendRequest {
		c.unexpectedMsg(m)
		return
	}
	c.stopTimer(T319)
	if m.Type == MsgSuspendAck {
		c.Flags |= CFSuspended
		c.toNull()
		c.confirm(EvSuspendConf, &m.IEs, ConfirmOk)
		return
	}
	c.setState(U10Active)
	c.confirm(EvSuspendConf, &m.IEs, ConfirmError)
}

func (c *Call) recvResumeAnswer(m *Message) {
	if c.State != U17ResumeRequest {
		c.unexpectedMsg(m)
		return
	}
	c.stopTimer(T318)
	if m.Type == MsgResumeReject {
		c.toNull()
		c.confirm(EvResumeConf, &m.IEs, ConfirmError)
		return
	}
	if !c.acceptChan(m) {
		return
	}
	c.setState(U10Active)
	if c.Channel != nil {
		c.Channel.connect()
	}
	c.confirm(EvResumeConf, &m.IEs, ConfirmOk)
}
