// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

// dlEvent dispatches a primitive received from the datalink d.
func (intf *Intf) dlEvent(d *DLC, prim DLPrimitive, frame []byte) {
	switch prim {
	case DLDataInd, DLUnitDataInd:
		intf.receive(d, frame)
	case DLEstablishInd, DLEstablishConf:
		intf.dlEstablished(d)
	case DLReleaseInd, DLReleaseConf:
		intf.dlReleased(d)
	default:
		BUG("%s: unknown datalink primitive %d on %s\n", intf.Name,
			prim, d)
	}
}

// receive processes a Q.931 frame received on d.
func (intf *Intf) receive(d *DLC, frame []byte) {
	intf.Stats.inc(&intf.Stats.RxFrames, intf.Stats.hRx)
	m, err := ParseMessage(&intf.recvCtx, frame)
	if err != ErrMsgOk {
		intf.Stats.inc(&intf.Stats.Malformed, intf.Stats.hMalformed)
		WARN("%s: dropping malformed frame from %s: %s\n",
			intf.Name, d, err)
		return
	}
	if DBGon() {
		DBG("%s: received %s cr %s on %s\n", intf.Name, m.Type,
			m.CallRef, d)
	}
	if m.CallRef.Global() {
		intf.Global.recv(d, m)
		return
	}
	// the flag is set in the messages sent to the call originator
	dir := CallDirInbound
	if m.CallRef.Flag {
		dir = CallDirOutbound
	}
	c := intf.findCall(m.CallRef.Value, dir, d)
	if c == nil {
		intf.recvUnknownCallRef(d, m)
		return
	}
	if c.Flags&CFBroadcastSetup != 0 &&
		(c.selCES == nil || c.selCES.dlc != d) {
		c.cesRecv(d, m)
		return
	}
	c.recv(m)
}

// recvUnknownCallRef handles a message whose call reference matches no
// call.
func (intf *Intf) recvUnknownCallRef(d *DLC, m *Message) {
	if m.UnknownMsg {
		intf.replyCause(d, m, MsgReleaseComplete, CauseInvalidCallReference)
		return
	}
	switch m.Type {
	case MsgSetup:
		if m.CallRef.Flag {
			intf.replyCause(d, m, MsgReleaseComplete,
				CauseInvalidCallReference)
			return
		}
		intf.recvSetup(d, m)
	case MsgResume:
		if intf.Role != RoleNT || m.CallRef.Flag {
			intf.replyCause(d, m, MsgReleaseComplete,
				CauseInvalidCallReference)
			return
		}
		intf.recvResume(d, m)
	case MsgStatus:
		if cs := m.IEs.CallState(); cs != nil && cs.Value != 0 {
			intf.replyCause(d, m, MsgReleaseComplete, CauseWrongMessage)
		}
	case MsgReleaseComplete:
	case MsgStatusEnquiry:
		intf.replyCause(d, m, MsgStatus, CauseResponseToStatusEnquiry)
	default:
		intf.replyCause(d, m, MsgReleaseComplete, CauseInvalidCallReference)
	}
}

// recvSetup creates an inbound call.
func (intf *Intf) recvSetup(d *DLC, m *Message) {
	var status Cause
	if e, ok := m.IEErr(); ok {
		intf.Stats.inc(&intf.Stats.IEErrors, intf.Stats.hIEErr)
		if e.Kind.Fatal() {
			intf.replyCause(d, m, MsgReleaseComplete, e.Kind.Cause())
			return
		}
		status = e.Kind.Cause()
	}
	c := intf.newCall(m.CallRef.Value, int(m.CallRef.Len),
		CallDirInbound, d)
	c.evGen = EvGenMsg
	c.MsgBT.Add(m.Type, false, false)
	if _, cause := intf.selectChannel(c, m.IEs.ChannelID()); cause != CauseNone {
		WARN("%s: rejecting SETUP cr %s: %s\n", intf.Name, m.CallRef, cause)
		if err := c.sendReleaseComplete(nil, cause); err != nil {
			ERR("call %s: %s\n", c, err)
		}
		c.toNull()
		return
	}
	if numberComplete(&m.IEs) {
		c.Flags |= CFSendingComplete
	}
	st := c.st(U6CallPresent, N1CallInitiated)
	c.setState(st)
	c.indicate(EvSetupInd, &m.IEs)
	if c.Released() {
		return
	}
	if status != CauseNone {
		c.sendStatus(status)
	}
	if c.State == st && intf.Flags&IntfOverlapReceiving != 0 &&
		c.Flags&CFSendingComplete == 0 {
		if err := c.sendSetupAck(nil); err != nil {
			ERR("call %s: %s\n", c, err)
		}
	}
}

// dlEstablished is called when the multiple frame operation on d is
// (re)established.
func (intf *Intf) dlEstablished(d *DLC) {
	if DBGon() {
		DBG("%s: datalink %s established\n", intf.Name, d)
	}
	d.Status = DLCEstablished
	d.flush()
	for _, c := range intf.calls.Snapshot() {
		if c.dlc == d && c.TimerPending(T309) {
			c.evGen = EvGenDL
			c.stopTimer(T309)
			c.sendStatus(CauseNormalUnspecified)
		}
	}
}

// dlReleased is called when the multiple frame operation on d ended.
// Active calls wait for the re-establishment (T309), the others are
// cleared.
func (intf *Intf) dlReleased(d *DLC) {
	if DBGon() {
		DBG("%s: datalink %s released\n", intf.Name, d)
	}
	d.Status = DLCReleased
	d.queue = nil
	for _, c := range intf.calls.Snapshot() {
		if c.Flags&CFBroadcastSetup != 0 && c.selCES == nil {
			c.evGen = EvGenDL
			c.cesDLReleased(d)
			continue
		}
		if c.dlc != d || c.State.Null() {
			continue
		}
		c.evGen = EvGenDL
		switch c.State {
		case U10Active, N10Active:
			if !c.TimerPending(T309) {
				c.startTimer(T309)
			}
		default:
			c.releaseInd(CauseTemporaryFailure)
		}
	}
}
