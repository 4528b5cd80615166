// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

// timerExpired handles the expiry of the call timer id. It runs from
// TimerEngine.RunDue(), with the timer already removed from the pending
// set.
func (c *Call) timerExpired(id TimerID) {
	if c.Released() {
		return
	}
	c.evGen = EvGenTimeout
	c.intf.Stats.inc(&c.intf.Stats.TimerExp, c.intf.Stats.hTimerExp)
	if DBGon() {
		DBG("call %s: %s expired\n", c, id)
	}
	switch id {
	case T301:
		c.intf.cb.timeoutInd(c, id.String())
		c.clear(CauseNoAnswer)
	case T302:
		// overlap receiving: the owner decides if the number is
		// complete (ProceedingRequest) or not (DisconnectRequest)
		c.Flags |= CFSendingComplete
		c.intf.cb.timeoutInd(c, id.String())
	case T303:
		c.t303Expired()
	case T304, T310, T313:
		c.intf.cb.timeoutInd(c, id.String())
		c.clear(CauseRecoveryOnTimerExpiry)
	case T305, T306:
		c.stopTone()
		var ies IESet
		if c.discCause != nil {
			ies.Add(c.discCause)
		}
		if err := c.sendRelease(&ies, CauseNormalCallClearing); err != nil {
			ERR("call %s: %s: %s\n", c, id, err)
			c.releaseInd(CauseTemporaryFailure)
		}
	case T308:
		c.t308Expired()
	case T309:
		c.releaseInd(CauseTemporaryFailure)
	case T312:
		c.t312Expired()
	case T318:
		c.intf.cb.timeoutInd(c, id.String())
		c.Flags |= CFFinalSent
		if err := c.sendRelease(nil, CauseRecoveryOnTimerExpiry); err != nil {
			c.toNull()
		}
		c.confirm(EvResumeConf, nil, ConfirmError)
	case T319:
		c.suspendFailed()
	case T322:
		if c.Flags&CFT322Retr == 0 {
			c.Flags |= CFT322Retr
			if err := c.sendOn(c.sendDLC(MsgStatusEnquiry),
				MsgStatusEnquiry, nil, true); err == nil {
				c.startTimer(T322)
				return
			}
		}
		c.clear(CauseTemporaryFailure)
	default:
		BUG("call %s: unexpected timer %s\n", c, id)
	}
}

func (c *Call) t303Expired() {
	if c.Flags&CFBroadcastSetup != 0 {
		if len(c.ces) != 0 {
			// some terminal answered
			return
		}
		if c.Causes.Len() == 0 && c.Flags&CFT303Retr == 0 &&
			c.retransmitSetup() {
			return
		}
		if !c.TimerPending(T312) {
			c.intf.cb.timeoutInd(c, T303.String())
			c.rejectBroadcast()
		}
		return
	}
	if c.Flags&CFT303Retr == 0 && c.retransmitSetup() {
		return
	}
	c.intf.cb.timeoutInd(c, T303.String())
	if c.intf.Role == RoleNT {
		if err := c.sendReleaseComplete(nil,
			CauseRecoveryOnTimerExpiry); err != nil {
			ERR("call %s: %s\n", c, err)
		}
	}
	c.toNull()
	c.indicateCause(EvRejectInd, CauseRecoveryOnTimerExpiry)
}

// retransmitSetup sends the saved SETUP again and restarts T303.
func (c *Call) retransmitSetup() bool {
	c.Flags |= CFT303Retr
	if err := c.sendOn(c.sendDLC(MsgSetup), MsgSetup, &c.setupIEs,
		true); err != nil {
		ERR("call %s: SETUP retransmission: %s\n", c, err)
		return false
	}
	c.startTimer(T303)
	if c.Flags&CFBroadcastSetup != 0 {
		c.startTimer(T312)
	}
	return true
}

func (c *Call) t308Expired() {
	if c.Flags&CFT308Retr == 0 {
		c.Flags |= CFT308Retr
		var ies IESet
		if c.relCause != nil {
			ies.Add(c.relCause)
		}
		if err := c.sendOn(c.sendDLC(MsgRelease), MsgRelease, &ies,
			true); err == nil {
			c.startTimer(T308)
			return
		}
	}
	c.intf.cb.timeoutInd(c, T308.String())
	c.toNull()
	if c.Flags&CFFinalSent != 0 {
		return
	}
	if c.Flags&CFReleaseOnError != 0 {
		c.indicateCause(EvReleaseInd, CauseRecoveryOnTimerExpiry)
		return
	}
	var ies IESet
	ies.Add(c.newCause(CauseRecoveryOnTimerExpiry))
	c.confirm(EvReleaseConf, &ies, ConfirmError)
}

func (c *Call) t312Expired() {
	if c.TimerPending(T303) || len(c.ces) != 0 || c.selCES != nil {
		return
	}
	c.intf.cb.timeoutInd(c, T312.String())
	c.rejectBroadcast()
}

// rejectBroadcast ends a broadcast call no terminal accepted, with the
// best cause received from the released CESs.
func (c *Call) rejectBroadcast() {
	cause := CauseNoUserResponding
	if best, ok := c.Causes.Best(); ok {
		cause = best.Value
	}
	c.toNull()
	c.indicateCause(EvRejectInd, cause)
}
