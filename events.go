// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

// EventType is the type of the indications and confirmations delivered
// to the owner of a call.
type EventType uint8

const (
	EvNone       EventType = iota
	EvAlertingInd
	EvConnectInd                  // CONNECT received (SETUP-CONF)
	EvDisconnectInd
	EvErrorInd
	EvInfoInd
	EvMoreInfoInd
	EvNotifyInd
	EvProceedingInd
	EvProgressInd
	EvRejectInd
	EvReleaseConf
	EvReleaseInd
	EvResumeConf
	EvResumeInd
	EvSetupCompleteInd
	EvSetupInd
	EvStatusInd
	EvSuspendConf
	EvSuspendInd
	EvTimeoutInd
	EvBad
)

var evTypeName = [EvBad + 1]string{
	EvNone:             "empty",
	EvAlertingInd:      "alerting-ind",
	EvConnectInd:       "connect-ind",
	EvDisconnectInd:    "disconnect-ind",
	EvErrorInd:         "error-ind",
	EvInfoInd:          "info-ind",
	EvMoreInfoInd:      "more-info-ind",
	EvNotifyInd:        "notify-ind",
	EvProceedingInd:    "proceeding-ind",
	EvProgressInd:      "progress-ind",
	EvRejectInd:        "reject-ind",
	EvReleaseConf:      "release-conf",
	EvReleaseInd:       "release-ind",
	EvResumeConf:       "resume-conf",
	EvResumeInd:        "resume-ind",
	EvSetupCompleteInd: "setup-complete-ind",
	EvSetupInd:         "setup-ind",
	EvStatusInd:        "status-ind",
	EvSuspendConf:      "suspend-conf",
	EvSuspendInd:       "suspend-ind",
	EvTimeoutInd:       "timeout-ind",
	EvBad:              "invalid",
}

func (e EventType) String() string {
	if int(e) >= len(evTypeName) {
		e = EvBad
	}
	return evTypeName[int(e)]
}

// EventFlags is a set of EventType, used to remember which events were
// already delivered for a call.
type EventFlags uint32

// returns previous value
func (f *EventFlags) Set(e EventType) bool {
	m := uint(1) << uint(e)
	ret := (uint(*f) & m) != 0
	*f = EventFlags(uint(*f) | m)
	return ret
}

// returns previous value
func (f *EventFlags) Clear(e EventType) bool {
	m := uint(1) << uint(e)
	ret := (uint(*f) & m) != 0
	*f = EventFlags(uint(*f) &^ m)
	return ret
}

func (f *EventFlags) Test(events ...EventType) bool {
	for _, e := range events {
		if uint(*f)&(1<<uint(e)) != 0 {
			return true
		}
	}
	return false
}

func (f *EventFlags) ResetAll() {
	*f = 0
}

func (f *EventFlags) String() string {
	var s string
	for e := EvNone + 1; e < EvBad; e++ {
		if f.Test(e) {
			if s != "" {
				s += "|" + e.String()
			} else {
				s += e.String()
			}
		}
	}
	return s
}

// EvGenPos records what triggered the last event (debugging).
type EvGenPos uint8

const (
	EvGenUnknown EvGenPos = iota
	EvGenMsg                     // received message
	EvGenPrim                    // primitive request
	EvGenTimeout                 // timer expiry
	EvGenDL                      // datalink status change
	EvGenRestart                 // restart procedure
)

func (p EvGenPos) String() string {
	switch p {
	case EvGenMsg:
		return "message"
	case EvGenPrim:
		return "primitive"
	case EvGenTimeout:
		return "timeout"
	case EvGenDL:
		return "datalink"
	case EvGenRestart:
		return "restart"
	}
	return "unknown"
}

// ConfirmStatus is the status carried by the confirm primitives.
type ConfirmStatus uint8

const (
	ConfirmOk ConfirmStatus = iota
	ConfirmError
)

func (s ConfirmStatus) String() string {
	if s == ConfirmOk {
		return "ok"
	}
	return "error"
}

// ToneType is the type of the in-band tones generated on the network
// side.
type ToneType uint8

const (
	ToneNone ToneType = iota
	ToneDial
	ToneRingback
	ToneBusy
	ToneFailure
)

var tone2Name = [...]string{
	ToneNone:     "none",
	ToneDial:     "dial",
	ToneRingback: "ringback",
	ToneBusy:     "busy",
	ToneFailure:  "failure",
}

func (t ToneType) String() string {
	if int(t) >= len(tone2Name) {
		return "invalid"
	}
	return tone2Name[t]
}

// IndF is the type of the per call indication callbacks. ies holds the
// information elements of the message that triggered the indication
// (possibly empty). It must not be kept after the callback returns.
type IndF func(c *Call, ies *IESet)

// ConfF is the type of the per call confirm callbacks.
type ConfF func(c *Call, ies *IESet, st ConfirmStatus)

// Callbacks is the primitives table through which the library reports
// events to the owner. All the callbacks are called from the dispatch
// goroutine; nil callbacks are skipped. A callback may call the
// primitive request functions of the call it was called for.
type Callbacks struct {
	AlertingInd      IndF
	ConnectInd       IndF
	DisconnectInd    IndF
	ErrorInd         func(c *Call, err error)
	InfoInd          IndF
	MoreInfoInd      IndF
	NotifyInd        IndF
	ProceedingInd    IndF
	ProgressInd      IndF
	RejectInd        IndF
	ReleaseConf      ConfF
	ReleaseInd       IndF
	ResumeConf       ConfF
	ResumeInd        IndF
	SetupCompleteInd IndF
	SetupInd         IndF
	StatusInd        IndF
	SuspendConf      ConfF
	SuspendInd       IndF
	TimeoutInd       func(c *Call, timer string)

	// interface level channel operations
	ConnectChannel    func(ch *Channel)
	DisconnectChannel func(ch *Channel)
	StartTone         func(c *Call, t ToneType)
	StopTone          func(c *Call)

	// global procedures
	ManagementRestartConf func(intf *Intf, chans ChanSet, st ConfirmStatus)
	TimeoutManagementInd  func(intf *Intf, timer string)
	StatusManagementInd   func(intf *Intf, ies *IESet)
}

// indicate delivers an indication for the call c.
func (cb *Callbacks) indicate(c *Call, ev EventType, ies *IESet) {
	c.EvFlags.Set(ev)
	c.lastEv = c.crtEv
	c.crtEv = ev
	if ies == nil {
		ies = &IESet{}
	}
	var f IndF
	switch ev {
	case EvAlertingInd:
		f = cb.AlertingInd
	case EvConnectInd:
		f = cb.ConnectInd
	case EvDisconnectInd:
		f = cb.DisconnectInd
	case EvInfoInd:
		f = cb.InfoInd
	case EvMoreInfoInd:
		f = cb.MoreInfoInd
	case EvNotifyInd:
		f = cb.NotifyInd
	case EvProceedingInd:
		f = cb.ProceedingInd
	case EvProgressInd:
		f = cb.ProgressInd
	case EvRejectInd:
		f = cb.RejectInd
	case EvReleaseInd:
		f = cb.ReleaseInd
	case EvResumeInd:
		f = cb.ResumeInd
	case EvSetupCompleteInd:
		f = cb.SetupCompleteInd
	case EvSetupInd:
		f = cb.SetupInd
	case EvStatusInd:
		f = cb.StatusInd
	case EvSuspendInd:
		f = cb.SuspendInd
	default:
		BUG("indicate: bad event %s for call %s\n", ev, c)
		return
	}
	if DBGon() {
		DBG("call %s: %s (%s)\n", c, ev, c.evGen)
	}
	if f != nil {
		f(c, ies)
	}
}

// confirm delivers a confirmation for the call c.
func (cb *Callbacks) confirm(c *Call, ev EventType, ies *IESet,
	st ConfirmStatus) {
	c.EvFlags.Set(ev)
	c.lastEv = c.crtEv
	c.crtEv = ev
	if ies == nil {
		ies = &IESet{}
	}
	var f ConfF
	switch ev {
	case EvReleaseConf:
		f = cb.ReleaseConf
	case EvResumeConf:
		f = cb.ResumeConf
	case EvSuspendConf:
		f = cb.SuspendConf
	default:
		BUG("confirm: bad event %s for call %s\n", ev, c)
		return
	}
	if DBGon() {
		DBG("call %s: %s %s (%s)\n", c, ev, st, c.evGen)
	}
	if f != nil {
		f(c, ies, st)
	}
}

func (cb *Callbacks) timeoutInd(c *Call, timer string) {
	c.EvFlags.Set(EvTimeoutInd)
	c.lastEv = c.crtEv
	c.crtEv = EvTimeoutInd
	if cb.TimeoutInd != nil {
		cb.TimeoutInd(c, timer)
	}
}

func (cb *Callbacks) errorInd(c *Call, err error) {
	c.EvFlags.Set(EvErrorInd)
	c.lastEv = c.crtEv
	c.crtEv = EvErrorInd
	if cb.ErrorInd != nil {
		cb.ErrorInd(c, err)
	}
}
