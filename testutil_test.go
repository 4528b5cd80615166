// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"testing"
	"time"

	"github.com/intuitivelabs/timestamp"
	"github.com/stretchr/testify/require"
)

// testClock is a manually advanced clock for the timer engine.
type testClock struct {
	base timestamp.TS
	off  time.Duration
}

func newTestClock() *testClock {
	return &testClock{base: timestamp.Now()}
}

func (tc *testClock) now() timestamp.TS {
	return tc.base.Add(tc.off)
}

// testDL is a Datalink recording the sent frames.
type testDL struct {
	frames  [][]byte
	unit    int // frames sent as unit data
	estReqs int
	relReqs int
	closed  bool
	sendErr error // returned by Send, if set
}

func (dl *testDL) Send(frame []byte) error {
	if dl.sendErr != nil {
		return dl.sendErr
	}
	dl.frames = append(dl.frames, append([]byte(nil), frame...))
	return nil
}

func (dl *testDL) SendUnitData(frame []byte) error {
	dl.unit++
	return dl.Send(frame)
}

func (dl *testDL) Establish() error {
	dl.estReqs++
	return nil
}

func (dl *testDL) Release() error {
	dl.relReqs++
	return nil
}

func (dl *testDL) Recv() (DLPrimitive, []byte, error) {
	return DLNone, nil, ErrDatalinkClosed
}

func (dl *testDL) Close() error {
	dl.closed = true
	return nil
}

// testEvent is an indication or confirmation seen by the owner.
type testEvent struct {
	ev    EventType
	call  *Call
	cause Cause // cause carried by the event, if any
	st    ConfirmStatus
	timer string
	ies   IESet
}

type testRestart struct {
	chans ChanSet
	st    ConfirmStatus
}

// testRec records everything reported through the Callbacks.
type testRec struct {
	events   []testEvent
	hooks    map[EventType]func(c *Call, ies *IESet)
	chConn   []int
	chDisc   []int
	tones    []ToneType
	restarts []testRestart
	mgmtTO   []string
	mgmtStat int
}

func newTestRec() *testRec {
	return &testRec{hooks: map[EventType]func(c *Call, ies *IESet){}}
}

func (r *testRec) add(e testEvent) {
	if ie := e.ies.Cause(); ie != nil {
		e.cause = ie.Value
	}
	r.events = append(r.events, e)
}

func (r *testRec) ind(ev EventType) IndF {
	return func(c *Call, ies *IESet) {
		r.add(testEvent{ev: ev, call: c, ies: ies.Clone()})
		if f := r.hooks[ev]; f != nil {
			f(c, ies)
		}
	}
}

func (r *testRec) conf(ev EventType) ConfF {
	return func(c *Call, ies *IESet, st ConfirmStatus) {
		r.add(testEvent{ev: ev, call: c, ies: ies.Clone(), st: st})
		if f := r.hooks[ev]; f != nil {
			f(c, ies)
		}
	}
}

func (r *testRec) callbacks() *Callbacks {
	return &Callbacks{
		AlertingInd:      r.ind(EvAlertingInd),
		ConnectInd:       r.ind(EvConnectInd),
		DisconnectInd:    r.ind(EvDisconnectInd),
		InfoInd:          r.ind(EvInfoInd),
		MoreInfoInd:      r.ind(EvMoreInfoInd),
		NotifyInd:        r.ind(EvNotifyInd),
		ProceedingInd:    r.ind(EvProceedingInd),
		ProgressInd:      r.ind(EvProgressInd),
		RejectInd:        r.ind(EvRejectInd),
		ReleaseConf:      r.conf(EvReleaseConf),
		ReleaseInd:       r.ind(EvReleaseInd),
		ResumeConf:       r.conf(EvResumeConf),
		ResumeInd:        r.ind(EvResumeInd),
		SetupCompleteInd: r.ind(EvSetupCompleteInd),
		SetupInd:         r.ind(EvSetupInd),
		StatusInd:        r.ind(EvStatusInd),
		SuspendConf:      r.conf(EvSuspendConf),
		SuspendInd:       r.ind(EvSuspendInd),
		ErrorInd: func(c *Call, err error) {
			r.add(testEvent{ev: EvErrorInd, call: c})
		},
		TimeoutInd: func(c *Call, timer string) {
			r.add(testEvent{ev: EvTimeoutInd, call: c, timer: timer})
		},
		ConnectChannel: func(ch *Channel) {
			r.chConn = append(r.chConn, ch.ID)
		},
		DisconnectChannel: func(ch *Channel) {
			r.chDisc = append(r.chDisc, ch.ID)
		},
		StartTone: func(c *Call, t ToneType) {
			r.tones = append(r.tones, t)
		},
		StopTone: func(c *Call) {
			r.tones = append(r.tones, ToneNone)
		},
		ManagementRestartConf: func(intf *Intf, chans ChanSet,
			st ConfirmStatus) {
			r.restarts = append(r.restarts, testRestart{chans, st})
		},
		TimeoutManagementInd: func(intf *Intf, timer string) {
			r.mgmtTO = append(r.mgmtTO, timer)
		},
		StatusManagementInd: func(intf *Intf, ies *IESet) {
			r.mgmtStat++
		},
	}
}

// count returns how many times ev was reported.
func (r *testRec) count(ev EventType) int {
	n := 0
	for i := range r.events {
		if r.events[i].ev == ev {
			n++
		}
	}
	return n
}

// last returns the last ev reported or nil.
func (r *testRec) last(ev EventType) *testEvent {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].ev == ev {
			return &r.events[i]
		}
	}
	return nil
}

func (r *testRec) types() []EventType {
	t := []EventType{}
	for i := range r.events {
		t = append(t, r.events[i].ev)
	}
	return t
}

func (r *testRec) reset() {
	r.events = nil
}

// testEnv is one interface of a library instance driven synchronously:
// frames are injected with Lib.Receive and time moves only on advance.
type testEnv struct {
	t     *testing.T
	clock *testClock
	rec   *testRec
	lib   *Lib
	intf  *Intf
	dl    *testDL
	dlc   *DLC
	bcDL  *testDL // multipoint network side only
	bcDLC *DLC
	peer  IECtx // coding context of the peer side
}

func teBRA() IntfConfig {
	return IntfConfig{Name: "te0", Role: RoleTE, Type: IntfBRA}
}

func ntBRA() IntfConfig {
	return IntfConfig{Name: "nt0", Role: RoleNT, Type: IntfBRA,
		NetRole: NetRoleLocal}
}

func ntPRA() IntfConfig {
	return IntfConfig{Name: "nt1", Role: RoleNT, Type: IntfPRA,
		NetRole: NetRoleLocal}
}

func ntPtMP() IntfConfig {
	ic := ntBRA()
	ic.Name = "ntmp"
	ic.Multipoint = true
	return ic
}

func newTestEnv(t *testing.T, ic IntfConfig) *testEnv {
	e := &testEnv{t: t, clock: newTestClock(), rec: newTestRec()}
	lib, err := NewLib(nil, e.rec.callbacks(), e.clock.now)
	require.NoError(t, err)
	e.lib = lib
	e.intf, err = lib.OpenIntf(&ic)
	require.NoError(t, err)
	e.peer = IECtx{IntfType: e.intf.Type, Dir: e.intf.recvCtx.Dir}
	if e.intf.broadcastSetup() {
		e.bcDL = &testDL{}
		e.bcDLC = e.intf.AttachBroadcast(e.bcDL)
		return e
	}
	e.dl = &testDL{}
	e.dlc = e.intf.AttachDatalink(e.dl)
	lib.Receive(e.dlc, DLEstablishConf, nil)
	return e
}

// addTEI attaches and establishes a terminal datalink (multipoint
// network side).
func (e *testEnv) addTEI(tei int) (*DLC, *testDL) {
	dl := &testDL{}
	d := e.intf.AttachTEI(tei, dl)
	e.lib.Receive(d, DLEstablishInd, nil)
	return d, dl
}

// sentOn returns the messages sent on dl since the last call.
func (e *testEnv) sentOn(dl *testDL) []*Message {
	ctx := IECtx{IntfType: e.intf.Type, Dir: e.intf.sendCtx.Dir}
	r := []*Message{}
	for _, f := range dl.frames {
		m, err := ParseMessage(&ctx, f)
		require.Equal(e.t, ErrMsgOk, err, "parse sent frame % x", f)
		require.False(e.t, m.UnknownMsg, "sent frame % x", f)
		r = append(r, m)
	}
	dl.frames = nil
	return r
}

// expectSentOn checks the types of the messages sent on dl since the
// last call and returns them.
func (e *testEnv) expectSentOn(dl *testDL, types ...MsgType) []*Message {
	ms := e.sentOn(dl)
	got := []MsgType{}
	for _, m := range ms {
		got = append(got, m.Type)
	}
	require.Equal(e.t, append([]MsgType{}, types...), got)
	return ms
}

func (e *testEnv) expectSent(types ...MsgType) []*Message {
	return e.expectSentOn(e.dl, types...)
}

// frame encodes a message as sent by the peer.
func (e *testEnv) frame(t MsgType, cr CallRef, ies ...IE) []byte {
	b, err := NewMessage(t, cr, ies...).Encode(&e.peer, 0, nil)
	require.NoError(e.t, err)
	return b
}

func (e *testEnv) recvOn(d *DLC, t MsgType, cr CallRef, ies ...IE) {
	e.lib.Receive(d, DLDataInd, e.frame(t, cr, ies...))
}

func (e *testEnv) recv(t MsgType, cr CallRef, ies ...IE) {
	e.recvOn(e.dlc, t, cr, ies...)
}

// advance moves the clock and runs the expired timers.
func (e *testEnv) advance(d time.Duration) {
	e.clock.off += d
	e.lib.RunTimers()
}

// timer returns the configured value of the timer id.
func (e *testEnv) timer(id TimerID) time.Duration {
	return e.intf.timer(id)
}

// expire advances the clock past the timer id.
func (e *testEnv) expire(id TimerID) {
	e.advance(e.timer(id))
}

// peerCR returns the call reference used by the peer for c.
func peerCR(c *Call) CallRef {
	return CallRef{Value: c.CallRef, Len: c.crLen,
		Flag: c.Dir == CallDirOutbound}
}

// newCR returns a call reference for a call started by the peer.
func (e *testEnv) newCR(v uint32) CallRef {
	return CallRef{Value: v, Len: uint8(e.intf.CRLen)}
}

func causeIE(c Cause) *IECause {
	return NewIECause(LocUser, c)
}

// setup starts an outbound call to digits.
func (e *testEnv) setup(digits string, extra ...IE) *Call {
	c, err := e.intf.NewCall(nil)
	require.NoError(e.t, err)
	var ies IESet
	ies.Add(NewBearerCapSpeech(true))
	ies.Add(NewIECalledNumber(digits))
	for _, ie := range extra {
		ies.Add(ie)
	}
	require.NoError(e.t, c.SetupRequest(&ies))
	return c
}

// incoming delivers a SETUP from the peer and returns the new call.
func (e *testEnv) incoming(cr uint32, ies ...IE) *Call {
	all := []IE{NewBearerCapSpeech(true)}
	if e.intf.Role == RoleTE {
		all = append(all, NewIEChannelID(e.intf.Type, true, 1))
	}
	all = append(all, ies...)
	e.recv(MsgSetup, e.newCR(cr), all...)
	ev := e.rec.last(EvSetupInd)
	require.NotNil(e.t, ev, "no setup indication")
	return ev.call
}

// active brings an outbound call to the active state.
func (e *testEnv) active(digits string) *Call {
	c := e.setup(digits)
	e.recv(MsgConnect, peerCR(c), NewIEChannelID(e.intf.Type, true, 1))
	require.Equal(e.t, c.st(U10Active, N8ConnectRequest), c.State)
	if c.State == N8ConnectRequest {
		require.NoError(e.t, c.SetupCompleteRequest(nil))
	}
	e.sent()
	e.rec.reset()
	return c
}

func (e *testEnv) sent() []*Message {
	return e.sentOn(e.dl)
}
