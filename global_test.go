// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// globalCR returns the global call reference as sent by the peer.
func (e *testEnv) globalCR(flag bool) CallRef {
	return CallRef{Value: 0, Len: uint8(e.intf.CRLen), Flag: flag}
}

func TestRestartRequestAck(t *testing.T) {
	e := newTestEnv(t, ntPRA())
	c := e.active("100")
	require.NotNil(t, c.Channel)
	assert.Equal(t, 1, c.Channel.ID)

	require.NoError(t, e.intf.RestartRequest(NewChanSet(1, 2)))
	assert.Equal(t, GlobalRestartRequest, e.intf.Global.State)
	assert.Equal(t, uint64(1), e.intf.Stats.Restarts.Get())
	ms := e.expectSent(MsgRestart)
	assert.True(t, ms[0].CallRef.Global())
	require.NotNil(t, ms[0].IEs.ChannelID())
	assert.Equal(t, []int{1, 2}, ms[0].IEs.ChannelID().Chans.Chans())
	require.NotNil(t, ms[0].IEs.RestartInd())
	assert.Equal(t, uint8(RestartIndicated), ms[0].IEs.RestartInd().Class)

	// the call on channel 1 is cleared locally
	assert.True(t, c.Released())
	ev := e.rec.last(EvReleaseInd)
	require.NotNil(t, ev)
	assert.Equal(t, CauseTemporaryFailure, ev.cause)
	assert.Equal(t, 0, e.intf.Global.Pending())
	assert.Empty(t, e.rec.restarts)

	e.recv(MsgRestartAck, e.globalCR(true),
		NewIEChannelID(IntfPRA, true, 1, 2),
		&IERestartInd{Class: RestartIndicated})
	require.Len(t, e.rec.restarts, 1)
	r := e.rec.restarts[0]
	assert.Equal(t, ConfirmOk, r.st)
	assert.Equal(t, []int{1, 2}, r.chans.Chans())
	assert.Equal(t, GlobalNull, e.intf.Global.State)
	assert.Equal(t, ChanAvailable, e.intf.Channel(1).State)
	assert.Equal(t, 0, e.lib.Timers().Pending())
	assert.Empty(t, e.rec.mgmtTO)
	assert.Empty(t, e.sent())
}

func TestRestartRequestAckNoChannels(t *testing.T) {
	e := newTestEnv(t, ntPRA())
	require.NoError(t, e.intf.RestartRequest(NewChanSet(3)))
	e.expectSent(MsgRestart)

	// acknowledged without Channel ID: the requested channels
	e.recv(MsgRestartAck, e.globalCR(true),
		&IERestartInd{Class: RestartIndicated})
	require.Len(t, e.rec.restarts, 1)
	assert.Equal(t, ConfirmOk, e.rec.restarts[0].st)
	assert.Equal(t, []int{3}, e.rec.restarts[0].chans.Chans())
}

func TestRestartWholeInterface(t *testing.T) {
	e := newTestEnv(t, teBRA())
	c1 := e.active("100")
	c2 := e.setup("200")
	e.sent()

	require.NoError(t, e.intf.RestartRequest(ChanSet{}))
	ms := e.expectSent(MsgRestart)
	assert.Nil(t, ms[0].IEs.ChannelID())
	assert.Equal(t, uint8(RestartSingleIntf), ms[0].IEs.RestartInd().Class)
	assert.True(t, c1.Released())
	assert.True(t, c2.Released())
	assert.Equal(t, 2, e.rec.count(EvReleaseInd))

	e.recv(MsgRestartAck, e.globalCR(true),
		&IERestartInd{Class: RestartSingleIntf})
	require.Len(t, e.rec.restarts, 1)
	assert.Equal(t, ConfirmOk, e.rec.restarts[0].st)
	assert.True(t, e.rec.restarts[0].chans.Empty())
	assert.Equal(t, 0, e.intf.ActiveCalls())
}

func TestRestartT316(t *testing.T) {
	e := newTestEnv(t, ntBRA())
	require.Equal(t, DefaultT316Retrans, e.intf.T316Retr)
	// T317 outlasts the retransmissions
	require.Greater(t, e.timer(T317),
		time.Duration(DefaultT316Retrans+1)*e.timer(T316))

	require.NoError(t, e.intf.RestartRequest(NewChanSet(1)))
	e.expectSent(MsgRestart)

	for i := 0; i < DefaultT316Retrans; i++ {
		e.expire(T316)
		ms := e.expectSent(MsgRestart)
		assert.Equal(t, []int{1}, ms[0].IEs.ChannelID().Chans.Chans())
		assert.Empty(t, e.rec.restarts)
	}
	e.expire(T316)
	e.expectSent()
	require.Len(t, e.rec.restarts, 1)
	assert.Equal(t, ConfirmError, e.rec.restarts[0].st)
	assert.True(t, e.rec.restarts[0].chans.Empty())
	assert.Equal(t, []string{"T316", "T316", "T316"}, e.rec.mgmtTO)
	assert.Equal(t, GlobalNull, e.intf.Global.State)
	assert.Equal(t, 0, e.lib.Timers().Pending())
}

func TestRestartAckAfterRetransmission(t *testing.T) {
	e := newTestEnv(t, teBRA())
	require.NoError(t, e.intf.RestartRequest(NewChanSet(2)))
	e.expectSent(MsgRestart)
	e.expire(T316)
	e.expectSent(MsgRestart)

	e.recv(MsgRestartAck, e.globalCR(true),
		NewIEChannelID(IntfBRA, true, 2),
		&IERestartInd{Class: RestartIndicated})
	require.Len(t, e.rec.restarts, 1)
	assert.Equal(t, ConfirmOk, e.rec.restarts[0].st)
	assert.Equal(t, []int{2}, e.rec.restarts[0].chans.Chans())
	assert.Equal(t, []string{"T316"}, e.rec.mgmtTO)
	assert.Equal(t, 0, e.lib.Timers().Pending())
}

func TestRestartTimers(t *testing.T) {
	tests := []struct {
		name   string
		timers map[string]uint
		retr   int
		t317   time.Duration
	}{
		{"defaults", nil, 0, 390 * time.Second},
		{"longer T316", map[string]uint{"T316": 200}, 0, 630 * time.Second},
		{"more retransmissions", nil, 4, 630 * time.Second},
		{"configured T317", map[string]uint{"T317": 30}, 0, 30 * time.Second},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ic := ntBRA()
			ic.Timers = tc.timers
			ic.T316Retrans = tc.retr
			e := newTestEnv(t, ic)
			assert.Equal(t, tc.t317, e.timer(T317))
		})
	}
}

func TestRestartT317(t *testing.T) {
	ic := teBRA()
	ic.Timers = map[string]uint{"T317": 30}
	e := newTestEnv(t, ic)
	require.Equal(t, 30*time.Second, e.timer(T317))
	require.True(t, e.timer(T317) < e.timer(T316))

	require.NoError(t, e.intf.RestartRequest(ChanSet{}))
	e.expectSent(MsgRestart)
	e.expire(T317)
	require.Len(t, e.rec.restarts, 1)
	assert.Equal(t, ConfirmError, e.rec.restarts[0].st)
	assert.True(t, e.rec.restarts[0].chans.Empty())
	assert.Equal(t, []string{"T317"}, e.rec.mgmtTO)
	assert.Equal(t, 0, e.lib.Timers().Pending())

	// a late acknowledge is unexpected
	e.recv(MsgRestartAck, e.globalCR(true),
		&IERestartInd{Class: RestartSingleIntf})
	ms := e.expectSent(MsgStatus)
	assert.Equal(t, CauseWrongMessage, ms[0].IEs.Cause().Value)
	assert.Len(t, e.rec.restarts, 1)
}

func TestRestartSuspendedCalls(t *testing.T) {
	e := newTestEnv(t, ntBRA())
	c := e.active("100")
	c.Pvt = "owner"
	e.suspended(c, "7A")
	require.Len(t, e.intf.Suspended(), 1)
	require.Equal(t, ChanDisconnected, e.intf.Channel(1).State)

	// another channel: the suspended call is kept
	require.NoError(t, e.intf.RestartRequest(NewChanSet(2)))
	e.expectSent(MsgRestart)
	e.recv(MsgRestartAck, e.globalCR(true),
		NewIEChannelID(IntfBRA, true, 2),
		&IERestartInd{Class: RestartIndicated})
	assert.Len(t, e.intf.Suspended(), 1)
	assert.Equal(t, ChanDisconnected, e.intf.Channel(1).State)
	assert.Equal(t, 0, e.rec.count(EvReleaseInd))

	require.NoError(t, e.intf.RestartRequest(ChanSet{}))
	e.expectSent(MsgRestart)
	assert.Empty(t, e.intf.Suspended())
	assert.Equal(t, uint64(0), e.intf.Stats.Suspended.Get())
	ev := e.rec.last(EvReleaseInd)
	require.NotNil(t, ev)
	assert.Same(t, c, ev.call)
	assert.Equal(t, "owner", ev.call.Pvt)
	assert.Equal(t, CauseTemporaryFailure, ev.cause)
	assert.Equal(t, ChanAvailable, e.intf.Channel(1).State)

	// T307 was stopped, nothing more is reported
	e.recv(MsgRestartAck, e.globalCR(true),
		&IERestartInd{Class: RestartSingleIntf})
	e.expire(T307)
	assert.Equal(t, 1, e.rec.count(EvReleaseInd))
	assert.Equal(t, 0, e.lib.Timers().Pending())

	e.recv(MsgResume, e.newCR(3), callID("7A"))
	ms := e.expectSent(MsgResumeReject)
	assert.Equal(t, CauseNoCallSuspended, ms[0].IEs.Cause().Value)
}

func TestPeerRestartSuspendedCalls(t *testing.T) {
	e := newTestEnv(t, ntBRA())
	c := e.active("100")
	e.suspended(c, "7A")

	e.recv(MsgRestart, e.globalCR(false),
		NewIEChannelID(IntfBRA, true, 2),
		&IERestartInd{Class: RestartIndicated})
	e.expectSent(MsgRestartAck)
	assert.Len(t, e.intf.Suspended(), 1)

	e.recv(MsgRestart, e.globalCR(false),
		NewIEChannelID(IntfBRA, true, 1),
		&IERestartInd{Class: RestartIndicated})
	e.expectSent(MsgRestartAck)
	assert.Empty(t, e.intf.Suspended())
	ev := e.rec.last(EvReleaseInd)
	require.NotNil(t, ev)
	assert.Same(t, c, ev.call)
	assert.Equal(t, CauseTemporaryFailure, ev.cause)
	assert.Equal(t, ChanAvailable, e.intf.Channel(1).State)
	assert.Nil(t, e.intf.Channel(1).Call())
}

func TestRestartRequestErrors(t *testing.T) {
	e := newTestEnv(t, teBRA())
	err := e.intf.RestartRequest(NewChanSet(5))
	assert.Equal(t, ErrNoChannel, err)
	assert.Equal(t, GlobalNull, e.intf.Global.State)
	assert.Empty(t, e.sent())

	require.NoError(t, e.intf.RestartRequest(NewChanSet(2)))
	assert.Equal(t, ErrRestartPending, e.intf.RestartRequest(ChanSet{}))
	assert.Equal(t, ErrRestartPending, e.intf.RestartRequest(NewChanSet(1)))
	e.expectSent(MsgRestart)
}

func TestPeerRestart(t *testing.T) {
	e := newTestEnv(t, teBRA())
	c := e.active("100")
	require.Equal(t, 1, c.Channel.ID)

	e.recv(MsgRestart, e.globalCR(false),
		NewIEChannelID(IntfBRA, true, 1),
		&IERestartInd{Class: RestartIndicated})
	assert.True(t, c.Released())
	ev := e.rec.last(EvReleaseInd)
	require.NotNil(t, ev)
	assert.Equal(t, CauseTemporaryFailure, ev.cause)
	assert.Equal(t, ChanAvailable, e.intf.Channel(1).State)
	assert.Nil(t, e.intf.Channel(1).Call())

	ms := e.expectSent(MsgRestartAck)
	assert.True(t, ms[0].CallRef.Global())
	assert.True(t, ms[0].CallRef.Flag)
	require.NotNil(t, ms[0].IEs.ChannelID())
	assert.Equal(t, []int{1}, ms[0].IEs.ChannelID().Chans.Chans())
	assert.Equal(t, uint8(RestartIndicated), ms[0].IEs.RestartInd().Class)
	assert.Equal(t, GlobalNull, e.intf.Global.State)
	assert.Equal(t, uint64(1), e.intf.Stats.Restarts.Get())
}

func TestPeerRestartOtherChannel(t *testing.T) {
	e := newTestEnv(t, teBRA())
	c := e.active("100")

	e.recv(MsgRestart, e.globalCR(false),
		NewIEChannelID(IntfBRA, true, 2),
		&IERestartInd{Class: RestartIndicated})
	assert.False(t, c.Released())
	assert.Equal(t, U10Active, c.State)
	e.expectSent(MsgRestartAck)
}

func TestPeerRestartAllInterfaces(t *testing.T) {
	e := newTestEnv(t, ntBRA())
	c := e.active("100")

	e.recv(MsgRestart, e.globalCR(false),
		&IERestartInd{Class: RestartAllIntfs})
	assert.True(t, c.Released())
	ms := e.expectSent(MsgRestartAck)
	assert.Nil(t, ms[0].IEs.ChannelID())
	assert.Equal(t, uint8(RestartAllIntfs), ms[0].IEs.RestartInd().Class)
}

func TestPeerRestartErrors(t *testing.T) {
	e := newTestEnv(t, teBRA())

	// channels indicated but no Channel ID
	e.recv(MsgRestart, e.globalCR(false),
		&IERestartInd{Class: RestartIndicated})
	ms := e.expectSent(MsgStatus)
	assert.Equal(t, CauseMandatoryIEMissing, ms[0].IEs.Cause().Value)

	// restart indicator missing
	e.recv(MsgRestart, e.globalCR(false))
	ms = e.expectSent(MsgStatus)
	assert.Equal(t, CauseMandatoryIEMissing, ms[0].IEs.Cause().Value)
	assert.Equal(t, uint8(0), ms[0].IEs.CallState().Value)
	assert.Equal(t, uint64(0), e.intf.Stats.Restarts.Get())
}

func TestGlobalCallRef(t *testing.T) {
	e := newTestEnv(t, teBRA())

	e.recv(MsgStatusEnquiry, e.globalCR(false))
	ms := e.expectSent(MsgStatus)
	assert.Equal(t, CauseResponseToStatusEnquiry, ms[0].IEs.Cause().Value)
	assert.Equal(t, GlobalNull.Code(), ms[0].IEs.CallState().Value)
	assert.True(t, ms[0].CallRef.Global())

	e.recv(MsgStatus, e.globalCR(false),
		causeIE(CauseNormalUnspecified), &IECallState{Value: 0})
	assert.Empty(t, e.sent())
	assert.Equal(t, 1, e.rec.mgmtStat)

	e.recv(MsgAlerting, e.globalCR(false))
	ms = e.expectSent(MsgStatus)
	assert.Equal(t, CauseInvalidCallReference, ms[0].IEs.Cause().Value)
	assert.Equal(t, uint64(1), e.intf.Stats.Unexpected.Get())
}

func TestGlobalState(t *testing.T) {
	assert.Equal(t, uint8(0), GlobalNull.Code())
	assert.Equal(t, uint8(0x3d), GlobalRestartRequest.Code())
	assert.Equal(t, uint8(0x3e), GlobalRestart.Code())
	assert.Equal(t, "invalid", GlobalState(10).String())
	assert.Equal(t, uint8(0xff), GlobalState(10).Code())
}
