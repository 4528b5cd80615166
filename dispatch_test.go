// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownCallRef(t *testing.T) {
	tests := []struct {
		name  string
		t     MsgType
		flag  bool
		ies   []IE
		reply MsgType // 0: no answer
		cause Cause
	}{
		{"alerting", MsgAlerting, true, nil,
			MsgReleaseComplete, CauseInvalidCallReference},
		{"disconnect", MsgDisconnect, true,
			[]IE{causeIE(CauseNormalCallClearing)},
			MsgReleaseComplete, CauseInvalidCallReference},
		{"setup flag", MsgSetup, true,
			[]IE{NewBearerCapSpeech(true), NewIEChannelID(IntfBRA, true, 1)},
			MsgReleaseComplete, CauseInvalidCallReference},
		{"status null", MsgStatus, false,
			[]IE{causeIE(CauseNormalUnspecified), &IECallState{Value: 0}},
			0, CauseNone},
		{"status", MsgStatus, false,
			[]IE{causeIE(CauseNormalUnspecified), &IECallState{Value: 10}},
			MsgReleaseComplete, CauseWrongMessage},
		{"release complete", MsgReleaseComplete, false, nil, 0, CauseNone},
		{"status enquiry", MsgStatusEnquiry, false, nil,
			MsgStatus, CauseResponseToStatusEnquiry},
		{"resume user side", MsgResume, false, nil,
			MsgReleaseComplete, CauseInvalidCallReference},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t, teBRA())
			cr := e.newCR(9)
			cr.Flag = tc.flag
			e.recv(tc.t, cr, tc.ies...)
			if tc.reply == 0 {
				e.expectSent()
				return
			}
			ms := e.expectSent(tc.reply)
			assert.Equal(t, uint32(9), ms[0].CallRef.Value)
			assert.Equal(t, !tc.flag, ms[0].CallRef.Flag)
			require.NotNil(t, ms[0].IEs.Cause())
			assert.Equal(t, tc.cause, ms[0].IEs.Cause().Value)
			if tc.reply == MsgStatus {
				require.NotNil(t, ms[0].IEs.CallState())
				assert.Equal(t, uint8(0), ms[0].IEs.CallState().Value)
			}
			assert.Empty(t, e.intf.Calls())
		})
	}
}

func TestUnknownCallRefResumeFlag(t *testing.T) {
	e := newTestEnv(t, ntBRA())
	cr := e.newCR(9)
	cr.Flag = true
	e.recv(MsgResume, cr)
	ms := e.expectSent(MsgReleaseComplete)
	assert.Equal(t, CauseInvalidCallReference, ms[0].IEs.Cause().Value)
	assert.Equal(t, 0, e.rec.count(EvResumeInd))
}

func TestUnknownMessageType(t *testing.T) {
	e := newTestEnv(t, teBRA())

	// no call
	e.lib.Receive(e.dlc, DLDataInd, []byte{ProtoDiscr, 1, 0x89, 0x7f})
	ms := e.expectSent(MsgReleaseComplete)
	assert.Equal(t, CauseInvalidCallReference, ms[0].IEs.Cause().Value)
	assert.False(t, ms[0].CallRef.Flag)

	c := e.active("100")
	e.lib.Receive(e.dlc, DLDataInd,
		[]byte{ProtoDiscr, 1, 0x80 | byte(c.CallRef), 0x7f})
	ms = e.expectSent(MsgStatus)
	assert.Equal(t, CauseMsgTypeNonExistent, ms[0].IEs.Cause().Value)
	assert.Equal(t, U10Active.Code(), ms[0].IEs.CallState().Value)
	assert.Equal(t, U10Active, c.State)
	assert.Equal(t, uint64(1), e.intf.Stats.Unexpected.Get())
}

func TestMalformedFrame(t *testing.T) {
	frames := map[string][]byte{
		"short":     {ProtoDiscr},
		"pd":        {0x09, 1, 0x01, byte(MsgSetup)},
		"cr len":    {ProtoDiscr, 5, 0, 0, 0, 0, 1, byte(MsgSetup)},
		"dummy cr":  {ProtoDiscr, 0, byte(MsgSetup)},
		"type":      {ProtoDiscr, 1, 0x01, 0x85},
		"truncated": {ProtoDiscr, 1, 0x01, byte(MsgSetup), 0x04, 0x03, 0x80},
	}
	e := newTestEnv(t, teBRA())
	n := uint64(0)
	for name, f := range frames {
		e.lib.Receive(e.dlc, DLDataInd, f)
		n++
		assert.Equal(t, n, e.intf.Stats.Malformed.Get(), name)
		assert.Empty(t, e.sent(), name)
	}
	assert.Empty(t, e.intf.Calls())
	assert.Equal(t, 0, e.rec.count(EvSetupInd))
}

func TestDatalinkReleaseActive(t *testing.T) {
	e := newTestEnv(t, teBRA())
	c := e.active("100")

	e.lib.Receive(e.dlc, DLReleaseInd, nil)
	assert.Equal(t, DLCReleased, e.dlc.Status)
	assert.Equal(t, U10Active, c.State)
	assert.True(t, c.TimerPending(T309))

	e.lib.Receive(e.dlc, DLEstablishInd, nil)
	assert.False(t, c.TimerPending(T309))
	ms := e.expectSent(MsgStatus)
	assert.Equal(t, CauseNormalUnspecified, ms[0].IEs.Cause().Value)
	assert.Equal(t, U10Active.Code(), ms[0].IEs.CallState().Value)
	assert.Equal(t, 0, e.rec.count(EvReleaseInd))
}

func TestDatalinkT309(t *testing.T) {
	e := newTestEnv(t, ntBRA())
	c := e.active("100")

	e.lib.Receive(e.dlc, DLReleaseInd, nil)
	require.True(t, c.TimerPending(T309))
	e.expire(T309)
	assert.True(t, c.Released())
	ev := e.rec.last(EvReleaseInd)
	require.NotNil(t, ev)
	assert.Equal(t, CauseTemporaryFailure, ev.cause)
	assert.Empty(t, e.sent())
	assert.Equal(t, ChanAvailable, e.intf.Channel(1).State)
}

func TestDatalinkReleaseSetup(t *testing.T) {
	e := newTestEnv(t, teBRA())
	c := e.setup("100")
	e.expectSent(MsgSetup)

	e.lib.Receive(e.dlc, DLReleaseInd, nil)
	assert.True(t, c.Released())
	ev := e.rec.last(EvReleaseInd)
	require.NotNil(t, ev)
	assert.Equal(t, CauseTemporaryFailure, ev.cause)
	assert.False(t, c.TimerPending(T303))
}

func TestDatalinkEstablishOnSend(t *testing.T) {
	e := newTestEnv(t, teBRA())
	e.lib.Receive(e.dlc, DLReleaseInd, nil)

	c := e.setup("100")
	assert.Equal(t, 1, e.dl.estReqs)
	assert.Equal(t, DLCAwaitingEstablish, e.dlc.Status)
	assert.Empty(t, e.sent())
	assert.Equal(t, U1CallInitiated, c.State)

	e.lib.Receive(e.dlc, DLEstablishConf, nil)
	assert.Equal(t, DLCEstablished, e.dlc.Status)
	ms := e.expectSent(MsgSetup)
	assert.Equal(t, c.CallRef, ms[0].CallRef.Value)
}

func TestFrameStats(t *testing.T) {
	e := newTestEnv(t, teBRA())
	e.active("100")
	// SETUP and CONNECT ACKNOWLEDGE sent, CONNECT received
	assert.Equal(t, uint64(2), e.intf.Stats.TxFrames.Get())
	assert.Equal(t, uint64(1), e.intf.Stats.RxFrames.Get())
}

func TestSendFailure(t *testing.T) {
	e := newTestEnv(t, teBRA())
	e.dl.sendErr = ErrDatalinkClosed
	c, err := e.intf.NewCall(nil)
	require.NoError(t, err)
	var ies IESet
	ies.Add(NewBearerCapSpeech(true))
	ies.Add(NewIECalledNumber("100"))
	err = c.SetupRequest(&ies)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDatalinkClosed)
	assert.Equal(t, U0Null, c.State)
	assert.False(t, c.TimerPending(T303))
	assert.Equal(t, uint64(0), e.intf.Stats.TxFrames.Get())

	e.dl.sendErr = nil
	require.NoError(t, c.SetupRequest(&ies))
	assert.Equal(t, U1CallInitiated, c.State)
	assert.True(t, c.TimerPending(T303))
	assert.Equal(t, uint64(1), e.intf.Stats.TxFrames.Get())
	e.expectSent(MsgSetup)
}
