// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

// GlobalState is the state of the global call reference (restart
// procedures).
type GlobalState uint8

const (
	GlobalNull           GlobalState = iota // REST0
	GlobalRestartRequest                    // REST1, restart sent
	GlobalRestart                           // REST2, restart received
)

var globalSt2String = [...]string{
	GlobalNull:           "REST0 null",
	GlobalRestartRequest: "REST1 restart request",
	GlobalRestart:        "REST2 restart",
}

var globalSt2Code = [...]uint8{
	GlobalNull:           0,
	GlobalRestartRequest: 0x3d,
	GlobalRestart:        0x3e,
}

func (s GlobalState) String() string {
	if int(s) >= len(globalSt2String) {
		return "invalid"
	}
	return globalSt2String[s]
}

// Code returns the Q.931 call state value.
func (s GlobalState) Code() uint8 {
	if int(s) >= len(globalSt2Code) {
		return 0xff
	}
	return globalSt2Code[s]
}

const (
	gT316 = iota
	gT317
	gTimersNo
)

// GlobalCall is the call reference 0 pseudo call of an interface.
type GlobalCall struct {
	intf     *Intf
	State    GlobalState
	ReqChans ChanSet // requested channels (empty: whole interface)
	AckChans ChanSet // acknowledged channels
	class    uint8
	acked    bool
	pending  int // calls still clearing
	t316Retr int
	dlc      *DLC
	ies      IESet // sent RESTART
	timers   [gTimersNo]Timer
}

type globalTimer struct {
	g   *GlobalCall
	idx int
}

func globalTimerExpired(t *Timer, data interface{}) {
	gt := data.(globalTimer)
	gt.g.timerExpired(gt.idx)
}

func (g *GlobalCall) init(intf *Intf) {
	g.intf = intf
	g.State = GlobalNull
	g.timers[gT316].Init(T316.String(), globalTimerExpired,
		globalTimer{g, gT316})
	g.timers[gT317].Init(T317.String(), globalTimerExpired,
		globalTimer{g, gT317})
}

func (g *GlobalCall) startTimer(idx int, id TimerID) {
	g.intf.te.Start(&g.timers[idx], g.intf.timer(id))
}

func (g *GlobalCall) stopTimers() {
	for i := range g.timers {
		g.intf.te.Stop(&g.timers[i])
	}
}

// Pending returns the number of calls the restart procedure waits for.
func (g *GlobalCall) Pending() int {
	return g.pending
}

func (g *GlobalCall) setState(s GlobalState) {
	if DBGon() && s != g.State {
		DBG("%s: global %s -> %s\n", g.intf.Name, g.State, s)
	}
	g.State = s
}

func (g *GlobalCall) callRef() CallRef {
	return CallRef{Value: 0, Len: uint8(g.intf.CRLen)}
}

func (g *GlobalCall) send(d *DLC, t MsgType, ies *IESet) error {
	return g.intf.sendMsg(d, t, g.callRef(), ies)
}

// restartIEs returns the Restart Indicator and the Channel
// Identification for chans (empty: whole interface).
func restartIEs(t IntfType, chans *ChanSet) IESet {
	var ies IESet
	if chans.Empty() {
		ies.Add(&IERestartInd{Class: RestartSingleIntf})
		return ies
	}
	ies.Add(NewIEChannelID(t, true, chans.Chans()...))
	ies.Add(&IERestartInd{Class: RestartIndicated})
	return ies
}

// affected returns true if the call c uses one of the channels in
// chans (empty: all calls).
func affected(c *Call, chans *ChanSet) bool {
	if chans.Empty() {
		return true
	}
	return c.Channel != nil && chans.Contains(c.Channel.ID)
}

// RestartRequest starts the restart procedure for chans (or the whole
// interface if chans is empty). The result is reported through the
// ManagementRestartConf callback.
func (intf *Intf) RestartRequest(chans ChanSet) error {
	g := &intf.Global
	if g.State != GlobalNull {
		return ErrRestartPending
	}
	for _, id := range chans.Chans() {
		if intf.Channel(id) == nil {
			return ErrNoChannel
		}
	}
	d := intf.dlcForGlobal()
	ies := restartIEs(intf.Type, &chans)
	if err := g.send(d, MsgRestart, &ies); err != nil {
		return err
	}
	intf.Stats.inc(&intf.Stats.Restarts, intf.Stats.hRestarts)
	g.ReqChans = chans
	g.AckChans.Reset()
	g.ies = ies
	g.dlc = d
	g.acked = false
	g.pending = 0
	g.t316Retr = 0
	g.setState(GlobalRestartRequest)
	g.startTimer(gT316, T316)
	g.startTimer(gT317, T317)

	for _, c := range intf.calls.Snapshot() {
		if c.State.Null() || !affected(c, &chans) {
			continue
		}
		c.evGen = EvGenRestart
		c.Flags |= CFRestart
		g.pending++
		if c.broadcastPending() {
			c.abortBroadcast(CauseTemporaryFailure)
		} else {
			c.releaseInd(CauseTemporaryFailure)
		}
	}
	intf.dropSuspendedChans(&chans, EvGenRestart)
	return nil
}

// callCleared is called when a call cleared by a restart reached the
// null state.
func (g *GlobalCall) callCleared(c *Call) {
	c.Flags &^= CFRestart
	if g.pending > 0 {
		g.pending--
	}
	if g.State == GlobalRestartRequest && g.acked && g.pending == 0 {
		g.complete(ConfirmOk)
	}
}

// complete ends a locally started restart.
func (g *GlobalCall) complete(st ConfirmStatus) {
	g.stopTimers()
	chans := g.AckChans
	if st == ConfirmOk {
		g.releaseChans(&chans)
	}
	g.setState(GlobalNull)
	if f := g.intf.cb.ManagementRestartConf; f != nil {
		f(g.intf, chans, st)
	}
}

// releaseChans frees the restarted channels not used by a call.
func (g *GlobalCall) releaseChans(chans *ChanSet) {
	for _, ch := range g.intf.Channels {
		if ch.call == nil && (chans.Empty() || chans.Contains(ch.ID)) {
			ch.release()
		}
	}
}

func (g *GlobalCall) timeoutInd(id TimerID) {
	if f := g.intf.cb.TimeoutManagementInd; f != nil {
		f(g.intf, id.String())
	}
}

func (g *GlobalCall) timerExpired(idx int) {
	intf := g.intf
	intf.Stats.inc(&intf.Stats.TimerExp, intf.Stats.hTimerExp)
	if g.State != GlobalRestartRequest {
		return
	}
	switch idx {
	case gT316:
		g.timeoutInd(T316)
		if g.t316Retr < intf.T316Retr {
			g.t316Retr++
			err := g.send(g.dlc, MsgRestart, &g.ies)
			if err == nil {
				g.startTimer(gT316, T316)
				return
			}
			ERR("%s: RESTART retransmission: %s\n", intf.Name, err)
		}
		g.AckChans.Reset()
		g.complete(ConfirmError)
	case gT317:
		g.timeoutInd(T317)
		if g.AckChans.Empty() && !g.acked {
			g.complete(ConfirmError)
			return
		}
		g.complete(ConfirmOk)
	}
}

// recv processes a message received with the global call reference.
func (g *GlobalCall) recv(d *DLC, m *Message) {
	intf := g.intf
	if e, ok := m.IEErr(); ok && e.Kind.Fatal() {
		intf.Stats.inc(&intf.Stats.IEErrors, intf.Stats.hIEErr)
		g.replyStatus(d, m, e.Kind.Cause())
		return
	}
	switch m.Type {
	case MsgRestart:
		g.recvRestart(d, m)
	case MsgRestartAck:
		if g.State != GlobalRestartRequest {
			intf.unexpected("RESTART ACKNOWLEDGE in %s\n", g.State)
			g.replyStatus(d, m, CauseWrongMessage)
			return
		}
		if ie := m.IEs.ChannelID(); ie != nil && !ie.Chans.Empty() {
			g.AckChans = ie.Chans
		} else {
			g.AckChans = g.ReqChans
		}
		g.acked = true
		intf.te.Stop(&g.timers[gT316])
		if g.pending == 0 {
			g.complete(ConfirmOk)
		}
	case MsgStatus:
		if f := intf.cb.StatusManagementInd; f != nil {
			f(intf, &m.IEs)
		}
	case MsgStatusEnquiry:
		g.replyStatus(d, m, CauseResponseToStatusEnquiry)
	default:
		intf.unexpected("message %s with the global call reference\n",
			m.Type)
		g.replyStatus(d, m, CauseInvalidCallReference)
	}
}

func (g *GlobalCall) replyStatus(d *DLC, m *Message, cause Cause) {
	var ies IESet
	ies.Add(NewIECause(CauseLocation(CallDirInbound, g.intf.NetRole,
		g.intf.Role), cause))
	ies.Add(&IECallState{Value: g.State.Code()})
	g.intf.replyMsg(d, m, MsgStatus, &ies)
}

// recvRestart clears the calls on the restarted channels and
// acknowledges.
func (g *GlobalCall) recvRestart(d *DLC, m *Message) {
	intf := g.intf
	if g.State == GlobalRestart {
		return
	}
	ri := m.IEs.RestartInd()
	var chans ChanSet
	if ri != nil && ri.Class == RestartIndicated {
		ie := m.IEs.ChannelID()
		if ie == nil {
			g.replyStatus(d, m, CauseMandatoryIEMissing)
			return
		}
		chans = ie.Chans
	}
	for _, id := range chans.Chans() {
		if intf.Channel(id) == nil {
			g.replyStatus(d, m, CauseInvalidIEContents)
			return
		}
	}
	prev := g.State
	g.State = GlobalRestart
	intf.Stats.inc(&intf.Stats.Restarts, intf.Stats.hRestarts)
	for _, c := range intf.calls.Snapshot() {
		if c.State.Null() || !affected(c, &chans) {
			continue
		}
		c.evGen = EvGenRestart
		c.releaseInd(CauseTemporaryFailure)
	}
	intf.dropSuspendedChans(&chans, EvGenRestart)
	g.releaseChans(&chans)
	ies := restartIEs(intf.Type, &chans)
	if ri != nil && ri.Class == RestartAllIntfs {
		ies.Set(&IERestartInd{Class: RestartAllIntfs})
	}
	intf.replyMsg(d, m, MsgRestartAck, &ies)
	g.State = prev
}
