// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"sync/atomic"

	"github.com/intuitivelabs/counters"
)

// StatCounter is an atomic statistics counter.
type StatCounter uint64

func (c *StatCounter) Inc(v uint) uint64 {
	return atomic.AddUint64((*uint64)(c), uint64(v))
}

func (c *StatCounter) Dec(v uint) uint64 {
	return atomic.AddUint64((*uint64)(c), ^uint64(v-1))
}

func (c *StatCounter) Get() uint64 {
	return atomic.LoadUint64((*uint64)(c))
}

// IntfStats holds the per interface statistics. The values are kept in
// StatCounters and mirrored in a counters.Group named after the
// interface.
type IntfStats struct {
	Active     StatCounter
	Created    StatCounter
	Freed      StatCounter
	RxFrames   StatCounter
	TxFrames   StatCounter
	Malformed  StatCounter
	IEErrors   StatCounter
	Unexpected StatCounter // unexpected (state, event) pairs
	TimerExp   StatCounter
	Restarts   StatCounter
	Suspended  StatCounter
	States     [CallStNumber]StatCounter

	grp        *counters.Group
	hActive    counters.Handle
	hCreated   counters.Handle
	hFreed     counters.Handle
	hRx        counters.Handle
	hTx        counters.Handle
	hMalformed counters.Handle
	hIEErr     counters.Handle
	hUnexp     counters.Handle
	hTimerExp  counters.Handle
	hRestarts  counters.Handle
	hSuspended counters.Handle
	hState     [CallStNumber]counters.Handle
}

// Init registers the counters group "q931_<name>".
func (s *IntfStats) Init(name string) {
	// sanity checks
	if len(callSt2String) != int(CallStNumber) ||
		len(callSt2Name) != int(CallStNumber) ||
		len(callSt2Code) != int(CallStNumber) {
		Log.PANIC("bad state code, string or name arrays sizes\n")
	}
	cntDefs := [...]counters.Def{
		{&s.hActive, counters.CntMaxF, nil, nil, "active",
			"current calls"},
		{&s.hCreated, 0, nil, nil, "created", "created calls"},
		{&s.hFreed, 0, nil, nil, "freed", "freed calls"},
		{&s.hRx, 0, nil, nil, "rx_frames", "received frames"},
		{&s.hTx, 0, nil, nil, "tx_frames", "sent frames"},
		{&s.hMalformed, 0, nil, nil, "malformed",
			"dropped malformed frames"},
		{&s.hIEErr, 0, nil, nil, "ie_errors",
			"messages with information element errors"},
		{&s.hUnexp, 0, nil, nil, "unexpected",
			"unexpected events for the current state"},
		{&s.hTimerExp, 0, nil, nil, "timer_exp", "expired timers"},
		{&s.hRestarts, 0, nil, nil, "restarts", "restart procedures"},
		{&s.hSuspended, counters.CntMaxF, nil, nil, "suspended",
			"currently suspended calls"},
	}
	entries := 100 // extra space for the per state counters
	if entries < len(cntDefs)+int(CallStNumber) {
		entries = len(cntDefs) + int(CallStNumber)
	}
	gname := "q931_" + name
	s.grp = counters.NewGroup(gname, nil, entries)
	if s.grp == nil {
		// group name already registered (e.g. re-opened interface)
		s.grp = &counters.Group{}
		s.grp.Init(gname, nil, entries)
	}
	if !s.grp.RegisterDefs(cntDefs[:]) {
		Log.PANIC("IntfStats.Init: failed to register counters\n")
	}
	for i := 0; i < len(s.hState); i++ {
		if i == int(CallStNone) {
			// no counter for the "place-holder" state
			s.hState[i] = counters.Invalid
			continue
		}
		def := counters.Def{
			&s.hState[i], counters.CntMaxF, nil, nil,
			CallState(i).Name(),
			CallState(i).String(),
		}
		if _, ok := s.grp.RegisterDef(&def); !ok {
			Log.PANIC("IntfStats.Init: failed to register state counters\n")
		}
	}
}

func (s *IntfStats) inc(c *StatCounter, h counters.Handle) {
	c.Inc(1)
	if s.grp != nil {
		s.grp.Inc(h)
	}
}

func (s *IntfStats) set(c *StatCounter, h counters.Handle, v uint64) {
	atomic.StoreUint64((*uint64)(c), v)
	if s.grp != nil {
		s.grp.Set(h, counters.Val(v))
	}
}

func (s *IntfStats) callCreated(st CallState) {
	s.inc(&s.Created, s.hCreated)
	s.set(&s.Active, s.hActive, s.Active.Get()+1)
	s.stateEnter(st)
}

func (s *IntfStats) callFreed(st CallState) {
	s.inc(&s.Freed, s.hFreed)
	s.set(&s.Active, s.hActive, s.Active.Get()-1)
	s.stateChange(st, CallStNone)
}

func (s *IntfStats) stateChange(from, to CallState) {
	if from < CallStNumber && from != CallStNone {
		s.set(&s.States[from], s.hState[from], s.States[from].Get()-1)
	}
	s.stateEnter(to)
}

func (s *IntfStats) stateEnter(st CallState) {
	if st < CallStNumber && st != CallStNone {
		s.set(&s.States[st], s.hState[st], s.States[st].Get()+1)
	}
}
