// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Lib is a Q.931 library instance: the interfaces, the timer engine and
// the dispatch loop. All the protocol processing (frames, timers,
// requests) runs on a single goroutine: the one calling Run(), or the
// caller of the synchronous Receive / RunTimers / Do functions when
// Run() is not used.
type Lib struct {
	cfg   Config
	cb    Callbacks
	te    TimerEngine
	intfs []*Intf
	dlcs  []*DLC

	reqs    chan request
	dlEvs   chan dlEvent
	stop    chan struct{}
	running int32
	readers sync.WaitGroup
}

// Request is a primitive request submitted from another goroutine.
type Request struct {
	Prim  Primitive
	Call  *Call       // target call, nil for a new SETUP / RESUME
	Intf  *Intf       // interface for new calls and RESTART
	Pvt   interface{} // owner data for new calls
	IEs   IESet
	Chans ChanSet // RESTART channels
}

type result struct {
	c   *Call
	err error
}

type request struct {
	req  Request
	fn   func() error // internal requests
	done chan<- result
}

// NewLib creates a library instance and opens the configured
// interfaces. cb may be nil. clock is used by the timer engine
// (nil: the system clock).
func NewLib(cfg *Config, cb *Callbacks, clock ClockF) (*Lib, error) {
	l := &Lib{}
	if cfg != nil {
		l.cfg = *cfg
		l.cfg.Interfaces = nil
	}
	if err := l.cfg.Validate(); err != nil {
		return nil, err
	}
	if cb != nil {
		l.cb = *cb
	}
	l.te.Init(clock)
	l.reqs = make(chan request, l.cfg.QueueLen)
	l.dlEvs = make(chan dlEvent, l.cfg.QueueLen)
	l.stop = make(chan struct{})
	if cfg != nil {
		for i := range cfg.Interfaces {
			ic := cfg.Interfaces[i]
			if _, err := l.OpenIntf(&ic); err != nil {
				return nil, err
			}
		}
	}
	return l, nil
}

// OpenIntf validates ic and creates a new interface.
func (l *Lib) OpenIntf(ic *IntfConfig) (*Intf, error) {
	if err := ic.Validate(); err != nil {
		return nil, err
	}
	if l.Intf(ic.Name) != nil {
		return nil, errors.Wrapf(ErrIntfExists, "%q", ic.Name)
	}
	intf := newIntf(l, ic)
	l.intfs = append(l.intfs, intf)
	l.cfg.Interfaces = append(l.cfg.Interfaces, *ic)
	if DBGon() {
		DBG("opened interface %s: %s %s ptmp %v\n", intf.Name, intf.Role,
			intf.Type, intf.PtMP)
	}
	return intf, nil
}

// Intf returns the interface named name or nil.
func (l *Lib) Intf(name string) *Intf {
	for _, intf := range l.intfs {
		if intf.Name == name {
			return intf
		}
	}
	return nil
}

// Intfs returns all the interfaces.
func (l *Lib) Intfs() []*Intf {
	return l.intfs
}

// Timers returns the library timer engine.
func (l *Lib) Timers() *TimerEngine {
	return &l.te
}

func (l *Lib) addDLC(d *DLC) {
	l.dlcs = append(l.dlcs, d)
	if atomic.LoadInt32(&l.running) != 0 {
		l.startReader(d)
	}
}

// startReader feeds the primitives received on d to the dispatch loop.
func (l *Lib) startReader(d *DLC) {
	l.readers.Add(1)
	go func() {
		defer l.readers.Done()
		for {
			prim, frame, err := d.dl.Recv()
			if err != nil {
				if DBGon() {
					DBG("datalink %s reader exiting: %s\n", d, err)
				}
				return
			}
			select {
			case l.dlEvs <- dlEvent{dlc: d, prim: prim, frame: frame}:
			case <-l.stop:
				return
			}
		}
	}()
}

// Receive processes a datalink primitive synchronously (when the
// dispatch loop is not used).
func (l *Lib) Receive(d *DLC, prim DLPrimitive, frame []byte) {
	d.intf.dlEvent(d, prim, frame)
}

// RunTimers fires the expired timers and returns the delay until the
// next deadline (false if no timer is armed).
func (l *Lib) RunTimers() (time.Duration, bool) {
	return l.te.RunDue()
}

// Do executes a request. It must be called from the dispatch goroutine
// (e.g. from a callback). For new SETUP / RESUME requests the created
// call is returned.
func (l *Lib) Do(req *Request) (*Call, error) {
	if req.Prim == PrimRestart {
		if req.Intf == nil {
			return nil, errors.Wrap(ErrNoDLC, "restart without interface")
		}
		return nil, req.Intf.RestartRequest(req.Chans)
	}
	c := req.Call
	if c == nil {
		if req.Intf == nil ||
			(req.Prim != PrimSetup && req.Prim != PrimResume) {
			return nil, errors.Wrapf(ErrUnexpectedState,
				"%s without call", req.Prim)
		}
		var err error
		if c, err = req.Intf.NewCall(req.Pvt); err != nil {
			return nil, err
		}
	}
	ies := &req.IEs
	var err error
	switch req.Prim {
	case PrimAlerting:
		err = c.AlertingRequest(ies)
	case PrimDisconnect:
		err = c.DisconnectRequest(ies)
	case PrimInfo:
		err = c.InfoRequest(ies)
	case PrimMoreInfo:
		err = c.MoreInfoRequest(ies)
	case PrimNotify:
		err = c.NotifyRequest(ies)
	case PrimProceeding:
		err = c.ProceedingRequest(ies)
	case PrimProgress:
		err = c.ProgressRequest(ies)
	case PrimReject:
		err = c.RejectRequest(ies)
	case PrimRelease:
		err = c.ReleaseRequest(ies)
	case PrimResume:
		err = c.ResumeRequest(ies)
	case PrimResumeReject:
		err = c.ResumeReject(ies)
	case PrimResumeResponse:
		err = c.ResumeResponse(ies)
	case PrimSetup:
		err = c.SetupRequest(ies)
	case PrimSetupComplete:
		err = c.SetupCompleteRequest(ies)
	case PrimSetupResponse:
		err = c.SetupResponse(ies)
	case PrimStatusEnquiry:
		err = c.StatusEnquiryRequest(ies)
	case PrimSuspend:
		err = c.SuspendRequest(ies)
	case PrimSuspendReject:
		err = c.SuspendReject(ies)
	case PrimSuspendResponse:
		err = c.SuspendResponse(ies)
	case PrimUnref:
		c.Unref()
	default:
		err = c.unexpectedPrim(req.Prim)
	}
	if err != nil && req.Call == nil {
		// new call not started
		if !c.Released() {
			c.toNull()
		}
		return nil, err
	}
	return c, err
}

// Post queues a request for the dispatch loop without waiting.
func (l *Lib) Post(req Request) error {
	if atomic.LoadInt32(&l.running) == 0 {
		return ErrLibStopped
	}
	select {
	case l.reqs <- request{req: req}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Submit queues a request for the dispatch loop and waits for its
// result.
func (l *Lib) Submit(ctx context.Context, req Request) (*Call, error) {
	return l.submit(ctx, request{req: req})
}

func (l *Lib) submit(ctx context.Context, r request) (*Call, error) {
	if atomic.LoadInt32(&l.running) == 0 {
		return nil, ErrLibStopped
	}
	done := make(chan result, 1)
	r.done = done
	select {
	case l.reqs <- r:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.stop:
		return nil, ErrLibStopped
	}
	select {
	case res := <-done:
		return res.c, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Lib) exec(r request) {
	var res result
	if r.fn != nil {
		res.err = r.fn()
	} else {
		res.c, res.err = l.Do(&r.req)
		if res.err != nil && r.done == nil {
			WARN("request %s failed: %s\n", r.req.Prim, res.err)
		}
	}
	if r.done != nil {
		r.done <- res
	}
}

// ActiveCalls returns the number of calls not in the null state on all
// the interfaces. Dispatch goroutine only.
func (l *Lib) ActiveCalls() int {
	n := 0
	for _, intf := range l.intfs {
		n += intf.ActiveCalls()
	}
	return n
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// idle wait when no timer is armed
const idleWait = time.Hour

// Run runs the dispatch loop until ctx is cancelled. On cancellation
// the calls are drained (bounded by the configured drain timeout).
func (l *Lib) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&l.running, 0, 1) {
		return errors.New("dispatch loop already running")
	}
	for _, d := range l.dlcs {
		l.startReader(d)
	}
	tm := time.NewTimer(idleWait)
	defer tm.Stop()
	for {
		next, ok := l.te.RunDue()
		if !ok {
			next = idleWait
		}
		resetTimer(tm, next)
		select {
		case ev := <-l.dlEvs:
			ev.dlc.intf.dlEvent(ev.dlc, ev.prim, ev.frame)
		case r := <-l.reqs:
			l.exec(r)
		case <-tm.C:
		case <-ctx.Done():
			dctx, cancel := context.WithTimeout(context.Background(),
				l.cfg.DrainTimeout)
			err := l.drain(dctx)
			cancel()
			l.shutdown()
			return err
		}
	}
}

func (l *Lib) shutdown() {
	atomic.StoreInt32(&l.running, 0)
	close(l.stop)
	// fail the queued requests
	for {
		select {
		case r := <-l.reqs:
			if r.done != nil {
				r.done <- result{err: ErrLibStopped}
			}
		default:
			return
		}
	}
}

// Drain clears all the calls and waits until they reach the null state
// or ctx is done. With the dispatch loop running it is executed by the
// loop.
func (l *Lib) Drain(ctx context.Context) error {
	if atomic.LoadInt32(&l.running) != 0 {
		_, err := l.submit(ctx, request{fn: func() error {
			return l.drain(ctx)
		}})
		return err
	}
	return l.drain(ctx)
}

// drain runs on the dispatch goroutine, processing datalink events and
// timers until all the calls are cleared.
func (l *Lib) drain(ctx context.Context) error {
	for _, intf := range l.intfs {
		for _, c := range intf.calls.Snapshot() {
			if c.State.Null() {
				continue
			}
			c.evGen = EvGenPrim
			c.clear(CauseNormalCallClearing)
		}
	}
	tm := time.NewTimer(idleWait)
	defer tm.Stop()
	for l.ActiveCalls() != 0 {
		next, ok := l.te.RunDue()
		if l.ActiveCalls() == 0 {
			break
		}
		if !ok {
			next = idleWait
		}
		resetTimer(tm, next)
		select {
		case ev := <-l.dlEvs:
			ev.dlc.intf.dlEvent(ev.dlc, ev.prim, ev.frame)
		case <-tm.C:
		case <-ctx.Done():
			WARN("drain: %d calls still active\n", l.ActiveCalls())
			return ErrDrainTimeout
		}
	}
	return nil
}

// Close closes all the datalinks and waits for the reader goroutines.
// It must be called after Run returned.
func (l *Lib) Close() error {
	var first error
	for _, d := range l.dlcs {
		if err := d.dl.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "close %s", d)
		}
	}
	l.readers.Wait()
	return first
}
