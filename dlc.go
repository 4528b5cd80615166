// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// DLPrimitive is a datalink layer primitive, as seen by Q.931.
type DLPrimitive uint8

const (
	DLNone DLPrimitive = iota
	DLEstablishInd
	DLEstablishConf
	DLReleaseInd
	DLReleaseConf
	DLDataInd
	DLUnitDataInd
)

var dlPrim2String = [...]string{
	DLNone:          "none",
	DLEstablishInd:  "DL-ESTABLISH-IND",
	DLEstablishConf: "DL-ESTABLISH-CONF",
	DLReleaseInd:    "DL-RELEASE-IND",
	DLReleaseConf:   "DL-RELEASE-CONF",
	DLDataInd:       "DL-DATA-IND",
	DLUnitDataInd:   "DL-UNIT-DATA-IND",
}

func (p DLPrimitive) String() string {
	if int(p) >= len(dlPrim2String) {
		return "invalid"
	}
	return dlPrim2String[p]
}

// Datalink is the LAPD service used by an interface.
// Send and SendUnitData must not keep frame after returning.
// Establish and Release are asynchronous: the result is reported by Recv
// (DLEstablishConf / DLReleaseConf). Recv blocks until the next primitive
// is available and returns an error once the datalink is closed.
type Datalink interface {
	Send(frame []byte) error
	SendUnitData(frame []byte) error
	Establish() error
	Release() error
	Recv() (DLPrimitive, []byte, error)
	Close() error
}

// ErrDatalinkClosed is returned by a closed PipeDatalink.
var ErrDatalinkClosed = errors.New("datalink closed")

// DLCStatus is the multiple frame operation status of a DLC.
type DLCStatus uint8

const (
	DLCReleased DLCStatus = iota
	DLCAwaitingEstablish
	DLCEstablished
	DLCAwaitingRelease
)

var dlcSt2String = [...]string{
	DLCReleased:          "released",
	DLCAwaitingEstablish: "awaiting establish",
	DLCEstablished:       "established",
	DLCAwaitingRelease:   "awaiting release",
}

func (s DLCStatus) String() string {
	if int(s) >= len(dlcSt2String) {
		return "invalid"
	}
	return dlcSt2String[s]
}

// DLC is a datalink connection of an interface: the point-to-point link,
// the broadcast link or one per-TEI link on a multipoint network side.
type DLC struct {
	intf      *Intf
	dl        Datalink
	TEI       int
	Broadcast bool
	Status    DLCStatus

	queue [][]byte // I-frames waiting for the link establishment
}

func (d *DLC) String() string {
	if d == nil {
		return "nil-dlc"
	}
	if d.Broadcast {
		return d.intf.Name + "/bc"
	}
	return d.intf.Name + "/" + strconv.Itoa(d.TEI)
}

// Intf returns the interface the DLC belongs to.
func (d *DLC) Intf() *Intf {
	return d.intf
}

// send transmits a frame. The broadcast DLC uses unacknowledged
// information transfer. On the other DLCs the frame is queued until the
// link is established (establishing it if needed).
func (d *DLC) send(frame []byte) error {
	if d.Broadcast {
		return d.dl.SendUnitData(frame)
	}
	switch d.Status {
	case DLCEstablished:
		return d.dl.Send(frame)
	case DLCReleased, DLCAwaitingRelease:
		if err := d.dl.Establish(); err != nil {
			return errors.Wrapf(err, "dlc %s establish", d)
		}
		d.Status = DLCAwaitingEstablish
	}
	d.queue = append(d.queue, append([]byte(nil), frame...))
	return nil
}

// flush sends the queued frames.
func (d *DLC) flush() {
	q := d.queue
	d.queue = nil
	for _, f := range q {
		if err := d.dl.Send(f); err != nil {
			ERR("dlc %s: failed to send queued frame: %s\n", d, err)
		}
	}
}

// PipeDatalink is an in-process Datalink. Two PipeDatalinks created by
// NewPipeDatalink are connected back to back: frames sent on one are
// received by the other.
type PipeDatalink struct {
	peer *PipeDatalink
	rx   chan dlEvent

	mu          sync.Mutex
	established bool
	closed      bool
	done        chan struct{}
}

type dlEvent struct {
	dlc   *DLC
	prim  DLPrimitive
	frame []byte
	err   error
}

// NewPipeDatalink returns a connected datalink pair. qlen is the maximum
// number of pending primitives on each side.
func NewPipeDatalink(qlen int) (*PipeDatalink, *PipeDatalink) {
	if qlen <= 0 {
		qlen = 64
	}
	a := &PipeDatalink{rx: make(chan dlEvent, qlen),
		done: make(chan struct{})}
	b := &PipeDatalink{rx: make(chan dlEvent, qlen),
		done: make(chan struct{})}
	a.peer = b
	b.peer = a
	return a, b
}

func (p *PipeDatalink) deliver(prim DLPrimitive, frame []byte) error {
	select {
	case p.rx <- dlEvent{prim: prim, frame: frame}:
		return nil
	case <-p.done:
		return ErrDatalinkClosed
	}
}

func (p *PipeDatalink) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *PipeDatalink) setEstablished(v bool) {
	p.mu.Lock()
	p.established = v
	p.mu.Unlock()
}

func (p *PipeDatalink) Send(frame []byte) error {
	if p.isClosed() {
		return ErrDatalinkClosed
	}
	p.mu.Lock()
	est := p.established
	p.mu.Unlock()
	if !est {
		return errors.New("pipe datalink: not established")
	}
	return p.peer.deliver(DLDataInd, append([]byte(nil), frame...))
}

func (p *PipeDatalink) SendUnitData(frame []byte) error {
	if p.isClosed() {
		return ErrDatalinkClosed
	}
	return p.peer.deliver(DLUnitDataInd, append([]byte(nil), frame...))
}

func (p *PipeDatalink) Establish() error {
	if p.isClosed() {
		return ErrDatalinkClosed
	}
	p.setEstablished(true)
	p.peer.setEstablished(true)
	if err := p.peer.deliver(DLEstablishInd, nil); err != nil {
		return err
	}
	return p.deliver(DLEstablishConf, nil)
}

func (p *PipeDatalink) Release() error {
	if p.isClosed() {
		return ErrDatalinkClosed
	}
	p.setEstablished(false)
	p.peer.setEstablished(false)
	if err := p.peer.deliver(DLReleaseInd, nil); err != nil {
		return err
	}
	return p.deliver(DLReleaseConf, nil)
}

func (p *PipeDatalink) Recv() (DLPrimitive, []byte, error) {
	select {
	case ev := <-p.rx:
		return ev.prim, ev.frame, nil
	case <-p.done:
		return DLNone, nil, ErrDatalinkClosed
	}
}

func (p *PipeDatalink) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	return nil
}
