// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Role is the protocol role of an interface.
type Role uint8

const (
	RoleTE Role = iota // user side (terminal equipment)
	RoleNT             // network side (network termination)
)

func (r Role) String() string {
	if r == RoleNT {
		return "NT"
	}
	return "TE"
}

// IntfType is the ISDN access type.
type IntfType uint8

const (
	IntfBRA IntfType = iota // basic rate (2B+D)
	IntfPRA                 // primary rate (E1, 30B+D)
)

func (t IntfType) String() string {
	if t == IntfPRA {
		return "PRA"
	}
	return "BRA"
}

// NetRole is the position of a network side interface, used for the
// location of the generated causes.
type NetRole uint8

const (
	NetRoleUser NetRole = iota
	NetRolePrivate
	NetRoleLocal
	NetRoleTransit
	NetRoleIntl
)

var netRole2String = [...]string{
	NetRoleUser:    "user",
	NetRolePrivate: "private",
	NetRoleLocal:   "local",
	NetRoleTransit: "transit",
	NetRoleIntl:    "international",
}

func (n NetRole) String() string {
	if int(n) >= len(netRole2String) {
		return "invalid"
	}
	return netRole2String[n]
}

// CallDir is the call reference namespace of a call: outbound calls use
// call references allocated locally, inbound calls the peer allocated
// ones.
type CallDir uint8

const (
	CallDirOutbound CallDir = iota
	CallDirInbound
)

func (d CallDir) String() string {
	if d == CallDirInbound {
		return "in"
	}
	return "out"
}

// TimerID identifies a Q.931 timer.
type TimerID uint8

const (
	T301 TimerID = iota
	T302
	T303
	T304
	T305
	T306
	T307
	T308
	T309
	T310
	T312
	T313
	T316
	T317
	T318
	T319
	T322
	TimerNumber
)

var timer2Name = [TimerNumber]string{
	"T301", "T302", "T303", "T304", "T305", "T306", "T307", "T308",
	"T309", "T310", "T312", "T313", "T316", "T317", "T318", "T319",
	"T322",
}

func (t TimerID) String() string {
	if t >= TimerNumber {
		return "T" + strconv.Itoa(int(t)) + "?"
	}
	return timer2Name[t]
}

// default timer values, indexed by role
var defaultTimers = [2][TimerNumber]time.Duration{
	RoleTE: {
		T301: 180 * time.Second,
		T302: 15 * time.Second,
		T303: 4 * time.Second,
		T304: 30 * time.Second,
		T305: 30 * time.Second,
		T306: 30 * time.Second,
		T307: 180 * time.Second,
		T308: 4 * time.Second,
		T309: 90 * time.Second,
		T310: 30 * time.Second,
		T312: 6 * time.Second,
		T313: 4 * time.Second,
		T316: 120 * time.Second,
		T317: 390 * time.Second, // > (DefaultT316Retrans + 1) * T316
		T318: 4 * time.Second,
		T319: 4 * time.Second,
		T322: 4 * time.Second,
	},
	RoleNT: {
		T301: 180 * time.Second,
		T302: 15 * time.Second,
		T303: 4 * time.Second,
		T304: 20 * time.Second,
		T305: 30 * time.Second,
		T306: 30 * time.Second,
		T307: 180 * time.Second,
		T308: 4 * time.Second,
		T309: 90 * time.Second,
		T310: 10 * time.Second,
		T312: 6 * time.Second,
		T313: 4 * time.Second,
		T316: 120 * time.Second,
		T317: 390 * time.Second, // > (DefaultT316Retrans + 1) * T316
		T318: 4 * time.Second,
		T319: 4 * time.Second,
		T322: 4 * time.Second,
	},
}

// DefaultTimer returns the protocol default value of timer t for role r.
func DefaultTimer(r Role, t TimerID) time.Duration {
	if t >= TimerNumber {
		return 0
	}
	return defaultTimers[r&1][t]
}

// IntfFlags are per interface options.
type IntfFlags uint8

const (
	IntfTonesOption      IntfFlags = 1 << iota // NT provides in-band tones
	IntfOverlapReceiving                       // accept incomplete numbers
	IntfCLIR                                   // TE: restrict own number
	IntfHideRestricted                         // NT: drop restricted numbers
)

// Intf is one ISDN interface: its datalinks, B-channels and calls.
// All the methods must be called from the goroutine running the library
// dispatch loop (or before it is started).
type Intf struct {
	Name     string
	Role     Role
	Type     IntfType
	PtMP     bool // multipoint (BRA only)
	NetRole  NetRole
	CRLen    int // call reference length for outbound calls
	Flags    IntfFlags
	T316Retr int // RESTART retransmissions before giving up
	Timers   [TimerNumber]time.Duration

	Channels []*Channel
	Global   GlobalCall
	Stats    IntfStats

	lib   *Lib
	te    *TimerEngine
	cb    *Callbacks
	calls CallLst
	susp  SuspendedLst
	dlc   *DLC   // point-to-point or TE datalink
	bcast *DLC   // NT multipoint broadcast datalink
	dlcs  []*DLC // NT multipoint per TEI datalinks

	nextCR  uint32
	recvCtx IECtx
	sendCtx IECtx
}

// newIntf creates an interface from a validated configuration.
func newIntf(l *Lib, cfg *IntfConfig) *Intf {
	intf := &Intf{
		Name:     cfg.Name,
		Role:     cfg.Role,
		Type:     cfg.Type,
		PtMP:     cfg.Multipoint,
		NetRole:  cfg.NetRole,
		CRLen:    cfg.CallRefLen,
		T316Retr: cfg.T316Retrans,
		lib:      l,
		te:       &l.te,
		cb:       &l.cb,
	}
	if cfg.TonesOption {
		intf.Flags |= IntfTonesOption
	}
	if cfg.OverlapReceiving {
		intf.Flags |= IntfOverlapReceiving
	}
	if cfg.CLIR {
		intf.Flags |= IntfCLIR
	}
	if cfg.HideRestricted {
		intf.Flags |= IntfHideRestricted
	}
	for t := T301; t < TimerNumber; t++ {
		intf.Timers[t] = DefaultTimer(intf.Role, t)
	}
	t317Set := false
	for name, v := range cfg.Timers {
		if t, ok := TimerFromName([]byte(name)); ok && v != 0 {
			intf.Timers[t] = time.Duration(v) * time.Second
			t317Set = t317Set || t == T317
		}
	}
	// unless configured, T317 outlasts all the RESTART retransmissions
	if all := time.Duration(intf.T316Retr+1) * intf.Timers[T316]; !t317Set &&
		intf.Timers[T317] <= all {
		intf.Timers[T317] = all + 30*time.Second
	}
	intf.recvCtx.IntfType = intf.Type
	intf.sendCtx.IntfType = intf.Type
	if intf.Role == RoleNT {
		intf.recvCtx.Dir = DirUtoN
		intf.sendCtx.Dir = DirNtoU
	} else {
		intf.recvCtx.Dir = DirNtoU
		intf.sendCtx.Dir = DirUtoN
	}
	intf.calls.Init()
	intf.susp.Init()
	intf.initChannels()
	intf.Global.init(intf)
	intf.Stats.Init(intf.Name)
	return intf
}

func (intf *Intf) String() string {
	return intf.Name
}

// multipoint network side: SETUP is broadcast and answered on per TEI
// datalinks
func (intf *Intf) broadcastSetup() bool {
	return intf.Role == RoleNT && intf.PtMP
}

func (intf *Intf) timer(t TimerID) time.Duration {
	return intf.Timers[t]
}

func (intf *Intf) newDLC(dl Datalink, tei int, bcast bool) *DLC {
	d := &DLC{intf: intf, dl: dl, TEI: tei, Broadcast: bcast}
	if bcast {
		d.Status = DLCEstablished
	}
	intf.lib.addDLC(d)
	return d
}

// AttachDatalink sets the point-to-point datalink (or, on the user side,
// the terminal own datalink).
func (intf *Intf) AttachDatalink(dl Datalink) *DLC {
	intf.dlc = intf.newDLC(dl, 0, false)
	return intf.dlc
}

// AttachBroadcast sets the broadcast datalink of a multipoint network
// side interface.
func (intf *Intf) AttachBroadcast(dl Datalink) *DLC {
	intf.bcast = intf.newDLC(dl, 127, true)
	return intf.bcast
}

// AttachTEI adds the datalink of one terminal on a multipoint network
// side interface.
func (intf *Intf) AttachTEI(tei int, dl Datalink) *DLC {
	d := intf.newDLC(dl, tei, false)
	intf.dlcs = append(intf.dlcs, d)
	return d
}

// DLCs returns all the datalink connections of the interface.
func (intf *Intf) DLCs() []*DLC {
	var r []*DLC
	if intf.dlc != nil {
		r = append(r, intf.dlc)
	}
	if intf.bcast != nil {
		r = append(r, intf.bcast)
	}
	return append(r, intf.dlcs...)
}

// dlcForGlobal returns the datalink used for the global call reference
// procedures started locally.
func (intf *Intf) dlcForGlobal() *DLC {
	if intf.broadcastSetup() && intf.bcast != nil {
		return intf.bcast
	}
	return intf.dlc
}

// maxCallRef returns the highest call reference value for the configured
// call reference length.
func (intf *Intf) maxCallRef() uint32 {
	return uint32(1)<<uint(8*intf.CRLen-1) - 1
}

// allocCallRef returns a free outbound call reference. Values wrap
// around, skipping 0 (global) and the ones in use.
func (intf *Intf) allocCallRef() (uint32, error) {
	max := intf.maxCallRef()
	for i := uint32(0); i < max; i++ {
		intf.nextCR++
		if intf.nextCR > max || intf.nextCR == 0 {
			intf.nextCR = 1
		}
		if intf.calls.Find(intf.nextCR, CallDirOutbound, nil) == nil {
			return intf.nextCR, nil
		}
	}
	return 0, ErrNoCallRef
}

// findCall looks up a call by call reference and direction. On the
// multipoint network side the inbound call references are per TEI.
func (intf *Intf) findCall(cr uint32, dir CallDir, d *DLC) *Call {
	if dir != CallDirInbound || !intf.broadcastSetup() {
		d = nil
	}
	return intf.calls.Find(cr, dir, d)
}

// NewCall creates an outbound call in the null state, ready for a
// SETUP or RESUME request. pvt is an opaque owner pointer.
func (intf *Intf) NewCall(pvt interface{}) (*Call, error) {
	if !intf.broadcastSetup() && intf.dlc == nil {
		return nil, ErrNoDLC
	}
	cr, err := intf.allocCallRef()
	if err != nil {
		return nil, err
	}
	c := intf.newCall(cr, intf.CRLen, CallDirOutbound, intf.dlc)
	c.Pvt = pvt
	c.Flags |= CFOutbound
	return c, nil
}

// Calls returns the calls currently linked to the interface.
func (intf *Intf) Calls() []*Call {
	r := make([]*Call, 0, intf.calls.Len())
	intf.calls.ForEach(func(c *Call) bool {
		r = append(r, c)
		return true
	})
	return r
}

// ActiveCalls returns the number of calls not in the null state.
func (intf *Intf) ActiveCalls() int {
	n := 0
	intf.calls.ForEach(func(c *Call) bool {
		if !c.State.Null() {
			n++
		}
		return true
	})
	return n
}

// sendMsg encodes a message and sends it on d. Information elements not
// allowed in the message are dropped.
func (intf *Intf) sendMsg(d *DLC, t MsgType, cr CallRef,
	ies *IESet) error {
	if d == nil {
		return ErrNoDLC
	}
	m := Message{CallRef: cr, Type: t, Dir: intf.sendCtx.Dir}
	if ies != nil {
		for i := 0; i < ies.Len(); i++ {
			ie := ies.At(i)
			if raw, ok := ie.(*IERaw); ok && raw.Codeset != 0 {
				m.IEs.Add(ie)
				continue
			}
			if IEPresenceIn(t, intf.sendCtx.Dir, ie.ID()) == IENotAllowed {
				if DBGon() {
					DBG("%s: dropping %s from %s\n", intf.Name, ie.ID(), t)
				}
				continue
			}
			m.IEs.Add(ie)
		}
	}
	buf := allocFrame(MaxMsgSize)
	frame, err := m.Encode(&intf.sendCtx, 0, buf)
	if err != nil {
		freeFrame(buf)
		return errors.Wrapf(err, "%s: encode %s", intf.Name, t)
	}
	if DBGon() {
		DBG("%s: sending %s cr %s on %s\n", intf.Name, t, cr, d)
	}
	err = d.send(frame)
	freeFrame(frame)
	if err != nil {
		return errors.Wrapf(err, "%s: send %s on %s", intf.Name, t, d)
	}
	intf.Stats.inc(&intf.Stats.TxFrames, intf.Stats.hTx)
	return nil
}

// replyMsg answers a message received for an unknown call reference.
func (intf *Intf) replyMsg(d *DLC, m *Message, t MsgType, ies *IESet) {
	cr := CallRef{Value: m.CallRef.Value, Len: m.CallRef.Len,
		Flag: !m.CallRef.Flag}
	if err := intf.sendMsg(d, t, cr, ies); err != nil {
		ERR("%s: reply %s to %s failed: %s\n", intf.Name, t, m.Type, err)
	}
}

// replyCause answers m with a message carrying only a cause.
func (intf *Intf) replyCause(d *DLC, m *Message, t MsgType, c Cause) {
	var ies IESet
	dir := CallDirInbound
	if m.CallRef.Flag {
		dir = CallDirOutbound
	}
	ies.Add(NewIECause(CauseLocation(dir, intf.NetRole, intf.Role), c))
	if t == MsgStatus {
		ies.Add(&IECallState{Value: 0})
	}
	intf.replyMsg(d, m, t, &ies)
}

// unexpected records an event not handled in the current state.
func (intf *Intf) unexpected(f string, a ...interface{}) {
	intf.Stats.inc(&intf.Stats.Unexpected, intf.Stats.hUnexp)
	ERR(intf.Name+": unexpected "+f, a...)
}
