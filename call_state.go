// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"strconv"
)

// CallState is the state of a call. The user side (U) and the network
// side (N) states are distinct values; a call only ever enters states of
// its own role (see CallState.Role()).
type CallState uint8

const (
	CallStNone CallState = iota // invalid placeholder

	U0Null
	U1CallInitiated
	U2OverlapSending
	U3OutgoingCallProceeding
	U4CallDelivered
	U6CallPresent
	U7CallReceived
	U8ConnectRequest
	U9IncomingCallProceeding
	U10Active
	U11DisconnectRequest
	U12DisconnectIndication
	U15SuspendRequest
	U17ResumeRequest
	U19ReleaseRequest
	U25OverlapReceiving

	N0Null
	N1CallInitiated
	N2OverlapSending
	N3OutgoingCallProceeding
	N4CallDelivered
	N6CallPresent
	N7CallReceived
	N8ConnectRequest
	N9IncomingCallProceeding
	N10Active
	N11DisconnectRequest
	N12DisconnectIndication
	N15SuspendRequest
	N17ResumeRequest
	N19ReleaseRequest
	N22CallAbort
	N25OverlapReceiving

	CallStNumber // number of states (invalid as state value)
)

// Q.931 call state values, as coded in the Call State information
// element.
var callSt2Code = [...]uint8{
	CallStNone:               0xff,
	U0Null:                   0,
	U1CallInitiated:          1,
	U2OverlapSending:         2,
	U3OutgoingCallProceeding: 3,
	U4CallDelivered:          4,
	U6CallPresent:            6,
	U7CallReceived:           7,
	U8ConnectRequest:         8,
	U9IncomingCallProceeding: 9,
	U10Active:                10,
	U11DisconnectRequest:     11,
	U12DisconnectIndication:  12,
	U15SuspendRequest:        15,
	U17ResumeRequest:         17,
	U19ReleaseRequest:        19,
	U25OverlapReceiving:      25,
	N0Null:                   0,
	N1CallInitiated:          1,
	N2OverlapSending:         2,
	N3OutgoingCallProceeding: 3,
	N4CallDelivered:          4,
	N6CallPresent:            6,
	N7CallReceived:           7,
	N8ConnectRequest:         8,
	N9IncomingCallProceeding: 9,
	N10Active:                10,
	N11DisconnectRequest:     11,
	N12DisconnectIndication:  12,
	N15SuspendRequest:        15,
	N17ResumeRequest:         17,
	N19ReleaseRequest:        19,
	N22CallAbort:             22,
	N25OverlapReceiving:      25,
}

var callSt2String = [...]string{
	CallStNone:               "invalid",
	U0Null:                   "U0 null",
	U1CallInitiated:          "U1 call initiated",
	U2OverlapSending:         "U2 overlap sending",
	U3OutgoingCallProceeding: "U3 outgoing call proceeding",
	U4CallDelivered:          "U4 call delivered",
	U6CallPresent:            "U6 call present",
	U7CallReceived:           "U7 call received",
	U8ConnectRequest:         "U8 connect request",
	U9IncomingCallProceeding: "U9 incoming call proceeding",
	U10Active:                "U10 active",
	U11DisconnectRequest:     "U11 disconnect request",
	U12DisconnectIndication:  "U12 disconnect indication",
	U15SuspendRequest:        "U15 suspend request",
	U17ResumeRequest:         "U17 resume request",
	U19ReleaseRequest:        "U19 release request",
	U25OverlapReceiving:      "U25 overlap receiving",
	N0Null:                   "N0 null",
	N1CallInitiated:          "N1 call initiated",
	N2OverlapSending:         "N2 overlap sending",
	N3OutgoingCallProceeding: "N3 outgoing call proceeding",
	N4CallDelivered:          "N4 call delivered",
	N6CallPresent:            "N6 call present",
	N7CallReceived:           "N7 call received",
	N8ConnectRequest:         "N8 connect request",
	N9IncomingCallProceeding: "N9 incoming call proceeding",
	N10Active:                "N10 active",
	N11DisconnectRequest:     "N11 disconnect request",
	N12DisconnectIndication:  "N12 disconnect indication",
	N15SuspendRequest:        "N15 suspend request",
	N17ResumeRequest:         "N17 resume request",
	N19ReleaseRequest:        "N19 release request",
	N22CallAbort:             "N22 call abort",
	N25OverlapReceiving:      "N25 overlap receiving",
}

// short names, used for the per state counters
var callSt2Name = [...]string{
	CallStNone:               "invalid",
	U0Null:                   "u0_null",
	U1CallInitiated:          "u1_call_init",
	U2OverlapSending:         "u2_overlap_snd",
	U3OutgoingCallProceeding: "u3_out_proceeding",
	U4CallDelivered:          "u4_delivered",
	U6CallPresent:            "u6_present",
	U7CallReceived:           "u7_received",
	U8ConnectRequest:         "u8_connect_req",
	U9IncomingCallProceeding: "u9_in_proceeding",
	U10Active:                "u10_active",
	U11DisconnectRequest:     "u11_disc_req",
	U12DisconnectIndication:  "u12_disc_ind",
	U15SuspendRequest:        "u15_suspend_req",
	U17ResumeRequest:         "u17_resume_req",
	U19ReleaseRequest:        "u19_release_req",
	U25OverlapReceiving:      "u25_overlap_rcv",
	N0Null:                   "n0_null",
	N1CallInitiated:          "n1_call_init",
	N2OverlapSending:         "n2_overlap_snd",
	N3OutgoingCallProceeding: "n3_out_proceeding",
	N4CallDelivered:          "n4_delivered",
	N6CallPresent:            "n6_present",
	N7CallReceived:           "n7_received",
	N8ConnectRequest:         "n8_connect_req",
	N9IncomingCallProceeding: "n9_in_proceeding",
	N10Active:                "n10_active",
	N11DisconnectRequest:     "n11_disc_req",
	N12DisconnectIndication:  "n12_disc_ind",
	N15SuspendRequest:        "n15_suspend_req",
	N17ResumeRequest:         "n17_resume_req",
	N19ReleaseRequest:        "n19_release_req",
	N22CallAbort:             "n22_call_abort",
	N25OverlapReceiving:      "n25_overlap_rcv",
}

func (s CallState) String() string {
	if int(s) >= len(callSt2String) {
		return "bug - unknown state"
	}
	return callSt2String[s]
}

// Name returns a short name usable as counter name.
func (s CallState) Name() string {
	if int(s) >= len(callSt2Name) {
		return "bug_unknown_state"
	}
	return callSt2Name[s]
}

// Code returns the Q.931 call state value.
func (s CallState) Code() uint8 {
	if int(s) >= len(callSt2Code) {
		return 0xff
	}
	return callSt2Code[s]
}

// Role returns the role of the states set s belongs to (RoleTE for the
// user side U states, RoleNT for the network side N states). It returns
// false for invalid states.
func (s CallState) Role() (Role, bool) {
	switch {
	case s >= U0Null && s <= U25OverlapReceiving:
		return RoleTE, true
	case s >= N0Null && s <= N25OverlapReceiving:
		return RoleNT, true
	}
	return RoleTE, false
}

// Null returns true for the null states.
func (s CallState) Null() bool {
	return s == U0Null || s == N0Null
}

// NullState returns the null state for the role r.
func NullState(r Role) CallState {
	if r == RoleNT {
		return N0Null
	}
	return U0Null
}

// StateFromCode returns the state for the Q.931 call state value code in
// role r.
func StateFromCode(r Role, code uint8) (CallState, bool) {
	first, last := U0Null, U25OverlapReceiving
	if r == RoleNT {
		first, last = N0Null, N25OverlapReceiving
	}
	for s := first; s <= last; s++ {
		if callSt2Code[s] == code {
			return s, true
		}
	}
	return CallStNone, false
}

// callStSet is a set of call states (CallStNumber fits in 64 bits).
type callStSet uint64

func stSet(sts ...CallState) callStSet {
	var s callStSet
	for _, st := range sts {
		s |= 1 << uint(st)
	}
	return s
}

func (s callStSet) Has(st CallState) bool {
	return st < CallStNumber && s&(1<<uint(st)) != 0
}

// every state of both roles, except the null ones
var stNotNull = stSet(
	U1CallInitiated, U2OverlapSending, U3OutgoingCallProceeding,
	U4CallDelivered, U6CallPresent, U7CallReceived, U8ConnectRequest,
	U9IncomingCallProceeding, U10Active, U11DisconnectRequest,
	U12DisconnectIndication, U15SuspendRequest, U17ResumeRequest,
	U19ReleaseRequest, U25OverlapReceiving,
	N1CallInitiated, N2OverlapSending, N3OutgoingCallProceeding,
	N4CallDelivered, N6CallPresent, N7CallReceived, N8ConnectRequest,
	N9IncomingCallProceeding, N10Active, N11DisconnectRequest,
	N12DisconnectIndication, N15SuspendRequest, N17ResumeRequest,
	N19ReleaseRequest, N22CallAbort, N25OverlapReceiving)

// clearing states codes
func clearingCode(c uint8) bool {
	return c == 11 || c == 12 || c == 19 || c == 22
}

// StatesCompatible returns true if the peer call state value (as received
// in a STATUS message) is compatible with the local state s.
func StatesCompatible(s CallState, peer uint8) bool {
	own := s.Code()
	switch {
	case own == peer:
		return true
	case clearingCode(own) && clearingCode(peer):
		return true
	}
	// messages crossing on the wire during setup
	switch own {
	case 1, 2, 3, 4:
		return peer >= 1 && peer <= 4 || peer == 10
	case 6, 7, 8, 9, 25:
		return peer == 6 || peer == 7 || peer == 8 || peer == 9 ||
			peer == 25 || peer == 10
	case 10:
		return peer == 4 || peer == 8
	}
	return false
}

// CallFlags are per call flags.
type CallFlags uint16

const CFNone CallFlags = 0
const (
	CFOutbound          CallFlags = 1 << iota // call started locally
	CFBroadcastSetup                          // SETUP broadcasted (ptmp NT)
	CFTonesOption                             // in-band tones provided
	CFSendingComplete                         // called number complete
	CFReleaseOnError                          // cleared due to a local error
	CFT303Retr                                // SETUP already retransmitted
	CFT308Retr                                // RELEASE already retransmitted
	CFT322Retr                                // STATUS ENQ. already retransmitted
	CFDiscCauseOverride                       // use discCause in RELEASE
	CFSuspended                               // call suspended
	CFRestart                                 // cleared by restart
	CFConnectSent                             // CONNECT already sent
	CFChanSent                                // channel id. already sent
	CFFinalSent                               // final confirm delivered
)

// debugging, keep in sync with the CallFlags consts above
var cfNames = [...]string{
	"None",
	"Outbound",
	"Broadcast_Setup",
	"Tones_Option",
	"Sending_Complete",
	"Release_On_Error",
	"T303_Retr",
	"T308_Retr",
	"T322_Retr",
	"Disc_Cause_Override",
	"Suspended",
	"Restart",
	"Connect_Sent",
	"Chan_Sent",
	"Final_Sent",
	"invalid",
	"invalid",
}

func (cf CallFlags) String() string {
	var s string
	for i := 1; i < len(cfNames); i++ {
		if cf&(1<<uint(i-1)) != 0 {
			if s != "" {
				s += "|" + cfNames[i]
			} else {
				s += cfNames[i]
			}
		}
	}
	return s
}

// MsgRec is a compact record of a sent or received message.
// format: bit 15   -> direction, 0 received, 1 sent
//         bits 14-11 -> retransmission no. (max 15)
//         bits 0-7  -> message type
type MsgRec uint16

const (
	MsgRecSentF    = 1 << 15
	MsgRecRetrPos  = 11
	MsgRecRetrMask = 0x7800
	MsgRecMaxRetr  = MsgRecRetrMask >> MsgRecRetrPos
	MsgRecTypeMask = 0xff
)

func (m *MsgRec) Init(t MsgType, sent bool, retr int) {
	v := uint16(t) | (uint16(retr<<MsgRecRetrPos) & MsgRecRetrMask)
	if sent {
		v |= MsgRecSentF
	}
	*m = MsgRec(v)
}

func (m *MsgRec) Retrs() int {
	return int((uint(*m) & MsgRecRetrMask) >> MsgRecRetrPos)
}

func (m *MsgRec) SetRetrs(retr int) {
	*m = MsgRec((uint16(*m) &^ MsgRecRetrMask) |
		(uint16(retr<<MsgRecRetrPos) & MsgRecRetrMask))
}

// Type returns the recorded message type.
func (m *MsgRec) Type() MsgType {
	return MsgType(*m & MsgRecTypeMask)
}

// Sent returns true for sent messages.
func (m *MsgRec) Sent() bool {
	return *m&MsgRecSentF != 0
}

func (m *MsgRec) String() string {
	var str string
	if m.Sent() {
		str = ">"
	} else {
		str = "<"
	}
	str += m.Type().String()
	if r := m.Retrs(); r != 0 {
		str += "{" + strconv.Itoa(r) + "}"
	}
	return str
}

// MsgBackTrace records the last messages sent or received for a call
// (type, direction and retransmissions).
type MsgBackTrace struct {
	Msgs [16]MsgRec
	N    uint // number of messages
}

// Add adds a message to the trace. A retransmission of the last recorded
// message only increments its retransmission counter.
func (m *MsgBackTrace) Add(t MsgType, sent, isRetr bool) {
	if isRetr && m.N > 0 {
		var mr MsgRec
		mr.Init(t, sent, 0)
		idx := int(m.N-1) % len(m.Msgs)
		if m.Msgs[idx]&^MsgRecRetrMask == mr &&
			m.Msgs[idx].Retrs() < MsgRecMaxRetr {
			m.Msgs[idx].SetRetrs(m.Msgs[idx].Retrs() + 1)
			return
		}
	}
	m.Msgs[int(m.N)%len(m.Msgs)].Init(t, sent, 0)
	m.N++
}

// Last returns the last recorded message and true, or false if empty.
func (m *MsgBackTrace) Last() (MsgRec, bool) {
	if m.N == 0 {
		return 0, false
	}
	return m.Msgs[int(m.N-1)%len(m.Msgs)], true
}

func (m *MsgBackTrace) String() string {
	var i uint
	var str string
	// last len(Msgs) entries
	if m.N > uint(len(m.Msgs)) {
		i = m.N - uint(len(m.Msgs))
		// missing messages
		str = "...[" + strconv.Itoa(int(i)) + "]"
	}
	for ; i != m.N; i++ {
		if str != "" {
			str += " "
		}
		str += m.Msgs[int(i)%len(m.Msgs)].String()
	}
	return str
}

// StateBackTrace records the last state transitions of a call.
type StateBackTrace struct {
	PrevState [10]CallState // last 10 states
	N         uint          // number of state transitions
}

func (s *StateBackTrace) Add(cs CallState) {
	s.PrevState[int(s.N)%len(s.PrevState)] = cs
	s.N++
}

func (s *StateBackTrace) String() string {
	var i uint
	var str string
	// last len(prevState) entries
	if s.N > uint(len(s.PrevState)) {
		i = s.N - uint(len(s.PrevState))
		// missing messages
		str = "...[" + strconv.Itoa(int(i)) + "]"
	}
	for ; i != s.N; i++ {
		if str != "" {
			str += "->"
		}
		str += s.PrevState[int(i)%len(s.PrevState)].Name()
	}
	return str
}
