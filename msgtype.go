// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"strconv"

	"github.com/intuitivelabs/bytescase"
)

// MsgType is the Q.931 message type octet.
type MsgType uint8

// Message types (Q.931 Table 4-2).
const (
	MsgAlerting        MsgType = 0x01
	MsgCallProceeding  MsgType = 0x02
	MsgProgress        MsgType = 0x03
	MsgSetup           MsgType = 0x05
	MsgConnect         MsgType = 0x07
	MsgSetupAck        MsgType = 0x0d
	MsgConnectAck      MsgType = 0x0f
	MsgUserInfo        MsgType = 0x20
	MsgSuspendReject   MsgType = 0x21
	MsgResumeReject    MsgType = 0x22
	MsgHold            MsgType = 0x24
	MsgSuspend         MsgType = 0x25
	MsgResume          MsgType = 0x26
	MsgHoldAck         MsgType = 0x28
	MsgSuspendAck      MsgType = 0x2d
	MsgResumeAck       MsgType = 0x2e
	MsgHoldReject      MsgType = 0x30
	MsgRetrieve        MsgType = 0x31
	MsgRetrieveAck     MsgType = 0x33
	MsgRetrieveReject  MsgType = 0x37
	MsgDisconnect      MsgType = 0x45
	MsgRestart         MsgType = 0x46
	MsgRelease         MsgType = 0x4d
	MsgRestartAck      MsgType = 0x4e
	MsgReleaseComplete MsgType = 0x5a
	MsgSegment         MsgType = 0x60
	MsgFacility        MsgType = 0x62
	MsgNotify          MsgType = 0x6e
	MsgStatusEnquiry   MsgType = 0x75
	MsgCongestionCtrl  MsgType = 0x79
	MsgInformation     MsgType = 0x7b
	MsgStatus          MsgType = 0x7d
)

var msgType2Name = [...]string{
	MsgAlerting:        "ALERTING",
	MsgCallProceeding:  "CALL PROCEEDING",
	MsgProgress:        "PROGRESS",
	MsgSetup:           "SETUP",
	MsgConnect:         "CONNECT",
	MsgSetupAck:        "SETUP ACKNOWLEDGE",
	MsgConnectAck:      "CONNECT ACKNOWLEDGE",
	MsgUserInfo:        "USER INFORMATION",
	MsgSuspendReject:   "SUSPEND REJECT",
	MsgResumeReject:    "RESUME REJECT",
	MsgHold:            "HOLD",
	MsgSuspend:         "SUSPEND",
	MsgResume:          "RESUME",
	MsgHoldAck:         "HOLD ACKNOWLEDGE",
	MsgSuspendAck:      "SUSPEND ACKNOWLEDGE",
	MsgResumeAck:       "RESUME ACKNOWLEDGE",
	MsgHoldReject:      "HOLD REJECT",
	MsgRetrieve:        "RETRIEVE",
	MsgRetrieveAck:     "RETRIEVE ACKNOWLEDGE",
	MsgRetrieveReject:  "RETRIEVE REJECT",
	MsgDisconnect:      "DISCONNECT",
	MsgRestart:         "RESTART",
	MsgRelease:         "RELEASE",
	MsgRestartAck:      "RESTART ACKNOWLEDGE",
	MsgReleaseComplete: "RELEASE COMPLETE",
	MsgSegment:         "SEGMENT",
	MsgFacility:        "FACILITY",
	MsgNotify:          "NOTIFY",
	MsgStatusEnquiry:   "STATUS ENQUIRY",
	MsgCongestionCtrl:  "CONGESTION CONTROL",
	MsgInformation:     "INFORMATION",
	MsgStatus:          "STATUS",
	0x7f:               "",
}

func (m MsgType) String() string {
	if int(m) < len(msgType2Name) && msgType2Name[m] != "" {
		return msgType2Name[m]
	}
	return "unknown message 0x" + strconv.FormatUint(uint64(m), 16)
}

// Known returns true for the message types this implementation knows.
func (m MsgType) Known() bool {
	return int(m) < len(msgType2Name) && msgType2Name[m] != ""
}

// Global returns true for the message types allowed on the global call
// reference.
func (m MsgType) Global() bool {
	switch m {
	case MsgRestart, MsgRestartAck, MsgStatus:
		return true
	}
	return false
}

// MsgTypeFromName returns the message type for a case-insensitive
// message name ("setup", "Release Complete" or "release_complete").
func MsgTypeFromName(name []byte) (MsgType, bool) {
	n := make([]byte, len(name))
	for i, c := range name {
		if c == '_' || c == '-' {
			c = ' '
		}
		n[i] = bytescase.ByteToUpper(c)
	}
	for i, s := range msgType2Name {
		if s != "" && bytescase.CmpEq(n, []byte(s)) {
			return MsgType(i), true
		}
	}
	return 0, false
}
