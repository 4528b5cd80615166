// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

// MsgDir is the direction of a message.
type MsgDir uint8

const (
	DirNtoU MsgDir = 1 << iota // network to user
	DirUtoN                    // user to network
)

// DirBoth is used for messages allowed in both directions.
const DirBoth = DirNtoU | DirUtoN

func (d MsgDir) String() string {
	switch d {
	case DirNtoU:
		return "N->U"
	case DirUtoN:
		return "U->N"
	case DirBoth:
		return "both"
	}
	return "invalid"
}

// IEPresence is the presence requirement of an information element in a
// given message and direction.
type IEPresence uint8

const (
	IENotAllowed IEPresence = iota
	IEOptional
	IEMandatory
)

var iePresence2Name = [...]string{
	IENotAllowed: "not allowed",
	IEOptional:   "optional",
	IEMandatory:  "mandatory",
}

func (p IEPresence) String() string {
	if int(p) >= len(iePresence2Name) {
		return "invalid"
	}
	return iePresence2Name[p]
}

// ieUse describes the use of one information element in a message.
type ieUse struct {
	id   IEID
	nToU IEPresence
	uToN IEPresence
}

func (u *ieUse) presence(dir MsgDir) IEPresence {
	if dir == DirNtoU {
		return u.nToU
	}
	return u.uToN
}

type msgInfo struct {
	dir MsgDir // allowed directions
	ies []ieUse
}

// shorthands for the table below
const (
	nA = IENotAllowed
	oP = IEOptional
	mA = IEMandatory
)

// commonly used entries
var (
	useDisplay = ieUse{IDDisplay, oP, nA}
	useSignal  = ieUse{IDSignal, oP, nA}
	useCauseM  = ieUse{IDCause, mA, mA}
	useCauseO  = ieUse{IDCause, oP, oP}
	useChanO   = ieUse{IDChannelID, oP, oP}
	useFacO    = ieUse{IDFacility, oP, oP}
	useProgO   = ieUse{IDProgress, oP, oP}
	useUUO     = ieUse{IDUserUser, oP, oP}
	useBCO     = ieUse{IDBearerCap, oP, oP}
	useHLCO    = ieUse{IDHighLayerCompat, oP, oP}
)

// msgInfos is the per message information element legality table
// (Q.931 3.1 and 3.2, ETS 300 102-1).
var msgInfos = map[MsgType]*msgInfo{
	MsgAlerting: {DirBoth, []ieUse{useBCO, useChanO, useFacO, useProgO,
		useDisplay, useSignal, useHLCO, useUUO}},
	MsgCallProceeding: {DirBoth, []ieUse{useBCO, useChanO, useFacO,
		useProgO, useDisplay, useHLCO}},
	MsgConnect: {DirBoth, []ieUse{useBCO, useChanO, useFacO, useProgO,
		useDisplay, {IDDateTime, oP, nA}, useSignal,
		{IDConnectedNumber, oP, oP}, {IDConnectedSubaddr, oP, oP},
		{IDLowLayerCompat, oP, oP}, useHLCO, useUUO}},
	MsgConnectAck: {DirBoth, []ieUse{useChanO, useDisplay, useSignal}},
	MsgDisconnect: {DirBoth, []ieUse{useCauseM, useFacO, useProgO,
		useDisplay, useSignal, useUUO}},
	MsgInformation: {DirBoth, []ieUse{{IDSendingComplete, oP, oP},
		{IDCause, oP, nA}, useDisplay, {IDKeypad, nA, oP}, useSignal,
		{IDCalledNumber, oP, oP}}},
	MsgNotify: {DirBoth, []ieUse{useBCO, {IDNotification, mA, mA},
		useDisplay}},
	MsgProgress: {DirBoth, []ieUse{useBCO, useCauseO,
		{IDProgress, mA, mA}, useDisplay, useHLCO, {IDUserUser, oP, nA}}},
	MsgRelease: {DirBoth, []ieUse{useCauseO, useFacO, useDisplay,
		useSignal, useUUO}},
	MsgReleaseComplete: {DirBoth, []ieUse{useCauseO, useFacO, useDisplay,
		useSignal, useUUO}},
	MsgResume:       {DirUtoN, []ieUse{{IDCallIdentity, nA, oP}}},
	MsgResumeAck:    {DirNtoU, []ieUse{{IDChannelID, mA, nA}, useDisplay}},
	MsgResumeReject: {DirNtoU, []ieUse{{IDCause, mA, nA}, useDisplay}},
	MsgSetup: {DirBoth, []ieUse{{IDSendingComplete, oP, oP},
		{IDBearerCap, mA, mA}, {IDChannelID, mA, oP}, useFacO, useProgO,
		{IDNetFacilities, oP, oP}, useDisplay, {IDKeypad, nA, oP},
		useSignal, {IDCallingNumber, oP, oP}, {IDCallingSubaddr, oP, oP},
		{IDCalledNumber, oP, oP}, {IDCalledSubaddr, oP, oP},
		{IDRedirectingNumber, oP, nA}, {IDTransitNet, nA, oP},
		{IDLowLayerCompat, oP, oP}, useHLCO, useUUO}},
	MsgSetupAck: {DirBoth, []ieUse{useChanO, useProgO, useDisplay,
		useSignal}},
	MsgStatus: {DirBoth, []ieUse{useCauseM, {IDCallState, mA, mA},
		useDisplay}},
	MsgStatusEnquiry: {DirBoth, []ieUse{useDisplay}},
	MsgSuspend:       {DirUtoN, []ieUse{{IDCallIdentity, nA, oP}}},
	MsgSuspendAck:    {DirNtoU, []ieUse{useDisplay}},
	MsgSuspendReject: {DirNtoU, []ieUse{{IDCause, mA, nA}, useDisplay}},
	MsgUserInfo: {DirBoth, []ieUse{{IDMoreData, oP, oP},
		{IDUserUser, mA, mA}}},
	MsgCongestionCtrl: {DirBoth, []ieUse{{IDCongestionLevel, mA, mA},
		useCauseM, useDisplay}},
	MsgFacility: {DirBoth, []ieUse{{IDFacility, mA, mA}, useDisplay,
		{IDCalledNumber, oP, oP}}},
	MsgRestart: {DirBoth, []ieUse{useChanO, useDisplay,
		{IDRestartInd, mA, mA}}},
	MsgRestartAck: {DirBoth, []ieUse{useChanO, useDisplay,
		{IDRestartInd, mA, mA}}},
	MsgHold:           {DirBoth, []ieUse{useDisplay}},
	MsgHoldAck:        {DirBoth, []ieUse{useDisplay}},
	MsgHoldReject:     {DirBoth, []ieUse{useCauseM, useDisplay}},
	MsgRetrieve:       {DirBoth, []ieUse{useChanO, useDisplay}},
	MsgRetrieveAck:    {DirBoth, []ieUse{useChanO, useDisplay}},
	MsgRetrieveReject: {DirBoth, []ieUse{useCauseM, useDisplay}},
	MsgSegment:        {DirBoth, nil},
}

func lookupMsg(t MsgType) *msgInfo {
	return msgInfos[t]
}

// IEPresenceIn returns the presence requirement of the information
// element id in a message of type t sent in direction dir.
func IEPresenceIn(t MsgType, dir MsgDir, id IEID) IEPresence {
	mi := lookupMsg(t)
	if mi == nil || mi.dir&dir == 0 {
		return IENotAllowed
	}
	if id == IDRepeatInd || id == IDShift {
		return IEOptional
	}
	for i := range mi.ies {
		if mi.ies[i].id == id {
			return mi.ies[i].presence(dir)
		}
	}
	return IENotAllowed
}

// MsgAllowed returns true if a message of type t can be sent in the
// direction dir.
func MsgAllowed(t MsgType, dir MsgDir) bool {
	mi := lookupMsg(t)
	return mi != nil && mi.dir&dir != 0
}
