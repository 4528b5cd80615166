// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"sort"
	"strconv"
)

// IEID is an information element identifier (codeset 0).
// For the single octet information elements of type 1 (value in the low
// nibble) the id is the high nibble with the low nibble set to 0.
type IEID uint8

// Information element identifiers (Q.931 Table 4-3).
const (
	IDSegmented         IEID = 0x00
	IDBearerCap         IEID = 0x04
	IDCause             IEID = 0x08
	IDCallIdentity      IEID = 0x10
	IDCallState         IEID = 0x14
	IDChannelID         IEID = 0x18
	IDFacility          IEID = 0x1c
	IDProgress          IEID = 0x1e
	IDNetFacilities     IEID = 0x20
	IDNotification      IEID = 0x27
	IDDisplay           IEID = 0x28
	IDDateTime          IEID = 0x29
	IDKeypad            IEID = 0x2c
	IDSignal            IEID = 0x34
	IDConnectedNumber   IEID = 0x4c
	IDConnectedSubaddr  IEID = 0x4d
	IDCallingNumber     IEID = 0x6c
	IDCallingSubaddr    IEID = 0x6d
	IDCalledNumber      IEID = 0x70
	IDCalledSubaddr     IEID = 0x71
	IDRedirectingNumber IEID = 0x74
	IDTransitNet        IEID = 0x78
	IDRestartInd        IEID = 0x79
	IDLowLayerCompat    IEID = 0x7c
	IDHighLayerCompat   IEID = 0x7d
	IDUserUser          IEID = 0x7e

	// single octet
	IDShift           IEID = 0x90
	IDMoreData        IEID = 0xa0
	IDSendingComplete IEID = 0xa1
	IDCongestionLevel IEID = 0xb0
	IDRepeatInd       IEID = 0xd0
)

// SingleOctet returns true for the single octet information elements.
func (id IEID) SingleOctet() bool {
	return id&0x80 != 0
}

// ComprehensionRequired returns true if an unrecognized information
// element with this identifier must be treated as a mandatory one
// (Q.931 4.5.1: identifiers 0000xxxx).
func (id IEID) ComprehensionRequired() bool {
	return id&0xf0 == 0
}

func (id IEID) String() string {
	if info := lookupIE(id); info != nil {
		return info.name
	}
	return "IE 0x" + strconv.FormatUint(uint64(id), 16)
}

// singleOctetID returns the IEID for a single octet information element.
func singleOctetID(o byte) IEID {
	switch o & 0xf0 {
	case 0xa0:
		return IEID(o) // type 2: the whole octet is the id
	}
	return IEID(o & 0xf0)
}

// IECtx carries the context needed to code information elements whose
// layout depends on the interface (e.g. the Channel Identification).
type IECtx struct {
	IntfType IntfType
	Dir      MsgDir // direction of the message being coded
}

// IE is the interface implemented by all the decoded information
// elements.
// Decode() parses the contents octets (the octets after the length octet
// or, for single octet IEs, the octet itself). Encode() appends the
// contents octets to dst.
type IE interface {
	ID() IEID
	Decode(ctx *IECtx, b []byte) ErrorIE
	Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE)
}

type ieInfo struct {
	id         IEID
	name       string
	minLen     int  // minimum contents length
	maxLen     int  // maximum contents length
	repeatable bool // may appear several times in a message
	newIE      func() IE
}

// information elements known by the codec, sorted by id.
var ieInfos = [...]ieInfo{
	{IDSegmented, "Segmented Message", 2, 2, false,
		func() IE { return &IERaw{IEId: IDSegmented} }},
	{IDBearerCap, "Bearer Capability", 2, 11, true,
		func() IE { return &IEBearerCap{} }},
	{IDCause, "Cause", 2, 30, true, func() IE { return &IECause{} }},
	{IDCallIdentity, "Call Identity", 0, 8, false,
		func() IE { return &IECallIdentity{} }},
	{IDCallState, "Call State", 1, 1, false,
		func() IE { return &IECallState{} }},
	{IDChannelID, "Channel Identification", 1, 34, false,
		func() IE { return &IEChannelID{} }},
	{IDFacility, "Facility", 1, 253, true,
		func() IE { return &IEFacility{} }},
	{IDProgress, "Progress Indicator", 2, 2, true,
		func() IE { return &IEProgress{} }},
	{IDNetFacilities, "Network-Specific Facilities", 1, 253, true,
		func() IE { return &IERaw{IEId: IDNetFacilities} }},
	{IDNotification, "Notification Indicator", 1, 1, false,
		func() IE { return &IENotification{} }},
	{IDDisplay, "Display", 0, 82, false,
		func() IE { return &IEDisplay{} }},
	{IDDateTime, "Date/Time", 5, 6, false,
		func() IE { return &IEDateTime{} }},
	{IDKeypad, "Keypad Facility", 1, 32, false,
		func() IE { return &IEKeypad{} }},
	{IDSignal, "Signal", 1, 1, false, func() IE { return &IESignal{} }},
	{IDConnectedNumber, "Connected Number", 1, 32, false,
		func() IE { return &IEConnectedNumber{} }},
	{IDConnectedSubaddr, "Connected Subaddress", 1, 21, false,
		func() IE { return &IESubaddress{IEId: IDConnectedSubaddr} }},
	{IDCallingNumber, "Calling Party Number", 1, 32, false,
		func() IE { return &IECallingNumber{} }},
	{IDCallingSubaddr, "Calling Party Subaddress", 1, 21, false,
		func() IE { return &IESubaddress{IEId: IDCallingSubaddr} }},
	{IDCalledNumber, "Called Party Number", 1, 32, false,
		func() IE { return &IECalledNumber{} }},
	{IDCalledSubaddr, "Called Party Subaddress", 1, 21, false,
		func() IE { return &IESubaddress{IEId: IDCalledSubaddr} }},
	{IDRedirectingNumber, "Redirecting Number", 1, 32, false,
		func() IE { return &IERedirectingNumber{} }},
	{IDTransitNet, "Transit Network Selection", 1, 253, true,
		func() IE { return &IERaw{IEId: IDTransitNet} }},
	{IDRestartInd, "Restart Indicator", 1, 1, false,
		func() IE { return &IERestartInd{} }},
	{IDLowLayerCompat, "Low Layer Compatibility", 2, 16, true,
		func() IE { return &IELowLayerCompat{} }},
	{IDHighLayerCompat, "High Layer Compatibility", 2, 3, true,
		func() IE { return &IEHighLayerCompat{} }},
	{IDUserUser, "User-User", 1, 129, false,
		func() IE { return &IEUserUser{} }},
	{IDShift, "Shift", 1, 1, true, nil},
	{IDMoreData, "More Data", 1, 1, false,
		func() IE { return &IEMoreData{} }},
	{IDSendingComplete, "Sending Complete", 1, 1, false,
		func() IE { return &IESendingComplete{} }},
	{IDCongestionLevel, "Congestion Level", 1, 1, false,
		func() IE { return &IECongestionLevel{} }},
	{IDRepeatInd, "Repeat Indicator", 1, 1, true,
		func() IE { return &IERepeatInd{} }},
}

// lookupIE returns the codec information for id or nil for unknown ids.
func lookupIE(id IEID) *ieInfo {
	i := sort.Search(len(ieInfos), func(i int) bool {
		return ieInfos[i].id >= id
	})
	if i < len(ieInfos) && ieInfos[i].id == id {
		return &ieInfos[i]
	}
	return nil
}

// NewIE returns an empty information element for the given id, or nil
// if the id is not known.
func NewIE(id IEID) IE {
	info := lookupIE(id)
	if info == nil || info.newIE == nil {
		return nil
	}
	return info.newIE()
}

// DecodeIE decodes the contents octets of an information element,
// checking the contents length against the known limits.
func DecodeIE(ctx *IECtx, id IEID, b []byte) (IE, ErrorIE) {
	info := lookupIE(id)
	if info == nil || info.newIE == nil {
		return nil, ErrIEUnknown
	}
	if !id.SingleOctet() {
		if len(b) < info.minLen {
			return nil, ErrIETooShort
		}
		if len(b) > info.maxLen {
			return nil, ErrIETooLong
		}
	}
	ie := info.newIE()
	if err := ie.Decode(ctx, b); err != ErrIEOk {
		return nil, err
	}
	return ie, ErrIEOk
}

// AppendIE appends the complete encoding of ie (identifier, length and
// contents, or the single octet) to dst.
func AppendIE(ctx *IECtx, dst []byte, ie IE) ([]byte, ErrorIE) {
	id := ie.ID()
	if id.SingleOctet() {
		b, err := ie.Encode(ctx, nil)
		if err != ErrIEOk {
			return dst, err
		}
		if len(b) != 1 {
			return dst, ErrIEBug
		}
		return append(dst, b[0]), ErrIEOk
	}
	start := len(dst)
	dst = append(dst, byte(id), 0)
	dst, err := ie.Encode(ctx, dst)
	if err != ErrIEOk {
		return dst[:start], err
	}
	l := len(dst) - start - 2
	if info := lookupIE(id); info != nil {
		if l < info.minLen {
			return dst[:start], ErrIETooShort
		}
		if l > info.maxLen {
			return dst[:start], ErrIETooLong
		}
	} else if l > 255 {
		return dst[:start], ErrIETooLong
	}
	dst[start+1] = byte(l)
	return dst, ErrIEOk
}

// ieReader walks the contents octets of an information element.
type ieReader struct {
	b   []byte
	pos int
}

func (r *ieReader) more() bool {
	return r.pos < len(r.b)
}

func (r *ieReader) peek() (byte, bool) {
	if r.pos >= len(r.b) {
		return 0, false
	}
	return r.b[r.pos], true
}

func (r *ieReader) octet() (byte, bool) {
	if r.pos >= len(r.b) {
		return 0, false
	}
	o := r.b[r.pos]
	r.pos++
	return o, true
}

func (r *ieReader) rest() []byte {
	b := r.b[r.pos:]
	r.pos = len(r.b)
	return b
}

// group returns the octets of the next octet group: all the octets up to
// and including the first one with the extension bit set.
func (r *ieReader) group() ([]byte, ErrorIE) {
	start := r.pos
	for r.pos < len(r.b) {
		o := r.b[r.pos]
		r.pos++
		if o&0x80 != 0 {
			return r.b[start:r.pos], ErrIEOk
		}
	}
	if start == r.pos {
		return nil, ErrIETooShort
	}
	return nil, ErrIEExtMissing
}

// ext returns true if the extension bit marks the last octet of a group.
func ext(o byte) bool {
	return o&0x80 != 0
}

// extBit returns the extension bit value for an octet that is the last
// of its group (last == true) or not.
func extBit(last bool) byte {
	if last {
		return 0x80
	}
	return 0
}

// checkIA5 checks that all the characters are 7-bit IA5.
func checkIA5(b []byte) ErrorIE {
	for _, c := range b {
		if c&0x80 != 0 {
			return ErrIEBadChar
		}
	}
	return ErrIEOk
}

// codingStd checks the coding standard field (bits 7-6) of an octet.
func codingStd(o byte) ErrorIE {
	if (o>>5)&0x3 != 0 {
		return ErrIECodingStd
	}
	return ErrIEOk
}
