// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"strconv"

	"github.com/intuitivelabs/sipsp"
)

// MaxMsgSize is the maximum size of a Q.931 message (LAPD N201).
const MaxMsgSize = 260

// MaxCallRefLen is the maximum call reference length.
const MaxCallRefLen = 4

// CallRef is a decoded call reference.
type CallRef struct {
	Value uint32
	Len   uint8 // length in octets
	// Flag is false for messages sent from the side that originated the
	// call reference and true for messages sent to it.
	Flag bool
}

// Global returns true for the global call reference (value 0).
func (cr CallRef) Global() bool {
	return cr.Value == 0
}

func (cr CallRef) String() string {
	f := "0"
	if cr.Flag {
		f = "1"
	}
	return strconv.FormatUint(uint64(cr.Value), 10) + "/" + f
}

// IEErrKind classifies an information element problem found while
// parsing a message.
type IEErrKind uint8

const (
	IEErrNone              IEErrKind = iota
	IEErrMandatoryMissing                   // mandatory element not present
	IEErrMandatoryInvalid                   // mandatory element with bad contents
	IEErrUnrecognizedFatal                  // unknown comprehension required id
	IEErrUnrecognized                       // unknown element
	IEErrOptionalInvalid                    // optional element with bad contents
	IEErrUnexpected                         // known element not allowed here
)

var ieErrKind2Name = [...]string{
	IEErrNone:              "none",
	IEErrMandatoryMissing:  "mandatory information element missing",
	IEErrMandatoryInvalid:  "invalid mandatory information element",
	IEErrUnrecognizedFatal: "unrecognized comprehension required element",
	IEErrUnrecognized:      "unrecognized information element",
	IEErrOptionalInvalid:   "invalid optional information element",
	IEErrUnexpected:        "unexpected information element",
}

func (k IEErrKind) String() string {
	if int(k) >= len(ieErrKind2Name) {
		return "invalid"
	}
	return ieErrKind2Name[k]
}

// Fatal returns true for the errors that prevent processing the message.
func (k IEErrKind) Fatal() bool {
	switch k {
	case IEErrMandatoryMissing, IEErrMandatoryInvalid,
		IEErrUnrecognizedFatal:
		return true
	}
	return false
}

// Cause returns the cause value used when reporting the error.
func (k IEErrKind) Cause() Cause {
	switch k {
	case IEErrMandatoryMissing, IEErrUnrecognizedFatal:
		return CauseMandatoryIEMissing
	case IEErrMandatoryInvalid, IEErrOptionalInvalid:
		return CauseInvalidIEContents
	case IEErrUnrecognized, IEErrUnexpected:
		return CauseIENonExistent
	}
	return CauseNormalUnspecified
}

// IEError records a problem with one information element.
type IEError struct {
	ID   IEID
	Kind IEErrKind
	Err  ErrorIE // decode error, if any
}

// RawIE points to an information element inside the received frame.
type RawIE struct {
	Codeset uint8
	ID      IEID
	Val     sipsp.PField // contents octets (empty for single octet)
}

// Message is a parsed (or to be sent) Q.931 message.
type Message struct {
	CallRef CallRef
	Type    MsgType
	Dir     MsgDir
	IEs     IESet

	// filled only by the parser
	Raw        []byte  // received frame
	RawIEs     []RawIE // every element found, in frame order
	IEErrs     []IEError
	UnknownMsg bool // unknown type or not allowed in this direction
}

// NewMessage returns a new message for sending.
func NewMessage(t MsgType, cr CallRef, ies ...IE) *Message {
	m := &Message{CallRef: cr, Type: t}
	for _, ie := range ies {
		m.IEs.Add(ie)
	}
	return m
}

// IEErr returns the most severe information element error and true, or
// false if the message is clean. Fatal errors take precedence, in the
// order they were found.
func (m *Message) IEErr() (IEError, bool) {
	var best IEError
	for _, e := range m.IEErrs {
		if e.Kind.Fatal() {
			if !best.Kind.Fatal() ||
				(best.Kind != IEErrMandatoryMissing &&
					e.Kind == IEErrMandatoryMissing) {
				best = e
			}
		} else if best.Kind == IEErrNone {
			best = e
		}
	}
	return best, best.Kind != IEErrNone
}

// HasFatalIEErr returns true if a mandatory information element is
// missing or invalid.
func (m *Message) HasFatalIEErr() bool {
	e, ok := m.IEErr()
	return ok && e.Kind.Fatal()
}

func (m *Message) addIEErr(id IEID, k IEErrKind, err ErrorIE) {
	m.IEErrs = append(m.IEErrs, IEError{ID: id, Kind: k, Err: err})
}

// ParseHeader decodes the header of a Q.931 message and returns the
// call reference, the message type and the offset of the first
// information element.
func ParseHeader(b []byte) (CallRef, MsgType, int, ErrorMsg) {
	var cr CallRef
	if len(b) < 2 {
		return cr, 0, 0, ErrMsgTooShort
	}
	if b[0] != ProtoDiscr {
		return cr, 0, 0, ErrMsgPD
	}
	if b[1]&0xf0 != 0 {
		return cr, 0, 0, ErrMsgCRLen
	}
	crLen := int(b[1] & 0x0f)
	if crLen > MaxCallRefLen {
		return cr, 0, 0, ErrMsgCRLen
	}
	if crLen == 0 {
		return cr, 0, 0, ErrMsgDummyCR
	}
	if len(b) < 2+crLen+1 {
		return cr, 0, 0, ErrMsgTooShort
	}
	cr.Len = uint8(crLen)
	cr.Flag = b[2]&0x80 != 0
	cr.Value = uint32(b[2] & 0x7f)
	for i := 1; i < crLen; i++ {
		cr.Value = cr.Value<<8 | uint32(b[2+i])
	}
	t := b[2+crLen]
	if t&0x80 != 0 {
		return cr, 0, 0, ErrMsgType
	}
	return cr, MsgType(t), 3 + crLen, ErrMsgOk
}

// ParseMessage parses a received Q.931 message. The information elements
// are decoded and checked against the message legality table for the
// direction ctx.Dir. Information element errors are recorded in
// Message.IEErrs. A non-nil message is returned only on ErrMsgOk.
func ParseMessage(ctx *IECtx, b []byte) (*Message, ErrorMsg) {
	cr, t, offs, err := ParseHeader(b)
	if err != ErrMsgOk {
		return nil, err
	}
	m := &Message{CallRef: cr, Type: t, Dir: ctx.Dir, Raw: b}
	mi := lookupMsg(t)
	if mi == nil || mi.dir&ctx.Dir == 0 || t == MsgSegment {
		m.UnknownMsg = true
		return m, ErrMsgOk
	}
	lockCS := uint8(0)
	cs := uint8(0) // codeset of the next element
	for i := offs; i < len(b); {
		o := b[i]
		if o&0x80 != 0 {
			id := singleOctetID(o)
			m.RawIEs = append(m.RawIEs, RawIE{Codeset: cs, ID: id})
			i++
			if id == IDShift {
				newCS := o & 0x07
				if o&0x08 == 0 {
					// locking shift: only to higher codesets
					if newCS > lockCS {
						lockCS = newCS
					}
					cs = lockCS
				} else {
					cs = newCS
				}
				continue
			}
			if cs == 0 {
				m.addIE(ctx, id, b[i-1:i])
			} else {
				m.IEs.Add(&IERaw{IEId: id, Codeset: cs, Data: []byte{o}})
			}
			cs = lockCS
			continue
		}
		if i+2 > len(b) {
			return nil, ErrMsgIETrunc
		}
		id := IEID(o)
		l := int(b[i+1])
		if i+2+l > len(b) {
			return nil, ErrMsgIETrunc
		}
		var pf sipsp.PField
		pf.Set(i+2, i+2+l)
		m.RawIEs = append(m.RawIEs, RawIE{Codeset: cs, ID: id, Val: pf})
		i += 2 + l
		if cs == 0 {
			m.addIE(ctx, id, pf.Get(b))
		} else {
			m.IEs.Add(&IERaw{IEId: id, Codeset: cs,
				Data: append([]byte(nil), pf.Get(b)...)})
		}
		cs = lockCS
	}
	for k := range mi.ies {
		u := &mi.ies[k]
		if u.presence(ctx.Dir) != IEMandatory || m.IEs.Has(u.id) {
			continue
		}
		if !m.hasIEErr(u.id) {
			m.addIEErr(u.id, IEErrMandatoryMissing, ErrIEOk)
		}
	}
	return m, ErrMsgOk
}

func (m *Message) hasIEErr(id IEID) bool {
	for _, e := range m.IEErrs {
		if e.ID == id {
			return true
		}
	}
	return false
}

// addIE decodes and adds a codeset 0 information element.
func (m *Message) addIE(ctx *IECtx, id IEID, val []byte) {
	pres := IEPresenceIn(m.Type, ctx.Dir, id)
	info := lookupIE(id)
	if info != nil && info.newIE != nil && pres == IENotAllowed {
		// recognized, but not part of this message: ignored, even when
		// the id has comprehension required
		m.addIEErr(id, IEErrUnexpected, ErrIEUnknown)
		return
	}
	if info == nil || info.newIE == nil {
		if id.ComprehensionRequired() {
			m.addIEErr(id, IEErrUnrecognizedFatal, ErrIEUnknown)
		} else {
			m.addIEErr(id, IEErrUnrecognized, ErrIEUnknown)
		}
		return
	}
	if !info.repeatable && m.IEs.Has(id) {
		// only the first occurrence is used
		return
	}
	ie, err := DecodeIE(ctx, id, val)
	if err != ErrIEOk {
		if pres == IEMandatory {
			m.addIEErr(id, IEErrMandatoryInvalid, err)
		} else {
			m.addIEErr(id, IEErrOptionalInvalid, err)
		}
		return
	}
	m.IEs.Add(ie)
}

// Encode appends the encoded message to dst. The call reference is
// encoded on crLen octets (if 0 the message CallRef.Len is used).
func (m *Message) Encode(ctx *IECtx, crLen int, dst []byte) ([]byte, error) {
	if crLen == 0 {
		crLen = int(m.CallRef.Len)
	}
	if crLen <= 0 || crLen > MaxCallRefLen {
		return dst, ErrMsgCRLen
	}
	if m.CallRef.Value >= 1<<uint(8*crLen-1) {
		return dst, ErrMsgCRLen
	}
	if m.Type&0x80 != 0 {
		return dst, ErrMsgType
	}
	start := len(dst)
	dst = append(dst, ProtoDiscr, byte(crLen))
	for i := crLen - 1; i >= 0; i-- {
		o := byte(m.CallRef.Value >> (8 * uint(i)))
		if i == crLen-1 && m.CallRef.Flag {
			o |= 0x80
		}
		dst = append(dst, o)
	}
	dst = append(dst, byte(m.Type))
	dst, err := m.IEs.Append(ctx, dst)
	if err != ErrIEOk {
		return dst[:start], err.ErrorConv()
	}
	if len(dst)-start > MaxMsgSize {
		return dst[:start], ErrMsgTooBig
	}
	return dst, nil
}
