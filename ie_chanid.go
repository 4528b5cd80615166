// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

// Channel Identification information element (Q.931 4.5.13).
//
//   3    ext(1) intf id present(1) intf type(1) spare(1) pref/excl(1)
//        D-channel ind(1) info channel selection(2)
//   3.1  interface identifier (octet group)         [intf id present]
//   3.2  ext(1) coding std(2) number/map(1) channel type(4)      [PRA]
//   3.3  ext(1) channel number(7) ...                             [PRA]
//
// The basic rate layout selects the B-channel directly in octet 3. The
// primary rate layout uses octet 3.2 and a list of channel numbers.

// information channel selection values
const (
	ChanSelNone      = 0x0 // no channel
	ChanSelB1        = 0x1 // BRA: B1
	ChanSelB2        = 0x2 // BRA: B2
	ChanSelIndicated = 0x1 // PRA: as indicated in the following octets
	ChanSelAny       = 0x3
)

const chanTypeB = 0x3 // B-channel units

// IEChannelID is the Channel Identification information element.
type IEChannelID struct {
	PRA       bool // primary rate layout (interface type bit)
	Exclusive bool // only the indicated channel is acceptable
	DChannel  bool
	InfoSel   uint8
	IntfID    []byte // explicit interface identifier, if present
	ChanMap   bool   // channels given as a slot map (kept raw)
	Map       []byte
	Chans     ChanSet
}

// NewIEChannelID returns a Channel Identification for the given channels.
// With no channels the "any channel" selection is used.
func NewIEChannelID(t IntfType, exclusive bool, chans ...int) *IEChannelID {
	ie := &IEChannelID{PRA: t == IntfPRA, Exclusive: exclusive}
	ie.Chans = NewChanSet(chans...)
	if ie.Chans.Empty() {
		ie.InfoSel = ChanSelAny
	}
	return ie
}

func (ie *IEChannelID) ID() IEID {
	return IDChannelID
}

// Any returns true if any channel is acceptable.
func (ie *IEChannelID) Any() bool {
	return ie.Chans.Empty() && ie.InfoSel == ChanSelAny
}

// NoChannel returns true if no B-channel is indicated.
func (ie *IEChannelID) NoChannel() bool {
	return ie.Chans.Empty() && ie.InfoSel == ChanSelNone && !ie.ChanMap
}

func (ie *IEChannelID) Decode(ctx *IECtx, b []byte) ErrorIE {
	r := ieReader{b: b}
	*ie = IEChannelID{}
	o3, ok := r.octet()
	if !ok {
		return ErrIETooShort
	}
	if !ext(o3) {
		return ErrIEExtUnexpected
	}
	intfIDPresent := o3&0x40 != 0
	ie.PRA = o3&0x20 != 0
	ie.Exclusive = o3&0x08 != 0
	ie.DChannel = o3&0x04 != 0
	ie.InfoSel = o3 & 0x3
	if ctx != nil && ie.PRA != (ctx.IntfType == IntfPRA) {
		return ErrIEBadVal
	}
	if intfIDPresent {
		g, err := r.group()
		if err != ErrIEOk {
			return err
		}
		ie.IntfID = append([]byte(nil), g...)
	}
	if !ie.PRA {
		switch ie.InfoSel {
		case ChanSelB1:
			ie.Chans.Add(1)
		case ChanSelB2:
			ie.Chans.Add(2)
		}
		if r.more() {
			return ErrIETooLong
		}
		return ErrIEOk
	}
	if ie.InfoSel != ChanSelIndicated || ie.DChannel {
		if r.more() {
			return ErrIETooLong
		}
		return ErrIEOk
	}
	o32, ok := r.octet()
	if !ok {
		return ErrIETooShort
	}
	if !ext(o32) {
		return ErrIEExtUnexpected
	}
	if err := codingStd(o32); err != ErrIEOk {
		return err
	}
	if o32&0xf != chanTypeB {
		return ErrIEBadVal
	}
	if o32&0x10 != 0 {
		ie.ChanMap = true
		ie.Map = append([]byte(nil), r.rest()...)
		if len(ie.Map) == 0 {
			return ErrIETooShort
		}
		return ErrIEOk
	}
	for {
		o, ok := r.octet()
		if !ok {
			if ie.Chans.Empty() {
				return ErrIETooShort
			}
			return ErrIEExtMissing
		}
		c := int(o & 0x7f)
		if c == 0 || c == 16 {
			return ErrIEBadVal
		}
		ie.Chans.Add(c)
		if ext(o) {
			break
		}
	}
	if r.more() {
		return ErrIETooLong
	}
	return ErrIEOk
}

func (ie *IEChannelID) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	pra := ie.PRA
	if ctx != nil {
		pra = ctx.IntfType == IntfPRA
	}
	sel := ie.InfoSel
	if !pra {
		switch {
		case ie.Chans.Len() > 1:
			return dst, ErrIEBadVal
		case ie.Chans.Contains(1):
			sel = ChanSelB1
		case ie.Chans.Contains(2):
			sel = ChanSelB2
		case !ie.Chans.Empty():
			return dst, ErrIEBadVal
		}
	} else if !ie.Chans.Empty() || ie.ChanMap {
		sel = ChanSelIndicated
	}
	if sel > 0x3 {
		return dst, ErrIEBadVal
	}
	o3 := byte(0x80) | sel
	if len(ie.IntfID) > 0 {
		o3 |= 0x40
	}
	o3 |= boolBit(pra, 0x20) | boolBit(ie.Exclusive, 0x08) |
		boolBit(ie.DChannel, 0x04)
	dst = append(dst, o3)
	if len(ie.IntfID) > 0 {
		dst = append(dst, ie.IntfID...)
	}
	if !pra || sel != ChanSelIndicated || ie.DChannel {
		return dst, ErrIEOk
	}
	if ie.ChanMap {
		dst = append(dst, 0x80|0x10|chanTypeB)
		return append(dst, ie.Map...), ErrIEOk
	}
	dst = append(dst, 0x80|chanTypeB)
	n := ie.Chans.Len()
	for i := 0; i < n; i++ {
		c := ie.Chans.Get(i)
		dst = append(dst, extBit(i == n-1)|byte(c&0x7f))
	}
	return dst, ErrIEOk
}
