// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

// Bearer Capability, Low Layer Compatibility and High Layer
// Compatibility information elements.
//
// Bearer Capability octet layout (Q.931 4.5.5):
//   3    ext(1) coding std(2) info transfer capability(5)
//   4    ext(1) transfer mode(2) info transfer rate(5)
//   4.1  ext(1) rate multiplier(7)              [rate == multirate]
//   5    ext(1) 01 layer 1 protocol(5)
//   5a   ext(1) sync/async(1) negotiation(1) user rate(5)
//   5b   ext(1) intermediate rate, NIC, flow ctrl (raw 7 bits)
//   5c   ext(1) stop bits(2) data bits(2) parity(3)
//   5d   ext(1) duplex(1) modem type(6)
//   6    ext(1) 10 layer 2 protocol(5)
//   7    ext(1) 11 layer 3 protocol(5)

// information transfer capability values
const (
	ITCSpeech              = 0x00
	ITCUnrestrictedDigital = 0x08
	ITCRestrictedDigital   = 0x09
	ITCAudio31kHz          = 0x10
	ITCDigitalWithTones    = 0x11
	ITCVideo               = 0x18
)

// transfer modes
const (
	ModeCircuit = 0x0
	ModePacket  = 0x2
)

// information transfer rates
const (
	RatePacket    = 0x00
	Rate64k       = 0x10
	Rate2x64k     = 0x11
	Rate384k      = 0x13
	Rate1536k     = 0x15
	Rate1920k     = 0x17
	RateMultirate = 0x18
)

// user information layer 1 protocols
const (
	L1V110      = 0x01
	L1G711Ulaw  = 0x02
	L1G711Alaw  = 0x03
	L1G721      = 0x04
	L1H221      = 0x05
	L1NonCCITT  = 0x07
	L1V120      = 0x08
	L1X31       = 0x09
	L2Q921      = 0x02 // layer 2
	L2X25       = 0x06
	L3Q931      = 0x02 // layer 3
	L3X25       = 0x06
	layerID1    = 0x1
	layerID2    = 0x2
	layerID3    = 0x3
	maxL1ExtOct = 4
)

// BearerL1 holds the user information layer 1 octet group (5 - 5d).
type BearerL1 struct {
	Proto       uint8
	ExtOcts     int // number of 5a-5d octets present
	Async       bool
	Negotiation bool
	UserRate    uint8
	Oct5b       uint8 // raw
	StopBits    uint8
	DataBits    uint8
	Parity      uint8
	Duplex      bool
	ModemType   uint8
}

// BearerInfo holds the fields shared by Bearer Capability and Low Layer
// Compatibility.
type BearerInfo struct {
	ITC           uint8 // information transfer capability
	Mode          uint8 // transfer mode
	Rate          uint8 // information transfer rate
	HasMultiplier bool
	Multiplier    uint8
	HasL1         bool
	L1            BearerL1
	HasL2         bool
	L2Proto       uint8
	HasL3         bool
	L3Proto       uint8
}

// IEBearerCap is the Bearer Capability information element.
type IEBearerCap struct {
	BearerInfo
}

// NewBearerCapSpeech returns a 64 kbit/s circuit mode speech bearer
// capability using the given G.711 law.
func NewBearerCapSpeech(alaw bool) *IEBearerCap {
	bc := &IEBearerCap{}
	bc.ITC = ITCSpeech
	bc.Mode = ModeCircuit
	bc.Rate = Rate64k
	bc.HasL1 = true
	if alaw {
		bc.L1.Proto = L1G711Alaw
	} else {
		bc.L1.Proto = L1G711Ulaw
	}
	return bc
}

func (ie *IEBearerCap) ID() IEID {
	return IDBearerCap
}

func (ie *IEBearerCap) Decode(ctx *IECtx, b []byte) ErrorIE {
	r := ieReader{b: b}
	*ie = IEBearerCap{}
	if err := ie.decodeHead(&r); err != ErrIEOk {
		return err
	}
	return ie.decodeLayers(&r, nil)
}

func (ie *IEBearerCap) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	dst, err := ie.encodeHead(dst)
	if err != ErrIEOk {
		return dst, err
	}
	return ie.encodeLayers(dst, nil)
}

// llcExt holds the octets present only in Low Layer Compatibility.
type llcExt struct {
	HasOct6a bool
	Oct6a    uint8 // raw layer 2 optional information
	L3ExtOcts int  // number of 7a-7b octets present
	Oct7a    uint8 // raw
	Oct7b    uint8 // raw
}

// decodeHead decodes octets 3, 4 and 4.1.
func (bi *BearerInfo) decodeHead(r *ieReader) ErrorIE {
	o3, ok := r.octet()
	if !ok {
		return ErrIETooShort
	}
	if err := codingStd(o3); err != ErrIEOk {
		return err
	}
	if !ext(o3) {
		return ErrIEExtUnexpected
	}
	bi.ITC = o3 & 0x1f
	return bi.decodeOct4(r)
}

func (bi *BearerInfo) decodeOct4(r *ieReader) ErrorIE {
	o4, ok := r.octet()
	if !ok {
		return ErrIETooShort
	}
	bi.Mode = (o4 >> 5) & 0x3
	bi.Rate = o4 & 0x1f
	if !ext(o4) {
		o41, ok := r.octet()
		if !ok {
			return ErrIEExtMissing
		}
		if !ext(o41) {
			return ErrIEExtUnexpected
		}
		bi.HasMultiplier = true
		bi.Multiplier = o41 & 0x7f
	}
	return ErrIEOk
}

func (bi *BearerInfo) encodeHead(dst []byte) ([]byte, ErrorIE) {
	if bi.ITC > 0x1f {
		return dst, ErrIEBadVal
	}
	dst = append(dst, 0x80|bi.ITC)
	return bi.encodeOct4(dst)
}

func (bi *BearerInfo) encodeOct4(dst []byte) ([]byte, ErrorIE) {
	if bi.Mode > 0x3 || bi.Rate > 0x1f || bi.Multiplier > 0x7f {
		return dst, ErrIEBadVal
	}
	dst = append(dst, extBit(!bi.HasMultiplier)|bi.Mode<<5|bi.Rate)
	if bi.HasMultiplier {
		dst = append(dst, 0x80|bi.Multiplier)
	}
	return dst, ErrIEOk
}

// decodeLayers decodes the layer 1, 2 and 3 octet groups.
// If x is not nil the Low Layer Compatibility only octets are allowed.
func (bi *BearerInfo) decodeLayers(r *ieReader, x *llcExt) ErrorIE {
	last := 0
	for r.more() {
		o, _ := r.peek()
		lid := int((o >> 5) & 0x3)
		if lid == 0 || lid <= last {
			return ErrIEBadVal
		}
		last = lid
		g, err := r.group()
		if err != ErrIEOk {
			return err
		}
		switch lid {
		case layerID1:
			if len(g) > 1+maxL1ExtOct {
				return ErrIEExtUnexpected
			}
			bi.HasL1 = true
			bi.L1.decode(g)
		case layerID2:
			maxOcts := 1
			if x != nil {
				maxOcts = 2
			}
			if len(g) > maxOcts {
				return ErrIEExtUnexpected
			}
			bi.HasL2 = true
			bi.L2Proto = g[0] & 0x1f
			if len(g) == 2 {
				x.HasOct6a = true
				x.Oct6a = g[1] & 0x7f
			}
		case layerID3:
			maxOcts := 1
			if x != nil {
				maxOcts = 3
			}
			if len(g) > maxOcts {
				return ErrIEExtUnexpected
			}
			bi.HasL3 = true
			bi.L3Proto = g[0] & 0x1f
			if x != nil {
				x.L3ExtOcts = len(g) - 1
				if len(g) > 1 {
					x.Oct7a = g[1] & 0x7f
				}
				if len(g) > 2 {
					x.Oct7b = g[2] & 0x7f
				}
			}
		}
	}
	return ErrIEOk
}

func (l1 *BearerL1) decode(g []byte) {
	l1.Proto = g[0] & 0x1f
	l1.ExtOcts = len(g) - 1
	if len(g) > 1 {
		l1.Async = g[1]&0x40 != 0
		l1.Negotiation = g[1]&0x20 != 0
		l1.UserRate = g[1] & 0x1f
	}
	if len(g) > 2 {
		l1.Oct5b = g[2] & 0x7f
	}
	if len(g) > 3 {
		l1.StopBits = (g[3] >> 5) & 0x3
		l1.DataBits = (g[3] >> 3) & 0x3
		l1.Parity = g[3] & 0x7
	}
	if len(g) > 4 {
		l1.Duplex = g[4]&0x40 != 0
		l1.ModemType = g[4] & 0x3f
	}
}

func boolBit(v bool, bit byte) byte {
	if v {
		return bit
	}
	return 0
}

func (l1 *BearerL1) encode(dst []byte) ([]byte, ErrorIE) {
	if l1.Proto > 0x1f || l1.ExtOcts < 0 || l1.ExtOcts > maxL1ExtOct ||
		l1.UserRate > 0x1f || l1.Oct5b > 0x7f || l1.StopBits > 0x3 ||
		l1.DataBits > 0x3 || l1.Parity > 0x7 || l1.ModemType > 0x3f {
		return dst, ErrIEBadVal
	}
	n := l1.ExtOcts
	dst = append(dst, extBit(n == 0)|layerID1<<5|l1.Proto)
	if n > 0 {
		dst = append(dst, extBit(n == 1)|boolBit(l1.Async, 0x40)|
			boolBit(l1.Negotiation, 0x20)|l1.UserRate)
	}
	if n > 1 {
		dst = append(dst, extBit(n == 2)|l1.Oct5b)
	}
	if n > 2 {
		dst = append(dst, extBit(n == 3)|l1.StopBits<<5|l1.DataBits<<3|
			l1.Parity)
	}
	if n > 3 {
		dst = append(dst, 0x80|boolBit(l1.Duplex, 0x40)|l1.ModemType)
	}
	return dst, ErrIEOk
}

func (bi *BearerInfo) encodeLayers(dst []byte, x *llcExt) ([]byte, ErrorIE) {
	var err ErrorIE
	if bi.HasL1 {
		if dst, err = bi.L1.encode(dst); err != ErrIEOk {
			return dst, err
		}
	}
	if bi.HasL2 {
		if bi.L2Proto > 0x1f || (x != nil && x.Oct6a > 0x7f) {
			return dst, ErrIEBadVal
		}
		has6a := x != nil && x.HasOct6a
		dst = append(dst, extBit(!has6a)|layerID2<<5|bi.L2Proto)
		if has6a {
			dst = append(dst, 0x80|x.Oct6a)
		}
	}
	if bi.HasL3 {
		n := 0
		if x != nil {
			n = x.L3ExtOcts
			if n < 0 || n > 2 || x.Oct7a > 0x7f || x.Oct7b > 0x7f {
				return dst, ErrIEBadVal
			}
		}
		if bi.L3Proto > 0x1f {
			return dst, ErrIEBadVal
		}
		dst = append(dst, extBit(n == 0)|layerID3<<5|bi.L3Proto)
		if n > 0 {
			dst = append(dst, extBit(n == 1)|x.Oct7a)
		}
		if n > 1 {
			dst = append(dst, 0x80|x.Oct7b)
		}
	}
	return dst, ErrIEOk
}

// IELowLayerCompat is the Low Layer Compatibility information element.
// It has the Bearer Capability layout plus octets 3a (negotiation
// indicator), 6a and 7a-7b.
type IELowLayerCompat struct {
	BearerInfo
	llcExt
	HasOct3a       bool
	NegotiationInd bool // out-band negotiation possible
}

func (ie *IELowLayerCompat) ID() IEID {
	return IDLowLayerCompat
}

func (ie *IELowLayerCompat) Decode(ctx *IECtx, b []byte) ErrorIE {
	r := ieReader{b: b}
	*ie = IELowLayerCompat{}
	o3, ok := r.octet()
	if !ok {
		return ErrIETooShort
	}
	if err := codingStd(o3); err != ErrIEOk {
		return err
	}
	ie.ITC = o3 & 0x1f
	if !ext(o3) {
		o3a, ok := r.octet()
		if !ok {
			return ErrIEExtMissing
		}
		if !ext(o3a) {
			return ErrIEExtUnexpected
		}
		ie.HasOct3a = true
		ie.NegotiationInd = o3a&0x40 != 0
	}
	if err := ie.decodeOct4(&r); err != ErrIEOk {
		return err
	}
	return ie.decodeLayers(&r, &ie.llcExt)
}

func (ie *IELowLayerCompat) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	if ie.ITC > 0x1f {
		return dst, ErrIEBadVal
	}
	dst = append(dst, extBit(!ie.HasOct3a)|ie.ITC)
	if ie.HasOct3a {
		dst = append(dst, 0x80|boolBit(ie.NegotiationInd, 0x40))
	}
	dst, err := ie.encodeOct4(dst)
	if err != ErrIEOk {
		return dst, err
	}
	return ie.encodeLayers(dst, &ie.llcExt)
}

// IEHighLayerCompat is the High Layer Compatibility information element.
//   3   ext(1) coding std(2) interpretation(3) presentation(2)
//   4   ext(1) high layer characteristics id(7)
//   4a  ext(1) extended characteristics id(7)
type IEHighLayerCompat struct {
	Interpretation  uint8
	Presentation    uint8
	Characteristics uint8
	HasExtended     bool
	Extended        uint8
}

// high layer characteristics
const (
	HLCTelephony   = 0x01
	HLCFaxG3       = 0x04
	HLCFaxG4       = 0x21
	HLCTeletex     = 0x31
	HLCVideotex    = 0x32
	HLCTelex       = 0x35
	HLCMaintenance = 0x5e
	HLCManagement  = 0x5f
)

func (ie *IEHighLayerCompat) ID() IEID {
	return IDHighLayerCompat
}

func (ie *IEHighLayerCompat) Decode(ctx *IECtx, b []byte) ErrorIE {
	r := ieReader{b: b}
	*ie = IEHighLayerCompat{}
	o3, ok := r.octet()
	if !ok {
		return ErrIETooShort
	}
	if err := codingStd(o3); err != ErrIEOk {
		return err
	}
	if !ext(o3) {
		return ErrIEExtUnexpected
	}
	ie.Interpretation = (o3 >> 2) & 0x7
	ie.Presentation = o3 & 0x3
	g, err := r.group()
	if err != ErrIEOk {
		return err
	}
	if len(g) > 2 {
		return ErrIEExtUnexpected
	}
	ie.Characteristics = g[0] & 0x7f
	if len(g) == 2 {
		ie.HasExtended = true
		ie.Extended = g[1] & 0x7f
	}
	if r.more() {
		return ErrIETooLong
	}
	return ErrIEOk
}

func (ie *IEHighLayerCompat) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	if ie.Interpretation > 0x7 || ie.Presentation > 0x3 ||
		ie.Characteristics > 0x7f || ie.Extended > 0x7f {
		return dst, ErrIEBadVal
	}
	dst = append(dst, 0x80|ie.Interpretation<<2|ie.Presentation)
	dst = append(dst, extBit(!ie.HasExtended)|ie.Characteristics)
	if ie.HasExtended {
		dst = append(dst, 0x80|ie.Extended)
	}
	return dst, ErrIEOk
}
