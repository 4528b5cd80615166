// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

// Party number and subaddress information elements.
//
// Number octet layout (Q.931 4.5.8, 4.5.10, 4.5.13, ETS 300 207):
//   3   ext(1) type of number(3) numbering plan(4)
//   3a  ext(1) presentation(2) spare(3) screening(2)  [calling, connected,
//                                                     redirecting]
//   3b  ext(1) spare(3) reason for redirection(4)     [redirecting]
//   4+  IA5 digits

// types of number
const (
	TONUnknown       = 0x0
	TONInternational = 0x1
	TONNational      = 0x2
	TONNetSpecific   = 0x3
	TONSubscriber    = 0x4
	TONAbbreviated   = 0x6
)

// numbering plans
const (
	NPIUnknown  = 0x0
	NPIISDN     = 0x1 // E.164
	NPIData     = 0x3
	NPITelex    = 0x4
	NPINational = 0x8
	NPIPrivate  = 0x9
)

// presentation indicators
const (
	PresAllowed      = 0x0
	PresRestricted   = 0x1
	PresNotAvailable = 0x2
)

// screening indicators
const (
	ScreenUserNotScreened = 0x0
	ScreenUserPassed      = 0x1
	ScreenUserFailed      = 0x2
	ScreenNetwork         = 0x3
)

// PartyNumber holds the fields common to all the number information
// elements.
type PartyNumber struct {
	TypeOfNumber    uint8
	NumberingPlan   uint8
	HasPresentation bool
	Presentation    uint8
	Screening       uint8
	HasReason       bool
	Reason          uint8 // reason for redirection
	Digits          string
}

// number layout variants
const (
	numOct3  = iota // only octet 3
	numOct3a        // optional 3a
	numOct3b        // optional 3a and 3b
)

func (n *PartyNumber) decode(b []byte, variant int) ErrorIE {
	r := ieReader{b: b}
	*n = PartyNumber{}
	o3, ok := r.octet()
	if !ok {
		return ErrIETooShort
	}
	n.TypeOfNumber = (o3 >> 4) & 0x7
	n.NumberingPlan = o3 & 0xf
	if !ext(o3) {
		if variant < numOct3a {
			return ErrIEExtUnexpected
		}
		o3a, ok := r.octet()
		if !ok {
			return ErrIEExtMissing
		}
		n.HasPresentation = true
		n.Presentation = (o3a >> 5) & 0x3
		n.Screening = o3a & 0x3
		if !ext(o3a) {
			if variant < numOct3b {
				return ErrIEExtUnexpected
			}
			o3b, ok := r.octet()
			if !ok {
				return ErrIEExtMissing
			}
			if !ext(o3b) {
				return ErrIEExtUnexpected
			}
			n.HasReason = true
			n.Reason = o3b & 0xf
		}
	}
	d := r.rest()
	if err := checkIA5(d); err != ErrIEOk {
		return err
	}
	n.Digits = string(d)
	return ErrIEOk
}

func (n *PartyNumber) encode(dst []byte, variant int) ([]byte, ErrorIE) {
	if n.TypeOfNumber > 0x7 || n.NumberingPlan > 0xf ||
		n.Presentation > 0x3 || n.Screening > 0x3 || n.Reason > 0xf {
		return dst, ErrIEBadVal
	}
	if (n.HasPresentation && variant < numOct3a) ||
		(n.HasReason && (variant < numOct3b || !n.HasPresentation)) {
		return dst, ErrIEBadVal
	}
	if err := checkIA5([]byte(n.Digits)); err != ErrIEOk {
		return dst, err
	}
	dst = append(dst, extBit(!n.HasPresentation)|n.TypeOfNumber<<4|
		n.NumberingPlan)
	if n.HasPresentation {
		dst = append(dst, extBit(!n.HasReason)|n.Presentation<<5|n.Screening)
		if n.HasReason {
			dst = append(dst, 0x80|n.Reason)
		}
	}
	dst = append(dst, n.Digits...)
	return dst, ErrIEOk
}

// IECalledNumber is the Called Party Number information element.
type IECalledNumber struct {
	PartyNumber
}

// NewIECalledNumber returns a Called Party Number with unknown type of
// number and E.164 numbering plan.
func NewIECalledNumber(digits string) *IECalledNumber {
	ie := &IECalledNumber{}
	ie.NumberingPlan = NPIISDN
	ie.Digits = digits
	return ie
}

func (ie *IECalledNumber) ID() IEID {
	return IDCalledNumber
}

func (ie *IECalledNumber) Decode(ctx *IECtx, b []byte) ErrorIE {
	return ie.decode(b, numOct3)
}

func (ie *IECalledNumber) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	return ie.encode(dst, numOct3)
}

// Complete returns true if the number ends with the '#' terminator.
func (ie *IECalledNumber) Complete() bool {
	return len(ie.Digits) > 0 && ie.Digits[len(ie.Digits)-1] == '#'
}

// IECallingNumber is the Calling Party Number information element.
type IECallingNumber struct {
	PartyNumber
}

func (ie *IECallingNumber) ID() IEID {
	return IDCallingNumber
}

func (ie *IECallingNumber) Decode(ctx *IECtx, b []byte) ErrorIE {
	return ie.decode(b, numOct3a)
}

func (ie *IECallingNumber) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	return ie.encode(dst, numOct3a)
}

// IEConnectedNumber is the Connected Number information element.
type IEConnectedNumber struct {
	PartyNumber
}

func (ie *IEConnectedNumber) ID() IEID {
	return IDConnectedNumber
}

func (ie *IEConnectedNumber) Decode(ctx *IECtx, b []byte) ErrorIE {
	return ie.decode(b, numOct3a)
}

func (ie *IEConnectedNumber) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	return ie.encode(dst, numOct3a)
}

// IERedirectingNumber is the Redirecting Number information element.
type IERedirectingNumber struct {
	PartyNumber
}

func (ie *IERedirectingNumber) ID() IEID {
	return IDRedirectingNumber
}

func (ie *IERedirectingNumber) Decode(ctx *IECtx, b []byte) ErrorIE {
	return ie.decode(b, numOct3b)
}

func (ie *IERedirectingNumber) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	return ie.encode(dst, numOct3b)
}

// subaddress types
const (
	SubaddrNSAP = 0x0
	SubaddrUser = 0x2
)

// IESubaddress is used for the Called, Calling and Connected Subaddress
// information elements.
//   3   ext(1) type(3) odd/even(1) spare(3)
//   4+  subaddress information
type IESubaddress struct {
	IEId    IEID
	Type    uint8
	OddEven bool // odd number of address signals (user specified)
	Info    []byte
}

func (ie *IESubaddress) ID() IEID {
	return ie.IEId
}

func (ie *IESubaddress) Decode(ctx *IECtx, b []byte) ErrorIE {
	r := ieReader{b: b}
	id := ie.IEId
	*ie = IESubaddress{IEId: id}
	o3, ok := r.octet()
	if !ok {
		return ErrIETooShort
	}
	if !ext(o3) {
		return ErrIEExtUnexpected
	}
	ie.Type = (o3 >> 4) & 0x7
	ie.OddEven = o3&0x08 != 0
	if d := r.rest(); len(d) > 0 {
		ie.Info = append([]byte(nil), d...)
	}
	return ErrIEOk
}

func (ie *IESubaddress) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	if ie.Type > 0x7 {
		return dst, ErrIEBadVal
	}
	dst = append(dst, 0x80|ie.Type<<4|boolBit(ie.OddEven, 0x08))
	dst = append(dst, ie.Info...)
	return dst, ErrIEOk
}
