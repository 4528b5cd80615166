// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

// IECause is the Cause information element (Q.931 4.5.12).
//   3   ext(1) coding std(2) spare(1) location(4)
//   3a  ext(1) recommendation(7)               [optional]
//   4   ext(1) cause value(7)
//   5+  diagnostics
type IECause struct {
	Location          CauseLoc
	HasRecommendation bool
	Recommendation    uint8
	Value             Cause
	Diag              []byte
}

// MaxCauseDiag is the maximum length of the cause diagnostics.
const MaxCauseDiag = 27

// NewIECause returns a Cause information element.
func NewIECause(loc CauseLoc, c Cause, diag ...byte) *IECause {
	ie := &IECause{Location: loc, Value: c}
	if len(diag) > 0 {
		ie.Diag = append([]byte(nil), diag...)
	}
	return ie
}

func (ie *IECause) ID() IEID {
	return IDCause
}

func (ie *IECause) Decode(ctx *IECtx, b []byte) ErrorIE {
	r := ieReader{b: b}
	*ie = IECause{}
	o3, ok := r.octet()
	if !ok {
		return ErrIETooShort
	}
	if err := codingStd(o3); err != ErrIEOk {
		return err
	}
	ie.Location = CauseLoc(o3 & 0xf)
	if !ext(o3) {
		o3a, ok := r.octet()
		if !ok {
			return ErrIEExtMissing
		}
		if !ext(o3a) {
			return ErrIEExtUnexpected
		}
		ie.HasRecommendation = true
		ie.Recommendation = o3a & 0x7f
	}
	o4, ok := r.octet()
	if !ok {
		return ErrIETooShort
	}
	if !ext(o4) {
		return ErrIEExtUnexpected
	}
	ie.Value = Cause(o4 & 0x7f)
	if d := r.rest(); len(d) > 0 {
		if len(d) > MaxCauseDiag {
			return ErrIETooLong
		}
		ie.Diag = append([]byte(nil), d...)
	}
	return ErrIEOk
}

func (ie *IECause) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	if ie.Location > 0xf || ie.Recommendation > 0x7f || ie.Value > 0x7f {
		return dst, ErrIEBadVal
	}
	if len(ie.Diag) > MaxCauseDiag {
		return dst, ErrIETooLong
	}
	dst = append(dst, extBit(!ie.HasRecommendation)|byte(ie.Location))
	if ie.HasRecommendation {
		dst = append(dst, 0x80|ie.Recommendation)
	}
	dst = append(dst, 0x80|byte(ie.Value))
	dst = append(dst, ie.Diag...)
	return dst, ErrIEOk
}
