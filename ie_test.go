// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var (
	braCtx = &IECtx{IntfType: IntfBRA, Dir: DirNtoU}
	praCtx = &IECtx{IntfType: IntfPRA, Dir: DirNtoU}
)

// encodeDecode encodes ie with AppendIE and decodes the result back.
func encodeDecode(ctx *IECtx, ie IE) (IE, []byte, ErrorIE) {
	b, err := AppendIE(ctx, nil, ie)
	if err != ErrIEOk {
		return nil, b, err
	}
	if ie.ID().SingleOctet() {
		d, err := DecodeIE(ctx, singleOctetID(b[0]), b)
		return d, b, err
	}
	if len(b) < 2 || int(b[1]) != len(b)-2 {
		return nil, b, ErrIEBug
	}
	d, err := DecodeIE(ctx, IEID(b[0]), b[2:])
	return d, b, err
}

func TestIEID(t *testing.T) {
	assert.Equal(t, "Cause", IDCause.String())
	assert.Equal(t, "Sending Complete", IDSendingComplete.String())
	assert.Equal(t, "IE 0x2f", IEID(0x2f).String())

	assert.True(t, IEID(0x0f).ComprehensionRequired())
	assert.True(t, IDCause.ComprehensionRequired())
	assert.False(t, IDDisplay.ComprehensionRequired())

	assert.Equal(t, IDSendingComplete, singleOctetID(0xa1))
	assert.Equal(t, IDMoreData, singleOctetID(0xa0))
	assert.Equal(t, IDShift, singleOctetID(0x96))
	assert.Equal(t, IDCongestionLevel, singleOctetID(0xbf))
	assert.True(t, IDRepeatInd.SingleOctet())
	assert.False(t, IDUserUser.SingleOctet())

	assert.IsType(t, &IECause{}, NewIE(IDCause))
	assert.IsType(t, &IESubaddress{}, NewIE(IDCalledSubaddr))
	assert.Equal(t, IDCalledSubaddr, NewIE(IDCalledSubaddr).ID())
	assert.Nil(t, NewIE(IEID(0x2f)))
	assert.Nil(t, NewIE(IDShift))

	_, err := DecodeIE(braCtx, IEID(0x2f), []byte{0x80})
	assert.Equal(t, ErrIEUnknown, err)
}

func ieCauseGen() *rapid.Generator[*IECause] {
	return rapid.Custom(func(t *rapid.T) *IECause {
		ie := &IECause{
			Location: CauseLoc(rapid.IntRange(0, 15).Draw(t, "loc")),
			Value:    Cause(rapid.IntRange(0, 127).Draw(t, "value")),
		}
		if rapid.Bool().Draw(t, "hasRec") {
			ie.HasRecommendation = true
			ie.Recommendation = uint8(rapid.IntRange(0, 127).Draw(t, "rec"))
		}
		d := rapid.SliceOfN(rapid.Byte(), 0, MaxCauseDiag).Draw(t, "diag")
		if len(d) > 0 {
			ie.Diag = d
		}
		return ie
	})
}

func TestIECauseRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ie := ieCauseGen().Draw(t, "cause")
		d, b, err := encodeDecode(braCtx, ie)
		require.Equal(t, ErrIEOk, err, "encoded % x", b)
		assert.Equal(t, ie, d)
	})
}

func TestIECauseEncoding(t *testing.T) {
	b, err := AppendIE(braCtx, nil,
		NewIECause(LocPublicLoc, CauseUserBusy))
	require.Equal(t, ErrIEOk, err)
	assert.Equal(t, []byte{byte(IDCause), 2, 0x82, 0x91}, b)

	ie := NewIECause(LocUser, CauseNormalCallClearing, 1, 2)
	ie.HasRecommendation = true
	b, err = AppendIE(braCtx, []byte{0xff}, ie)
	require.Equal(t, ErrIEOk, err)
	assert.Equal(t, []byte{0xff, byte(IDCause), 5, 0x00, 0x80, 0x90, 1, 2}, b)

	b, err = AppendIE(braCtx, []byte{0xff},
		&IECause{Value: CauseUserBusy, Diag: make([]byte, MaxCauseDiag+1)})
	assert.Equal(t, ErrIETooLong, err)
	assert.Equal(t, []byte{0xff}, b)
	_, err = AppendIE(braCtx, nil, &IECause{Value: 0x80})
	assert.Equal(t, ErrIEBadVal, err)
}

func TestIECauseDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
		err  ErrorIE
	}{
		{"coding standard", []byte{0xe0, 0x90}, ErrIECodingStd},
		{"3a not last", []byte{0x00, 0x10, 0x90}, ErrIEExtUnexpected},
		{"no value", []byte{0x01, 0x90}, ErrIETooShort},
		{"value ext", []byte{0x80, 0x10}, ErrIEExtUnexpected},
		{"min length", []byte{0x80}, ErrIETooShort},
		{"diagnostics", append([]byte{0x80, 0x90},
			make([]byte, MaxCauseDiag+1)...), ErrIETooLong},
		{"max length", make([]byte, 31), ErrIETooLong},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ie, err := DecodeIE(braCtx, IDCause, tc.b)
			assert.Equal(t, tc.err, err)
			assert.Nil(t, ie)
		})
	}
}

func TestIEChannelIDBRA(t *testing.T) {
	tests := []struct {
		name    string
		ie      *IEChannelID
		encoded []byte
		chans   []int
		infoSel uint8
	}{
		{"any", NewIEChannelID(IntfBRA, false),
			[]byte{0x83}, nil, ChanSelAny},
		{"B1", NewIEChannelID(IntfBRA, false, 1),
			[]byte{0x81}, []int{1}, ChanSelB1},
		{"B2 exclusive", NewIEChannelID(IntfBRA, true, 2),
			[]byte{0x8a}, []int{2}, ChanSelB2},
		{"none", &IEChannelID{},
			[]byte{0x80}, nil, ChanSelNone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, b, err := encodeDecode(braCtx, tc.ie)
			require.Equal(t, ErrIEOk, err)
			assert.Equal(t, append([]byte{byte(IDChannelID),
				byte(len(tc.encoded))}, tc.encoded...), b)
			cid := d.(*IEChannelID)
			assert.False(t, cid.PRA)
			assert.Equal(t, tc.ie.Exclusive, cid.Exclusive)
			assert.Equal(t, tc.infoSel, cid.InfoSel)
			assert.Equal(t, len(tc.chans), cid.Chans.Len())
			for _, c := range tc.chans {
				assert.True(t, cid.Chans.Contains(c))
			}
		})
	}

	_, err := AppendIE(braCtx, nil, NewIEChannelID(IntfBRA, true, 1, 2))
	assert.Equal(t, ErrIEBadVal, err)
	_, err = AppendIE(braCtx, nil, NewIEChannelID(IntfBRA, true, 3))
	assert.Equal(t, ErrIEBadVal, err)

	d, err := DecodeIE(braCtx, IDChannelID, []byte{0x80})
	require.Equal(t, ErrIEOk, err)
	assert.True(t, d.(*IEChannelID).NoChannel())
	d, err = DecodeIE(braCtx, IDChannelID, []byte{0x83})
	require.Equal(t, ErrIEOk, err)
	assert.True(t, d.(*IEChannelID).Any())
}

func TestIEChannelIDPRA(t *testing.T) {
	b, err := AppendIE(praCtx, nil, NewIEChannelID(IntfPRA, true, 1))
	require.Equal(t, ErrIEOk, err)
	assert.Equal(t, []byte{byte(IDChannelID), 3, 0xa9, 0x83, 0x81}, b)

	b, err = AppendIE(praCtx, nil, NewIEChannelID(IntfPRA, false, 3, 17))
	require.Equal(t, ErrIEOk, err)
	assert.Equal(t, []byte{byte(IDChannelID), 4, 0xa1, 0x83, 0x03, 0x91}, b)

	rapid.Check(t, func(t *rapid.T) {
		ch := rapid.IntRange(1, 31).Filter(func(c int) bool { return c != 16 })
		chans := rapid.SliceOfNDistinct(ch, 1, 12, rapid.ID[int]).
			Draw(t, "chans")
		excl := rapid.Bool().Draw(t, "exclusive")
		d, b, err := encodeDecode(praCtx, NewIEChannelID(IntfPRA, excl, chans...))
		require.Equal(t, ErrIEOk, err, "encoded % x", b)
		cid := d.(*IEChannelID)
		assert.True(t, cid.PRA)
		assert.Equal(t, excl, cid.Exclusive)
		assert.Equal(t, uint8(ChanSelIndicated), cid.InfoSel)
		assert.Equal(t, chans, cid.Chans.Chans())
	})
}

func TestIEChannelIDIntfID(t *testing.T) {
	ie := NewIEChannelID(IntfPRA, true, 5)
	ie.IntfID = []byte{0x81}
	d, b, err := encodeDecode(praCtx, ie)
	require.Equal(t, ErrIEOk, err, "encoded % x", b)
	assert.Equal(t, []byte{byte(IDChannelID), 4, 0xe9, 0x81, 0x83, 0x85}, b)
	cid := d.(*IEChannelID)
	assert.Equal(t, []byte{0x81}, cid.IntfID)
	assert.Equal(t, []int{5}, cid.Chans.Chans())
	assert.True(t, cid.Exclusive)

	// interface identifier only, no channel octets
	d, err = DecodeIE(praCtx, IDChannelID, []byte{0xe3, 0x01, 0x82})
	require.Equal(t, ErrIEOk, err)
	cid = d.(*IEChannelID)
	assert.Equal(t, []byte{0x01, 0x82}, cid.IntfID)
	assert.True(t, cid.Any())
}

func TestIEChannelIDDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		ctx  *IECtx
		b    []byte
		err  ErrorIE
	}{
		{"octet 3 ext", braCtx, []byte{0x01}, ErrIEExtUnexpected},
		{"PRA on BRA", braCtx, []byte{0xa1, 0x83, 0x81}, ErrIEBadVal},
		{"BRA on PRA", praCtx, []byte{0x81}, ErrIEBadVal},
		{"BRA trailing", braCtx, []byte{0x81, 0x81}, ErrIETooLong},
		{"channel 0", praCtx, []byte{0xa1, 0x83, 0x80}, ErrIEBadVal},
		{"D channel slot", praCtx, []byte{0xa1, 0x83, 0x90}, ErrIEBadVal},
		{"ext missing", praCtx, []byte{0xa1, 0x83, 0x01}, ErrIEExtMissing},
		{"no channel", praCtx, []byte{0xa1, 0x83}, ErrIETooShort},
		{"coding standard", praCtx, []byte{0xa1, 0xe3, 0x81}, ErrIECodingStd},
		{"channel type", praCtx, []byte{0xa1, 0x84, 0x81}, ErrIEBadVal},
		{"trailing", praCtx, []byte{0xa1, 0x83, 0x81, 0x82}, ErrIETooLong},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeIE(tc.ctx, IDChannelID, tc.b)
			assert.Equal(t, tc.err, err)
		})
	}

	d, err := DecodeIE(praCtx, IDChannelID, []byte{0xa1, 0x93, 0xff, 0x7f})
	require.Equal(t, ErrIEOk, err)
	cid := d.(*IEChannelID)
	assert.True(t, cid.ChanMap)
	assert.Equal(t, []byte{0xff, 0x7f}, cid.Map)
	assert.False(t, cid.NoChannel())
}

func partyNumberGen(variant int) *rapid.Generator[PartyNumber] {
	return rapid.Custom(func(t *rapid.T) PartyNumber {
		n := PartyNumber{
			TypeOfNumber:  uint8(rapid.IntRange(0, 7).Draw(t, "ton")),
			NumberingPlan: uint8(rapid.IntRange(0, 15).Draw(t, "npi")),
		}
		if variant >= numOct3a && rapid.Bool().Draw(t, "hasPres") {
			n.HasPresentation = true
			n.Presentation = uint8(rapid.IntRange(0, 3).Draw(t, "pres"))
			n.Screening = uint8(rapid.IntRange(0, 3).Draw(t, "screen"))
			if variant >= numOct3b && rapid.Bool().Draw(t, "hasReason") {
				n.HasReason = true
				n.Reason = uint8(rapid.IntRange(0, 15).Draw(t, "reason"))
			}
		}
		digits := rapid.SliceOfN(rapid.SampledFrom([]byte("0123456789*#")),
			0, 20).Draw(t, "digits")
		n.Digits = string(digits)
		return n
	})
}

func TestIENumberRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		called := &IECalledNumber{partyNumberGen(numOct3).Draw(t, "called")}
		calling := &IECallingNumber{partyNumberGen(numOct3a).Draw(t, "calling")}
		connected := &IEConnectedNumber{partyNumberGen(numOct3a).Draw(t, "connected")}
		redir := &IERedirectingNumber{partyNumberGen(numOct3b).Draw(t, "redirecting")}
		for _, ie := range []IE{called, calling, connected, redir} {
			d, b, err := encodeDecode(braCtx, ie)
			require.Equal(t, ErrIEOk, err, "%s encoded % x", ie.ID(), b)
			assert.Equal(t, ie, d)
		}
	})
}

func TestIENumber(t *testing.T) {
	b, err := AppendIE(braCtx, nil, NewIECalledNumber("12#"))
	require.Equal(t, ErrIEOk, err)
	assert.Equal(t, []byte{byte(IDCalledNumber), 4, 0x81, '1', '2', '#'}, b)
	assert.True(t, NewIECalledNumber("12#").Complete())
	assert.False(t, NewIECalledNumber("12").Complete())
	assert.False(t, NewIECalledNumber("").Complete())

	calling := &IECallingNumber{}
	calling.TypeOfNumber = TONNational
	calling.NumberingPlan = NPIISDN
	calling.HasPresentation = true
	calling.Presentation = PresRestricted
	calling.Screening = ScreenNetwork
	calling.Digits = "5"
	b, err = AppendIE(braCtx, nil, calling)
	require.Equal(t, ErrIEOk, err)
	assert.Equal(t, []byte{byte(IDCallingNumber), 3, 0x21, 0xa3, '5'}, b)

	// presentation not allowed in the called number
	called := NewIECalledNumber("1")
	called.HasPresentation = true
	_, err = AppendIE(braCtx, nil, called)
	assert.Equal(t, ErrIEBadVal, err)

	redir := &IERedirectingNumber{}
	redir.HasReason = true
	_, err = AppendIE(braCtx, nil, redir)
	assert.Equal(t, ErrIEBadVal, err)

	_, err = AppendIE(braCtx, nil, NewIECalledNumber("1\x80"))
	assert.Equal(t, ErrIEBadChar, err)

	_, err = DecodeIE(braCtx, IDCalledNumber, []byte{0x01, 0xa0, '1'})
	assert.Equal(t, ErrIEExtUnexpected, err)
	_, err = DecodeIE(braCtx, IDCallingNumber, []byte{0x01})
	assert.Equal(t, ErrIEExtMissing, err)
	_, err = DecodeIE(braCtx, IDCallingNumber, []byte{0x01, 0x00, '1'})
	assert.Equal(t, ErrIEExtUnexpected, err)
	_, err = DecodeIE(braCtx, IDRedirectingNumber, []byte{0x01, 0x00, 0x01})
	assert.Equal(t, ErrIEExtUnexpected, err)
	_, err = DecodeIE(braCtx, IDCalledNumber, []byte{0x81, '1', 0xb1})
	assert.Equal(t, ErrIEBadChar, err)
	_, err = DecodeIE(braCtx, IDCalledNumber, []byte{})
	assert.Equal(t, ErrIETooShort, err)
}

func TestIESubaddress(t *testing.T) {
	ie := &IESubaddress{IEId: IDCalledSubaddr, Type: SubaddrUser,
		OddEven: true, Info: []byte{0x12, 0x34}}
	d, b, err := encodeDecode(braCtx, ie)
	require.Equal(t, ErrIEOk, err)
	assert.Equal(t, []byte{byte(IDCalledSubaddr), 3, 0xa8, 0x12, 0x34}, b)
	assert.Equal(t, ie, d)

	_, err = DecodeIE(braCtx, IDCallingSubaddr, []byte{0x20})
	assert.Equal(t, ErrIEExtUnexpected, err)
}

func TestIECallState(t *testing.T) {
	for v := uint8(0); v <= 0x3f; v++ {
		d, b, err := encodeDecode(braCtx, &IECallState{Value: v})
		require.Equal(t, ErrIEOk, err)
		assert.Equal(t, []byte{byte(IDCallState), 1, v}, b)
		assert.Equal(t, v, d.(*IECallState).Value)
	}
	_, err := AppendIE(braCtx, nil, &IECallState{Value: 0x40})
	assert.Equal(t, ErrIEBadVal, err)
	_, err = DecodeIE(braCtx, IDCallState, []byte{0x4a})
	assert.Equal(t, ErrIECodingStd, err)
	_, err = DecodeIE(braCtx, IDCallState, []byte{})
	assert.Equal(t, ErrIETooShort, err)
	_, err = DecodeIE(braCtx, IDCallState, []byte{0x0a, 0x0a})
	assert.Equal(t, ErrIETooLong, err)
}

func TestIEProgress(t *testing.T) {
	ie := &IEProgress{Location: LocPublicLoc, Description: ProgressInband}
	d, b, err := encodeDecode(braCtx, ie)
	require.Equal(t, ErrIEOk, err)
	assert.Equal(t, []byte{byte(IDProgress), 2, 0x82, 0x88}, b)
	assert.Equal(t, ie, d)

	_, err = DecodeIE(braCtx, IDProgress, []byte{0x02, 0x88})
	assert.Equal(t, ErrIEExtUnexpected, err)
	_, err = DecodeIE(braCtx, IDProgress, []byte{0x82, 0x08})
	assert.Equal(t, ErrIEExtUnexpected, err)
	_, err = DecodeIE(braCtx, IDProgress, []byte{0xe2, 0x88})
	assert.Equal(t, ErrIECodingStd, err)
}

func TestIERestartInd(t *testing.T) {
	for _, c := range []uint8{RestartIndicated, RestartSingleIntf,
		RestartAllIntfs} {
		d, b, err := encodeDecode(braCtx, &IERestartInd{Class: c})
		require.Equal(t, ErrIEOk, err)
		assert.Equal(t, []byte{byte(IDRestartInd), 1, 0x80 | c}, b)
		assert.Equal(t, c, d.(*IERestartInd).Class)
	}
	_, err := AppendIE(braCtx, nil, &IERestartInd{Class: 2})
	assert.Equal(t, ErrIEBadVal, err)
	_, err = DecodeIE(braCtx, IDRestartInd, []byte{0x06})
	assert.Equal(t, ErrIEExtUnexpected, err)
	_, err = DecodeIE(braCtx, IDRestartInd, []byte{0x81})
	assert.Equal(t, ErrIEBadVal, err)
}

func TestIEBearerCap(t *testing.T) {
	ie := NewBearerCapSpeech(true)
	d, b, err := encodeDecode(braCtx, ie)
	require.Equal(t, ErrIEOk, err)
	assert.Equal(t, []byte{byte(IDBearerCap), 3, 0x80, 0x90, 0xa3}, b)
	assert.Equal(t, ie, d)

	d, b, err = encodeDecode(braCtx, NewBearerCapSpeech(false))
	require.Equal(t, ErrIEOk, err)
	assert.Equal(t, byte(0xa2), b[4])
	assert.Equal(t, uint8(L1G711Ulaw), d.(*IEBearerCap).L1.Proto)

	_, err = DecodeIE(braCtx, IDBearerCap, []byte{0xe0, 0x90})
	assert.Equal(t, ErrIECodingStd, err)
	_, err = DecodeIE(braCtx, IDBearerCap, []byte{0x00, 0x90})
	assert.Equal(t, ErrIEExtUnexpected, err)
	_, err = DecodeIE(braCtx, IDBearerCap, []byte{0x80, 0x10})
	assert.Equal(t, ErrIEExtMissing, err)
	// layer 1 after layer 2
	_, err = DecodeIE(braCtx, IDBearerCap, []byte{0x88, 0x90, 0xc2, 0xa3})
	assert.Equal(t, ErrIEBadVal, err)
}

func TestIEDateTime(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ie := &IEDateTime{
			Year:   uint8(rapid.IntRange(0, 99).Draw(t, "year")),
			Month:  uint8(rapid.IntRange(1, 12).Draw(t, "month")),
			Day:    uint8(rapid.IntRange(1, 31).Draw(t, "day")),
			Hour:   uint8(rapid.IntRange(0, 23).Draw(t, "hour")),
			Minute: uint8(rapid.IntRange(0, 59).Draw(t, "minute")),
		}
		if rapid.Bool().Draw(t, "hasSecond") {
			ie.HasSecond = true
			ie.Second = uint8(rapid.IntRange(0, 59).Draw(t, "second"))
		}
		d, b, err := encodeDecode(braCtx, ie)
		require.Equal(t, ErrIEOk, err, "encoded % x", b)
		assert.Equal(t, ie, d)
	})

	_, err := AppendIE(braCtx, nil, &IEDateTime{Month: 13, Day: 1})
	assert.Equal(t, ErrIEBadVal, err)
	_, err = AppendIE(braCtx, nil, &IEDateTime{Month: 1, Day: 1, Second: 5})
	assert.Equal(t, ErrIEBadVal, err)
	_, err = DecodeIE(braCtx, IDDateTime, []byte{20, 1, 1, 12})
	assert.Equal(t, ErrIETooShort, err)
	_, err = DecodeIE(braCtx, IDDateTime, []byte{20, 1, 1, 12, 0, 0, 0})
	assert.Equal(t, ErrIETooLong, err)
	_, err = DecodeIE(braCtx, IDDateTime, []byte{20, 1, 0, 12, 0})
	assert.Equal(t, ErrIEBadVal, err)
}

func TestIESingleOctet(t *testing.T) {
	d, b, err := encodeDecode(braCtx, &IESendingComplete{})
	require.Equal(t, ErrIEOk, err)
	assert.Equal(t, []byte{0xa1}, b)
	assert.IsType(t, &IESendingComplete{}, d)

	d, b, err = encodeDecode(braCtx,
		&IECongestionLevel{Level: CongestionReceiverNotReady})
	require.Equal(t, ErrIEOk, err)
	assert.Equal(t, []byte{0xbf}, b)
	assert.Equal(t, uint8(CongestionReceiverNotReady),
		d.(*IECongestionLevel).Level)

	d, b, err = encodeDecode(braCtx, &IERepeatInd{Ind: RepeatCircular})
	require.Equal(t, ErrIEOk, err)
	assert.Equal(t, []byte{0xd2}, b)
	assert.Equal(t, uint8(RepeatCircular), d.(*IERepeatInd).Ind)
}

// intfIDGen draws an interface identifier octet group.
func intfIDGen() *rapid.Generator[[]byte] {
	return rapid.Custom(func(t *rapid.T) []byte {
		id := rapid.SliceOfN(rapid.ByteRange(0, 0x7f), 0, 3).Draw(t, "intfID")
		if len(id) == 0 {
			return nil
		}
		id[len(id)-1] |= 0x80
		return id
	})
}

func bearerInfoGen(t *rapid.T) BearerInfo {
	bi := BearerInfo{
		ITC:  uint8(rapid.IntRange(0, 0x1f).Draw(t, "itc")),
		Mode: uint8(rapid.IntRange(0, 3).Draw(t, "mode")),
		Rate: uint8(rapid.IntRange(0, 0x1f).Draw(t, "rate")),
	}
	if rapid.Bool().Draw(t, "hasMultiplier") {
		bi.HasMultiplier = true
		bi.Multiplier = uint8(rapid.IntRange(0, 0x7f).Draw(t, "multiplier"))
	}
	if rapid.Bool().Draw(t, "hasL1") {
		bi.HasL1 = true
		l1 := &bi.L1
		l1.Proto = uint8(rapid.IntRange(0, 0x1f).Draw(t, "l1"))
		l1.ExtOcts = rapid.IntRange(0, maxL1ExtOct).Draw(t, "l1Octs")
		if l1.ExtOcts > 0 {
			l1.Async = rapid.Bool().Draw(t, "async")
			l1.Negotiation = rapid.Bool().Draw(t, "negotiation")
			l1.UserRate = uint8(rapid.IntRange(0, 0x1f).Draw(t, "userRate"))
		}
		if l1.ExtOcts > 1 {
			l1.Oct5b = uint8(rapid.IntRange(0, 0x7f).Draw(t, "oct5b"))
		}
		if l1.ExtOcts > 2 {
			l1.StopBits = uint8(rapid.IntRange(0, 3).Draw(t, "stopBits"))
			l1.DataBits = uint8(rapid.IntRange(0, 3).Draw(t, "dataBits"))
			l1.Parity = uint8(rapid.IntRange(0, 7).Draw(t, "parity"))
		}
		if l1.ExtOcts > 3 {
			l1.Duplex = rapid.Bool().Draw(t, "duplex")
			l1.ModemType = uint8(rapid.IntRange(0, 0x3f).Draw(t, "modem"))
		}
	}
	if rapid.Bool().Draw(t, "hasL2") {
		bi.HasL2 = true
		bi.L2Proto = uint8(rapid.IntRange(0, 0x1f).Draw(t, "l2"))
	}
	if rapid.Bool().Draw(t, "hasL3") {
		bi.HasL3 = true
		bi.L3Proto = uint8(rapid.IntRange(0, 0x1f).Draw(t, "l3"))
	}
	return bi
}

// ieGens draws valid elements of the types checked for
// decode(encode(ie)) == ie.
var ieGens = map[string]*rapid.Generator[IE]{
	"bearer capability": rapid.Custom(func(t *rapid.T) IE {
		return &IEBearerCap{bearerInfoGen(t)}
	}),
	"low layer compatibility": rapid.Custom(func(t *rapid.T) IE {
		ie := &IELowLayerCompat{BearerInfo: bearerInfoGen(t)}
		if rapid.Bool().Draw(t, "hasOct3a") {
			ie.HasOct3a = true
			ie.NegotiationInd = rapid.Bool().Draw(t, "negotiationInd")
		}
		if ie.HasL2 && rapid.Bool().Draw(t, "hasOct6a") {
			ie.HasOct6a = true
			ie.Oct6a = uint8(rapid.IntRange(0, 0x7f).Draw(t, "oct6a"))
		}
		if ie.HasL3 {
			ie.L3ExtOcts = rapid.IntRange(0, 2).Draw(t, "l3Octs")
			if ie.L3ExtOcts > 0 {
				ie.Oct7a = uint8(rapid.IntRange(0, 0x7f).Draw(t, "oct7a"))
			}
			if ie.L3ExtOcts > 1 {
				ie.Oct7b = uint8(rapid.IntRange(0, 0x7f).Draw(t, "oct7b"))
			}
		}
		return ie
	}),
	"high layer compatibility": rapid.Custom(func(t *rapid.T) IE {
		ie := &IEHighLayerCompat{
			Interpretation:  uint8(rapid.IntRange(0, 7).Draw(t, "interp")),
			Presentation:    uint8(rapid.IntRange(0, 3).Draw(t, "pres")),
			Characteristics: uint8(rapid.IntRange(0, 0x7f).Draw(t, "chars")),
		}
		if rapid.Bool().Draw(t, "hasExtended") {
			ie.HasExtended = true
			ie.Extended = uint8(rapid.IntRange(0, 0x7f).Draw(t, "extended"))
		}
		return ie
	}),
	"progress": rapid.Custom(func(t *rapid.T) IE {
		return &IEProgress{
			Location:    CauseLoc(rapid.IntRange(0, 15).Draw(t, "loc")),
			Description: uint8(rapid.IntRange(0, 0x7f).Draw(t, "descr")),
		}
	}),
	"restart indicator": rapid.Custom(func(t *rapid.T) IE {
		return &IERestartInd{Class: rapid.SampledFrom([]uint8{
			RestartIndicated, RestartSingleIntf, RestartAllIntfs,
		}).Draw(t, "class")}
	}),
	"call state": rapid.Custom(func(t *rapid.T) IE {
		return &IECallState{Value: uint8(rapid.IntRange(0, 0x3f).Draw(t, "st"))}
	}),
	"notification": rapid.Custom(func(t *rapid.T) IE {
		return &IENotification{
			Description: uint8(rapid.IntRange(0, 0x7f).Draw(t, "descr")),
		}
	}),
	"call identity": rapid.Custom(func(t *rapid.T) IE {
		id := rapid.SliceOfN(rapid.Byte(), 0, 8).Draw(t, "identity")
		if len(id) == 0 {
			id = nil
		}
		return &IECallIdentity{Identity: id}
	}),
	"display": rapid.Custom(func(t *rapid.T) IE {
		b := rapid.SliceOfN(rapid.ByteRange(0, 0x7f), 0, 82).Draw(t, "text")
		return &IEDisplay{Text: string(b)}
	}),
}

func TestIERoundTrip(t *testing.T) {
	for name, gen := range ieGens {
		gen := gen
		t.Run(name, func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				ie := gen.Draw(t, "ie")
				d, b, err := encodeDecode(braCtx, ie)
				require.Equal(t, ErrIEOk, err, "encoded % x", b)
				assert.Equal(t, ie, d)
			})
		})
	}
}

func TestIEChannelIDRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pra := rapid.Bool().Draw(t, "pra")
		ctx, typ := braCtx, IntfBRA
		ch := rapid.IntRange(1, 2)
		maxChans := 1
		if pra {
			ctx, typ = praCtx, IntfPRA
			ch = rapid.IntRange(1, 31).Filter(func(c int) bool { return c != 16 })
			maxChans = 12
		}
		chans := rapid.SliceOfNDistinct(ch, 0, maxChans, rapid.ID[int]).
			Draw(t, "chans")
		ie := NewIEChannelID(typ, rapid.Bool().Draw(t, "exclusive"), chans...)
		ie.IntfID = intfIDGen().Draw(t, "intfID")
		d, b, err := encodeDecode(ctx, ie)
		require.Equal(t, ErrIEOk, err, "encoded % x", b)
		cid := d.(*IEChannelID)
		assert.Equal(t, pra, cid.PRA)
		assert.Equal(t, ie.Exclusive, cid.Exclusive)
		assert.Equal(t, ie.IntfID, cid.IntfID)
		assert.Equal(t, ie.Chans.Chans(), cid.Chans.Chans())
		assert.Equal(t, len(chans) == 0, cid.Any())
	})
}
