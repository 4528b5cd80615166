// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

// IECallState is the Call State information element.
//   3  coding std(2) call state value(6)
type IECallState struct {
	Value uint8 // Q.931 call state code
}

func (ie *IECallState) ID() IEID {
	return IDCallState
}

func (ie *IECallState) Decode(ctx *IECtx, b []byte) ErrorIE {
	if b[0]>>6 != 0 {
		return ErrIECodingStd
	}
	ie.Value = b[0] & 0x3f
	return ErrIEOk
}

func (ie *IECallState) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	if ie.Value > 0x3f {
		return dst, ErrIEBadVal
	}
	return append(dst, ie.Value), ErrIEOk
}

// IECallIdentity is the Call Identity information element used by
// SUSPEND and RESUME. An empty identity is valid.
type IECallIdentity struct {
	Identity []byte
}

func (ie *IECallIdentity) ID() IEID {
	return IDCallIdentity
}

func (ie *IECallIdentity) Decode(ctx *IECtx, b []byte) ErrorIE {
	ie.Identity = nil
	if len(b) > 0 {
		ie.Identity = append([]byte(nil), b...)
	}
	return ErrIEOk
}

func (ie *IECallIdentity) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	return append(dst, ie.Identity...), ErrIEOk
}

// IEDisplay is the Display information element (IA5 text).
type IEDisplay struct {
	Text string
}

func (ie *IEDisplay) ID() IEID {
	return IDDisplay
}

func (ie *IEDisplay) Decode(ctx *IECtx, b []byte) ErrorIE {
	if err := checkIA5(b); err != ErrIEOk {
		return err
	}
	ie.Text = string(b)
	return ErrIEOk
}

func (ie *IEDisplay) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	if err := checkIA5([]byte(ie.Text)); err != ErrIEOk {
		return dst, err
	}
	return append(dst, ie.Text...), ErrIEOk
}

// IEKeypad is the Keypad Facility information element.
type IEKeypad struct {
	Digits string
}

func (ie *IEKeypad) ID() IEID {
	return IDKeypad
}

func (ie *IEKeypad) Decode(ctx *IECtx, b []byte) ErrorIE {
	if err := checkIA5(b); err != ErrIEOk {
		return err
	}
	ie.Digits = string(b)
	return ErrIEOk
}

func (ie *IEKeypad) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	if err := checkIA5([]byte(ie.Digits)); err != ErrIEOk {
		return dst, err
	}
	return append(dst, ie.Digits...), ErrIEOk
}

// IEDateTime is the Date/Time information element. The year is coded
// modulo 100.
type IEDateTime struct {
	Year      uint8
	Month     uint8
	Day       uint8
	Hour      uint8
	Minute    uint8
	HasSecond bool
	Second    uint8
}

func (ie *IEDateTime) ID() IEID {
	return IDDateTime
}

func (ie *IEDateTime) valid() bool {
	return ie.Year <= 99 && ie.Month >= 1 && ie.Month <= 12 &&
		ie.Day >= 1 && ie.Day <= 31 && ie.Hour <= 23 && ie.Minute <= 59 &&
		ie.Second <= 59
}

func (ie *IEDateTime) Decode(ctx *IECtx, b []byte) ErrorIE {
	*ie = IEDateTime{Year: b[0], Month: b[1], Day: b[2], Hour: b[3],
		Minute: b[4]}
	if len(b) > 5 {
		ie.HasSecond = true
		ie.Second = b[5]
	}
	if !ie.valid() {
		return ErrIEBadVal
	}
	return ErrIEOk
}

func (ie *IEDateTime) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	if !ie.valid() || (!ie.HasSecond && ie.Second != 0) {
		return dst, ErrIEBadVal
	}
	dst = append(dst, ie.Year, ie.Month, ie.Day, ie.Hour, ie.Minute)
	if ie.HasSecond {
		dst = append(dst, ie.Second)
	}
	return dst, ErrIEOk
}

// notification descriptions
const (
	NotifySuspended    = 0x00
	NotifyResumed      = 0x01
	NotifyBearerChange = 0x02
)

// IENotification is the Notification Indicator information element.
type IENotification struct {
	Description uint8
}

func (ie *IENotification) ID() IEID {
	return IDNotification
}

func (ie *IENotification) Decode(ctx *IECtx, b []byte) ErrorIE {
	if !ext(b[0]) {
		return ErrIEExtUnexpected
	}
	ie.Description = b[0] & 0x7f
	return ErrIEOk
}

func (ie *IENotification) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	if ie.Description > 0x7f {
		return dst, ErrIEBadVal
	}
	return append(dst, 0x80|ie.Description), ErrIEOk
}

// progress descriptions
const (
	ProgressNotEndToEnd  = 0x01 // call is not end-to-end ISDN
	ProgressDestNonISDN  = 0x02
	ProgressOrigNonISDN  = 0x03
	ProgressReturnedISDN = 0x04
	ProgressInterworking = 0x05
	ProgressInband       = 0x08 // in-band information available
)

// IEProgress is the Progress Indicator information element.
//   3  ext(1) coding std(2) spare(1) location(4)
//   4  ext(1) progress description(7)
type IEProgress struct {
	Location    CauseLoc
	Description uint8
}

func (ie *IEProgress) ID() IEID {
	return IDProgress
}

func (ie *IEProgress) Decode(ctx *IECtx, b []byte) ErrorIE {
	if !ext(b[0]) || !ext(b[1]) {
		return ErrIEExtUnexpected
	}
	if err := codingStd(b[0]); err != ErrIEOk {
		return err
	}
	ie.Location = CauseLoc(b[0] & 0xf)
	ie.Description = b[1] & 0x7f
	return ErrIEOk
}

func (ie *IEProgress) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	if ie.Location > 0xf || ie.Description > 0x7f {
		return dst, ErrIEBadVal
	}
	return append(dst, 0x80|byte(ie.Location), 0x80|ie.Description),
		ErrIEOk
}

// restart classes
const (
	RestartIndicated  = 0x0 // channels indicated in the Channel ID
	RestartSingleIntf = 0x6
	RestartAllIntfs   = 0x7
)

// IERestartInd is the Restart Indicator information element.
type IERestartInd struct {
	Class uint8
}

func (ie *IERestartInd) ID() IEID {
	return IDRestartInd
}

func (ie *IERestartInd) Decode(ctx *IECtx, b []byte) ErrorIE {
	if !ext(b[0]) {
		return ErrIEExtUnexpected
	}
	ie.Class = b[0] & 0x7
	switch ie.Class {
	case RestartIndicated, RestartSingleIntf, RestartAllIntfs:
		return ErrIEOk
	}
	return ErrIEBadVal
}

func (ie *IERestartInd) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	switch ie.Class {
	case RestartIndicated, RestartSingleIntf, RestartAllIntfs:
		return append(dst, 0x80|ie.Class), ErrIEOk
	}
	return dst, ErrIEBadVal
}

// IESignal is the Signal information element.
type IESignal struct {
	Value uint8
}

// signal values
const (
	SignalDialTone    = 0x00
	SignalRingBack    = 0x01
	SignalBusy        = 0x03
	SignalCongestion  = 0x04
	SignalTonesOff    = 0x3f
	SignalAlertingOff = 0x4f
)

func (ie *IESignal) ID() IEID {
	return IDSignal
}

func (ie *IESignal) Decode(ctx *IECtx, b []byte) ErrorIE {
	ie.Value = b[0]
	return ErrIEOk
}

func (ie *IESignal) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	return append(dst, ie.Value), ErrIEOk
}

// IEUserUser is the User-User information element.
type IEUserUser struct {
	Proto uint8 // protocol discriminator
	Info  []byte
}

func (ie *IEUserUser) ID() IEID {
	return IDUserUser
}

func (ie *IEUserUser) Decode(ctx *IECtx, b []byte) ErrorIE {
	ie.Proto = b[0]
	ie.Info = nil
	if len(b) > 1 {
		ie.Info = append([]byte(nil), b[1:]...)
	}
	return ErrIEOk
}

func (ie *IEUserUser) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	dst = append(dst, ie.Proto)
	return append(dst, ie.Info...), ErrIEOk
}

// IEFacility is the Facility information element. The supplementary
// service components are not decoded.
type IEFacility struct {
	Data []byte
}

func (ie *IEFacility) ID() IEID {
	return IDFacility
}

func (ie *IEFacility) Decode(ctx *IECtx, b []byte) ErrorIE {
	ie.Data = append([]byte(nil), b...)
	return ErrIEOk
}

func (ie *IEFacility) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	return append(dst, ie.Data...), ErrIEOk
}

// IERaw holds the undecoded contents of an information element: the ones
// without a decoder and the ones from the national and network specific
// codesets.
type IERaw struct {
	IEId    IEID
	Codeset uint8
	Data    []byte
}

func (ie *IERaw) ID() IEID {
	return ie.IEId
}

func (ie *IERaw) Decode(ctx *IECtx, b []byte) ErrorIE {
	ie.Data = append([]byte(nil), b...)
	return ErrIEOk
}

func (ie *IERaw) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	return append(dst, ie.Data...), ErrIEOk
}

// IESendingComplete is the (single octet) Sending Complete information
// element.
type IESendingComplete struct{}

func (ie *IESendingComplete) ID() IEID {
	return IDSendingComplete
}

func (ie *IESendingComplete) Decode(ctx *IECtx, b []byte) ErrorIE {
	return ErrIEOk
}

func (ie *IESendingComplete) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	return append(dst, byte(IDSendingComplete)), ErrIEOk
}

// IEMoreData is the (single octet) More Data information element.
type IEMoreData struct{}

func (ie *IEMoreData) ID() IEID {
	return IDMoreData
}

func (ie *IEMoreData) Decode(ctx *IECtx, b []byte) ErrorIE {
	return ErrIEOk
}

func (ie *IEMoreData) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	return append(dst, byte(IDMoreData)), ErrIEOk
}

// IECongestionLevel is the (single octet) Congestion Level information
// element.
type IECongestionLevel struct {
	Level uint8 // 0 receiver ready, 0xf receiver not ready
}

// congestion levels
const (
	CongestionReceiverReady    = 0x0
	CongestionReceiverNotReady = 0xf
)

func (ie *IECongestionLevel) ID() IEID {
	return IDCongestionLevel
}

func (ie *IECongestionLevel) Decode(ctx *IECtx, b []byte) ErrorIE {
	ie.Level = b[0] & 0xf
	if ie.Level != CongestionReceiverReady &&
		ie.Level != CongestionReceiverNotReady {
		return ErrIEBadVal
	}
	return ErrIEOk
}

func (ie *IECongestionLevel) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	if ie.Level > 0xf {
		return dst, ErrIEBadVal
	}
	return append(dst, byte(IDCongestionLevel)|ie.Level), ErrIEOk
}

// repeat indications
const (
	RepeatCircular    = 0x2 // circular list for selection
	RepeatPrioritized = 0x4 // prioritized list for selection
)

// IERepeatInd is the (single octet) Repeat Indicator information
// element.
type IERepeatInd struct {
	Ind uint8
}

func (ie *IERepeatInd) ID() IEID {
	return IDRepeatInd
}

func (ie *IERepeatInd) Decode(ctx *IECtx, b []byte) ErrorIE {
	ie.Ind = b[0] & 0xf
	return ErrIEOk
}

func (ie *IERepeatInd) Encode(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	if ie.Ind > 0xf {
		return dst, ErrIEBadVal
	}
	return append(dst, byte(IDRepeatInd)|ie.Ind), ErrIEOk
}
