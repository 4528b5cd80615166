// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"github.com/pkg/errors"
)

// ErrorIE is the type for the errors returned by the information element
// decode and encode functions. The zero value is by convention a non-error,
// use ErrorConv() to get a nil-able error value.
type ErrorIE uint32

// Possible information element decode/encode errors.
const (
	ErrIEOk            ErrorIE = iota // no error, equiv. to nil
	ErrIETooShort                     // less octets than the minimum length
	ErrIETooLong                      // more octets than the maximum length
	ErrIECodingStd                    // coding standard is not CCITT
	ErrIEExtMissing                   // ext. chain ends too early
	ErrIEExtUnexpected                // ext. chain continues where it must end
	ErrIEBadVal                       // invalid field value
	ErrIEBadChar                      // invalid IA5 character
	ErrIEUnknown                      // unknown information element
	ErrIEBug
)

// error values corresp. to each ErrorIE value: this way the interface
// allocations are done only once
// NOTE: keep in sync with the const above
var errIE2ErrorVal = [...]error{
	nil, // 0 corresp. to nil
	ErrIETooShort,
	ErrIETooLong,
	ErrIECodingStd,
	ErrIEExtMissing,
	ErrIEExtUnexpected,
	ErrIEBadVal,
	ErrIEBadChar,
	ErrIEUnknown,
	ErrIEBug,
}

var errIEStr = [...]string{
	ErrIEOk:            "no error",
	ErrIETooShort:      "information element too short",
	ErrIETooLong:       "information element too long",
	ErrIECodingStd:     "unsupported coding standard",
	ErrIEExtMissing:    "missing extension octet",
	ErrIEExtUnexpected: "unexpected extension octet",
	ErrIEBadVal:        "invalid field value",
	ErrIEBadChar:       "invalid character",
	ErrIEUnknown:       "unknown information element",
	ErrIEBug:           "internal BUG while coding information element",
}

// Error implements the error interface.
func (e ErrorIE) Error() string {
	if int(e) >= len(errIEStr) {
		return "invalid information element error value"
	}
	return errIEStr[e]
}

// ErrorConv converts the ErrorIE value to error.
// It uses "boxed" values to prevent runtime allocations.
func (e ErrorIE) ErrorConv() error {
	if int(e) >= len(errIE2ErrorVal) {
		return ErrIEBug
	}
	return errIE2ErrorVal[e]
}

// ErrorMsg is the type for message (header) parse errors.
type ErrorMsg uint32

// Possible message parse errors.
const (
	ErrMsgOk       ErrorMsg = iota // no error
	ErrMsgTooShort                 // truncated header
	ErrMsgPD                       // protocol discriminator is not Q.931
	ErrMsgCRLen                    // call reference longer than 4 octets
	ErrMsgDummyCR                  // dummy (0 length) call reference
	ErrMsgType                     // message type with the reserved bit set
	ErrMsgIETrunc                  // information element exceeds the frame
	ErrMsgBug
)

var errMsg2ErrorVal = [...]error{
	nil,
	ErrMsgTooShort,
	ErrMsgPD,
	ErrMsgCRLen,
	ErrMsgDummyCR,
	ErrMsgType,
	ErrMsgIETrunc,
	ErrMsgBug,
}

var errMsgStr = [...]string{
	ErrMsgOk:       "no error",
	ErrMsgTooShort: "message too short",
	ErrMsgPD:       "bad protocol discriminator",
	ErrMsgCRLen:    "call reference too long",
	ErrMsgDummyCR:  "dummy call reference",
	ErrMsgType:     "bad message type",
	ErrMsgIETrunc:  "truncated information element",
	ErrMsgBug:      "internal BUG while parsing message",
}

// Error implements the error interface.
func (e ErrorMsg) Error() string {
	if int(e) >= len(errMsgStr) {
		return "invalid message error value"
	}
	return errMsgStr[e]
}

// ErrorConv converts the ErrorMsg value to error.
func (e ErrorMsg) ErrorConv() error {
	if int(e) >= len(errMsg2ErrorVal) {
		return ErrMsgBug
	}
	return errMsg2ErrorVal[e]
}

// errors returned by the primitive request functions and the library
// management functions.
var (
	ErrUnexpectedState = errors.New("request not allowed in current state")
	ErrCallReleased    = errors.New("call already released")
	ErrNoCallRef       = errors.New("no free call reference")
	ErrNoChannel       = errors.New("no channel available")
	ErrNoDLC           = errors.New("no datalink connection")
	ErrNotBRA          = errors.New("procedure allowed only on basic rate interfaces")
	ErrRestartPending  = errors.New("restart procedure already in progress")
	ErrQueueFull       = errors.New("request queue full")
	ErrLibStopped      = errors.New("library stopped")
	ErrDrainTimeout    = errors.New("drain timeout: calls still active")
	ErrMsgTooBig       = errors.New("encoded message exceeds maximum size")
	ErrWrongRole       = errors.New("request not allowed for interface role")
	ErrIntfExists      = errors.New("interface already exists")
)
