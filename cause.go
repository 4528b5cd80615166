// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"strconv"
)

// Cause is a Q.850 cause value (7 bits).
type Cause uint8

// Cause values used by the call control procedures.
const (
	CauseNone                      Cause = 0
	CauseUnallocatedNumber         Cause = 1
	CauseNoRouteToTransitNet       Cause = 2
	CauseNoRouteToDestination      Cause = 3
	CauseChannelUnacceptable       Cause = 6
	CauseCallAwarded               Cause = 7
	CauseNormalCallClearing        Cause = 16
	CauseUserBusy                  Cause = 17
	CauseNoUserResponding          Cause = 18
	CauseNoAnswer                  Cause = 19
	CauseCallRejected              Cause = 21
	CauseNumberChanged             Cause = 22
	CauseNonSelectedUserClearing   Cause = 26
	CauseDestinationOutOfOrder     Cause = 27
	CauseInvalidNumberFormat       Cause = 28
	CauseFacilityRejected          Cause = 29
	CauseResponseToStatusEnquiry   Cause = 30
	CauseNormalUnspecified         Cause = 31
	CauseNoCircuitChannelAvailable Cause = 34
	CauseNetworkOutOfOrder         Cause = 38
	CauseTemporaryFailure          Cause = 41
	CauseSwitchingCongestion       Cause = 42
	CauseAccessInfoDiscarded       Cause = 43
	CauseRequestedChanNotAvailable Cause = 44
	CauseResourcesUnavailable      Cause = 47
	CauseQOSUnavailable            Cause = 49
	CauseFacilityNotSubscribed     Cause = 50
	CauseBearerCapNotAuthorized    Cause = 57
	CauseBearerCapNotAvailable     Cause = 58
	CauseServiceNotAvailable       Cause = 63
	CauseBearerCapNotImplemented   Cause = 65
	CauseChanTypeNotImplemented    Cause = 66
	CauseFacilityNotImplemented    Cause = 69
	CauseOnlyRestrictedDigital     Cause = 70
	CauseServiceNotImplemented     Cause = 79
	CauseInvalidCallReference      Cause = 81
	CauseIdentifiedChanNotExist    Cause = 82
	CauseSuspendedNotThis          Cause = 83
	CauseCallIdentityInUse         Cause = 84
	CauseNoCallSuspended           Cause = 85
	CauseCallIdentityCleared       Cause = 86
	CauseIncompatibleDestination   Cause = 88
	CauseInvalidTransitNet         Cause = 91
	CauseInvalidMessage            Cause = 95
	CauseMandatoryIEMissing        Cause = 96
	CauseMsgTypeNonExistent        Cause = 97
	CauseMsgNotCompatible          Cause = 98
	CauseIENonExistent             Cause = 99
	CauseInvalidIEContents         Cause = 100
	CauseWrongMessage              Cause = 101
	CauseRecoveryOnTimerExpiry     Cause = 102
	CauseProtocolError             Cause = 111
	CauseInterworking              Cause = 127
)

var cause2Name = map[Cause]string{
	CauseUnallocatedNumber:         "unallocated number",
	CauseNoRouteToTransitNet:       "no route to specified transit network",
	CauseNoRouteToDestination:      "no route to destination",
	CauseChannelUnacceptable:       "channel unacceptable",
	CauseCallAwarded:               "call awarded and being delivered in an established channel",
	CauseNormalCallClearing:        "normal call clearing",
	CauseUserBusy:                  "user busy",
	CauseNoUserResponding:          "no user responding",
	CauseNoAnswer:                  "no answer from user",
	CauseCallRejected:              "call rejected",
	CauseNumberChanged:             "number changed",
	CauseNonSelectedUserClearing:   "non-selected user clearing",
	CauseDestinationOutOfOrder:     "destination out of order",
	CauseInvalidNumberFormat:       "invalid number format",
	CauseFacilityRejected:          "facility rejected",
	CauseResponseToStatusEnquiry:   "response to STATUS ENQUIRY",
	CauseNormalUnspecified:         "normal, unspecified",
	CauseNoCircuitChannelAvailable: "no circuit/channel available",
	CauseNetworkOutOfOrder:         "network out of order",
	CauseTemporaryFailure:          "temporary failure",
	CauseSwitchingCongestion:       "switching equipment congestion",
	CauseAccessInfoDiscarded:       "access information discarded",
	CauseRequestedChanNotAvailable: "requested circuit/channel not available",
	CauseResourcesUnavailable:      "resources unavailable, unspecified",
	CauseQOSUnavailable:            "quality of service unavailable",
	CauseFacilityNotSubscribed:     "requested facility not subscribed",
	CauseBearerCapNotAuthorized:    "bearer capability not authorized",
	CauseBearerCapNotAvailable:     "bearer capability not presently available",
	CauseServiceNotAvailable:       "service or option not available, unspecified",
	CauseBearerCapNotImplemented:   "bearer capability not implemented",
	CauseChanTypeNotImplemented:    "channel type not implemented",
	CauseFacilityNotImplemented:    "requested facility not implemented",
	CauseOnlyRestrictedDigital:     "only restricted digital information bearer capability is available",
	CauseServiceNotImplemented:     "service or option not implemented, unspecified",
	CauseInvalidCallReference:      "invalid call reference value",
	CauseIdentifiedChanNotExist:    "identified channel does not exist",
	CauseSuspendedNotThis:          "a suspended call exists, but this call identity does not",
	CauseCallIdentityInUse:         "call identity in use",
	CauseNoCallSuspended:           "no call suspended",
	CauseCallIdentityCleared:       "call having the requested call identity has been cleared",
	CauseIncompatibleDestination:   "incompatible destination",
	CauseInvalidTransitNet:         "invalid transit network selection",
	CauseInvalidMessage:            "invalid message, unspecified",
	CauseMandatoryIEMissing:        "mandatory information element is missing",
	CauseMsgTypeNonExistent:        "message type non-existent or not implemented",
	CauseMsgNotCompatible:          "message not compatible with call state or message type non-existent or not implemented",
	CauseIENonExistent:             "information element non-existent or not implemented",
	CauseInvalidIEContents:         "invalid information element contents",
	CauseWrongMessage:              "message not compatible with call state",
	CauseRecoveryOnTimerExpiry:     "recovery on timer expiry",
	CauseProtocolError:             "protocol error, unspecified",
	CauseInterworking:              "interworking, unspecified",
}

func (c Cause) String() string {
	if s, ok := cause2Name[c]; ok {
		return s
	}
	return "cause #" + strconv.Itoa(int(c))
}

// Class returns the cause class (the 3 most significant bits).
func (c Cause) Class() uint8 {
	return uint8(c>>4) & 0x7
}

// priority returns the rank used when choosing the cause reported to the
// calling user after several called users cleared (Q.931 5.2.5.3).
// Higher is better.
func (c Cause) priority() int {
	switch c {
	case CauseUserBusy:
		return 4
	case CauseCallRejected:
		return 3
	case CauseIncompatibleDestination:
		return 1
	case CauseNoUserResponding, CauseNone:
		return 0
	}
	return 2
}

// CauseLoc is the cause location field (4 bits).
type CauseLoc uint8

const (
	LocUser         CauseLoc = 0x0 // user
	LocPrivateLoc   CauseLoc = 0x1 // private network serving the local user
	LocPublicLoc    CauseLoc = 0x2 // public network serving the local user
	LocTransit      CauseLoc = 0x3 // transit network
	LocPublicRem    CauseLoc = 0x4 // public network serving the remote user
	LocPrivateRem   CauseLoc = 0x5 // private network serving the remote user
	LocIntl         CauseLoc = 0x7 // international network
	LocInterworking CauseLoc = 0xa // network beyond interworking point
)

var causeLoc2Name = [...]string{
	LocUser:         "U",
	LocPrivateLoc:   "LPN",
	LocPublicLoc:    "LN",
	LocTransit:      "TN",
	LocPublicRem:    "RLN",
	LocPrivateRem:   "RPN",
	6:               "reserved",
	LocIntl:         "INTL",
	8:               "reserved",
	9:               "reserved",
	LocInterworking: "BI",
}

func (l CauseLoc) String() string {
	if int(l) >= len(causeLoc2Name) {
		return "reserved"
	}
	return causeLoc2Name[l]
}

// CauseLocation returns the location that must be put in the Cause
// information elements sent on a call.
// dir is the call direction as seen from this side, netRole the
// configured network role of the interface and role the TE/NT interface
// role.
func CauseLocation(dir CallDir, netRole NetRole, role Role) CauseLoc {
	if role == RoleTE {
		return LocUser
	}
	switch netRole {
	case NetRoleUser:
		return LocUser
	case NetRolePrivate:
		if dir == CallDirInbound {
			return LocPrivateLoc
		}
		return LocPrivateRem
	case NetRoleLocal:
		if dir == CallDirInbound {
			return LocPublicLoc
		}
		return LocPublicRem
	case NetRoleTransit:
		return LocTransit
	case NetRoleIntl:
		return LocIntl
	}
	return LocUser
}
