// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"sort"
)

// IESet is the ordered list of the information elements of a message.
// Repeatable elements may be present several times, in which case the
// order of addition is kept.
type IESet struct {
	ies []IE
}

// Reset removes all the information elements.
func (s *IESet) Reset() {
	s.ies = s.ies[:0]
}

// Len returns the number of information elements in the set.
func (s *IESet) Len() int {
	return len(s.ies)
}

// At returns the i-th information element.
func (s *IESet) At(i int) IE {
	return s.ies[i]
}

// Add appends ie to the set.
func (s *IESet) Add(ie IE) {
	s.ies = append(s.ies, ie)
}

// Set replaces all the information elements with the same id as ie with
// ie (or appends it if not present).
func (s *IESet) Set(ie IE) {
	s.Del(ie.ID())
	s.Add(ie)
}

// Get returns the first information element with the given id or nil.
func (s *IESet) Get(id IEID) IE {
	for _, ie := range s.ies {
		if ie.ID() == id {
			return ie
		}
	}
	return nil
}

// All returns all the information elements with the given id.
func (s *IESet) All(id IEID) []IE {
	var r []IE
	for _, ie := range s.ies {
		if ie.ID() == id {
			r = append(r, ie)
		}
	}
	return r
}

// Has returns true if an information element with the given id is
// present.
func (s *IESet) Has(id IEID) bool {
	return s.Get(id) != nil
}

// Count returns how many times id is present.
func (s *IESet) Count(id IEID) int {
	n := 0
	for _, ie := range s.ies {
		if ie.ID() == id {
			n++
		}
	}
	return n
}

// Del removes all the information elements with the given id and returns
// how many were removed.
func (s *IESet) Del(id IEID) int {
	n := 0
	for _, ie := range s.ies {
		if ie.ID() != id {
			s.ies[n] = ie
			n++
		}
	}
	removed := len(s.ies) - n
	for i := n; i < len(s.ies); i++ {
		s.ies[i] = nil
	}
	s.ies = s.ies[:n]
	return removed
}

// Cause returns the first Cause or nil.
func (s *IESet) Cause() *IECause {
	ie, _ := s.Get(IDCause).(*IECause)
	return ie
}

// ChannelID returns the Channel Identification or nil.
func (s *IESet) ChannelID() *IEChannelID {
	ie, _ := s.Get(IDChannelID).(*IEChannelID)
	return ie
}

// CallState returns the Call State or nil.
func (s *IESet) CallState() *IECallState {
	ie, _ := s.Get(IDCallState).(*IECallState)
	return ie
}

// CallIdentity returns the Call Identity or nil.
func (s *IESet) CallIdentity() *IECallIdentity {
	ie, _ := s.Get(IDCallIdentity).(*IECallIdentity)
	return ie
}

// CalledNumber returns the Called Party Number or nil.
func (s *IESet) CalledNumber() *IECalledNumber {
	ie, _ := s.Get(IDCalledNumber).(*IECalledNumber)
	return ie
}

// CallingNumber returns the Calling Party Number or nil.
func (s *IESet) CallingNumber() *IECallingNumber {
	ie, _ := s.Get(IDCallingNumber).(*IECallingNumber)
	return ie
}

// BearerCap returns the first Bearer Capability or nil.
func (s *IESet) BearerCap() *IEBearerCap {
	ie, _ := s.Get(IDBearerCap).(*IEBearerCap)
	return ie
}

// RestartInd returns the Restart Indicator or nil.
func (s *IESet) RestartInd() *IERestartInd {
	ie, _ := s.Get(IDRestartInd).(*IERestartInd)
	return ie
}

// Progress returns the first Progress Indicator or nil.
func (s *IESet) Progress() *IEProgress {
	ie, _ := s.Get(IDProgress).(*IEProgress)
	return ie
}

// SendingComplete returns true if the Sending Complete is present.
func (s *IESet) SendingComplete() bool {
	return s.Has(IDSendingComplete)
}

// elements announced by a Repeat Indicator when repeated.
func repeatAnnounced(id IEID) bool {
	switch id {
	case IDBearerCap, IDLowLayerCompat, IDHighLayerCompat:
		return true
	}
	return false
}

// ieOrder returns the sort key used when encoding: single octet elements
// first, then codeset 0 elements by id and last the other codesets.
func ieOrder(ie IE) int {
	id := ie.ID()
	if raw, ok := ie.(*IERaw); ok && raw.Codeset != 0 {
		return 0x200 + int(raw.Codeset)
	}
	if id.SingleOctet() {
		return 0
	}
	return 0x100 + int(id)
}

// Append encodes all the information elements in the set, in ascending
// id order, and appends them to dst. A Repeat Indicator is generated in
// front of repeated bearer and compatibility elements. The elements of
// other codesets are preceded by a non-locking shift.
func (s *IESet) Append(ctx *IECtx, dst []byte) ([]byte, ErrorIE) {
	idx := make([]int, 0, len(s.ies))
	for i, ie := range s.ies {
		if ie.ID() == IDRepeatInd {
			continue
		}
		idx = append(idx, i)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return ieOrder(s.ies[idx[a]]) < ieOrder(s.ies[idx[b]])
	})
	var err ErrorIE
	var last IEID
	for n, i := range idx {
		ie := s.ies[i]
		id := ie.ID()
		if raw, ok := ie.(*IERaw); ok && raw.Codeset != 0 {
			if raw.Codeset > 7 || id.SingleOctet() {
				return dst, ErrIEBadVal
			}
			if len(raw.Data) > 255 {
				return dst, ErrIETooLong
			}
			// non-locking shift
			dst = append(dst, byte(IDShift)|0x08|raw.Codeset)
			dst = append(dst, byte(id), byte(len(raw.Data)))
			dst = append(dst, raw.Data...)
			continue
		}
		if repeatAnnounced(id) && (n == 0 || last != id) &&
			s.Count(id) > 1 {
			ind := IERepeatInd{Ind: RepeatPrioritized}
			if r, ok := s.Get(IDRepeatInd).(*IERepeatInd); ok {
				ind.Ind = r.Ind
			}
			if dst, err = AppendIE(ctx, dst, &ind); err != ErrIEOk {
				return dst, err
			}
		}
		if dst, err = AppendIE(ctx, dst, ie); err != ErrIEOk {
			return dst, err
		}
		last = id
	}
	return dst, ErrIEOk
}

// Clone returns a copy of the set. The information elements themselves
// are shared.
func (s *IESet) Clone() IESet {
	return IESet{ies: append([]IE(nil), s.ies...)}
}
