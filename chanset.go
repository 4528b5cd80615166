// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"strconv"
)

// ChanSetMax is the maximum number of channels a ChanSet can hold.
const ChanSetMax = 32

// ChanSet is a small bounded set of B-channel numbers, keeping the
// insertion order (which is also the order in which the channels are
// encoded in a Channel Identification information element).
type ChanSet struct {
	chans [ChanSetMax]uint8
	n     int
}

// NewChanSet returns a set containing the passed channels.
func NewChanSet(chans ...int) ChanSet {
	var cs ChanSet
	for _, c := range chans {
		cs.Add(c)
	}
	return cs
}

// Reset empties the set.
func (cs *ChanSet) Reset() {
	*cs = ChanSet{}
}

// Len returns the number of channels in the set.
func (cs *ChanSet) Len() int {
	return cs.n
}

// Empty returns true if the set has no channels.
func (cs *ChanSet) Empty() bool {
	return cs.n == 0
}

// Get returns the i-th channel number (insertion order) or -1.
func (cs *ChanSet) Get(i int) int {
	if i < 0 || i >= cs.n {
		return -1
	}
	return int(cs.chans[i])
}

// Chans returns a copy of the channel numbers.
func (cs *ChanSet) Chans() []int {
	r := make([]int, cs.n)
	for i := 0; i < cs.n; i++ {
		r[i] = int(cs.chans[i])
	}
	return r
}

func (cs *ChanSet) find(c int) int {
	for i := 0; i < cs.n; i++ {
		if int(cs.chans[i]) == c {
			return i
		}
	}
	return -1
}

// Contains returns true if channel c is in the set.
func (cs *ChanSet) Contains(c int) bool {
	return cs.find(c) >= 0
}

// Add adds channel c. Adding an existing channel is a no-op.
// It returns false if the set is full or c is not a valid channel number.
func (cs *ChanSet) Add(c int) bool {
	if c < 0 || c > 0x7f {
		return false
	}
	if cs.find(c) >= 0 {
		return true
	}
	if cs.n >= len(cs.chans) {
		return false
	}
	cs.chans[cs.n] = uint8(c)
	cs.n++
	return true
}

// Del removes channel c, returning true if it was present.
func (cs *ChanSet) Del(c int) bool {
	i := cs.find(c)
	if i < 0 {
		return false
	}
	copy(cs.chans[i:cs.n], cs.chans[i+1:cs.n])
	cs.n--
	cs.chans[cs.n] = 0
	return true
}

// Merge adds all the channels in o to cs.
func (cs *ChanSet) Merge(o *ChanSet) bool {
	for i := 0; i < o.n; i++ {
		if !cs.Add(int(o.chans[i])) {
			return false
		}
	}
	return true
}

// Intersect returns the channels present in both sets, in cs order.
func (cs *ChanSet) Intersect(o *ChanSet) ChanSet {
	var r ChanSet
	for i := 0; i < cs.n; i++ {
		if o.Contains(int(cs.chans[i])) {
			r.Add(int(cs.chans[i]))
		}
	}
	return r
}

// Sub returns the channels in cs that are not in o.
func (cs *ChanSet) Sub(o *ChanSet) ChanSet {
	var r ChanSet
	for i := 0; i < cs.n; i++ {
		if !o.Contains(int(cs.chans[i])) {
			r.Add(int(cs.chans[i]))
		}
	}
	return r
}

// Equal returns true if both sets contain the same channels, regardless
// of order.
func (cs *ChanSet) Equal(o *ChanSet) bool {
	if cs.n != o.n {
		return false
	}
	for i := 0; i < cs.n; i++ {
		if !o.Contains(int(cs.chans[i])) {
			return false
		}
	}
	return true
}

func (cs *ChanSet) String() string {
	s := "["
	for i := 0; i < cs.n; i++ {
		if i > 0 {
			s += ","
		}
		s += strconv.Itoa(int(cs.chans[i]))
	}
	return s + "]"
}
