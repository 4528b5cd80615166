// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

// CauseSetMax is the maximum number of distinct causes a CauseSet can hold.
const CauseSetMax = 32

// CauseEntry is a cause value with its optional diagnostic octets.
type CauseEntry struct {
	Value Cause
	Loc   CauseLoc
	Diag  []byte
}

// CauseSet is a small bounded set of causes, keeping the insertion order.
// It is used to accumulate the clearing causes received from several
// terminals (broadcast setup) before choosing the one reported upstream.
type CauseSet struct {
	ents [CauseSetMax]CauseEntry
	n    int
}

// Reset empties the set.
func (cs *CauseSet) Reset() {
	*cs = CauseSet{}
}

// Len returns the number of causes in the set.
func (cs *CauseSet) Len() int {
	return cs.n
}

// Get returns the i-th cause entry (insertion order).
func (cs *CauseSet) Get(i int) *CauseEntry {
	if i < 0 || i >= cs.n {
		return nil
	}
	return &cs.ents[i]
}

func (cs *CauseSet) find(c Cause) int {
	for i := 0; i < cs.n; i++ {
		if cs.ents[i].Value == c {
			return i
		}
	}
	return -1
}

// Contains returns true if the cause value is in the set.
func (cs *CauseSet) Contains(c Cause) bool {
	return cs.find(c) >= 0
}

// Add adds a cause to the set. Adding an already present cause does not
// change the set (the first diagnostic is kept).
// It returns false if the set is full.
func (cs *CauseSet) Add(c Cause, loc CauseLoc, diag []byte) bool {
	if cs.find(c) >= 0 {
		return true
	}
	if cs.n >= len(cs.ents) {
		return false
	}
	e := &cs.ents[cs.n]
	e.Value = c
	e.Loc = loc
	e.Diag = append([]byte(nil), diag...)
	cs.n++
	return true
}

// AddIE adds the cause carried by a Cause information element.
func (cs *CauseSet) AddIE(ie *IECause) bool {
	if ie == nil {
		return true
	}
	return cs.Add(ie.Value, ie.Location, ie.Diag)
}

// Del removes a cause from the set, returning true if it was present.
func (cs *CauseSet) Del(c Cause) bool {
	i := cs.find(c)
	if i < 0 {
		return false
	}
	copy(cs.ents[i:cs.n], cs.ents[i+1:cs.n])
	cs.n--
	cs.ents[cs.n] = CauseEntry{}
	return true
}

// Merge adds all the causes from o that are not already in cs.
// On conflict the diagnostic already in cs is preserved.
// It returns false if cs filled up before all the causes could be added.
func (cs *CauseSet) Merge(o *CauseSet) bool {
	for i := 0; i < o.n; i++ {
		e := &o.ents[i]
		if !cs.Add(e.Value, e.Loc, e.Diag) {
			return false
		}
	}
	return true
}

// Intersect returns the set of causes present in both cs and o, with the
// diagnostics from cs.
func (cs *CauseSet) Intersect(o *CauseSet) CauseSet {
	var r CauseSet
	for i := 0; i < cs.n; i++ {
		if o.Contains(cs.ents[i].Value) {
			e := &cs.ents[i]
			r.Add(e.Value, e.Loc, e.Diag)
		}
	}
	return r
}

// Best returns the cause with the highest clearing priority (see
// Q.931 5.2.5.3) and false if the set is empty.
// Between causes of equal priority the first added one wins.
func (cs *CauseSet) Best() (CauseEntry, bool) {
	if cs.n == 0 {
		return CauseEntry{}, false
	}
	best := 0
	for i := 1; i < cs.n; i++ {
		if cs.ents[i].Value.priority() > cs.ents[best].Value.priority() {
			best = i
		}
	}
	return cs.ents[best], true
}

func (cs *CauseSet) String() string {
	s := "{"
	for i := 0; i < cs.n; i++ {
		if i > 0 {
			s += ","
		}
		s += cs.ents[i].Value.String()
	}
	return s + "}"
}
