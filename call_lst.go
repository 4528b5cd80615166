// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

// CallLst is the list of the calls of an interface.
// It does not use internal locking: all the calls of an interface are
// handled from the dispatch goroutine.
type CallLst struct {
	head Call // used only as list head (only next and prev are valid)
	// statistics
	entries int
}

func (lst *CallLst) Init() {
	lst.head.next = &lst.head
	lst.head.prev = &lst.head
}

// Len returns the number of linked calls.
func (lst *CallLst) Len() int {
	return lst.entries
}

func (lst *CallLst) Insert(c *Call) {
	c.prev = &lst.head
	c.next = lst.head.next
	c.next.prev = c
	lst.head.next = c
	lst.entries++
}

func (lst *CallLst) Rm(c *Call) {
	c.prev.next = c.next
	c.next.prev = c.prev
	// "mark" c as detached
	c.next = c
	c.prev = c
	lst.entries--
}

func (lst *CallLst) Detached(c *Call) bool {
	return c == c.next
}

// iterates on the entire lists calling f(c) for each element, until
// false is returned or the lists ends.
// WARNING: does not support removing the current element from f, see
//          ForEachSafeRm().
func (lst *CallLst) ForEach(f func(c *Call) bool) {
	cont := true
	for v := lst.head.next; v != &lst.head && cont; v = v.next {
		cont = f(v)
	}
}

// iterates on the entire lists calling f(c) for each element, until
// false is returned or the lists ends. f may remove the current element.
func (lst *CallLst) ForEachSafeRm(f func(c *Call, l *CallLst) bool) {
	cont := true
	s := lst.head.next
	for v, nxt := s, s.next; v != &lst.head && cont; v, nxt = nxt, nxt.next {
		cont = f(v, lst)
	}
}

// Find looks for a call with the given call reference value and
// direction. If d is not nil, the call datalink must match too.
func (lst *CallLst) Find(cr uint32, dir CallDir, d *DLC) *Call {
	for c := lst.head.next; c != &lst.head; c = c.next {
		if c.CallRef == cr && c.Dir == dir && (d == nil || c.dlc == d) {
			return c
		}
	}
	return nil
}

// Snapshot returns the linked calls. Used when the handling of a call
// might unlink other calls.
func (lst *CallLst) Snapshot() []*Call {
	r := make([]*Call, 0, lst.entries)
	for c := lst.head.next; c != &lst.head; c = c.next {
		r = append(r, c)
	}
	return r
}
