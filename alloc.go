// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"github.com/intuitivelabs/bytespool"
)

// AllocRoundTo is the granularity of the frame buffer sizes.
const AllocRoundTo = 16

// MemPoolsNo is the number of distinct frame buffer sizes tracked.
const MemPoolsNo = (MaxMsgSize-1)/AllocRoundTo + 1

// AllocStats holds frame buffer allocation statistics.
type AllocStats struct {
	TotalSize StatCounter // bytes currently in use
	NewCalls  StatCounter
	FreeCalls StatCounter
	Failures  StatCounter
	PoolHits  StatCounter
	PoolMiss  StatCounter
	Sizes     [MemPoolsNo + 1]StatCounter
}

// FrameAllocStats are the statistics for the outgoing frames buffers.
var FrameAllocStats AllocStats

// Use different size pools for the outgoing frames buffers.
// bytespool.Bpool uses one sync.Pool for each distinct memory block size.
var bPool bytespool.Bpool

func init() {
	// frames are at most MaxMsgSize long, use one pool per AllocRoundTo
	// multiple up to it
	if !bPool.Init(0, MemPoolsNo*AllocRoundTo, AllocRoundTo) {
		Log.PANIC("bytes pool init failed\n")
	}
}

// allocFrame returns an empty buffer with at least size capacity,
// suitable for building an outgoing frame.
func allocFrame(size int) []byte {
	if size <= 0 || size > MaxMsgSize {
		size = MaxMsgSize
	}
	size = ((size-1)/AllocRoundTo + 1) * AllocRoundTo // round up
	FrameAllocStats.NewCalls.Inc(1)
	FrameAllocStats.Sizes[size/AllocRoundTo].Inc(1)
	buf, hit := bPool.Get(size, true)
	if buf == nil {
		FrameAllocStats.Failures.Inc(1)
		buf = make([]byte, size)
	} else if hit {
		FrameAllocStats.PoolHits.Inc(1)
	} else {
		FrameAllocStats.PoolMiss.Inc(1)
	}
	FrameAllocStats.TotalSize.Inc(uint(cap(buf)))
	return buf[:0]
}

// freeFrame returns a frame buffer obtained from allocFrame to the pool.
// The buffer must not be used afterwards.
func freeFrame(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	FrameAllocStats.FreeCalls.Inc(1)
	FrameAllocStats.TotalSize.Dec(uint(cap(buf)))
	bPool.Put(buf[:cap(buf)]) // ignore return (false if size too big)
}
