// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Package q931 implements the ITU-T Q.931 (ETSI profile) ISDN call control
// protocol: the information element codec, the message framer, the
// per-call, per-CES and global (restart) state machines, the timers that
// drive them and the interface level dispatch of datalink frames.
//
// All the protocol state is owned by one goroutine (see Lib.Run()).
// Requests coming from other goroutines must be queued with Lib.Post()
// or Lib.Submit().
package q931

// BuildTags contains the build variants the package was compiled with
// (debug/nodebug).
var BuildTags []string

// ProtoDiscr is the Q.931 protocol discriminator (first octet of every
// call control message).
const ProtoDiscr = 0x08
