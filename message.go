// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fastpipe

import (
	"code.hybscloud.com/atomix"
)

// nilSlot marks the absence of a next message in a packed ref word.
const nilSlot = ^uint32(0)

// packRef combines a generation tag and a slab slot index into the single
// word CASed by both the pool's free stack and the pipe's queue links.
//
// Go cannot steal alignment bits from a live pointer the way a C
// implementation can (the garbage collector requires every pointer-shaped
// word to hold either a valid pointer or a recognizably non-pointer scalar,
// never a blend), so the generation-tag-plus-identity pair is carried as
// two packed halves of a plain uint64 instead of stolen low bits.
func packRef(tag, slot uint32) uint64 {
	return uint64(tag)<<32 | uint64(slot)
}

func unpackRef(ref uint64) (tag, slot uint32) {
	return uint32(ref >> 32), uint32(ref)
}

func nilRef() uint64 {
	return packRef(0, nilSlot)
}

// Message is a pool-allocated, reference-counted buffer carrying a
// variable-length payload between a producer and a consumer.
//
// A Message is owned by exactly one of: a producer thread between
// Allocate and Submit, a list (pipe queue or pool free stack), or a
// consumer thread between Peek and Release. Never two at once.
type Message struct {
	_       pad
	next    atomix.Uint64 // packed ref to the next message in whichever list currently owns it
	_       pad
	tag     atomix.Uint32 // ABA generation counter, bumped on every Release
	pool    *SharedPool   // back-reference only, never an ownership edge
	slot    uint32        // this message's own slab index within pool
	size    uint32        // capacity of data, set at allocation time
	length  uint32        // current payload length; zero denotes a stub
	data    []byte
}

// Payload returns the message's current user data, data[:length].
// It is only meaningful for non-stub messages returned by Peek.
func (m *Message) Payload() []byte {
	return m.data[:m.length]
}

// Buffer returns the full writable capacity of the message, data[:size].
// Producers write here between Allocate and Submit.
func (m *Message) Buffer() []byte {
	return m.data[:m.size]
}

// Len returns the current payload length.
func (m *Message) Len() int {
	return int(m.length)
}

// Cap returns the message's allocated capacity.
func (m *Message) Cap() int {
	return int(m.size)
}

// Tag returns the message's current ABA generation counter. Exposed for
// diagnostics and tests; callers must not rely on its value for anything
// beyond "it changes when the message is released".
func (m *Message) Tag() uint32 {
	return m.tag.LoadAcquire()
}

// SetLength shrinks or grows (up to Cap) the message's reported payload
// length. Producers call this between Allocate and Submit, mirroring the
// original's practice of allocating headroom and then writing the actual
// encoded length (e.g. the return value of a formatting call) before
// submitting. Setting length to zero turns the message into a stub, which
// Peek will never hand back to a caller.
func (m *Message) SetLength(length int) error {
	if length < 0 || uint32(length) > m.size {
		return ErrMessageTooLarge
	}
	m.length = uint32(length)
	return nil
}

// isStub reports whether this message is a zero-length sentinel.
func (m *Message) isStub() bool {
	return m.length == 0
}

// loadNext resolves this message's next-link through the owning pool's
// slab, returning nil if there is no next message linked.
func (m *Message) loadNext() *Message {
	_, slot := unpackRef(m.next.LoadAcquire())
	if slot == nilSlot {
		return nil
	}
	return m.pool.slabAt(slot)
}

// storeNext publishes n as this message's next-link with release ordering,
// so that a consumer acquiring this message's next pointer also observes
// every write n's owner made before linking it. Used for pipe-queue
// linking, where the tag half of the packed word is unused.
func (m *Message) storeNext(n *Message) {
	if n == nil {
		m.next.StoreRelease(nilRef())
		return
	}
	m.next.StoreRelease(packRef(0, n.slot))
}

// loadNextRef returns this message's raw packed next-ref, tag half and all.
// The pool's free-stack push/pop uses this directly: a message pushed onto
// the stack must carry the *prior top's* full (tag, slot) word in its next
// link, not just the next message's identity, so that popping can restore
// pool.top from message.next without any extra bookkeeping.
func (m *Message) loadNextRef() uint64 {
	return m.next.LoadAcquire()
}

// storeNextRef publishes a raw packed ref (tag and slot both meaningful)
// as this message's next-link with release ordering. Used for pool
// free-stack linking.
func (m *Message) storeNextRef(ref uint64) {
	m.next.StoreRelease(ref)
}

// Release returns the message to its owning pool's free stack. The caller
// must not touch the message again afterward.
func (m *Message) Release() {
	if m == nil {
		return
	}
	m.pool.release(m)
}
