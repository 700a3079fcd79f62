// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fastpipe

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// ActivateFunc is invoked by a producer whenever Submit links a user
// message and the queue's non-stub length observed just before that link
// is at or below threshold. It must be reentrant, non-blocking, and
// idempotent-safe: multiple producers may invoke it concurrently. A typical implementation
// signals an external wakeup primitive (a channel send, a semaphore post)
// that consumers wait on outside this package.
type ActivateFunc func(*Pipe)

// Pipe is a lock-free Michael-Scott FIFO queue of messages, reference
// counted and backed by a SharedPool for its stub nodes. The queue is
// never structurally empty: a stub sentinel is always linked, even when no
// user message is present.
type Pipe struct {
	_         pad
	head      atomix.Uint64 // packed ref to the newest linked message
	_         pad
	tail      atomix.Uint64 // packed ref to the oldest linked message; nilRef() while a consumer holds exclusive access
	_         pad
	length    atomix.Int64 // count of linked, not-yet-claimed non-stub messages; advisory
	_         pad
	refs      atomix.Int64
	threshold uint32
	activate  ActivateFunc
	pool      *SharedPool
}

// NewPipe allocates a stub from pool, installs it as both head and tail,
// holds the pool, and returns a Pipe with refcount 1. If the stub
// allocation fails, no state is created and the error is returned as-is.
func NewPipe(pool *SharedPool, threshold uint32, activate ActivateFunc) (*Pipe, error) {
	stub, err := pool.Allocate(0)
	if err != nil {
		return nil, err
	}
	pool.Hold()
	p := &Pipe{
		pool:      pool,
		threshold: threshold,
		activate:  activate,
	}
	ref := packRef(0, stub.slot)
	p.head.StoreRelease(ref)
	p.tail.StoreRelease(ref)
	p.refs.StoreRelease(1)
	return p, nil
}

// Hold increments the pipe's refcount.
func (p *Pipe) Hold() {
	p.refs.AddAcqRel(1)
}

// Release decrements the pipe's refcount. The decrementer that takes it to
// zero walks the remaining queue, returns every node (including the
// residual sentinel) to the pool, then drops the pool hold.
func (p *Pipe) Release() {
	if p.refs.AddAcqRel(-1) == 0 {
		p.drain()
	}
}

func (p *Pipe) drain() {
	_, slot := unpackRef(p.tail.LoadAcquire())
	for slot != nilSlot {
		m := p.pool.slabAt(slot)
		if m == nil {
			break
		}
		_, next := unpackRef(m.next.LoadAcquire())
		m.Release()
		slot = next
	}
	p.pool.Release()
}

// exchangeHead atomically replaces head with newRef and returns the prior
// value, built from a CAS retry loop since atomix exposes no bare exchange.
func (p *Pipe) exchangeHead(newRef uint64) uint64 {
	var sw spin.Wait
	for {
		old := p.head.LoadAcquire()
		if p.head.CompareAndSwapAcqRel(old, newRef) {
			return old
		}
		sw.Once()
	}
}

// exchangeTail atomically replaces tail with newRef and returns the prior
// value. Used both to take exclusive ownership of tail (newRef = nilRef())
// and to release it back (a real ref), so callers interpret the return
// value differently depending on which they passed in.
func (p *Pipe) exchangeTail(newRef uint64) uint64 {
	var sw spin.Wait
	for {
		old := p.tail.LoadAcquire()
		if p.tail.CompareAndSwapAcqRel(old, newRef) {
			return old
		}
		sw.Once()
	}
}

// restoreLengthRelaxed adds delta back into length with relaxed ordering, via
// a CAS retry loop since atomix exposes no bare relaxed add. Used only by
// Peek's early-exit paths, where length is advisory and the surrounding
// queue links (not this counter) carry the real happens-before edges.
func restoreLengthRelaxed(length *atomix.Int64, delta int64) {
	var sw spin.Wait
	for {
		old := length.LoadRelaxed()
		if length.CompareAndSwapRelaxed(old, old+delta) {
			return
		}
		sw.Once()
	}
}

// Submit hands ownership of msg to the queue. The caller must not touch
// msg again afterward. Wait-free on an uncontended head: a single atomic
// exchange links msg in, and a release store publishes it to whichever
// consumer later reads the previous head's next pointer.
func (p *Pipe) Submit(msg *Message) {
	msg.next.StoreRelease(nilRef())
	prevRef := p.exchangeHead(packRef(0, msg.slot))
	_, prevSlot := unpackRef(prevRef)
	prev := p.pool.slabAt(prevSlot)
	prev.storeNext(msg)

	if msg.isStub() {
		return
	}
	pre := p.length.AddAcqRel(1) - 1
	if pre <= int64(p.threshold) && p.activate != nil {
		p.activate(p)
	}
}

// Peek takes ownership of the oldest user message, or returns
// ErrWouldBlock if none is immediately available. Stubs are skipped and
// recycled transparently; callers never observe them.
func (p *Pipe) Peek() (*Message, error) {
	preClaim := p.length.AddAcqRel(-1) + 1
	if preClaim <= 0 {
		p.length.AddAcqRel(1)
		return nil, ErrWouldBlock
	}
	if preClaim-1 <= int64(p.threshold) {
		if stub, err := p.pool.Allocate(0); err == nil {
			p.Submit(stub)
		}
	}

	var sw spin.Wait
	for {
		var tailRef uint64
		for {
			tailRef = p.exchangeTail(nilRef())
			if tailRef != nilRef() {
				break
			}
			sw.Once()
		}

		_, tailSlot := unpackRef(tailRef)
		tailMsg := p.pool.slabAt(tailSlot)
		nextWord := tailMsg.next.LoadAcquire()
		_, nextSlot := unpackRef(nextWord)
		if nextSlot == nilSlot {
			p.tail.StoreRelaxed(tailRef)
			restoreLengthRelaxed(&p.length, 1)
			return nil, ErrWouldBlock
		}

		p.tail.StoreRelaxed(nextWord)
		if tailMsg.isStub() {
			tailMsg.Release()
			continue
		}
		tailMsg.next.StoreRelease(nilRef())
		return tailMsg, nil
	}
}

// Count returns the advisory number of linked, not-yet-claimed non-stub
// messages. It may transiently read as zero or negative under contention
// between Submit and Peek and must not be treated as exact.
func (p *Pipe) Count() int64 {
	return p.length.LoadAcquire()
}
