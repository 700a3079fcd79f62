// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fastpipe

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

const defaultGranularity = 64

// SharedPool is a lock-free free-list of recyclable Message buffers, all
// rounded up to a single granularity. It is reference counted: a pool stays
// alive as long as anything holds it, which includes every Message
// currently allocated from it (not just the Pipe or caller that created it).
type SharedPool struct {
	_              pad
	top            atomix.Uint64 // packed (tag, slot) of the free-stack head
	_              pad
	refs           atomix.Int64
	_              pad
	granularity    uint32
	maxMessageSize uint32 // 0 means unbounded

	mu   sync.Mutex // guards slab growth only; the hot path never takes it
	slab atomic.Pointer[[]*Message]
}

// PoolOption configures a SharedPool at construction time.
type PoolOption func(*SharedPool)

// WithMaxMessageSize caps the length Allocate will accept. Requests above
// the cap fail with ErrMessageTooLarge instead of growing the pool
// unboundedly; see ErrMessageTooLarge for why Go cannot model true
// allocation failure the way the reference allocator does.
func WithMaxMessageSize(n uint32) PoolOption {
	return func(p *SharedPool) {
		p.maxMessageSize = n
	}
}

// NewSharedPool creates a pool with the given granularity and refcount 1.
// A granularity of zero falls back to defaultGranularity.
func NewSharedPool(granularity uint32, opts ...PoolOption) *SharedPool {
	if granularity == 0 {
		granularity = defaultGranularity
	}
	p := &SharedPool{granularity: granularity}
	p.top.StoreRelease(nilRef())
	for _, opt := range opts {
		opt(p)
	}
	p.refs.StoreRelease(1)
	return p
}

// Hold increments the pool's refcount. Callers that retain a pointer to
// the pool beyond the scope that created it (a Pipe, a background holder)
// must pair this with a later Release.
func (p *SharedPool) Hold() {
	p.refs.AddAcqRel(1)
}

// Release decrements the pool's refcount. The decrementer that takes it to
// zero drains the free stack and drops the slab, after which the pool must
// not be used again.
func (p *SharedPool) Release() {
	if p.refs.AddAcqRel(-1) == 0 {
		p.drain()
	}
}

// slabAt resolves a slot index to its Message without locking. Growth is
// copy-on-write, so a concurrent addToSlab never invalidates a slice
// already loaded here.
func (p *SharedPool) slabAt(slot uint32) *Message {
	s := p.slab.Load()
	if s == nil {
		return nil
	}
	sl := *s
	if slot >= uint32(len(sl)) {
		return nil
	}
	return sl[slot]
}

// addToSlab appends m to the slab under the growth lock and returns its
// new slot. The slab itself is replaced atomically so readers never see a
// partially written slice.
func (p *SharedPool) addToSlab(m *Message) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var old []*Message
	if cur := p.slab.Load(); cur != nil {
		old = *cur
	}
	slot := uint32(len(old))
	next := make([]*Message, len(old)+1)
	copy(next, old)
	next[slot] = m
	p.slab.Store(&next)
	return slot
}

// Allocate returns a Message with at least length bytes of capacity,
// pinning the pool for the Message's lifetime. Allocate first tries to pop
// a buffer from the free stack; if the popped buffer is too small it is
// discarded (its generation tag carried forward) and a fresh buffer is
// grown instead, rounded up to the next multiple of the pool's granularity.
// A zero-length request still reserves one full granularity block, so the
// returned Message can be reused as a stub.
func (p *SharedPool) Allocate(length int) (*Message, error) {
	if length < 0 {
		length = 0
	}
	if p.maxMessageSize != 0 && uint32(length) > p.maxMessageSize {
		return nil, ErrMessageTooLarge
	}
	p.Hold()

	var sw spin.Wait
	for {
		top := p.top.LoadAcquire()
		tag, slot := unpackRef(top)
		if slot == nilSlot {
			return p.allocateFresh(length, 0), nil
		}
		m := p.slabAt(slot)
		if m == nil {
			sw.Once()
			continue
		}
		next := m.loadNextRef()
		if !p.top.CompareAndSwapAcqRel(top, next) {
			sw.Once()
			continue
		}
		if uint32(length) <= m.size {
			m.length = uint32(length)
			return m, nil
		}
		// Too small: the slot itself stays in the slab forever (it may still
		// be referenced by a racing reader's stale view), but the buffer is
		// no longer reachable from any list, so only its tag is worth saving.
		return p.allocateFresh(length, tag), nil
	}
}

// allocateFresh grows a brand new buffer, seeding its generation tag from a
// just-discarded undersized buffer so the ABA counter keeps advancing
// across the substitution instead of resetting to zero.
func (p *SharedPool) allocateFresh(length int, seedTag uint32) *Message {
	size := roundUpGranularity(length, p.granularity)
	m := &Message{
		pool:   p,
		size:   uint32(size),
		length: uint32(length),
		data:   make([]byte, size),
	}
	m.tag.StoreRelease(seedTag)
	m.next.StoreRelease(nilRef())
	m.slot = p.addToSlab(m)
	return m
}

// release pushes m back onto the free stack, bumping its generation tag
// first so any thread still holding a stale reference to m observes a tag
// mismatch on its next CAS attempt, then undoes the pool pin Allocate took.
func (p *SharedPool) release(m *Message) {
	newTag := m.tag.AddAcqRel(1)
	var sw spin.Wait
	for {
		top := p.top.LoadAcquire()
		m.storeNextRef(top)
		if p.top.CompareAndSwapAcqRel(top, packRef(uint32(newTag), m.slot)) {
			break
		}
		sw.Once()
	}
	p.Release()
}

// drain pops every buffer left on the free stack and drops the slab.
// Called only once, by the decrementer that takes refs to zero, so it runs
// without contention from Allocate/release.
func (p *SharedPool) drain() {
	var sw spin.Wait
	for {
		top := p.top.LoadAcquire()
		_, slot := unpackRef(top)
		if slot == nilSlot {
			break
		}
		m := p.slabAt(slot)
		if m == nil {
			break
		}
		if !p.top.CompareAndSwapAcqRel(top, m.loadNextRef()) {
			sw.Once()
			continue
		}
	}
	p.slab.Store(nil)
}
