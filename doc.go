// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fastpipe provides an unbounded, lock-free multi-producer /
// multi-consumer message pipe backed by a recycling buffer pool.
//
// The package couples three pieces:
//
//   - SharedPool: a lock-free free-list of recyclable Message buffers,
//     bucketed by a single granularity and reference counted.
//   - Message: a pool-allocated, variable-length buffer carrying a header
//     (next-link, owning pool, ABA tag, capacity, length) plus payload.
//   - Pipe: a Michael-Scott-style lock-free FIFO queue of messages,
//     parameterized by an activation threshold and callback, reference
//     counted, and backed by the pool for its sentinel stub nodes.
//
// # Quick Start
//
// Direct constructors:
//
//	pool := fastpipe.NewSharedPool(128)
//	pipe, err := fastpipe.NewPipe(pool, 4, nil)
//
// Builder API for fluent configuration:
//
//	pipe, pool, err := fastpipe.New(128).Threshold(4).Build()
//
// # Basic Usage
//
//	pool := fastpipe.NewSharedPool(128)
//	pipe, err := fastpipe.NewPipe(pool, 4, nil)
//	if err != nil {
//		// out of memory constructing the initial stub
//	}
//
//	// Producer: allocate, write, submit.
//	msg, err := pool.Allocate(len(payload))
//	if err == nil {
//		n := copy(msg.Buffer(), payload)
//		msg.SetLength(n)
//		pipe.Submit(msg)
//	}
//
//	// Consumer: peek, process, release.
//	msg, err = pipe.Peek()
//	if err == nil {
//		process(msg.Payload())
//		msg.Release()
//	}
//
// # Common Patterns
//
// Worker pool (MPMC): any number of producers call Submit, any number of
// consumers call Peek; per-producer order is preserved but consumers race
// for delivery.
//
//	pool := fastpipe.NewSharedPool(256)
//	pipe, _ := fastpipe.NewPipe(pool, 8, nil)
//
//	for w := range numWorkers {
//		go func() {
//			for {
//				msg, err := pipe.Peek()
//				if err != nil {
//					continue // backoff on the external activation transport
//				}
//				handle(msg.Payload())
//				msg.Release()
//			}
//		}()
//	}
//
//	func Submit(payload []byte) error {
//		msg, err := pool.Allocate(len(payload))
//		if err != nil {
//			return err
//		}
//		copy(msg.Buffer(), payload)
//		msg.SetLength(len(payload))
//		pipe.Submit(msg)
//		return nil
//	}
//
// Activation-driven wakeup: Submit invokes the installed [ActivateFunc]
// whenever the non-stub queue length observed just before linking a user
// message is at or below threshold. A typical consumer blocks on the external wakeup primitive
// that Activate signals (a channel send, a semaphore post, an eventfd
// write — this package treats the primitive itself as an external
// collaborator) and calls Peek in a loop when woken:
//
//	wake := make(chan struct{}, 1)
//	activate := func(*fastpipe.Pipe) {
//		select {
//		case wake <- struct{}{}:
//		default:
//		}
//	}
//	pipe, _ := fastpipe.NewPipe(pool, 4, activate)
//
//	go func() {
//		for range wake {
//			for {
//				msg, err := pipe.Peek()
//				if err != nil {
//					break
//				}
//				handle(msg.Payload())
//				msg.Release()
//			}
//		}
//	}()
//
// # Error Handling
//
// Peek returns [ErrWouldBlock] when no user message is immediately
// available, matching the control-flow (not failure) signal
// [code.hybscloud.com/iox] uses for empty/full conditions elsewhere in the
// Hayabusa Cloud stack:
//
//	msg, err := pipe.Peek()
//	if fastpipe.IsWouldBlock(err) {
//		// nothing ready yet; wait on the activation transport and retry
//	}
//
// Allocate returns [ErrMessageTooLarge] when a pool was constructed with
// [WithMaxMessageSize] and a request exceeds it — the practical analogue of
// "allocation failed" for a runtime that has no recoverable
// allocation-failure signal of its own.
//
// # Lifecycle and Reference Counting
//
// SharedPool, Pipe, and Message each carry an exclusive-ownership
// discipline: a Message belongs to exactly one of a producer, a list
// (pool stack or pipe queue), or a consumer at any instant. Hold/Release
// pairs on SharedPool and Pipe must balance at
// shutdown: the final Release on each walks its remaining structure and
// returns every node before freeing itself. A conforming caller stops all
// producers and consumers, joins every goroutine, and only then drops its
// final Pipe and SharedPool references; messages left queued at that point
// are drained safely by Pipe.Release, not leaked.
//
// # Concurrency Model
//
// Submit is wait-free on an uncontended head. Peek is lock-free except for
// one bounded spin: the exclusive tail-exchange retries while another
// consumer holds it, bounded by that consumer's own forward progress, not
// by arbitrary backoff. No goroutine parks inside this package; all waiting
// is the caller's responsibility via the external activation transport.
//
// Cross-producer ordering matches the linearization order of the atomic
// head-exchange in Submit; per-producer order is always preserved. Which
// consumer observes which message is a race — this package makes no
// fairness guarantee between consumers.
//
// # Race Detection
//
// Go's race detector tracks explicit synchronization primitives (mutexes,
// channels, WaitGroups) but cannot observe the happens-before relationships
// this package establishes purely through atomic acquire/release ordering
// on the pool's tagged free-stack pointer and the pipe's head/tail links.
// The concurrent examples that depend on that ordering are excluded under
// -race by a build constraint, and the [RaceEnabled] build-tag constant
// reports whether the detector is active; the algorithms themselves are
// unaffected.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for its queue, free-stack,
// length, tag, and refcount atomics with explicit memory ordering (the
// pool's slab pointer is a sync/atomic Pointer), [code.hybscloud.com/spin] for bounded
// CPU-pause backoff in its CAS retry loops, and [code.hybscloud.com/iox]
// for semantic, non-failure error sentinels.
package fastpipe
