// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

// This file contains examples that use atomix concurrency primitives.
// These trigger false positives with Go's race detector because atomix
// atomic operations appear as regular memory accesses to the detector.
// The examples are correct; they're excluded from race testing.

package fastpipe_test

import (
	"fmt"

	"code.hybscloud.com/fastpipe"
)

// ExampleNewPipe demonstrates a single producer and single consumer sharing
// a pipe and pool: allocate, write, submit, then peek, process, release.
func ExampleNewPipe() {
	pool := fastpipe.NewSharedPool(64)
	pipe, err := fastpipe.NewPipe(pool, 4, nil)
	if err != nil {
		fmt.Println("create failed:", err)
		return
	}

	for i := 1; i <= 3; i++ {
		payload := fmt.Sprintf("msg-%d", i)
		msg, err := pool.Allocate(len(payload))
		if err != nil {
			fmt.Println("allocate failed:", err)
			return
		}
		n := copy(msg.Buffer(), payload)
		msg.SetLength(n)
		pipe.Submit(msg)
	}

	for {
		msg, err := pipe.Peek()
		if err != nil {
			break
		}
		fmt.Println(string(msg.Payload()))
		msg.Release()
	}

	pipe.Release()
	pool.Release()

	// Output:
	// msg-1
	// msg-2
	// msg-3
}

// ExampleBuilder demonstrates the fluent builder API for constructing a
// pipe and its pool together.
func ExampleBuilder() {
	pipe, pool, err := fastpipe.New(64).Threshold(2).Build()
	if err != nil {
		fmt.Println("build failed:", err)
		return
	}
	defer pool.Release()
	defer pipe.Release()

	msg, _ := pool.Allocate(5)
	copy(msg.Buffer(), "hello")
	msg.SetLength(5)
	pipe.Submit(msg)

	got, err := pipe.Peek()
	if err != nil {
		fmt.Println("peek failed:", err)
		return
	}
	fmt.Println(string(got.Payload()))
	got.Release()

	// Output:
	// hello
}

// ExampleIsWouldBlock demonstrates error handling when Peek finds nothing
// immediately available.
func ExampleIsWouldBlock() {
	pool := fastpipe.NewSharedPool(64)
	pipe, _ := fastpipe.NewPipe(pool, 4, nil)
	defer pipe.Release()
	defer pool.Release()

	_, err := pipe.Peek()
	if fastpipe.IsWouldBlock(err) {
		fmt.Println("pipe empty - no message available")
	}

	msg, _ := pool.Allocate(3)
	copy(msg.Buffer(), "hi!")
	msg.SetLength(3)
	pipe.Submit(msg)

	got, _ := pipe.Peek()
	fmt.Println(string(got.Payload()))
	got.Release()

	_, err = pipe.Peek()
	if fastpipe.IsWouldBlock(err) {
		fmt.Println("pipe empty again")
	}

	// Output:
	// pipe empty - no message available
	// hi!
	// pipe empty again
}

// Example_bufferReuse demonstrates that Release recycles a buffer back to
// the pool for the next Allocate of a compatible size.
func Example_bufferReuse() {
	pool := fastpipe.NewSharedPool(128)

	first, _ := pool.Allocate(50)
	firstTag := first.Tag()
	first.Release()

	second, _ := pool.Allocate(50)
	fmt.Println("same buffer reused:", second.Tag() > firstTag)

	second.Release()
	pool.Release()

	// Output:
	// same buffer reused: true
}
