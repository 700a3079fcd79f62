// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

// This file contains examples with concurrent producer/consumer goroutines.
// These trigger false positives with Go's race detector because lock-free
// queue synchronization uses atomic sequences that the detector cannot see.
// The examples are correct; they're excluded from race testing.

package fastpipe_test

import (
	"fmt"
	"sort"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/fastpipe"
)

// Example_workerPool demonstrates a worker pool pattern: one producer
// submits jobs, several consumers race to process them.
func Example_workerPool() {
	pool := fastpipe.NewSharedPool(64)
	pipe, _ := fastpipe.NewPipe(pool, 4, nil)
	defer pipe.Release()
	defer pool.Release()

	const numJobs = 9
	var wg sync.WaitGroup
	var mu sync.Mutex
	var results []int
	var processed atomix.Int64

	for w := 0; w < 3; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for processed.Load() < numJobs {
				msg, err := pipe.Peek()
				if err != nil {
					continue
				}
				var v int
				fmt.Sscanf(string(msg.Payload()), "%d", &v)
				msg.Release()
				mu.Lock()
				results = append(results, v*v)
				mu.Unlock()
				processed.Add(1)
			}
		}()
	}

	for i := 1; i <= numJobs; i++ {
		payload := fmt.Sprintf("%d", i)
		msg, _ := pool.Allocate(len(payload))
		n := copy(msg.Buffer(), payload)
		msg.SetLength(n)
		pipe.Submit(msg)
	}

	wg.Wait()

	sort.Ints(results)
	fmt.Println(results)

	// Output:
	// [1 4 9 16 25 36 49 64 81]
}

// Example_pipeline demonstrates chaining two pipes into a two-stage
// pipeline: generate, double, collect.
func Example_pipeline() {
	poolA := fastpipe.NewSharedPool(64)
	stageIn, _ := fastpipe.NewPipe(poolA, 4, nil)
	poolB := fastpipe.NewSharedPool(64)
	stageOut, _ := fastpipe.NewPipe(poolB, 4, nil)
	defer stageIn.Release()
	defer poolA.Release()
	defer stageOut.Release()
	defer poolB.Release()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		processed := 0
		for processed < 5 {
			msg, err := stageIn.Peek()
			if err != nil {
				continue
			}
			var v int
			fmt.Sscanf(string(msg.Payload()), "%d", &v)
			msg.Release()

			doubled := fmt.Sprintf("%d", v*2)
			out, _ := poolB.Allocate(len(doubled))
			n := copy(out.Buffer(), doubled)
			out.SetLength(n)
			stageOut.Submit(out)
			processed++
		}
	}()

	for i := 1; i <= 5; i++ {
		payload := fmt.Sprintf("%d", i)
		msg, _ := poolA.Allocate(len(payload))
		n := copy(msg.Buffer(), payload)
		msg.SetLength(n)
		stageIn.Submit(msg)
	}

	var results []int
	for len(results) < 5 {
		msg, err := stageOut.Peek()
		if err != nil {
			continue
		}
		var v int
		fmt.Sscanf(string(msg.Payload()), "%d", &v)
		msg.Release()
		results = append(results, v)
	}
	wg.Wait()

	fmt.Println(results)

	// Output:
	// [2 4 6 8 10]
}
