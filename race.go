// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package fastpipe

// RaceEnabled is true when the race detector is active.
// Available to tests that need to skip concurrency checks relying on
// acquire/release ordering across the pool's tagged free-stack pointer and
// the pipe's head/tail links, which the race detector cannot observe and
// reports as false positives.
const RaceEnabled = true
