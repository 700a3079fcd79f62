// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fastpipe

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates Peek could not find a user message immediately.
//
// This is a control flow signal, not a failure: either no message is
// currently available, or another consumer is mid-dequeue and the caller
// should retry (typically after waiting on the external activation
// transport). This is an alias for [iox.ErrWouldBlock] for ecosystem
// consistency with this package's other semantic-error helpers.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    msg, err := pipe.Peek()
//	    if err == nil {
//	        backoff.Reset()
//	        process(msg)
//	        continue
//	    }
//	    if fastpipe.IsWouldBlock(err) {
//	        backoff.Wait()
//	        continue
//	    }
//	    return err
//	}
var ErrWouldBlock = iox.ErrWouldBlock

// ErrMessageTooLarge is returned by Allocate when a requested length
// exceeds the pool's configured MaxMessageSize.
//
// Go has no recoverable signal for true allocation failure the way C's
// malloc returning NULL does (an actual Go out-of-memory condition is an
// unrecoverable fatal error, not a panic). ErrMessageTooLarge is the
// practical analogue of an allocator reporting "out of memory": a guard
// rail a caller can configure and handle, rather than a condition this
// package could ever detect and recover from after the fact.
var ErrMessageTooLarge = errors.New("fastpipe: message length exceeds pool's maximum")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil or ErrWouldBlock. Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
