// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fastpipe

// pad is cache line padding to prevent false sharing between hot atomics.
type pad [64]byte

// roundUpGranularity rounds length up to the next multiple of granularity.
// A zero length still reserves one full granularity block, matching the
// reference allocator's treatment of stub messages.
func roundUpGranularity(length int, granularity uint32) int {
	g := int(granularity)
	rem := length % g
	if rem > 0 || length == 0 {
		return length + (g - rem)
	}
	return length
}
