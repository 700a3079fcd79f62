// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fastpipe

// Config configures Pipe and SharedPool creation.
type Config struct {
	granularity    uint32
	maxMessageSize uint32
	threshold      uint32
	activate       ActivateFunc
}

// Builder creates a Pipe and its backing SharedPool with a fluent API,
// generalizing the granularity/threshold/activation configuration a caller
// would otherwise pass positionally to NewSharedPool and NewPipe.
//
// Example:
//
//	pipe, pool, err := fastpipe.New(128).
//		Threshold(64).
//		Activate(func(p *fastpipe.Pipe) { kick(events) }).
//		Build()
type Builder struct {
	cfg Config
}

// New creates a pipe builder with the given pool granularity.
// A granularity of zero falls back to defaultGranularity.
func New(granularity uint32) *Builder {
	return &Builder{cfg: Config{granularity: granularity}}
}

// Threshold sets the activation / trailing-stub watermark: Submit fires the
// activation callback whenever the non-stub queue length observed just
// before linking a user message is at-or-below threshold, and Peek ensures
// a trailing stub whenever the length left after its claim is at-or-below
// threshold.
func (b *Builder) Threshold(threshold uint32) *Builder {
	b.cfg.threshold = threshold
	return b
}

// Activate installs the callback Submit fires on a threshold crossing. It
// must be reentrant, non-blocking, and idempotent-safe: see [ActivateFunc].
func (b *Builder) Activate(fn ActivateFunc) *Builder {
	b.cfg.activate = fn
	return b
}

// MaxMessageSize caps the length the built pool's Allocate will accept.
// See [WithMaxMessageSize].
func (b *Builder) MaxMessageSize(n uint32) *Builder {
	b.cfg.maxMessageSize = n
	return b
}

// Build creates the SharedPool and Pipe described by the builder so far.
// On success the caller owns both references; Pipe.Release should run before the matching pool release, mirroring the hold order
// NewPipe establishes internally. On failure neither reference is returned
// and no state leaks.
func (b *Builder) Build() (*Pipe, *SharedPool, error) {
	var opts []PoolOption
	if b.cfg.maxMessageSize != 0 {
		opts = append(opts, WithMaxMessageSize(b.cfg.maxMessageSize))
	}
	pool := NewSharedPool(b.cfg.granularity, opts...)
	pipe, err := NewPipe(pool, b.cfg.threshold, b.cfg.activate)
	if err != nil {
		pool.Release()
		return nil, nil, err
	}
	return pipe, pool, nil
}
