// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package unwind collects the return addresses of the calling goroutine's
// stack at the moment of a failure. Walks are bounded by a maximum depth and
// stop early, keeping what was collected, when the stack looks corrupted.
package unwind // import "github.com/phlip9/sgx-panic-backtrace/unwind"

import (
	"encoding/binary"
	"errors"

	"github.com/zeebo/xxh3"

	"github.com/phlip9/sgx-panic-backtrace/libpf"
)

const (
	// DefaultMaxDepth is the depth bound used when none is configured.
	DefaultMaxDepth = 128
	// MaxDepthLimit is the largest accepted depth bound.
	MaxDepthLimit = 4096
)

// ErrInvalidFrame is recorded on a Trace when the walk stopped at a frame
// record that failed validation.
var ErrInvalidFrame = errors.New("invalid frame")

// Walker collects return addresses, innermost first, into a Trace.
type Walker interface {
	// Walk replaces the contents of t with the stack of the calling goroutine.
	// skip is the number of innermost frames to omit, starting with the
	// caller of Walk.
	Walk(t *Trace, skip int)
}

// Trace is a fixed capacity buffer of return addresses. All memory is
// allocated by NewTrace so that walking does not allocate.
type Trace struct {
	pcs []libpf.Address
	n   int

	// scratch receives runtime.Callers output, one slot larger than pcs so
	// that hitting the depth bound can be told apart from an exact fit.
	scratch []uintptr

	truncated bool
	err       error
}

// NewTrace returns an empty Trace holding at most maxDepth addresses.
// maxDepth is clamped to [0, MaxDepthLimit].
func NewTrace(maxDepth int) *Trace {
	maxDepth = min(max(maxDepth, 0), MaxDepthLimit)
	return &Trace{
		pcs:     make([]libpf.Address, maxDepth),
		scratch: make([]uintptr, maxDepth+1),
	}
}

// Reset empties the trace for reuse.
func (t *Trace) Reset() {
	t.n = 0
	t.truncated = false
	t.err = nil
}

// MaxDepth returns the capacity of the trace.
func (t *Trace) MaxDepth() int {
	return len(t.pcs)
}

// Len returns the number of collected addresses.
func (t *Trace) Len() int {
	return t.n
}

// Frames returns the collected addresses, innermost first. The slice aliases
// the trace buffer and is only valid until the next walk.
func (t *Trace) Frames() []libpf.Address {
	return t.pcs[:t.n]
}

// Truncated reports whether the walk stopped because the depth bound was hit.
func (t *Trace) Truncated() bool {
	return t.truncated
}

// Err returns why the walk stopped before reaching the outermost frame, or
// nil if it ended normally or at the depth bound.
func (t *Trace) Err() error {
	return t.err
}

// push appends pc, returning false and marking the trace truncated when full.
func (t *Trace) push(pc libpf.Address) bool {
	if t.n == len(t.pcs) {
		t.truncated = true
		return false
	}
	t.pcs[t.n] = pc
	t.n++
	return true
}

// Hash returns an identifier of the collected addresses that is stable for a
// given stack and image load address.
func (t *Trace) Hash() uint64 {
	h := xxh3.New()
	var buf [8]byte
	for _, pc := range t.Frames() {
		binary.LittleEndian.PutUint64(buf[:], uint64(pc))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
