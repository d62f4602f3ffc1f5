// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package unwind // import "github.com/phlip9/sgx-panic-backtrace/unwind"

import (
	"fmt"

	"github.com/phlip9/sgx-panic-backtrace/libpf"
	"github.com/phlip9/sgx-panic-backtrace/remotememory"
)

// DefaultMaxFrameSize bounds the distance between two consecutive frame
// records. A larger jump is treated as a corrupted link.
const DefaultMaxFrameSize = 1 << 20

// FramePointer walks the chain of frame records that the Go compiler
// maintains on amd64 and arm64: the word at the frame pointer holds the
// caller's frame pointer and the next word the return address.
//
// All reads go through Memory, which turns faults into errors, so a
// corrupted chain ends the walk instead of crashing the process.
type FramePointer struct {
	// Memory is used to read frame records. The zero value reads the memory
	// of the current process.
	Memory remotememory.RemoteMemory
	// Bounds is the range of plausible return addresses, usually the text
	// of the executable. The zero value accepts any address.
	Bounds libpf.Range
	// MaxFrameSize overrides DefaultMaxFrameSize when non-zero.
	MaxFrameSize libpf.Address
}

// Pointer receivers: a value method called through Walker runs behind a
// wrapper frame that would show up in the frame record chain.
var _ Walker = (*FramePointer)(nil)

// Walk starts at the frame of the caller of Walk. On architectures without
// frame pointer support it returns an empty trace.
//
//go:noinline
func (w *FramePointer) Walk(t *Trace, skip int) {
	reserveStack()
	w.WalkFrom(t, libpf.Address(getfp()), skip)
}

// stackReserve is grown onto the stack before the walk starts. The frame
// pointers held during the walk are plain integers: if the runtime moved the
// stack to grow it mid-walk, they would point into the old copy.
const stackReserve = 16 << 10

//go:noinline
func reserveStack() {
	var pad [stackReserve]byte
	touch(pad[:])
}

//go:noinline
func touch(b []byte) {
	if len(b) > 0 {
		b[len(b)-1] = 0
	}
}

// WalkFrom walks the frame record chain starting at fp.
func (w *FramePointer) WalkFrom(t *Trace, fp libpf.Address, skip int) {
	t.Reset()

	mem := w.Memory
	if !mem.Valid() {
		mem = remotememory.Self()
	}
	maxFrame := w.MaxFrameSize
	if maxFrame == 0 {
		maxFrame = DefaultMaxFrameSize
	}

	for fp != 0 {
		if !fp.IsAligned() {
			t.err = fmt.Errorf("misaligned frame pointer 0x%x: %w", fp, ErrInvalidFrame)
			return
		}
		savedFP, pc, err := mem.FrameRecord(fp)
		if err != nil {
			t.err = fmt.Errorf("frame record at 0x%x: %w", fp, err)
			return
		}
		if pc == 0 {
			// Outermost frame.
			return
		}
		if !w.Bounds.Contains(pc) {
			t.err = fmt.Errorf("return address 0x%x outside code: %w", pc, ErrInvalidFrame)
			return
		}

		if skip > 0 {
			skip--
		} else if !t.push(pc) {
			return
		}

		if savedFP == 0 {
			return
		}
		// The stack grows down: callers live at strictly higher addresses.
		if savedFP <= fp || savedFP-fp > maxFrame {
			t.err = fmt.Errorf("frame link 0x%x -> 0x%x: %w", fp, savedFP, ErrInvalidFrame)
			return
		}
		fp = savedFP
	}
}
