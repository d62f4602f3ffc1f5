// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// remotememory provides fault tolerant access to a memory space. The ReaderAt
// interface is used for the basic access, and convenience functions are
// provided to read the machine words that make up call frames. A bad address
// turns into an error instead of a crash, which is what the stack walker
// relies on when the stack is corrupted.
package remotememory // import "github.com/phlip9/sgx-panic-backtrace/remotememory"

import (
	"io"

	"github.com/phlip9/sgx-panic-backtrace/libpf"
	"github.com/phlip9/sgx-panic-backtrace/nopanicslicereader"
)

// RemoteMemory implements a set of convenience functions to access memory
type RemoteMemory struct {
	io.ReaderAt
}

// Valid determines if this RemoteMemory instance contains a valid reader
func (rm RemoteMemory) Valid() bool {
	return rm.ReaderAt != nil
}

// Read fills slice p[] with data from memory at address addr
func (rm RemoteMemory) Read(addr libpf.Address, p []byte) error {
	if !rm.Valid() {
		return ErrNoReader
	}
	n, err := rm.ReadAt(p, int64(addr))
	if err == nil && n != len(p) {
		err = ErrUnreadable
	}
	return err
}

// FrameRecord reads the two words of a frame record at fp: the caller's
// saved frame pointer followed by the return address.
func (rm RemoteMemory) FrameRecord(fp libpf.Address) (savedFP, retPC libpf.Address, err error) {
	var buf [16]byte
	rec := buf[:2*libpf.PtrSize]
	if err = rm.Read(fp, rec); err != nil {
		return 0, 0, err
	}
	return nopanicslicereader.Ptr(rec, 0), nopanicslicereader.Ptr(rec, uint(libpf.PtrSize)), nil
}

// Snapshot is a ReaderAt over a copy of a memory region that started at Base.
// Reads not fully inside the copied region fail with ErrUnreadable.
type Snapshot struct {
	Base libpf.Address
	Data []byte
}

func (s Snapshot) ReadAt(p []byte, off int64) (int, error) {
	addr := libpf.Address(off)
	if addr < s.Base || addr-s.Base >= libpf.Address(len(s.Data)) {
		return 0, ErrUnreadable
	}
	n := copy(p, s.Data[addr-s.Base:])
	if n < len(p) {
		return n, ErrUnreadable
	}
	return n, nil
}

// NewSnapshot returns a RemoteMemory reading from a snapshot of memory.
func NewSnapshot(base libpf.Address, data []byte) RemoteMemory {
	return RemoteMemory{ReaderAt: Snapshot{Base: base, Data: data}}
}

// Self returns a RemoteMemory reading the memory of the current process. An
// unmapped address yields ErrUnreadable instead of a fault. Other systems
// than Linux fail every read with errors.ErrUnsupported.
func Self() RemoteMemory {
	return RemoteMemory{ReaderAt: selfMemory{}}
}

// selfMemory reads the own address space through the kernel, one contiguous
// range per call.
type selfMemory struct{}
