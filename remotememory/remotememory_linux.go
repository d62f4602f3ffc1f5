//go:build linux

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package remotememory // import "github.com/phlip9/sgx-panic-backtrace/remotememory"

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/phlip9/sgx-panic-backtrace/libpf"
)

// selfPID is looked up once so that reads during a panic make no extra
// syscall.
var selfPID = int(libpf.Self())

// ReadAt copies len(p) bytes at address off using process_vm_readv, which
// reports unmapped memory as EFAULT or as a partial read.
func (selfMemory) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	local := [1]unix.Iovec{{Base: &p[0]}}
	local[0].SetLen(len(p))
	remote := [1]unix.RemoteIovec{{Base: uintptr(off), Len: len(p)}}

	n, err := unix.ProcessVMReadv(selfPID, local[:], remote[:], 0)
	switch {
	case errors.Is(err, unix.EFAULT):
		return 0, ErrUnreadable
	case err != nil:
		return 0, err
	case n != len(p):
		return n, ErrUnreadable
	}
	return n, nil
}
