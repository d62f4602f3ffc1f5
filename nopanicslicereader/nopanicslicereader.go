// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// nopanicslicereader provides little convenience utilities to read "native" endian
// values from a slice at given offset. Zeroes are returned on out of bounds access
// instead of panic, so decoding a truncated frame record on the panic path can
// never raise a second panic.
package nopanicslicereader // import "github.com/phlip9/sgx-panic-backtrace/nopanicslicereader"

import (
	"encoding/binary"

	"github.com/phlip9/sgx-panic-backtrace/libpf"
)

// Uint32 reads one 32-bit unsigned integer from given byte slice offset
func Uint32(b []byte, offs uint) uint32 {
	if offs+4 > uint(len(b)) {
		return 0
	}
	return binary.LittleEndian.Uint32(b[offs:])
}

// Uint64 reads one 64-bit unsigned integer from given byte slice offset
func Uint64(b []byte, offs uint) uint64 {
	if offs+8 > uint(len(b)) {
		return 0
	}
	return binary.LittleEndian.Uint64(b[offs:])
}

// Ptr reads one native sized pointer from given byte slice offset
func Ptr(b []byte, offs uint) libpf.Address {
	if libpf.PtrSize == 4 {
		return libpf.Address(Uint32(b, offs))
	}
	return libpf.Address(Uint64(b, offs))
}
