// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf // import "github.com/phlip9/sgx-panic-backtrace/libpf"

import "unsafe"

// PtrSize is the size of a native pointer in bytes.
const PtrSize = Address(unsafe.Sizeof(uintptr(0)))

// Address represents an address, or offset within the executable image.
type Address uintptr

// Sub returns the offset of adr from base using machine word arithmetic.
// Addresses below base wrap around, matching unsigned pointer subtraction.
func (adr Address) Sub(base Address) Address {
	return adr - base
}

// IsAligned reports whether adr is a multiple of the native pointer size.
func (adr Address) IsAligned() bool {
	return adr%PtrSize == 0
}

// Range is a half open [Start, End) address interval.
type Range struct {
	Start Address
	End   Address
}

// Contains reports whether adr lies within the range. The zero Range contains
// every address so that callers without bounds information do not filter.
func (r Range) Contains(adr Address) bool {
	if r == (Range{}) {
		return true
	}
	return adr >= r.Start && adr < r.End
}

// IsZero reports whether no bounds are known.
func (r Range) IsZero() bool {
	return r == Range{}
}
