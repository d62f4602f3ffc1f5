// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package nopanicslicereader

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phlip9/sgx-panic-backtrace/libpf"
)

func TestSliceReader(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	assert.Equal(t, uint32(0x04030201), Uint32(data, 0))
	assert.Equal(t, uint32(0), Uint32(data, 100))
	assert.Equal(t, uint64(0x0807060504030201), Uint64(data, 0))
	assert.Equal(t, uint64(0), Uint64(data, 1))
	assert.Equal(t, uint64(0), Uint64(nil, 0))
	if libpf.PtrSize == 8 {
		assert.Equal(t, libpf.Address(0x0807060504030201), Ptr(data, 0))
	} else {
		assert.Equal(t, libpf.Address(0x08070605), Ptr(data, 4))
	}
	assert.Equal(t, libpf.Address(0), Ptr(data, 6))
}
