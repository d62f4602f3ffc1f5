// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"debug/elf"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phlip9/sgx-panic-backtrace/libpf"
)

//nolint:lll
var testMappings = `55fe82710000-55fe8273c000 r--p 00000000 fd:01 1068432                    /tmp/enclave runner
55fe8273c000-55fe827be000 r-xp 0002c000 fd:01 1068432                    /tmp/enclave runner
55fe827be000-55fe82836000 r--p 000ae000 fd:01 1068432                    /tmp/enclave runner
55fe8283d000-55fe8283e000 rw-p 0012c000 fd:01 1068432                    /tmp/enclave runner (deleted)
55fe8283e000-55fe8283f000 ---p 00000000 00:00 0
7f63c8c3e000-7f63c8de0000 r-xp 00085000 08:01 1048922                    /usr/lib/libcrypto.so.1.1
7ffd1b5e0000-7ffd1b601000 rw-p 00000000 00:00 0                          [stack]
7f63c8eef000-7f63c8fdf000 r-xp 0001c000 1fd:01
7f63c8eef000-7f63c8fdf000 r- 0001c000 1fd:01 1075944
7f63c8eef000 r-xp 0001c000 1fd:01 1075944
zzzz-7f63c8fdf000 r-xp 0001c000 1fd:01 1075944
7f8b929f0000-7f8b92a00000 r-xp 00000000 00:00 0 `

func TestParseMappings(t *testing.T) {
	mappings, numParseErrors, err := ParseMappings(strings.NewReader(testMappings))
	require.NoError(t, err)
	require.Equal(t, uint32(4), numParseErrors)

	expected := []Mapping{
		{
			Vaddr:  0x55fe82710000,
			Flags:  elf.PF_R,
			Inode:  1068432,
			Length: 0x2c000,
			Path:   "/tmp/enclave runner",
		},
		{
			Vaddr:      0x55fe8273c000,
			Flags:      elf.PF_R + elf.PF_X,
			Inode:      1068432,
			Length:     0x82000,
			FileOffset: 0x2c000,
			Path:       "/tmp/enclave runner",
		},
		{
			Vaddr:      0x55fe827be000,
			Flags:      elf.PF_R,
			Inode:      1068432,
			Length:     0x78000,
			FileOffset: 0xae000,
			Path:       "/tmp/enclave runner",
		},
		{
			Vaddr:      0x55fe8283d000,
			Flags:      elf.PF_R + elf.PF_W,
			Inode:      1068432,
			Length:     0x1000,
			FileOffset: 0x12c000,
			Path:       "/tmp/enclave runner",
		},
		{
			Vaddr:      0x7f63c8c3e000,
			Flags:      elf.PF_R + elf.PF_X,
			Inode:      1048922,
			Length:     0x1a2000,
			FileOffset: 0x85000,
			Path:       "/usr/lib/libcrypto.so.1.1",
		},
		{
			Vaddr:  0x7f8b929f0000,
			Flags:  elf.PF_R + elf.PF_X,
			Length: 0x10000,
		},
	}
	assert.Equal(t, expected, mappings)
}

func TestFindImage(t *testing.T) {
	mappings, _, err := ParseMappings(strings.NewReader(testMappings))
	require.NoError(t, err)

	img, err := FindImage(mappings, "/tmp/enclave runner")
	require.NoError(t, err)
	assert.Equal(t, libpf.Address(0x55fe82710000), img.Base)
	assert.Equal(t, libpf.Range{Start: 0x55fe8273c000, End: 0x55fe827be000}, img.Text)

	lib, err := FindImage(mappings, "/usr/lib/libcrypto.so.1.1")
	require.NoError(t, err)
	assert.Equal(t, libpf.Address(0x7f63c8c3e000-0x85000), lib.Base)

	_, err = FindImage(mappings, "/does/not/exist")
	require.ErrorIs(t, err, ErrNoMappings)
}

func TestSelfMappingsFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maps")
	require.NoError(t, os.WriteFile(path, []byte("garbage\n"), 0o600))

	old := selfMapsPath
	selfMapsPath = path
	t.Cleanup(func() { selfMapsPath = old })

	_, err := SelfMappings()
	require.ErrorIs(t, err, ErrNoMappings)
}

func TestSelfImage(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skipf("unsupported os %s", runtime.GOOS)
	}
	img, err := SelfImage()
	require.NoError(t, err)
	assert.NotZero(t, img.Text.End)

	// The code of this very test lives in the text of the image.
	pc, _, _, ok := runtime.Caller(0)
	require.True(t, ok)
	assert.True(t, img.Text.Contains(libpf.Address(pc)))
	assert.LessOrEqual(t, img.Base, img.Text.Start)
}
