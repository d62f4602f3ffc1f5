// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package process reads the memory layout of the current process from procfs.
package process // import "github.com/phlip9/sgx-panic-backtrace/process"

import (
	"bufio"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/phlip9/sgx-panic-backtrace/internal/log"
	"github.com/phlip9/sgx-panic-backtrace/stringutil"
)

// ErrNoMappings is returned when no mappings can be extracted, or none of
// them belongs to the requested image.
var ErrNoMappings = errors.New("no mappings")

// selfMapsPath is a variable so tests can point it at a fixture.
var selfMapsPath = "/proc/self/maps"

// Mapping contains information about a memory mapping
type Mapping struct {
	// Vaddr is the virtual memory start for this mapping
	Vaddr uint64
	// Length is the length of the mapping
	Length uint64
	// Flags contains the mapping flags and permissions
	Flags elf.ProgFlag
	// FileOffset contains for file backed mappings the offset from the file start
	FileOffset uint64
	// Inode holds the mapped file's inode number
	Inode uint64
	// Path contains the file name for file backed mappings
	Path string
}

func (m *Mapping) IsExecutable() bool {
	return m.Flags&elf.PF_X == elf.PF_X
}

func (m *Mapping) IsAnonymous() bool {
	return m.Path == ""
}

// End returns the first address past the mapping.
func (m *Mapping) End() uint64 {
	return m.Vaddr + m.Length
}

func trimMappingPath(path string) string {
	// Trim the deleted indication from the path.
	// See path_with_deleted in linux/fs/d_path.c
	return strings.TrimSuffix(path, " (deleted)")
}

// ParseMappings parses the contents of a /proc/PID/maps file. Lines that
// cannot be parsed are skipped and counted.
func ParseMappings(mapsFile io.Reader) ([]Mapping, uint32, error) {
	numParseErrors := uint32(0)
	mappings := make([]Mapping, 0, 32)
	scanner := bufio.NewScanner(mapsFile)
	scanner.Buffer(make([]byte, 256), 8192)

	var fields [6]string
	var addrs [2]string

	for scanner.Scan() {
		// The path is the remainder after the inode and may contain spaces.
		nFields := stringutil.FieldsN(scanner.Text(), fields[:])
		if nFields < 5 {
			numParseErrors++
			continue
		}
		if stringutil.SplitN(fields[0], "-", addrs[:]) < 2 {
			numParseErrors++
			continue
		}
		start, end := addrs[0], addrs[1]

		mapsFlags := fields[1]
		if len(mapsFlags) < 3 {
			numParseErrors++
			continue
		}
		flags := elf.ProgFlag(0)
		if mapsFlags[0] == 'r' {
			flags |= elf.PF_R
		}
		if mapsFlags[1] == 'w' {
			flags |= elf.PF_W
		}
		if mapsFlags[2] == 'x' {
			flags |= elf.PF_X
		}

		// Ignore non-readable and non-executable mappings
		if flags&(elf.PF_R|elf.PF_X) == 0 {
			continue
		}

		inode, err := strconv.ParseUint(fields[4], 10, 64)
		if err != nil {
			log.Debugf("inode: failed to convert %s to uint64: %v", fields[4], err)
			numParseErrors++
			continue
		}

		var path string
		if nFields > 5 {
			path = trimMappingPath(fields[5])
		}
		if inode == 0 && strings.HasPrefix(path, "[") {
			// Pseudo mappings such as [stack] or [vdso] are never the image.
			continue
		}

		vaddr, err := strconv.ParseUint(start, 16, 64)
		if err != nil {
			log.Debugf("vaddr: failed to convert %s to uint64: %v", start, err)
			numParseErrors++
			continue
		}
		vend, err := strconv.ParseUint(end, 16, 64)
		if err != nil || vend < vaddr {
			log.Debugf("vend: failed to convert %s to uint64: %v", end, err)
			numParseErrors++
			continue
		}
		fileOffset, err := strconv.ParseUint(fields[2], 16, 64)
		if err != nil {
			log.Debugf("fileOffset: failed to convert %s to uint64: %v", fields[2], err)
			numParseErrors++
			continue
		}

		mappings = append(mappings, Mapping{
			Vaddr:      vaddr,
			Length:     vend - vaddr,
			Flags:      flags,
			FileOffset: fileOffset,
			Inode:      inode,
			Path:       path,
		})
	}
	return mappings, numParseErrors, scanner.Err()
}

// SelfMappings returns the mappings of the current process.
func SelfMappings() ([]Mapping, error) {
	mapsFile, err := os.Open(selfMapsPath)
	if err != nil {
		return nil, err
	}
	defer mapsFile.Close()

	mappings, numParseErrors, err := ParseMappings(mapsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", selfMapsPath, err)
	}
	if numParseErrors > 0 {
		log.Debugf("%d lines of %s could not be parsed", numParseErrors, selfMapsPath)
	}
	if len(mappings) == 0 {
		return nil, ErrNoMappings
	}
	return mappings, nil
}
