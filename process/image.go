// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package process // import "github.com/phlip9/sgx-panic-backtrace/process"

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/phlip9/sgx-panic-backtrace/libpf"
)

// Image describes where an executable file is loaded in the address space.
type Image struct {
	// Path is the file the image was mapped from.
	Path string
	// Base is the address at which file offset zero is mapped.
	Base libpf.Address
	// Text spans all executable mappings of the image.
	Text libpf.Range
}

// FindImage locates the image mapped from path within mappings.
func FindImage(mappings []Mapping, path string) (Image, error) {
	img := Image{Path: path}
	found := false
	lowest := uint64(0)

	for i := range mappings {
		m := &mappings[i]
		if m.IsAnonymous() || m.Path != path {
			continue
		}
		if !found || m.Vaddr < lowest {
			lowest = m.Vaddr
			img.Base = libpf.Address(m.Vaddr - m.FileOffset)
		}
		found = true

		if !m.IsExecutable() {
			continue
		}
		start, end := libpf.Address(m.Vaddr), libpf.Address(m.End())
		if img.Text.IsZero() {
			img.Text = libpf.Range{Start: start, End: end}
			continue
		}
		img.Text.Start = min(img.Text.Start, start)
		img.Text.End = max(img.Text.End, end)
	}

	if !found {
		return Image{}, fmt.Errorf("%s: %w", path, ErrNoMappings)
	}
	return img, nil
}

// ExecutablePath returns the resolved path of the running executable, in the
// form procfs uses for its mappings.
func ExecutablePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return exe, nil
	}
	return resolved, nil
}

// SelfImage locates the running executable in the current address space.
func SelfImage() (Image, error) {
	exe, err := ExecutablePath()
	if err != nil {
		return Image{}, fmt.Errorf("failed to locate executable: %w", err)
	}
	mappings, err := SelfMappings()
	if err != nil {
		return Image{}, err
	}
	return FindImage(mappings, exe)
}
