// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package stringutil splits procfs lines without allocating.
package stringutil // import "github.com/phlip9/sgx-panic-backtrace/stringutil"

import "strings"

var asciiSpace = [256]bool{'\t': true, '\n': true, '\v': true, '\f': true, '\r': true, ' ': true}

// skipSpace returns the index of the first non-space byte of s at or after i.
func skipSpace(s string, i int) int {
	for i < len(s) && asciiSpace[s[i]] {
		i++
	}
	return i
}

// FieldsN splits s around runs of ASCII white space into f and returns the
// number of fields set. The last element of f receives the remainder of s,
// starting at its first non-space byte, including any inner white space.
// f is left untouched if s is blank.
func FieldsN(s string, f []string) int {
	if len(f) == 0 {
		return 0
	}
	last := len(f) - 1
	i := 0
	for n := range last {
		i = skipSpace(s, i)
		start := i
		for i < len(s) && !asciiSpace[s[i]] {
			i++
		}
		if start == i {
			return n
		}
		f[n] = s[start:i]
	}

	i = skipSpace(s, i)
	if i == len(s) {
		return last
	}
	f[last] = s[i:]
	return len(f)
}

// SplitN splits s around each sep into f and returns the number of fields
// set. The last element of f receives the unsplit remainder of s.
func SplitN(s, sep string, f []string) int {
	if len(f) == 0 {
		return 0
	}
	n := 0
	for ; n < len(f)-1 && s != ""; n++ {
		field, rest, found := strings.Cut(s, sep)
		if !found {
			f[n] = s
			return n + 1
		}
		f[n] = field
		s = rest
	}
	f[n] = s
	return n + 1
}
