// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package reporter renders panic reports in the line oriented text format
// consumed by offline symbolization tools:
//
//	enclave: panicked at 'foo', bar.rs:10:5
//	stack backtrace:
//	   0: 0x1b09d9
//	   1: 0x1396f6
//
// Frame values are offsets from the image base. When the base could not be
// resolved the header ends with AbsoluteMarker and frames carry absolute
// addresses instead.
package reporter // import "github.com/phlip9/sgx-panic-backtrace/reporter"

import (
	"strconv"

	"github.com/phlip9/sgx-panic-backtrace/libpf"
)

const (
	// HeaderPrefix starts every report.
	HeaderPrefix = "enclave: panicked at '"
	// BacktraceLine separates the header from the frame lines.
	BacktraceLine = "stack backtrace:"
	// AbsoluteMarker ends the header line of reports whose frames are
	// absolute addresses.
	AbsoluteMarker = " [absolute addresses]"
)

// Location is the source position a panic was raised at.
type Location struct {
	File   string
	Line   int
	Column int
}

// String formats the location as file:line:column. The column is left out
// when it is unknown (zero).
func (l Location) String() string {
	return string(l.appendText(nil))
}

func (l Location) appendText(b []byte) []byte {
	b = append(b, l.File...)
	b = append(b, ':')
	b = strconv.AppendInt(b, int64(l.Line), 10)
	if l.Column > 0 {
		b = append(b, ':')
		b = strconv.AppendInt(b, int64(l.Column), 10)
	}
	return b
}

// PanicContext is what the failing code reported: a message and, if known,
// where it happened.
type PanicContext struct {
	Message  string
	Location *Location
}

// Frame is one captured return address.
type Frame struct {
	// Index is the position in the backtrace, 0 being the innermost frame.
	Index int
	// Address is the absolute return address.
	Address libpf.Address
	// Offset is Address minus the image base. It is only meaningful in
	// reports with Relative set.
	Offset libpf.Address
}

// Relativize converts absolute addresses into frames relative to base,
// appending them to frames.
func Relativize(frames []Frame, addrs []libpf.Address, base libpf.Address) []Frame {
	for i, addr := range addrs {
		frames = append(frames, Frame{Index: i, Address: addr, Offset: addr.Sub(base)})
	}
	return frames
}

// Absolute converts addresses into frames without a known base, appending
// them to frames.
func Absolute(frames []Frame, addrs []libpf.Address) []Frame {
	for i, addr := range addrs {
		frames = append(frames, Frame{Index: i, Address: addr, Offset: addr})
	}
	return frames
}

// Report is everything needed to render one panic report. It is built on
// the failure path and discarded after emission.
type Report struct {
	Context PanicContext
	Frames  []Frame
	// Relative is set when Frames carry offsets from a resolved image base.
	Relative bool
}

// AppendText appends the rendered report to b.
func (r *Report) AppendText(b []byte) []byte {
	b = append(b, HeaderPrefix...)
	b = append(b, r.Context.Message...)
	b = append(b, '\'')
	if loc := r.Context.Location; loc != nil {
		b = append(b, ", "...)
		b = loc.appendText(b)
	}
	if !r.Relative {
		b = append(b, AbsoluteMarker...)
	}
	b = append(b, '\n')

	b = append(b, BacktraceLine...)
	b = append(b, '\n')

	for _, f := range r.Frames {
		value := f.Address
		if r.Relative {
			value = f.Offset
		}
		b = appendPadded(b, f.Index, 4)
		b = append(b, ": 0x"...)
		b = strconv.AppendUint(b, uint64(value), 16)
		b = append(b, '\n')
	}
	return b
}

// String renders the report.
func (r *Report) String() string {
	return string(r.AppendText(nil))
}

// appendPadded appends v right aligned in a field of width characters.
func appendPadded(b []byte, v, width int) []byte {
	var digits [20]byte
	d := strconv.AppendInt(digits[:0], int64(v), 10)
	for i := len(d); i < width; i++ {
		b = append(b, ' ')
	}
	return append(b, d...)
}
