// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package panichook // import "github.com/phlip9/sgx-panic-backtrace/panichook"

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/phlip9/sgx-panic-backtrace/reporter"
)

// maxLocationDepth bounds the search for the frame that raised the panic.
const maxLocationDepth = 32

// message returns the text Go itself would print for a panic value.
func message(v any) string {
	switch v := v.(type) {
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// contextFromPanic builds the failure context of a recovered panic. It must
// be called while the panicking frames are still on the stack, i.e. from a
// deferred function.
func contextFromPanic(value any) reporter.PanicContext {
	return reporter.PanicContext{
		Message:  message(value),
		Location: panicLocation(),
	}
}

// panicLocation returns the source position of the first non-runtime frame
// below runtime.gopanic, or nil if there is none within reach.
func panicLocation() *reporter.Location {
	var pcs [maxLocationDepth]uintptr
	n := runtime.Callers(1, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	afterPanic := false
	for {
		f, more := frames.Next()
		if afterPanic && f.Function != "" && !strings.HasPrefix(f.Function, "runtime.") {
			return &reporter.Location{File: f.File, Line: f.Line}
		}
		if f.Function == "runtime.gopanic" {
			afterPanic = true
		}
		if !more {
			return nil
		}
	}
}
