// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// successfailurecounter records the outcome of one step of a panic report
// (base resolution, emission) into a pair of atomic counters, exactly once.
//
// A SuccessFailureCounter itself belongs to a single report and must not be
// shared between goroutines. The counters it increments may be shared.
package successfailurecounter // import "github.com/phlip9/sgx-panic-backtrace/successfailurecounter"

import (
	"sync/atomic"

	"github.com/phlip9/sgx-panic-backtrace/internal/log"
)

// SuccessFailureCounter implements a wrapper to increment success or failure counters exactly once.
type SuccessFailureCounter struct {
	success, fail *atomic.Uint64
	sealed        bool
}

// New returns a SuccessFailureCounter that can be incremented exactly once.
func New(success, fail *atomic.Uint64) SuccessFailureCounter {
	return SuccessFailureCounter{success: success, fail: fail}
}

// ReportSuccess increments the success counter or logs an error otherwise.
func (sfc *SuccessFailureCounter) ReportSuccess() {
	if sfc.sealed {
		log.Debugf("Attempted to report success/failure status more than once.")
		return
	}
	sfc.success.Add(1)
	sfc.sealed = true
}

// ReportFailure increments the failure counter or logs an error otherwise.
func (sfc *SuccessFailureCounter) ReportFailure() {
	if sfc.sealed {
		log.Debugf("Attempted to report failure/success status more than once.")
		return
	}
	sfc.fail.Add(1)
	sfc.sealed = true
}

// Report increments the success counter when ok is set, the failure counter otherwise.
func (sfc *SuccessFailureCounter) Report(ok bool) {
	if ok {
		sfc.ReportSuccess()
	} else {
		sfc.ReportFailure()
	}
}

// DefaultToFailure increments the failure counter if no counter was updated before.
// Deferring it covers steps that were cut short by a panic.
func (sfc *SuccessFailureCounter) DefaultToFailure() {
	if !sfc.sealed {
		sfc.fail.Add(1)
		sfc.sealed = true
	}
}
