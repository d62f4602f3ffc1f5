// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package reporter // import "github.com/phlip9/sgx-panic-backtrace/reporter"

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/phlip9/sgx-panic-backtrace/internal/log"
)

// initialReportSize covers a header and a few dozen frame lines.
const initialReportSize = 2048

// Emitter writes reports to a shared output. Each report is rendered first
// and then written with a single Write while holding the emitter lock, so
// reports of concurrent panics never interleave.
type Emitter struct {
	mu  sync.Mutex
	out io.Writer
}

// newEmitter returns an Emitter writing to out that is not shared with other
// users of out.
func newEmitter(out io.Writer) *Emitter {
	return &Emitter{out: out}
}

var (
	emittersMu sync.Mutex
	emitters   = map[io.Writer]*Emitter{}
)

// EmitterFor returns the Emitter shared by every caller passing the same out,
// so that all reports written to one output are serialized by one lock, even
// across hook replacements. Outputs whose dynamic type is not comparable get
// a private Emitter.
func EmitterFor(out io.Writer) *Emitter {
	if out == nil || !reflect.TypeOf(out).Comparable() {
		return newEmitter(out)
	}
	emittersMu.Lock()
	defer emittersMu.Unlock()
	e, ok := emitters[out]
	if !ok {
		e = newEmitter(out)
		emitters[out] = e
	}
	return e
}

// Emit renders and writes r and reports whether it was written completely.
// Write errors and writer panics are logged, never returned: the process is
// already failing and reporting must not fail it twice.
func (e *Emitter) Emit(r *Report) bool {
	buf := r.AppendText(make([]byte, 0, initialReportSize))
	err := e.write(buf)
	if err != nil {
		log.Debugf("Failed to emit panic report: %v", err)
	}
	return err == nil
}

func (e *Emitter) write(buf []byte) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("writer panicked: %v", p)
		}
	}()

	if e.out == nil {
		return errors.New("no output")
	}
	n, err := e.out.Write(buf)
	if err == nil && n != len(buf) {
		err = io.ErrShortWrite
	}
	// Buffered outputs would otherwise lose the report when the process dies.
	if f, ok := e.out.(interface{ Flush() error }); ok {
		err = errors.Join(err, f.Flush())
	}
	return err
}
