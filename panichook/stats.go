// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package panichook

import "sync/atomic"

// Stats are counters of a hook.
type Stats struct {
	ReportsEmitted uint64
	ReportsFailed  uint64
	BaseResolved   uint64
	BaseUnresolved uint64
	WalksTruncated uint64
	WalksStopped   uint64

	// BaseCached is set once the image base was resolved and cached.
	BaseCached bool
}

type counters struct {
	reportsEmitted atomic.Uint64
	reportsFailed  atomic.Uint64
	baseResolved   atomic.Uint64
	baseUnresolved atomic.Uint64
	walksTruncated atomic.Uint64
	walksStopped   atomic.Uint64
}

// totals count over all hooks since process start. They back the exported
// metrics, which must stay monotonic when a hook is replaced.
var totals counters

type (
	counter func(*counters) *atomic.Uint64
	outcome func(*counters) (success, failure *atomic.Uint64)
)

var (
	walksTruncated counter = func(c *counters) *atomic.Uint64 { return &c.walksTruncated }
	walksStopped   counter = func(c *counters) *atomic.Uint64 { return &c.walksStopped }

	baseOutcome outcome = func(c *counters) (*atomic.Uint64, *atomic.Uint64) {
		return &c.baseResolved, &c.baseUnresolved
	}
	emitOutcome outcome = func(c *counters) (*atomic.Uint64, *atomic.Uint64) {
		return &c.reportsEmitted, &c.reportsFailed
	}
)

func (c *counters) snapshot() Stats {
	return Stats{
		ReportsEmitted: c.reportsEmitted.Load(),
		ReportsFailed:  c.reportsFailed.Load(),
		BaseResolved:   c.baseResolved.Load(),
		BaseUnresolved: c.baseUnresolved.Load(),
		WalksTruncated: c.walksTruncated.Load(),
		WalksStopped:   c.walksStopped.Load(),
	}
}
