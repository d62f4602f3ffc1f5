// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package panichook

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/phlip9/sgx-panic-backtrace/internal/log"
	"github.com/phlip9/sgx-panic-backtrace/vc"
)

const meterName = "github.com/phlip9/sgx-panic-backtrace/panichook"

var metricDefs = []struct {
	name, description, unit string
	value                   counter
}{
	{"panichook.reports.emitted", "Panic reports written completely", "{report}",
		func(c *counters) *atomic.Uint64 { return &c.reportsEmitted }},
	{"panichook.reports.failed", "Panic reports that could not be written", "{report}",
		func(c *counters) *atomic.Uint64 { return &c.reportsFailed }},
	{"panichook.base.resolved", "Reports with a resolved image base", "{report}",
		func(c *counters) *atomic.Uint64 { return &c.baseResolved }},
	{"panichook.base.unresolved", "Reports printed with absolute addresses", "{report}",
		func(c *counters) *atomic.Uint64 { return &c.baseUnresolved }},
	{"panichook.walks.truncated", "Stack walks cut off at the depth bound", "{walk}",
		walksTruncated},
	{"panichook.walks.stopped", "Stack walks ended by an unreadable frame record", "{walk}",
		walksStopped},
}

func init() {
	if err := registerMetrics(otel.GetMeterProvider()); err != nil {
		log.Errorf("Registering panic hook metrics: %v", err)
	}
}

// registerMetrics exports the process totals as observable counters of mp.
func registerMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(meterName, metric.WithInstrumentationVersion(vc.Version()))

	instruments := make([]metric.Int64ObservableCounter, len(metricDefs))
	observables := make([]metric.Observable, len(metricDefs))
	for i, md := range metricDefs {
		inst, err := meter.Int64ObservableCounter(md.name,
			metric.WithDescription(md.description),
			metric.WithUnit(md.unit))
		if err != nil {
			return err
		}
		instruments[i] = inst
		observables[i] = inst
	}

	_, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for i, md := range metricDefs {
			o.ObserveInt64(instruments[i], int64(md.value(&totals).Load()))
		}
		return nil
	}, observables...)
	return err
}
