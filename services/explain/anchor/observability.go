// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package anchor

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const anchorTracerName = "aleutian.explain.anchor"

var anchorTracer = otel.Tracer(anchorTracerName)

// anchorMetrics holds the engine's lazily-initialized instruments.
//
// Instrument creation goes through a sync.Once so the package works
// both before and after the global MeterProvider is configured.
type anchorMetrics struct {
	once sync.Once

	roundsTotal         metric.Int64Counter
	candidatesGenerated metric.Int64Counter
	candidatesPruned    metric.Int64Counter
	validityResamples   metric.Int64Counter
	searchDuration      metric.Float64Histogram
	samplesPerSearch    metric.Int64Histogram
}

var metrics anchorMetrics

func (m *anchorMetrics) init() {
	m.once.Do(func() {
		meter := otel.Meter(anchorTracerName)
		m.roundsTotal, _ = meter.Int64Counter("anchor.rounds",
			metric.WithDescription("Beam search rounds executed"))
		m.candidatesGenerated, _ = meter.Int64Counter("anchor.candidates.generated",
			metric.WithDescription("Candidates produced by generation"))
		m.candidatesPruned, _ = meter.Int64Counter("anchor.candidates.pruned",
			metric.WithDescription("Candidates discarded by the coverage floor"))
		m.validityResamples, _ = meter.Int64Counter("anchor.validity.resamples",
			metric.WithDescription("Extra sample batches drawn by the validity check"))
		m.searchDuration, _ = meter.Float64Histogram("anchor.search.duration_ms",
			metric.WithDescription("End-to-end search duration in milliseconds"))
		m.samplesPerSearch, _ = meter.Int64Histogram("anchor.search.samples",
			metric.WithDescription("Total samples drawn during one search"))
	})
}

func recordRound(ctx context.Context, size int) {
	metrics.init()
	metrics.roundsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Int("anchor.size", size)))
}

func recordGenerated(ctx context.Context, generated, pruned int) {
	metrics.init()
	metrics.candidatesGenerated.Add(ctx, int64(generated))
	metrics.candidatesPruned.Add(ctx, int64(pruned))
}

func recordValidityResample(ctx context.Context) {
	metrics.init()
	metrics.validityResamples.Add(ctx, 1)
}

func recordSearch(ctx context.Context, durationMs float64, samples int) {
	metrics.init()
	metrics.searchDuration.Record(ctx, durationMs)
	metrics.samplesPerSearch.Record(ctx, int64(samples))
}

// startSpan opens an engine span with the common attribute set.
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return anchorTracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}
