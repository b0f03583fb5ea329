// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sampling provides the executors behind the engine's session
// barrier.
//
// A session collects (candidate, extra sample count) requests and runs
// them as one unit: Run returns only after every requested candidate's
// counters have been merged. Two executors share the same session
// type: Linear runs requests on the calling goroutine in request
// order (tests, debugging), Pool fans them out across a bounded worker
// pool. Candidate counters are merged through the candidate's own
// atomic RegisterSamples, so workers never share any other state.
package sampling

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/AleutianExplain/services/explain/anchor"
)

const samplingMeterName = "aleutian.explain.sampling"

var (
	samplingMetricsOnce sync.Once
	samplesDrawn        metric.Int64Counter
	sessionLatency      metric.Float64Histogram
)

func initSamplingMetrics() {
	samplingMetricsOnce.Do(func() {
		meter := otel.Meter(samplingMeterName)
		samplesDrawn, _ = meter.Int64Counter("sampling.samples",
			metric.WithDescription("Perturbation samples drawn"))
		sessionLatency, _ = meter.Float64Histogram("sampling.session.duration_ms",
			metric.WithDescription("Session barrier latency in milliseconds"))
	})
}

// request is one unit of work: evaluate a candidate with count more
// samples.
type request struct {
	candidate *anchor.Candidate
	count     int
}

// executor runs a batch of requests to completion.
type executor func(ctx context.Context, requests []request) error

// session is the shared one-shot barrier implementation.
//
// Requests for the same candidate coalesce into one larger batch, so a
// batch is merged into the candidate exactly once. Thread Safety: a
// session belongs to a single caller; only Run's internals fan out.
type session struct {
	id     string
	exec   executor
	logger *slog.Logger

	mu       sync.Mutex
	done     bool
	order    []*anchor.Candidate
	requests map[*anchor.Candidate]int
}

func newSession(exec executor, logger *slog.Logger) *session {
	return &session{
		id:       uuid.NewString(),
		exec:     exec,
		logger:   logger,
		requests: make(map[*anchor.Candidate]int),
	}
}

// Request schedules extra samples for the candidate. Non-positive
// counts are ignored. Returns the session for chaining.
func (s *session) Request(candidate *anchor.Candidate, extra int) anchor.SamplingSession {
	if candidate == nil || extra < 1 {
		return s
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return s
	}
	if _, seen := s.requests[candidate]; !seen {
		s.order = append(s.order, candidate)
	}
	s.requests[candidate] += extra
	return s
}

// Run executes all collected requests and blocks until every one
// completed. A second Run returns anchor.ErrSessionDone: a session's
// batches are merged exactly once.
func (s *session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return anchor.ErrSessionDone
	}
	s.done = true
	batch := make([]request, 0, len(s.order))
	total := 0
	for _, candidate := range s.order {
		count := s.requests[candidate]
		batch = append(batch, request{candidate: candidate, count: count})
		total += count
	}
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	initSamplingMetrics()
	start := time.Now()
	err := s.exec(ctx, batch)
	elapsed := time.Since(start)
	samplesDrawn.Add(ctx, int64(total))
	sessionLatency.Record(ctx, float64(elapsed.Milliseconds()))

	s.logger.Debug("sampling session complete",
		slog.String("session_id", s.id),
		slog.Int("candidates", len(batch)),
		slog.Int("samples", total),
		slog.Duration("elapsed", elapsed))
	if err != nil {
		return fmt.Errorf("sampling session %s: %w", s.id, err)
	}
	return nil
}

// Linear executes every request on the calling goroutine, in request
// order. It trades throughput for strict determinism.
//
// Thread Safety: Safe for concurrent use; each session is independent.
type Linear struct {
	fn     anchor.SampleFunc
	logger *slog.Logger
}

// NewLinear creates a linear sampling service around the sample
// closure.
func NewLinear(fn anchor.SampleFunc) *Linear {
	return &Linear{fn: fn, logger: slog.Default()}
}

// WithLogger sets the logger.
func (l *Linear) WithLogger(logger *slog.Logger) *Linear {
	l.logger = logger
	return l
}

// Session returns a fresh one-shot session.
func (l *Linear) Session() anchor.SamplingSession {
	return newSession(l.run, l.logger)
}

func (l *Linear) run(ctx context.Context, batch []request) error {
	for _, req := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := l.fn(ctx, req.candidate, req.count); err != nil {
			return err
		}
	}
	return nil
}

// LinearFactory returns a SamplerFactory producing Linear services.
func LinearFactory() anchor.SamplerFactory {
	return func(fn anchor.SampleFunc) anchor.SamplingService {
		return NewLinear(fn)
	}
}
