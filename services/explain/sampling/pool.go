// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sampling

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/AleutianAI/AleutianExplain/services/explain/anchor"
)

// PoolConfig configures the parallel sampling executor.
type PoolConfig struct {
	// Workers is the number of concurrent workers.
	// Default: 4
	Workers int

	// Balanced splits each request into up to Workers chunks whose
	// sizes differ by at most one, so a single large request still
	// saturates the pool. Each chunk merges into the candidate's
	// counters once, keeping the merge monotone.
	// Default: false
	Balanced bool

	// Logger for per-session debug output. If nil, uses the default
	// logger.
	Logger *slog.Logger
}

// DefaultPoolConfig returns sensible defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers: 4,
	}
}

// Pool runs sampling requests across a bounded worker pool.
//
// Description:
//
//	Each session's batch is pushed through a buffered channel drained
//	by Workers goroutines. The session barrier holds: Run returns
//	only after the WaitGroup drains, and the first error (or worker
//	panic) cancels the remaining work.
//
// Thread Safety: Safe for concurrent use across sessions. The engine
// guarantees no two sessions target the same candidate concurrently;
// within a session, requests for one candidate were already coalesced.
type Pool struct {
	fn      anchor.SampleFunc
	workers int
	balance bool
	logger  *slog.Logger
}

// NewPool creates a parallel sampling service around the sample
// closure.
//
// Inputs:
//
//	fn - The engine's sample closure.
//	config - Pool configuration. Zero Workers falls back to the
//	         default.
//
// Outputs:
//
//	*Pool - Ready-to-use service.
func NewPool(fn anchor.SampleFunc, config PoolConfig) *Pool {
	workers := config.Workers
	if workers < 1 {
		workers = DefaultPoolConfig().Workers
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		fn:      fn,
		workers: workers,
		balance: config.Balanced,
		logger:  logger,
	}
}

// Session returns a fresh one-shot session.
func (p *Pool) Session() anchor.SamplingSession {
	return newSession(p.run, p.logger)
}

func (p *Pool) run(ctx context.Context, batch []request) error {
	if p.balance {
		batch = p.rebalance(batch)
	}

	workCh := make(chan request, len(batch))
	for _, req := range batch {
		workCh <- req
	}
	close(workCh)

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	workers := min(p.workers, len(batch))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)
					p.logger.Error("sampling worker panic",
						slog.Int("worker", workerID),
						slog.Any("panic", r),
						slog.String("stack", string(buf[:n])))
					fail(fmt.Errorf("sampling worker %d panicked: %v", workerID, r))
				}
			}()
			for req := range workCh {
				if workerCtx.Err() != nil {
					return
				}
				if _, err := p.fn(workerCtx, req.candidate, req.count); err != nil {
					fail(err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// rebalance splits each request into up to Workers chunks with sizes
// differing by at most one.
func (p *Pool) rebalance(batch []request) []request {
	out := make([]request, 0, len(batch)*p.workers)
	for _, req := range batch {
		chunks := min(p.workers, req.count)
		if chunks <= 1 {
			out = append(out, req)
			continue
		}
		base := req.count / chunks
		extra := req.count % chunks
		for i := 0; i < chunks; i++ {
			size := base
			if i < extra {
				size++
			}
			out = append(out, request{candidate: req.candidate, count: size})
		}
	}
	return out
}

// PoolFactory returns a SamplerFactory producing Pool services.
func PoolFactory(config PoolConfig) anchor.SamplerFactory {
	return func(fn anchor.SampleFunc) anchor.SamplingService {
		return NewPool(fn, config)
	}
}
