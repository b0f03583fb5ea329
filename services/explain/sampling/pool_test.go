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
	"errors"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianExplain/services/explain/anchor"
)

func TestPool_MergesEveryRequestedSample(t *testing.T) {
	// The sample closure registers real counters, so the barrier can be
	// verified through the candidates themselves.
	merge := func(_ context.Context, candidate *anchor.Candidate, n int) (float64, error) {
		if err := candidate.RegisterSamples(n, n); err != nil {
			return 0, err
		}
		return 1, nil
	}
	svc := NewPool(merge, PoolConfig{Workers: 4, Balanced: true, Logger: discardLogger()})

	candidates := []*anchor.Candidate{
		mustCandidate(t, []int{0}),
		mustCandidate(t, []int{1}),
		mustCandidate(t, []int{2}),
	}
	session := svc.Session()
	for _, cand := range candidates {
		session.Request(cand, 100)
	}
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, cand := range candidates {
		if got := cand.SampledCount(); got != 100 {
			t.Errorf("candidate %s SampledCount() = %d, want 100", cand.Key(), got)
		}
		if got := cand.Precision(); got != 1 {
			t.Errorf("candidate %s Precision() = %v, want 1", cand.Key(), got)
		}
	}
}

func TestPool_RebalanceChunkSizes(t *testing.T) {
	pool := NewPool(nil, PoolConfig{Workers: 4, Balanced: true, Logger: discardLogger()})
	cand := mustCandidate(t, []int{0})

	tests := []struct {
		name       string
		count      int
		wantChunks int
	}{
		{"splits across all workers", 10, 4},
		{"fewer samples than workers", 3, 3},
		{"single sample stays whole", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := pool.rebalance([]request{{candidate: cand, count: tt.count}})
			if len(out) != tt.wantChunks {
				t.Fatalf("rebalance(%d) produced %d chunks, want %d", tt.count, len(out), tt.wantChunks)
			}
			total, minSize, maxSize := 0, out[0].count, out[0].count
			for _, chunk := range out {
				total += chunk.count
				minSize = min(minSize, chunk.count)
				maxSize = max(maxSize, chunk.count)
			}
			if total != tt.count {
				t.Errorf("chunk sizes sum to %d, want %d", total, tt.count)
			}
			if maxSize-minSize > 1 {
				t.Errorf("chunk sizes range from %d to %d, want a spread of at most 1", minSize, maxSize)
			}
		})
	}
}

func TestPool_FirstErrorStopsTheSession(t *testing.T) {
	sampleErr := errors.New("perturber failed")
	failing := func(_ context.Context, candidate *anchor.Candidate, _ int) (float64, error) {
		if candidate.Contains(1) {
			return 0, sampleErr
		}
		return 1, nil
	}
	svc := NewPool(failing, PoolConfig{Workers: 2, Logger: discardLogger()})

	session := svc.Session()
	session.Request(mustCandidate(t, []int{0}), 1)
	session.Request(mustCandidate(t, []int{1}), 1)
	session.Request(mustCandidate(t, []int{2}), 1)
	if err := session.Run(context.Background()); !errors.Is(err, sampleErr) {
		t.Errorf("Run error = %v, want wrapped %v", err, sampleErr)
	}
}

func TestPool_WorkerPanicIsRecovered(t *testing.T) {
	panicking := func(context.Context, *anchor.Candidate, int) (float64, error) {
		panic("boom")
	}
	svc := NewPool(panicking, PoolConfig{Workers: 2, Logger: discardLogger()})

	session := svc.Session().Request(mustCandidate(t, []int{0}), 1)
	err := session.Run(context.Background())
	if err == nil {
		t.Fatal("Run after worker panic expected error, got nil")
	}
	if !strings.Contains(err.Error(), "panicked") {
		t.Errorf("Run error = %v, want a worker panic report", err)
	}
}

func TestNewPool_ZeroWorkersFallsBackToDefault(t *testing.T) {
	pool := NewPool(nil, PoolConfig{Logger: discardLogger()})
	if got := pool.workers; got != DefaultPoolConfig().Workers {
		t.Errorf("workers = %d, want default %d", got, DefaultPoolConfig().Workers)
	}
}
