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
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/AleutianAI/AleutianExplain/services/explain/anchor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustCandidate(t *testing.T, features []int) *anchor.Candidate {
	t.Helper()
	cand, err := anchor.NewCandidate(features, nil)
	if err != nil {
		t.Fatalf("NewCandidate(%v): %v", features, err)
	}
	return cand
}

// recordingFunc captures every (candidate, count) pair handed to the
// executor. Guarded for use under the pool.
type recordingFunc struct {
	mu     sync.Mutex
	keys   []string
	counts map[string]int
}

func newRecordingFunc() *recordingFunc {
	return &recordingFunc{counts: make(map[string]int)}
}

func (r *recordingFunc) fn(_ context.Context, candidate *anchor.Candidate, n int) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, candidate.Key())
	r.counts[candidate.Key()] += n
	return 1, nil
}

func TestSession_CoalescesRequestsPerCandidate(t *testing.T) {
	rec := newRecordingFunc()
	svc := NewLinear(rec.fn).WithLogger(discardLogger())
	cand := mustCandidate(t, []int{0})

	session := svc.Session()
	session.Request(cand, 5).Request(cand, 7)
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(rec.keys) != 1 {
		t.Fatalf("executor invoked %d times, want 1 coalesced batch", len(rec.keys))
	}
	if got := rec.counts[cand.Key()]; got != 12 {
		t.Errorf("coalesced count = %d, want 12", got)
	}
}

func TestSession_IgnoresNilAndNonPositiveRequests(t *testing.T) {
	rec := newRecordingFunc()
	svc := NewLinear(rec.fn).WithLogger(discardLogger())
	cand := mustCandidate(t, []int{0})

	session := svc.Session()
	session.Request(nil, 5)
	session.Request(cand, 0)
	session.Request(cand, -3)
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.keys) != 0 {
		t.Errorf("executor invoked %d times, want 0", len(rec.keys))
	}
}

func TestSession_SecondRunFails(t *testing.T) {
	rec := newRecordingFunc()
	svc := NewLinear(rec.fn).WithLogger(discardLogger())
	cand := mustCandidate(t, []int{0})

	session := svc.Session().Request(cand, 3)
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := session.Run(context.Background()); !errors.Is(err, anchor.ErrSessionDone) {
		t.Errorf("second Run error = %v, want ErrSessionDone", err)
	}

	// Requests after Run are dropped, not queued for a next run.
	session.Request(cand, 4)
	if got := rec.counts[cand.Key()]; got != 3 {
		t.Errorf("total count = %d, want 3", got)
	}
}

func TestLinear_ExecutesInRequestOrder(t *testing.T) {
	rec := newRecordingFunc()
	svc := NewLinear(rec.fn).WithLogger(discardLogger())

	session := svc.Session()
	session.Request(mustCandidate(t, []int{2}), 1)
	session.Request(mustCandidate(t, []int{0}), 1)
	session.Request(mustCandidate(t, []int{1}), 1)
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"2", "0", "1"}
	if len(rec.keys) != len(want) {
		t.Fatalf("executor invoked %d times, want %d", len(rec.keys), len(want))
	}
	for i := range want {
		if rec.keys[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q (request order)", i, rec.keys[i], want[i])
		}
	}
}

func TestLinear_ErrorPropagates(t *testing.T) {
	sampleErr := errors.New("classifier offline")
	svc := NewLinear(func(context.Context, *anchor.Candidate, int) (float64, error) {
		return 0, sampleErr
	}).WithLogger(discardLogger())

	session := svc.Session().Request(mustCandidate(t, []int{0}), 2)
	if err := session.Run(context.Background()); !errors.Is(err, sampleErr) {
		t.Errorf("Run error = %v, want wrapped %v", err, sampleErr)
	}
}

func TestLinear_CancelledContext(t *testing.T) {
	rec := newRecordingFunc()
	svc := NewLinear(rec.fn).WithLogger(discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	session := svc.Session().Request(mustCandidate(t, []int{0}), 2)
	if err := session.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
	if len(rec.keys) != 0 {
		t.Errorf("executor invoked %d times after cancellation, want 0", len(rec.keys))
	}
}
