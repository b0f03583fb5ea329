// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package exploration

import (
	"context"
	"testing"

	"github.com/AleutianAI/AleutianExplain/services/explain/anchor"
	"github.com/AleutianAI/AleutianExplain/services/explain/sampling"
)

func TestGreedy_RanksByPrecisionWithKeyTiebreak(t *testing.T) {
	arms := []*anchor.Candidate{
		seededArm(t, 0, 16, 0.5),
		seededArm(t, 1, 16, 1.0),
		seededArm(t, 2, 16, 0.5),
	}

	chosen, err := NewGreedy(0).Identify(context.Background(), arms, nil, 0.1, 2)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if len(chosen) != 2 {
		t.Fatalf("got %d arms, want 2", len(chosen))
	}
	if chosen[0].Key() != "1" {
		t.Errorf("chosen[0].Key() = %q, want %q (highest precision)", chosen[0].Key(), "1")
	}
	// Arms 0 and 2 tie on precision; the canonical key breaks it.
	if chosen[1].Key() != "0" {
		t.Errorf("chosen[1].Key() = %q, want %q (tie broken by key)", chosen[1].Key(), "0")
	}
}

func TestGreedy_TopUpSamplesEveryArm(t *testing.T) {
	rates := map[string]float64{"0": 1, "1": 1, "2": 1}
	arms := make([]*anchor.Candidate, 3)
	for feature := range arms {
		cand, err := anchor.NewCandidate([]int{feature}, nil)
		if err != nil {
			t.Fatalf("NewCandidate(%d): %v", feature, err)
		}
		arms[feature] = cand
	}

	chosen, err := NewGreedy(8).Identify(context.Background(), arms, fixedPrecisionService(rates), 0.1, 1)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if len(chosen) != 1 {
		t.Fatalf("got %d arms, want 1", len(chosen))
	}
	for _, arm := range arms {
		if got := arm.SampledCount(); got != 8 {
			t.Errorf("arm %s SampledCount() = %d, want 8 after top-up", arm.Key(), got)
		}
	}
}

func TestGreedy_TopNClampedToArmCount(t *testing.T) {
	arms := []*anchor.Candidate{seededArm(t, 0, 16, 0.5)}

	chosen, err := NewGreedy(0).Identify(context.Background(), arms, nil, 0.1, 5)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if len(chosen) != 1 {
		t.Errorf("got %d arms, want the clamped 1", len(chosen))
	}
}

func TestGreedy_RejectsNonPositiveTopN(t *testing.T) {
	if _, err := NewGreedy(0).Identify(context.Background(), nil, nil, 0.1, 0); err == nil {
		t.Error("Identify with topN=0 expected error, got nil")
	}
}

func TestGreedy_TopUpErrorPropagates(t *testing.T) {
	failing := sampling.NewLinear(func(context.Context, *anchor.Candidate, int) (float64, error) {
		return 0, anchor.ErrSessionDone
	}).WithLogger(discardLogger())
	arms := []*anchor.Candidate{seededArm(t, 0, 16, 0.5), seededArm(t, 1, 16, 0.5)}

	if _, err := NewGreedy(4).Identify(context.Background(), arms, failing, 0.1, 1); err == nil {
		t.Error("Identify with failing top-up expected error, got nil")
	}
}
