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
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/AleutianAI/AleutianExplain/services/explain/anchor"
	"github.com/AleutianAI/AleutianExplain/services/explain/sampling"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seededArm creates a candidate for one feature pre-loaded with samples
// whose empirical precision approximates p.
func seededArm(t *testing.T, feature, samples int, p float64) *anchor.Candidate {
	t.Helper()
	cand, err := anchor.NewCandidate([]int{feature}, nil)
	if err != nil {
		t.Fatalf("NewCandidate(%d): %v", feature, err)
	}
	matching := int(float64(samples)*p + 0.5)
	if err := cand.RegisterSamples(samples, matching); err != nil {
		t.Fatalf("RegisterSamples: %v", err)
	}
	return cand
}

// fixedPrecisionService samples arms with a deterministic per-arm hit
// rate, so empirical means stay pinned while counts grow.
func fixedPrecisionService(rates map[string]float64) anchor.SamplingService {
	return sampling.NewLinear(func(_ context.Context, candidate *anchor.Candidate, n int) (float64, error) {
		p := rates[candidate.Key()]
		matching := int(float64(n)*p + 0.5)
		if err := candidate.RegisterSamples(n, matching); err != nil {
			return 0, err
		}
		return float64(matching) / float64(n), nil
	}).WithLogger(discardLogger())
}

func TestKLLUCB_RejectsNonPositiveTopN(t *testing.T) {
	k := NewKLLUCB(KLLUCBConfig{Logger: discardLogger()})
	if _, err := k.Identify(context.Background(), nil, nil, 0.1, 0); err == nil {
		t.Error("Identify with topN=0 expected error, got nil")
	}
}

func TestKLLUCB_PassThroughWithinTopN(t *testing.T) {
	k := NewKLLUCB(KLLUCBConfig{Logger: discardLogger()})
	arms := []*anchor.Candidate{
		seededArm(t, 0, 16, 0.5),
		seededArm(t, 1, 16, 0.9),
	}

	// No statistical decision to make, so no service is needed at all.
	chosen, err := k.Identify(context.Background(), arms, nil, 0.1, 3)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if len(chosen) != len(arms) {
		t.Errorf("got %d arms, want all %d back", len(chosen), len(arms))
	}
}

func TestKLLUCB_IdentifiesSeparatedArms(t *testing.T) {
	rates := map[string]float64{"0": 0.95, "1": 0.9, "2": 0.2, "3": 0.1}
	arms := make([]*anchor.Candidate, 0, len(rates))
	for feature := 0; feature < len(rates); feature++ {
		arms = append(arms, seededArm(t, feature, 16, rates[string(rune('0'+feature))]))
	}

	k := NewKLLUCB(KLLUCBConfig{Logger: discardLogger()})
	chosen, err := k.Identify(context.Background(), arms, fixedPrecisionService(rates), 0.1, 2)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if len(chosen) != 2 {
		t.Fatalf("got %d arms, want 2", len(chosen))
	}

	got := map[string]bool{chosen[0].Key(): true, chosen[1].Key(): true}
	if !got["0"] || !got["1"] {
		t.Errorf("chosen arms = [%s %s], want the 0.95 and 0.9 arms", chosen[0].Key(), chosen[1].Key())
	}
	if chosen[0].Key() != "0" {
		t.Errorf("best arm = %s, want the 0.95 arm first", chosen[0].Key())
	}
}

func TestKLLUCB_MaxRoundsCapTerminates(t *testing.T) {
	// Identical arms never separate; the cap must end the loop anyway.
	rates := map[string]float64{"0": 0.5, "1": 0.5, "2": 0.5}
	arms := []*anchor.Candidate{
		seededArm(t, 0, 16, 0.5),
		seededArm(t, 1, 16, 0.5),
		seededArm(t, 2, 16, 0.5),
	}

	k := NewKLLUCB(KLLUCBConfig{MaxRounds: 3, Logger: discardLogger()})
	chosen, err := k.Identify(context.Background(), arms, fixedPrecisionService(rates), 0.1, 1)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if len(chosen) != 1 {
		t.Errorf("got %d arms, want 1", len(chosen))
	}
}

func TestKLLUCB_SamplingErrorPropagates(t *testing.T) {
	sampleErr := errors.New("perturber failed")
	failing := sampling.NewLinear(func(context.Context, *anchor.Candidate, int) (float64, error) {
		return 0, sampleErr
	}).WithLogger(discardLogger())

	// Unsampled arms have maximal bound gaps, forcing a sampling round.
	arms := make([]*anchor.Candidate, 3)
	for feature := range arms {
		cand, err := anchor.NewCandidate([]int{feature}, nil)
		if err != nil {
			t.Fatalf("NewCandidate(%d): %v", feature, err)
		}
		arms[feature] = cand
	}

	k := NewKLLUCB(KLLUCBConfig{Logger: discardLogger()})
	if _, err := k.Identify(context.Background(), arms, failing, 0.1, 1); !errors.Is(err, sampleErr) {
		t.Errorf("Identify error = %v, want wrapped %v", err, sampleErr)
	}
}

func TestExplorationRate_GrowsWithRoundAndArms(t *testing.T) {
	base := explorationRate(4, 1, 0.1)
	if later := explorationRate(4, 100, 0.1); later <= base {
		t.Errorf("explorationRate(4, 100) = %v, want > round-1 rate %v", later, base)
	}
	if wider := explorationRate(40, 1, 0.1); wider <= base {
		t.Errorf("explorationRate(40, 1) = %v, want > 4-arm rate %v", wider, base)
	}
}
