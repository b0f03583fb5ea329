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
	"math"
	"testing"
)

func TestValidityBeta(t *testing.T) {
	// beta = ln(1 / (delta / (1 + (B-1)*d)))
	delta := 0.1
	beamWidth := 2
	featureCount := 5

	want := math.Log(1 / (delta / (1 + float64(beamWidth-1)*float64(featureCount))))
	got := validityBeta(delta, beamWidth, featureCount)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("validityBeta = %v, want %v", got, want)
	}

	// A wider beam means more competing tuples, so a larger correction.
	wider := validityBeta(delta, 4, featureCount)
	if wider <= got {
		t.Errorf("validityBeta(beam=4) = %v, want > %v", wider, got)
	}
}

func TestBoundsDecision_Deterministic(t *testing.T) {
	n1, v1 := boundsDecision(0.96, 200, 3.0, 0.95, 0.05)
	n2, v2 := boundsDecision(0.96, 200, 3.0, 0.95, 0.05)
	if n1 != n2 || v1 != v2 {
		t.Errorf("boundsDecision not deterministic: (%v,%v) vs (%v,%v)", n1, v1, n2, v2)
	}
}

func TestBoundsDecision(t *testing.T) {
	const (
		tau  = 0.95
		disc = 0.05
		beta = 3.0
	)
	tests := []struct {
		name      string
		mean      float64
		sampled   int
		wantNeeds bool
		wantValid bool
	}{
		{
			// No samples puts the bounds at [0, 1]; the check cannot
			// decide anything yet.
			name: "unsampled", mean: 0, sampled: 0,
			wantNeeds: true, wantValid: false,
		},
		{
			// High mean with heavy evidence: lower bound clears the
			// margin, confirmed without more samples.
			name: "confident success", mean: 0.99, sampled: 5000,
			wantNeeds: false, wantValid: true,
		},
		{
			// Low mean with heavy evidence: upper bound drops under
			// tau + disc, rejected without more samples.
			name: "confident failure", mean: 0.5, sampled: 5000,
			wantNeeds: false, wantValid: false,
		},
		{
			// High mean, thin evidence: lower bound still below the
			// margin, so the loop must keep sampling.
			name: "promising but thin", mean: 1.0, sampled: 4,
			wantNeeds: true, wantValid: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			needs, valid := boundsDecision(tt.mean, tt.sampled, beta, tau, disc)
			if needs != tt.wantNeeds {
				t.Errorf("needsSamples = %v, want %v", needs, tt.wantNeeds)
			}
			if valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", valid, tt.wantValid)
			}
		})
	}
}

func TestBoundsDecision_ValidImpliesNoResample(t *testing.T) {
	// Sweep a grid: whenever the decision is valid, the hysteresis
	// condition must already be settled.
	for sampled := 1; sampled <= 4096; sampled *= 2 {
		for _, mean := range []float64{0.5, 0.9, 0.94, 0.95, 0.96, 0.99, 1.0} {
			needs, valid := boundsDecision(mean, sampled, 3.0, 0.95, 0.05)
			if valid && needs {
				t.Errorf("mean=%v sampled=%d: valid anchor still requests samples", mean, sampled)
			}
		}
	}
}
