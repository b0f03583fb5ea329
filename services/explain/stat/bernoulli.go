// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stat provides Bernoulli KL-divergence confidence bounds.
//
// The bounds are used to bracket a candidate's true precision from its
// empirical mean and sample count. Unlike a Gaussian approximation, the
// KL interval stays valid for small sample counts and for means at or
// near 0 and 1, which is exactly the regime anchor precision lives in.
package stat

import "math"

// Clamping bounds keep the KL divergence finite for means of exactly 0 or 1.
const (
	klEpsilon = 1e-7
	klCeiling = 1 - 1e-16
)

// bisectionIterations halves the search interval to below 1e-5 width.
const bisectionIterations = 17

// KLBernoulli computes the Kullback-Leibler divergence between two
// Bernoulli distributions with success probabilities p and q.
//
// Description:
//
//	KL(p||q) = p*ln(p/q) + (1-p)*ln((1-p)/(1-q)).
//	Both arguments are clamped away from {0, 1} so the divergence is
//	well-defined at the boundaries by convention.
//
// Inputs:
//
//	p - Empirical success probability.
//	q - Hypothesized success probability.
//
// Outputs:
//
//	float64 - The divergence, always >= 0.
//
// Thread Safety: Pure function, safe for concurrent use.
func KLBernoulli(p, q float64) float64 {
	p = math.Min(klCeiling, math.Max(klEpsilon, p))
	q = math.Min(klCeiling, math.Max(klEpsilon, q))
	return p*math.Log(p/q) + (1-p)*math.Log((1-p)/(1-q))
}

// UpperBound returns the largest q >= mean with KL(mean||q) <= level.
//
// Description:
//
//	Bisection search on [mean, min(1, mean+sqrt(level/2))]. The initial
//	right edge comes from Pinsker's inequality, which guarantees the
//	true bound lies inside the interval.
//
// Inputs:
//
//	mean - Empirical mean in [0, 1].
//	level - Divergence budget, typically beta/sampleCount.
//
// Outputs:
//
//	float64 - Upper confidence bound in [mean, 1].
//
// Thread Safety: Pure function, safe for concurrent use.
func UpperBound(mean, level float64) float64 {
	lm := mean
	um := math.Min(1, mean+math.Sqrt(level/2))
	for i := 0; i < bisectionIterations; i++ {
		qm := (um + lm) / 2
		if KLBernoulli(mean, qm) > level {
			um = qm
		} else {
			lm = qm
		}
	}
	return um
}

// LowerBound returns the smallest q <= mean with KL(mean||q) <= level.
//
// Description:
//
//	Mirror of UpperBound: bisection on [max(0, mean-sqrt(level/2)), mean].
//
// Inputs:
//
//	mean - Empirical mean in [0, 1].
//	level - Divergence budget, typically beta/sampleCount.
//
// Outputs:
//
//	float64 - Lower confidence bound in [0, mean].
//
// Thread Safety: Pure function, safe for concurrent use.
func LowerBound(mean, level float64) float64 {
	um := mean
	lm := math.Max(0, mean-math.Sqrt(level/2))
	for i := 0; i < bisectionIterations; i++ {
		qm := (um + lm) / 2
		if KLBernoulli(mean, qm) > level {
			lm = qm
		} else {
			um = qm
		}
	}
	return lm
}
