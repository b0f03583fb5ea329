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
	"fmt"
	"log/slog"
	"math"

	"github.com/AleutianAI/AleutianExplain/services/explain/stat"
)

// validityBeta is the union-bound significance correction for one
// candidate's test: at most beamWidth-1 competing tuples can be chosen
// at each of at most featureCount steps.
func validityBeta(delta float64, beamWidth, featureCount int) float64 {
	return math.Log(1 / (delta / (1 + float64(beamWidth-1)*float64(featureCount))))
}

// boundsDecision classifies a candidate's bounds against tau.
//
// It is a pure function of (mean, sampled, beta, tau, discrepancy):
// identical inputs always produce identical output.
func boundsDecision(mean float64, sampled int, beta, tau, discrepancy float64) (needsSamples, valid bool) {
	level := math.Inf(1)
	if sampled > 0 {
		level = beta / float64(sampled)
	}
	lb := stat.LowerBound(mean, level)
	ub := stat.UpperBound(mean, level)

	needsSamples = (mean >= tau && lb < tau-discrepancy) ||
		(mean < tau && ub >= tau+discrepancy)
	valid = mean >= tau && lb > tau-discrepancy
	return needsSamples, valid
}

// isValidAnchor decides whether the candidate's true precision is
// provably on the correct side of tau.
//
// Description:
//
//	The best-arm strategy identifies good candidates but does not
//	necessarily satisfy the user's confidence bounds, so this check
//	resamples until the KL-Bernoulli bounds separate from tau by the
//	configured discrepancy margin. The loop is bounded only by the
//	bounds eventually separating; MaxValidityRounds caps it against
//	classifiers that stay borderline-unstable forever, and cap
//	exhaustion counts as not valid.
//
// Outputs:
//
//	bool - True iff mean >= tau and the lower bound clears
//	       tau - discrepancy.
//	int - Samples drawn by the resample loop.
//	error - Non-nil on a sampling failure.
func (c *Construction) isValidAnchor(ctx context.Context, candidate *Candidate) (bool, int, error) {
	beta := validityBeta(c.cfg.Delta, c.cfg.BeamWidth, c.instance.FeatureCount())

	resampled := 0
	rounds := 0
	for {
		needsSamples, valid := boundsDecision(
			candidate.Precision(), candidate.SampledCount(),
			beta, c.cfg.Tau, c.cfg.TauDiscrepancy)
		if !needsSamples {
			return valid, resampled, nil
		}
		if c.cfg.MaxValidityRounds > 0 && rounds >= c.cfg.MaxValidityRounds {
			c.logger.Warn("validity check hit resample cap, treating candidate as not valid",
				slog.String("candidate", candidate.Key()),
				slog.Int("rounds", rounds))
			return false, resampled, nil
		}

		c.logger.Debug("cannot confirm or reject candidate, taking more samples",
			slog.String("candidate", candidate.Key()),
			slog.Float64("precision", candidate.Precision()),
			slog.Int("sampled", candidate.SampledCount()))
		recordValidityResample(ctx)

		if err := c.sampler.Session().Request(candidate, c.cfg.InitSampleCount).Run(ctx); err != nil {
			return false, resampled, fmt.Errorf("validity resample for %s: %w", candidate.Key(), err)
		}
		resampled += c.cfg.InitSampleCount
		rounds++
	}
}
