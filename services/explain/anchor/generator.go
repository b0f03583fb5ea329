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
	"log/slog"
	"sort"
)

// generateCandidates expands the previous round's survivors by one
// feature each.
//
// Description:
//
//	Round 1 (no survivors) yields one singleton candidate per feature
//	index. Later rounds extend every survivor with every feature not
//	already in it; conjunctions reachable through different survivors
//	are deduplicated to one candidate by canonical key.
//
//	With a positive minCoverage, coverage is computed (forcing the
//	lazy evaluation) and candidates strictly below the floor are
//	discarded before entering the round. Coverage only shrinks as
//	conjunctions grow, so anything below the current best anchor's
//	coverage can never become a better anchor.
//
// Outputs:
//
//	[]*Candidate - The deduplicated, floor-pruned candidate set. An
//	               empty result tells the caller the search cannot
//	               proceed.
//	error - Non-nil on a coverage estimator failure.
func (c *Construction) generateCandidates(ctx context.Context, survivors []*Candidate, minCoverage float64) ([]*Candidate, error) {
	featureCount := c.instance.FeatureCount()
	intermediate := make(map[string]*Candidate)

	for feature := 0; feature < featureCount; feature++ {
		if len(survivors) == 0 {
			// First round: every feature is a singleton candidate.
			cand, err := NewCandidate([]int{feature}, nil)
			if err != nil {
				return nil, err
			}
			intermediate[cand.Key()] = cand
			continue
		}
		for _, survivor := range survivors {
			if survivor.Contains(feature) {
				continue
			}
			extended, err := survivor.Extend(feature)
			if err != nil {
				return nil, err
			}
			if _, dup := intermediate[extended.Key()]; dup {
				continue
			}
			intermediate[extended.Key()] = extended
		}
	}

	// Deterministic order keeps runs reproducible under a seeded
	// perturber.
	keys := make([]string, 0, len(intermediate))
	for key := range intermediate {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]*Candidate, 0, len(keys))
	pruned := 0
	for _, key := range keys {
		candidate := intermediate[key]
		if !c.cfg.LazyCoverage {
			if err := c.ensureCoverage(ctx, candidate); err != nil {
				return nil, err
			}
		}
		if minCoverage > 0 {
			// The floor forces the otherwise lazy evaluation.
			if err := c.ensureCoverage(ctx, candidate); err != nil {
				return nil, err
			}
			if candidate.Coverage() < minCoverage {
				pruned++
				continue
			}
		}
		result = append(result, candidate)
	}

	recordGenerated(ctx, len(intermediate), pruned)
	c.logger.Debug("generated candidates",
		slog.Int("generated", len(intermediate)),
		slog.Int("pruned", pruned),
		slog.Float64("coverage_floor", minCoverage))
	return result, nil
}
