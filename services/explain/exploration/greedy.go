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
	"fmt"

	"github.com/AleutianAI/AleutianExplain/services/explain/anchor"
)

// Greedy is a non-adaptive best-arm strategy: one uniform top-up
// session, then take the top-N by empirical precision.
//
// Description:
//
//	Greedy offers none of KL-LUCB's statistical guarantees; its value
//	is determinism (stable tiebreak by canonical key) and a trivially
//	predictable sampling pattern, which makes it the right strategy
//	for tests and for quick interactive wiring.
//
// Thread Safety: Stateless; safe for concurrent use.
type Greedy struct {
	// TopUp is the number of extra samples every arm receives before
	// ranking. Zero means rank on the existing counters.
	TopUp int
}

// NewGreedy creates the strategy.
func NewGreedy(topUp int) *Greedy {
	if topUp < 0 {
		topUp = 0
	}
	return &Greedy{TopUp: topUp}
}

// Identify implements anchor.BestArmIdentifier. The delta parameter is
// accepted for interface compatibility and ignored.
func (g *Greedy) Identify(ctx context.Context, candidates []*anchor.Candidate, svc anchor.SamplingService, _ float64, topN int) ([]*anchor.Candidate, error) {
	if topN < 1 {
		return nil, fmt.Errorf("topN must be positive, got %d", topN)
	}

	if g.TopUp > 0 {
		session := svc.Session()
		for _, candidate := range candidates {
			session.Request(candidate, g.TopUp)
		}
		if err := session.Run(ctx); err != nil {
			return nil, fmt.Errorf("greedy top-up: %w", err)
		}
	}

	ranked := sortedByMean(candidates)
	if topN > len(ranked) {
		topN = len(ranked)
	}
	return ranked[:topN], nil
}
