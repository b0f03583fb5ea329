// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package explain

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianExplain/services/explain/anchor"
	"github.com/AleutianAI/AleutianExplain/services/explain/coverage"
	"github.com/AleutianAI/AleutianExplain/services/explain/exploration"
	"github.com/AleutianAI/AleutianExplain/services/explain/sampling"
	"github.com/AleutianAI/AleutianExplain/services/explain/tabular"
)

// searchDeps bundles the per-request collaborators handed to the
// anchor builder.
type searchDeps struct {
	perturber anchor.Perturber
	coverage  anchor.CoverageEstimator
	bestArm   anchor.BestArmIdentifier
	factory   anchor.SamplerFactory
}

// newSearchDeps assembles the collaborators for one explanation.
//
// Description:
//
//	Perturbation and empirical coverage come from the request's own
//	background rows; coverage estimates are cached per feature set
//	since the beam search revisits the same sets across rounds.
//	Best-arm identification is KL-LUCB. The sampler is a worker pool,
//	degrading to the in-order executor when only one worker is
//	requested.
func newSearchDeps(explained *tabular.Instance, background *tabular.Dataset,
	seed int64, workers int, logger *slog.Logger) (*searchDeps, error) {

	perturber, err := tabular.NewPerturber(explained, background, seed)
	if err != nil {
		return nil, fmt.Errorf("perturber: %w", err)
	}

	empirical, err := tabular.NewCoverageEstimator(explained, background)
	if err != nil {
		return nil, fmt.Errorf("coverage estimator: %w", err)
	}
	cached, err := coverage.NewCached(empirical)
	if err != nil {
		return nil, fmt.Errorf("coverage cache: %w", err)
	}

	bestArm := exploration.NewKLLUCB(exploration.KLLUCBConfig{Logger: logger})

	var factory anchor.SamplerFactory
	if workers == 1 {
		factory = sampling.LinearFactory()
	} else {
		factory = sampling.PoolFactory(sampling.PoolConfig{
			Workers:  workers,
			Balanced: true,
			Logger:   logger,
		})
	}

	return &searchDeps{
		perturber: perturber,
		coverage:  cached,
		bestArm:   bestArm,
		factory:   factory,
	}, nil
}
