// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tabular

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/AleutianAI/AleutianExplain/services/explain/anchor"
)

// Perturber draws rows from a background dataset and overwrites the
// fixed features with the explained instance's values. It implements
// anchor.Perturber.
//
// Thread Safety: Safe for concurrent use. The random source is guarded
// by a mutex.
type Perturber struct {
	explained  *Instance
	background *Dataset

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPerturber creates a perturber for one explained instance.
//
// Inputs:
//
//	explained - The instance being explained. Must not be nil.
//	background - The population to draw perturbations from. Must not
//	             be nil and must match the instance's feature count.
//	seed - Seed for the random source. Fixed seeds give reproducible
//	       perturbation streams.
//
// Outputs:
//
//	*Perturber - The configured perturber.
//	error - Non-nil on nil or mismatched inputs.
func NewPerturber(explained *Instance, background *Dataset, seed int64) (*Perturber, error) {
	if explained == nil {
		return nil, fmt.Errorf("explained instance must not be nil")
	}
	if background == nil {
		return nil, fmt.Errorf("background dataset must not be nil")
	}
	if background.FeatureCount() != explained.FeatureCount() {
		return nil, fmt.Errorf("background has %d features, instance has %d",
			background.FeatureCount(), explained.FeatureCount())
	}
	return &Perturber{
		explained:  explained,
		background: background,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// Perturb implements anchor.Perturber.
//
// Description: Draws n rows uniformly with replacement from the
// background dataset and overwrites the values at the fixed feature
// indexes with the explained instance's values.
func (p *Perturber) Perturb(ctx context.Context, fixed []int, n int) (anchor.PerturbationResult, error) {
	if n < 1 {
		return anchor.PerturbationResult{}, nil
	}
	for _, f := range fixed {
		if f < 0 || f >= p.explained.FeatureCount() {
			return anchor.PerturbationResult{}, fmt.Errorf("fixed feature %d outside [0, %d)", f, p.explained.FeatureCount())
		}
	}

	instances := make([]anchor.Instance, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return anchor.PerturbationResult{}, err
		}
		p.mu.Lock()
		idx := p.rng.Intn(p.background.RowCount())
		p.mu.Unlock()

		values := p.background.rows[idx]
		row := make([]float64, len(values))
		copy(row, values)
		for _, f := range fixed {
			row[f] = p.explained.Value(f)
		}
		inst, err := NewInstance(row, p.background.columns)
		if err != nil {
			return anchor.PerturbationResult{}, fmt.Errorf("perturbed row: %w", err)
		}
		instances = append(instances, inst)
	}
	return anchor.PerturbationResult{Instances: instances}, nil
}
