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
)

// CoverageEstimator estimates coverage empirically: the fraction of
// background rows whose values equal the explained instance's values
// on every anchored feature. It implements anchor.CoverageEstimator.
//
// Adding a feature to an anchor can only shrink the matching set, so
// the estimate is monotonically non-increasing in the feature set.
//
// Thread Safety: Safe for concurrent use. Immutable after creation.
type CoverageEstimator struct {
	explained  *Instance
	background *Dataset
}

// NewCoverageEstimator creates an empirical estimator.
func NewCoverageEstimator(explained *Instance, background *Dataset) (*CoverageEstimator, error) {
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
	return &CoverageEstimator{explained: explained, background: background}, nil
}

// Coverage implements anchor.CoverageEstimator.
func (e *CoverageEstimator) Coverage(ctx context.Context, features []int) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	for _, f := range features {
		if f < 0 || f >= e.explained.FeatureCount() {
			return 0, fmt.Errorf("feature %d outside [0, %d)", f, e.explained.FeatureCount())
		}
	}
	matching := 0
	for _, row := range e.background.rows {
		matches := true
		for _, f := range features {
			if row[f] != e.explained.Value(f) {
				matches = false
				break
			}
		}
		if matches {
			matching++
		}
	}
	return float64(matching) / float64(e.background.RowCount()), nil
}
