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
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// coverageUndefined is the sentinel for a coverage that has not been
// computed yet. Valid coverages live in [0, 1].
const coverageUndefined = -1.0

// Candidate is one anchor-in-progress: a feature conjunction together
// with its running sample statistics.
//
// Description:
//
//	The feature set is fixed at construction; extending a candidate
//	creates a new one with a lineage pointer back to its parent. The
//	sample counters only ever increase and only through
//	RegisterSamples, which is the single merge point the sampling
//	executors funnel through. Coverage is computed lazily and is
//	undefined until set.
//
//	Two candidates are considered equal when their canonical (sorted)
//	feature sets are equal, regardless of the order features were
//	added. Key() returns the canonical form as a string for use in
//	dedup maps.
//
// Thread Safety: The counters are guarded by an internal mutex, so
// concurrent RegisterSamples calls from sampling workers are safe.
// All other fields are read-only after construction.
type Candidate struct {
	// ordered keeps insertion order, which records how the candidate
	// was built up across rounds.
	ordered []int

	// canonical is the sorted feature set used for equality and dedup.
	canonical []int

	// key is the canonical set rendered as "i,j,k".
	key string

	// parent is a lineage pointer only, nil for size-1 candidates.
	parent *Candidate

	mu       sync.Mutex
	sampled  int
	positive int
	coverage float64
}

// NewCandidate creates a candidate from an ordered feature list.
//
// Inputs:
//
//	features - Feature indices in insertion order. Must be non-empty,
//	           non-negative, and free of duplicates.
//	parent - The candidate this one extends, or nil for size-1.
//
// Outputs:
//
//	*Candidate - The new candidate with zeroed counters and
//	             undefined coverage.
//	error - Non-nil if the feature list is invalid.
func NewCandidate(features []int, parent *Candidate) (*Candidate, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("candidate needs at least one feature")
	}
	seen := make(map[int]struct{}, len(features))
	ordered := make([]int, 0, len(features))
	for _, f := range features {
		if f < 0 {
			return nil, fmt.Errorf("feature index must not be negative, got %d", f)
		}
		if _, dup := seen[f]; dup {
			return nil, fmt.Errorf("duplicate feature index %d", f)
		}
		seen[f] = struct{}{}
		ordered = append(ordered, f)
	}

	canonical := make([]int, len(ordered))
	copy(canonical, ordered)
	sort.Ints(canonical)

	return &Candidate{
		ordered:   ordered,
		canonical: canonical,
		key:       featureKey(canonical),
		parent:    parent,
		coverage:  coverageUndefined,
	}, nil
}

// Extend returns a new candidate whose feature set is this one's plus
// the given feature, with the receiver as parent.
//
// Outputs:
//
//	*Candidate - The extended candidate.
//	error - Non-nil if the feature is negative or already present.
func (c *Candidate) Extend(feature int) (*Candidate, error) {
	extended := make([]int, len(c.ordered), len(c.ordered)+1)
	copy(extended, c.ordered)
	extended = append(extended, feature)
	return NewCandidate(extended, c)
}

// OrderedFeatures returns a copy of the features in insertion order.
func (c *Candidate) OrderedFeatures() []int {
	out := make([]int, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// CanonicalFeatures returns a copy of the sorted feature set.
func (c *Candidate) CanonicalFeatures() []int {
	out := make([]int, len(c.canonical))
	copy(out, c.canonical)
	return out
}

// Key returns the canonical feature set as a "i,j,k" string.
//
// Candidates with equal keys represent the same conjunction.
func (c *Candidate) Key() string {
	return c.key
}

// Size returns the number of features in the conjunction.
func (c *Candidate) Size() int {
	return len(c.canonical)
}

// Parent returns the candidate this one was extended from, or nil.
func (c *Candidate) Parent() *Candidate {
	return c.parent
}

// Contains reports whether the feature is part of the conjunction.
func (c *Candidate) Contains(feature int) bool {
	i := sort.SearchInts(c.canonical, feature)
	return i < len(c.canonical) && c.canonical[i] == feature
}

// RegisterSamples merges a completed sampling batch into the counters.
//
// Description:
//
//	This is the only writer of the counters. Counters are monotone:
//	a batch can only add samples, never remove them.
//
// Inputs:
//
//	taken - Number of samples evaluated in the batch. Must be >= 1.
//	matching - Number of samples whose prediction matched the
//	           explained label. Must be in [0, taken].
//
// Outputs:
//
//	error - Non-nil if the batch counts are inconsistent; the
//	        counters are left untouched in that case.
//
// Thread Safety: Safe for concurrent use.
func (c *Candidate) RegisterSamples(taken, matching int) error {
	if taken < 1 {
		return fmt.Errorf("sample batch must contain at least one sample, got %d", taken)
	}
	if matching < 0 || matching > taken {
		return fmt.Errorf("matching count %d outside [0, %d]", matching, taken)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sampled += taken
	c.positive += matching
	return nil
}

// SampledCount returns the cumulative number of evaluated samples.
//
// Thread Safety: Safe for concurrent use.
func (c *Candidate) SampledCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sampled
}

// PositiveCount returns the cumulative number of matching predictions.
//
// Thread Safety: Safe for concurrent use.
func (c *Candidate) PositiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positive
}

// Precision returns positive/sampled, or 0 for an unsampled candidate.
//
// Thread Safety: Safe for concurrent use.
func (c *Candidate) Precision() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sampled == 0 {
		return 0
	}
	return float64(c.positive) / float64(c.sampled)
}

// CoverageDefined reports whether coverage has been computed.
func (c *Candidate) CoverageDefined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.coverage != coverageUndefined
}

// Coverage returns the computed coverage, or 0 when undefined.
func (c *Candidate) Coverage() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.coverage == coverageUndefined {
		return 0
	}
	return c.coverage
}

// SetCoverage records the candidate's coverage.
//
// Outputs:
//
//	error - Non-nil if the value is outside [0, 1].
func (c *Candidate) SetCoverage(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("coverage must be in [0, 1], got %v", v)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coverage = v
	return nil
}

// String renders the candidate for logs.
func (c *Candidate) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	cov := "undefined"
	if c.coverage != coverageUndefined {
		cov = strconv.FormatFloat(c.coverage, 'f', -1, 64)
	}
	precision := 0.0
	if c.sampled > 0 {
		precision = float64(c.positive) / float64(c.sampled)
	}
	return fmt.Sprintf("Candidate{features=[%s], precision=%v, samples=%d, coverage=%s}",
		c.key, precision, c.sampled, cov)
}

// featureKey renders a sorted feature set as "i,j,k".
func featureKey(canonical []int) string {
	parts := make([]string, len(canonical))
	for i, f := range canonical {
		parts[i] = strconv.Itoa(f)
	}
	return strings.Join(parts, ",")
}
