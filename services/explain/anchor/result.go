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

import "fmt"

// Result is an immutable snapshot of a finished search: the winning
// (or best-effort) candidate's statistics plus the explained instance
// and its predicted label.
//
// Thread Safety: Immutable after creation.
type Result struct {
	ordered   []int
	canonical []int
	precision float64
	coverage  float64
	sampled   int
	positive  int
	instance  Instance
	label     int
}

// newResult snapshots a candidate. The candidate's counters may keep
// moving afterwards; the Result does not.
func newResult(c *Candidate, instance Instance, label int) *Result {
	return &Result{
		ordered:   c.OrderedFeatures(),
		canonical: c.CanonicalFeatures(),
		precision: c.Precision(),
		coverage:  c.Coverage(),
		sampled:   c.SampledCount(),
		positive:  c.PositiveCount(),
		instance:  instance,
		label:     label,
	}
}

// OrderedFeatures returns the anchor's features in the order they were
// added during the search.
func (r *Result) OrderedFeatures() []int {
	out := make([]int, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// CanonicalFeatures returns the anchor's sorted feature set.
func (r *Result) CanonicalFeatures() []int {
	out := make([]int, len(r.canonical))
	copy(out, r.canonical)
	return out
}

// Precision returns the anchor's empirical precision at search end.
func (r *Result) Precision() float64 { return r.precision }

// Coverage returns the anchor's coverage at search end.
func (r *Result) Coverage() float64 { return r.coverage }

// SampledCount returns the total samples drawn for the anchor.
func (r *Result) SampledCount() int { return r.sampled }

// PositiveCount returns the matching predictions drawn for the anchor.
func (r *Result) PositiveCount() int { return r.positive }

// Instance returns the explained instance.
func (r *Result) Instance() Instance { return r.instance }

// Label returns the explained instance's predicted label.
func (r *Result) Label() int { return r.label }

// String renders the result for logs.
func (r *Result) String() string {
	return fmt.Sprintf("Result{features=[%s], precision=%v, coverage=%v, samples=%d, label=%d}",
		featureKey(r.canonical), r.precision, r.coverage, r.sampled, r.label)
}
