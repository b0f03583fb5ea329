// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package anchor implements the anchor-explanation search engine.
//
// An anchor is a minimal conjunction of feature constraints such that,
// when those features are held fixed and the rest of the instance is
// perturbed, a black-box classifier's prediction stays stable with
// high, statistically bracketed probability.
//
// The engine is a multi-round beam search: each round extends the
// surviving candidates by one feature, shortlists them with a best-arm
// identification strategy, and confirms shortlisted candidates with a
// KL-Bernoulli confidence-bound test. The classifier, the perturbation
// generator, the coverage estimator, and the best-arm strategy are
// capability interfaces so callers can substitute implementations and
// test doubles freely.
package anchor

import "context"

// Instance is the minimal capability the engine needs from an
// explained instance: how many features it has. Concrete
// representations (tabular rows, token sequences) live elsewhere.
type Instance interface {
	// FeatureCount returns the number of features in the instance.
	FeatureCount() int
}

// Classifier is the black-box model being explained.
//
// Implementations must be pure from the engine's viewpoint:
// deterministic for identical input and free of observable state.
type Classifier interface {
	// Predict returns one non-negative label per input instance, in
	// input order. The returned slice must have the same length as
	// the input.
	Predict(ctx context.Context, instances []Instance) ([]int, error)
}

// PerturbationResult carries the synthetic neighbors produced for one
// sampling batch.
type PerturbationResult struct {
	// Instances are the perturbed neighbors, each consistent with the
	// fixed features of the request.
	Instances []Instance
}

// Perturber generates synthetic neighbors of the explained instance.
type Perturber interface {
	// Perturb draws n perturbed instances that keep the given feature
	// indices fixed to the explained instance's values. It must
	// return exactly n instances.
	Perturb(ctx context.Context, fixed []int, n int) (PerturbationResult, error)
}

// CoverageEstimator computes the fraction of the input space a feature
// conjunction applies to.
//
// Implementations must be monotonically non-increasing under
// feature-set growth; the generator's coverage-floor pruning is only
// sound under that invariant.
type CoverageEstimator interface {
	// Coverage returns a value in [0, 1] for the conjunction.
	Coverage(ctx context.Context, features []int) (float64, error)
}

// BestArmIdentifier adaptively samples a candidate set and returns the
// top-N candidates by precision with probability >= 1-delta.
type BestArmIdentifier interface {
	// Identify drives further sampling through the service as needed
	// and returns its choice of the top-N candidates.
	Identify(ctx context.Context, candidates []*Candidate, svc SamplingService, delta float64, topN int) ([]*Candidate, error)
}

// SampleFunc evaluates one candidate with n additional perturbation
// samples, merges the batch into the candidate's counters, and returns
// the batch's empirical precision. A request for fewer than one sample
// short-circuits to 0 without touching the classifier.
type SampleFunc func(ctx context.Context, candidate *Candidate, n int) (float64, error)

// SamplingSession batches evaluation requests and runs them as one
// barrier: Run returns only after every requested candidate's counters
// have been updated by at least the requested sample count.
//
// A session is one-shot. Requests for the same candidate within a
// session coalesce into a single larger batch, which keeps the merge
// monotone and prevents double counting.
type SamplingSession interface {
	// Request schedules extra samples for the candidate. Non-positive
	// counts are ignored. Must not be called after Run.
	Request(candidate *Candidate, extra int) SamplingSession

	// Run executes all requests and blocks until every one completed.
	// A second Run on the same session fails.
	Run(ctx context.Context) error
}

// SamplingService hands out sessions. The service owns whatever worker
// infrastructure executes the requests; the engine only ever sees the
// session barrier.
type SamplingService interface {
	// Session returns a fresh one-shot session.
	Session() SamplingSession
}

// SamplerFactory builds a SamplingService around the engine's sample
// closure. The builder uses it to wire a pluggable executor to the
// engine without the executor package importing this one.
type SamplerFactory func(fn SampleFunc) SamplingService
