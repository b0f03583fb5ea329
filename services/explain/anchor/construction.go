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
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Config holds the numeric search parameters. It is validated once by
// the Builder and immutable afterwards.
type Config struct {
	// MaxAnchorSize bounds the largest feature conjunction explored.
	MaxAnchorSize int

	// BeamWidth is parameter B: how many candidates survive a round.
	BeamWidth int

	// Delta is the error probability budget handed to the best-arm
	// strategy and the validity check.
	Delta float64

	// Tau is the precision an anchor needs to achieve.
	Tau float64

	// TauDiscrepancy is the hysteresis margin around Tau. Sampling
	// until mean and bounds simultaneously clear Tau is practically
	// infeasible, so the validity check only brackets to within this
	// margin.
	TauDiscrepancy float64

	// InitSampleCount is the uniform pre-sampling floor applied to
	// every candidate before best-arm identification, and the batch
	// size of validity resamples.
	InitSampleCount int

	// Workers is the sampling executor's parallelism knob.
	Workers int

	// BalancedSampling splits each sampling request into near-equal
	// chunks across workers.
	BalancedSampling bool

	// LazyCoverage defers coverage computation until a candidate is
	// pruned, extended, or returned.
	LazyCoverage bool

	// MaxValidityRounds caps the validity check's resample loop. On
	// exhaustion the candidate counts as not valid. Zero disables
	// the cap.
	MaxValidityRounds int
}

// Construction runs the beam search for one explained instance.
//
// Description:
//
//	Built by the Builder, which validates all parameters and wires
//	the sampling service around the engine's sample closure. A
//	Construction is single-use per call: Construct may be invoked
//	repeatedly, each run accumulating further samples on candidates
//	it has seen before is not a concern because every run generates
//	fresh candidates.
//
// Thread Safety: The control loop is single-threaded; only the
// sampling service fans work out across goroutines, and candidate
// counters are the sole cross-thread state.
type Construction struct {
	classifier Classifier
	perturber  Perturber
	coverage   CoverageEstimator
	bestArm    BestArmIdentifier

	instance Instance
	label    int
	cfg      Config

	sampler SamplingService
	logger  *slog.Logger
}

// Construct runs the beam search and returns the confirmed anchor.
//
// Outputs:
//
//	*Result - The anchor with the highest coverage among all
//	          confirmed candidates.
//	error - *NoAnchorError when the search exhausted its budget
//	        without a confirmed anchor (carries the best-effort
//	        result); ErrNoCandidateFound when not even one candidate
//	        sampled positively; or a collaborator failure.
func (c *Construction) Construct(ctx context.Context) (*Result, error) {
	ctx, span := startSpan(ctx, "anchor.construct",
		attribute.Int("anchor.feature_count", c.instance.FeatureCount()),
		attribute.Int("anchor.beam_width", c.cfg.BeamWidth),
		attribute.Int("anchor.max_size", c.cfg.MaxAnchorSize),
		attribute.Float64("anchor.tau", c.cfg.Tau),
		attribute.Float64("anchor.delta", c.cfg.Delta),
	)
	defer span.End()

	start := time.Now()
	best, totalSamples, err := c.beamSearch(ctx)
	recordSearch(ctx, float64(time.Since(start).Milliseconds()), totalSamples)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := newResult(best, c.instance, c.label)
	span.SetAttributes(
		attribute.Float64("anchor.result.precision", result.Precision()),
		attribute.Float64("anchor.result.coverage", result.Coverage()),
		attribute.Int("anchor.result.size", len(result.CanonicalFeatures())),
	)
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// beamSearch drives rounds of increasing anchor size.
//
// Each round generates candidates from the previous survivors (with
// the running best anchor's coverage as the pruning floor), shortlists
// them via best-arm identification, and confirms shortlisted
// candidates with the confidence-bound validity check. The best
// confirmed anchor by coverage wins; that coverage is monotonically
// non-decreasing across rounds. A confirmed anchor with coverage 1
// ends the search early since nothing can beat it.
func (c *Construction) beamSearch(ctx context.Context) (*Candidate, int, error) {
	c.logger.Info("starting beam search",
		slog.Int("beam_width", c.cfg.BeamWidth),
		slog.Int("max_anchor_size", c.cfg.MaxAnchorSize))

	bestOfSize := make(map[int][]*Candidate)
	var best *Candidate
	totalSamples := 0

	stop := false
	for size := 1; size <= c.cfg.MaxAnchorSize && !stop; size++ {
		if err := ctx.Err(); err != nil {
			return nil, totalSamples, fmt.Errorf("beam search cancelled: %w", err)
		}
		recordRound(ctx, size)
		c.logger.Info("beam search round",
			slog.Int("size", size),
			slog.Int("max_size", c.cfg.MaxAnchorSize))

		floor := 0.0
		if best != nil {
			floor = best.Coverage()
		}
		candidates, err := c.generateCandidates(ctx, bestOfSize[size-1], floor)
		if err != nil {
			return nil, totalSamples, err
		}
		if len(candidates) == 0 {
			break
		}

		topN := min(len(candidates), c.cfg.BeamWidth)
		shortlisted, sampled, err := c.shortlist(ctx, candidates, topN)
		totalSamples += sampled
		if err != nil {
			return nil, totalSamples, err
		}

		// Zero-precision candidates carry no evidence at all.
		survivors := shortlisted[:0]
		for _, cand := range shortlisted {
			if cand.Precision() > 0 {
				survivors = append(survivors, cand)
			}
		}
		if len(survivors) == 0 {
			c.logger.Warn("no shortlisted candidate with positive precision, stopping search",
				slog.Int("size", size))
			break
		}
		bestOfSize[size] = survivors

		for _, cand := range survivors {
			valid, resampled, err := c.isValidAnchor(ctx, cand)
			totalSamples += resampled
			if err != nil {
				return nil, totalSamples, err
			}
			c.logger.Info("validity check",
				slog.String("candidate", cand.Key()),
				slog.Bool("valid", valid),
				slog.Float64("precision", cand.Precision()))
			if !valid {
				continue
			}
			if err := c.ensureCoverage(ctx, cand); err != nil {
				return nil, totalSamples, err
			}
			if best == nil || cand.Coverage() > best.Coverage() {
				c.logger.Info("new best anchor",
					slog.String("candidate", cand.Key()),
					slog.Float64("coverage", cand.Coverage()))
				best = cand
				if cand.Coverage() == 1 {
					c.logger.Info("anchor covers the full input space, stopping early")
					stop = true
				}
			}
		}
	}

	if best == nil {
		return c.bestEffort(ctx, bestOfSize, totalSamples)
	}
	return best, totalSamples, nil
}

// bestEffort re-runs the shortlist for top-1 over every survivor of
// every round. The winner becomes the payload of NoAnchorError; an
// empty outcome means no candidate ever sampled positively.
func (c *Construction) bestEffort(ctx context.Context, bestOfSize map[int][]*Candidate, totalSamples int) (*Candidate, int, error) {
	c.logger.Warn("no anchor satisfied the constraints, searching for best candidate across rounds")

	var all []*Candidate
	for _, round := range bestOfSize {
		all = append(all, round...)
	}

	shortlisted, sampled, err := c.shortlist(ctx, all, 1)
	totalSamples += sampled
	if err != nil {
		return nil, totalSamples, err
	}

	var fallback *Candidate
	for _, cand := range shortlisted {
		if cand.Precision() > 0 {
			fallback = cand
			break
		}
	}
	if fallback == nil {
		return nil, totalSamples, ErrNoCandidateFound
	}
	if err := c.ensureCoverage(ctx, fallback); err != nil {
		return nil, totalSamples, err
	}
	return nil, totalSamples, &NoAnchorError{BestEffort: newResult(fallback, c.instance, c.label)}
}

// shortlist pre-samples every candidate up to the uniform floor in a
// single session, then hands the set to the best-arm strategy. When
// the set already fits the requested width there is no statistical
// decision to make and the strategy is bypassed entirely.
//
// The returned sample count is the number of pre-samples this call
// requested; samples the strategy draws internally are its own.
func (c *Construction) shortlist(ctx context.Context, candidates []*Candidate, topN int) ([]*Candidate, int, error) {
	session := c.sampler.Session()
	requested := 0
	for _, cand := range candidates {
		missing := c.cfg.InitSampleCount - cand.SampledCount()
		if missing <= 0 {
			continue
		}
		session.Request(cand, missing)
		requested += missing
	}
	if err := session.Run(ctx); err != nil {
		return nil, 0, fmt.Errorf("pre-sampling session: %w", err)
	}

	if len(candidates) <= topN {
		c.logger.Debug("candidate count within beam width, bypassing best-arm identification",
			slog.Int("candidates", len(candidates)),
			slog.Int("top_n", topN))
		out := make([]*Candidate, len(candidates))
		copy(out, candidates)
		return out, requested, nil
	}

	c.logger.Debug("identifying top candidates",
		slog.Int("candidates", len(candidates)),
		slog.Int("top_n", topN),
		slog.Float64("delta", c.cfg.Delta))
	shortlisted, err := c.bestArm.Identify(ctx, candidates, c.sampler, c.cfg.Delta, topN)
	if err != nil {
		return nil, requested, fmt.Errorf("best-arm identification: %w", err)
	}
	return shortlisted, requested, nil
}

// doSample is the engine's SampleFunc: perturb, predict, count label
// matches, merge into the candidate, return the batch precision.
func (c *Construction) doSample(ctx context.Context, candidate *Candidate, n int) (float64, error) {
	if n < 1 {
		return 0, nil
	}

	perturbed, err := c.perturber.Perturb(ctx, candidate.CanonicalFeatures(), n)
	if err != nil {
		return 0, fmt.Errorf("perturb %s: %w", candidate.Key(), err)
	}
	if len(perturbed.Instances) != n {
		return 0, fmt.Errorf("perturber returned %d instances, want %d", len(perturbed.Instances), n)
	}

	labels, err := c.classifier.Predict(ctx, perturbed.Instances)
	if err != nil {
		return 0, fmt.Errorf("predict for %s: %w", candidate.Key(), err)
	}
	if len(labels) != n {
		return 0, fmt.Errorf("classifier returned %d labels, want %d", len(labels), n)
	}

	matching := 0
	for _, label := range labels {
		if label == c.label {
			matching++
		}
	}
	if err := candidate.RegisterSamples(n, matching); err != nil {
		return 0, err
	}

	precision := float64(matching) / float64(n)
	c.logger.Debug("sampled candidate",
		slog.String("candidate", candidate.Key()),
		slog.Int("samples", n),
		slog.Int("matching", matching),
		slog.Float64("batch_precision", precision))
	return precision, nil
}

// ensureCoverage computes the candidate's coverage if still undefined.
func (c *Construction) ensureCoverage(ctx context.Context, candidate *Candidate) error {
	if candidate.CoverageDefined() {
		return nil
	}
	cov, err := c.coverage.Coverage(ctx, candidate.CanonicalFeatures())
	if err != nil {
		return fmt.Errorf("coverage for %s: %w", candidate.Key(), err)
	}
	return candidate.SetCoverage(cov)
}
