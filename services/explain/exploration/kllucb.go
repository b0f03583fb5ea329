// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package exploration provides best-arm identification strategies for
// the anchor engine.
//
// Best-arm identification is a pure-exploration bandit problem: given
// competing candidates and a sampling budget, return the top-N by true
// precision with bounded error probability. KLLUCB is the production
// strategy; Greedy is a deterministic fallback for tests and wiring.
package exploration

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianExplain/services/explain/anchor"
	"github.com/AleutianAI/AleutianExplain/services/explain/stat"
)

const explorationTracerName = "aleutian.explain.exploration"

var explorationTracer = otel.Tracer(explorationTracerName)

// Exploration rate constants from Kaufmann & Kalyanakrishnan's KL-LUCB
// analysis: beta(t) = temp + ln(temp) with temp = ln(k1*n*t^alpha/delta).
const (
	klLUCBAlpha = 1.1
	klLUCBK1    = 405.5
)

// KLLUCBConfig configures the KL-LUCB strategy.
type KLLUCBConfig struct {
	// Epsilon is the stopping width: the strategy stops once the
	// challenger's upper bound and the weakest chosen arm's lower
	// bound are within Epsilon.
	// Default: 0.1
	Epsilon float64

	// BatchSize is how many extra samples each of the two contested
	// arms receives per round.
	// Default: 16
	BatchSize int

	// MaxRounds caps the sampling loop against adversarial inputs.
	// Default: 1000
	MaxRounds int

	// Logger for per-round debug output. If nil, uses the default
	// logger.
	Logger *slog.Logger
}

// DefaultKLLUCBConfig returns sensible defaults.
func DefaultKLLUCBConfig() KLLUCBConfig {
	return KLLUCBConfig{
		Epsilon:   0.1,
		BatchSize: 16,
		MaxRounds: 1000,
	}
}

// KLLUCB implements LUCB-style best-arm identification with
// KL-Bernoulli confidence bounds.
//
// Description:
//
//	Per round the strategy splits the arms into the current top-N by
//	empirical mean and the rest, then contests the two most confusable
//	arms: the weakest chosen arm (lowest lower bound inside the top-N)
//	and the strongest challenger (highest upper bound outside it).
//	Both receive one more batch of samples; the loop stops when the
//	two bounds are within Epsilon of each other, which bounds the
//	misidentification probability by delta.
//
// Thread Safety: Stateless between calls; safe for concurrent use.
type KLLUCB struct {
	cfg    KLLUCBConfig
	logger *slog.Logger
}

// NewKLLUCB creates the strategy with the given configuration. A nil
// logger and zeroed fields fall back to defaults.
func NewKLLUCB(config KLLUCBConfig) *KLLUCB {
	def := DefaultKLLUCBConfig()
	if config.Epsilon <= 0 {
		config.Epsilon = def.Epsilon
	}
	if config.BatchSize < 1 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxRounds < 1 {
		config.MaxRounds = def.MaxRounds
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &KLLUCB{cfg: config, logger: logger}
}

// Identify implements anchor.BestArmIdentifier.
//
// Outputs:
//
//	[]*anchor.Candidate - The top-N candidates by empirical mean at
//	                      stopping time, best first.
//	error - Non-nil on a sampling failure or invalid arguments.
func (k *KLLUCB) Identify(ctx context.Context, candidates []*anchor.Candidate, svc anchor.SamplingService, delta float64, topN int) ([]*anchor.Candidate, error) {
	if topN < 1 {
		return nil, fmt.Errorf("topN must be positive, got %d", topN)
	}
	if len(candidates) <= topN {
		out := make([]*anchor.Candidate, len(candidates))
		copy(out, candidates)
		return out, nil
	}

	ctx, span := explorationTracer.Start(ctx, "exploration.kllucb",
		trace.WithAttributes(
			attribute.Int("exploration.arms", len(candidates)),
			attribute.Int("exploration.top_n", topN),
			attribute.Float64("exploration.delta", delta),
		))
	defer span.End()

	n := len(candidates)
	arms := make([]*anchor.Candidate, n)
	copy(arms, candidates)

	for t := 1; ; t++ {
		beta := explorationRate(n, t, delta)

		byMean := sortedByMean(arms)
		chosen := byMean[:topN]
		rest := byMean[topN:]

		// Weakest chosen arm by lower bound.
		lt := chosen[0]
		ltBound := lowerBound(lt, beta)
		for _, arm := range chosen[1:] {
			if b := lowerBound(arm, beta); b < ltBound {
				lt, ltBound = arm, b
			}
		}
		// Strongest challenger by upper bound.
		ut := rest[0]
		utBound := upperBound(ut, beta)
		for _, arm := range rest[1:] {
			if b := upperBound(arm, beta); b > utBound {
				ut, utBound = arm, b
			}
		}

		gap := utBound - ltBound
		k.logger.Debug("kl-lucb round",
			slog.Int("round", t),
			slog.String("weakest", lt.Key()),
			slog.String("challenger", ut.Key()),
			slog.Float64("gap", gap))
		if gap < k.cfg.Epsilon || t > k.cfg.MaxRounds {
			span.SetAttributes(
				attribute.Int("exploration.rounds", t),
				attribute.Float64("exploration.final_gap", gap),
			)
			return chosen, nil
		}

		err := svc.Session().
			Request(lt, k.cfg.BatchSize).
			Request(ut, k.cfg.BatchSize).
			Run(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("kl-lucb round %d: %w", t, err)
		}
	}
}

// explorationRate computes beta(t) for n arms at round t.
func explorationRate(n, t int, delta float64) float64 {
	temp := math.Log(klLUCBK1 * float64(n) * math.Pow(float64(t), klLUCBAlpha) / delta)
	return temp + math.Log(temp)
}

func lowerBound(c *anchor.Candidate, beta float64) float64 {
	sampled := c.SampledCount()
	if sampled == 0 {
		return 0
	}
	return stat.LowerBound(c.Precision(), beta/float64(sampled))
}

func upperBound(c *anchor.Candidate, beta float64) float64 {
	sampled := c.SampledCount()
	if sampled == 0 {
		return 1
	}
	return stat.UpperBound(c.Precision(), beta/float64(sampled))
}

// sortedByMean returns the arms ordered by empirical mean, best first,
// with the canonical key as a deterministic tiebreak.
func sortedByMean(arms []*anchor.Candidate) []*anchor.Candidate {
	out := make([]*anchor.Candidate, len(arms))
	copy(out, arms)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Precision(), out[j].Precision()
		if pi != pj {
			return pi > pj
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}
