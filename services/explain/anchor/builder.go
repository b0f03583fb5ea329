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
	"log/slog"
	"runtime"

	"github.com/AleutianAI/AleutianExplain/pkg/validation"
)

// Default search parameters.
const (
	DefaultBeamWidth         = 2
	DefaultDelta             = 0.1
	DefaultTau               = 0.95
	DefaultTauDiscrepancy    = 0.05
	DefaultInitSampleCount   = 16
	DefaultMaxValidityRounds = 64
	maxDefaultWorkers        = 8
)

// DefaultConfig returns the engine defaults. MaxAnchorSize and Workers
// stay zero here; Build resolves them against the explained instance
// and the host.
func DefaultConfig() Config {
	return Config{
		BeamWidth:         DefaultBeamWidth,
		Delta:             DefaultDelta,
		Tau:               DefaultTau,
		TauDiscrepancy:    DefaultTauDiscrepancy,
		InitSampleCount:   DefaultInitSampleCount,
		LazyCoverage:      true,
		MaxValidityRounds: DefaultMaxValidityRounds,
	}
}

// Builder assembles a Construction.
//
// Description:
//
//	All setters are fluent and may be called in any order. Build
//	validates everything at once and fails fast: no partial engine is
//	ever handed out. Collaborators have no defaults here; service
//	wiring decides what a default perturber or coverage estimator
//	means for its domain.
//
// Thread Safety: Not safe for concurrent use; build on one goroutine.
type Builder struct {
	classifier Classifier
	perturber  Perturber
	coverage   CoverageEstimator
	bestArm    BestArmIdentifier
	factory    SamplerFactory

	instance Instance
	label    int
	labelSet bool

	cfg    Config
	logger *slog.Logger
}

// NewBuilder creates a Builder preloaded with DefaultConfig.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// WithClassifier sets the black-box model being explained. Required.
func (b *Builder) WithClassifier(c Classifier) *Builder {
	b.classifier = c
	return b
}

// WithPerturber sets the perturbation generator. Required.
func (b *Builder) WithPerturber(p Perturber) *Builder {
	b.perturber = p
	return b
}

// WithCoverageEstimator sets the coverage estimator. Required.
func (b *Builder) WithCoverageEstimator(c CoverageEstimator) *Builder {
	b.coverage = c
	return b
}

// WithBestArmIdentifier sets the best-arm strategy. Required.
func (b *Builder) WithBestArmIdentifier(i BestArmIdentifier) *Builder {
	b.bestArm = i
	return b
}

// WithSamplerFactory sets the factory that wraps the engine's sample
// closure in a sampling executor. Required.
func (b *Builder) WithSamplerFactory(f SamplerFactory) *Builder {
	b.factory = f
	return b
}

// WithInstance sets the explained instance and its predicted label.
// Required.
func (b *Builder) WithInstance(instance Instance, label int) *Builder {
	b.instance = instance
	b.label = label
	b.labelSet = true
	return b
}

// WithConfig replaces the whole parameter set.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithMaxAnchorSize bounds the largest conjunction explored. Zero
// resolves to the instance's feature count at Build.
func (b *Builder) WithMaxAnchorSize(n int) *Builder {
	b.cfg.MaxAnchorSize = n
	return b
}

// WithBeamWidth sets how many candidates survive a round.
func (b *Builder) WithBeamWidth(n int) *Builder {
	b.cfg.BeamWidth = n
	return b
}

// WithDelta sets the error probability budget.
func (b *Builder) WithDelta(d float64) *Builder {
	b.cfg.Delta = d
	return b
}

// WithTau sets the target precision.
func (b *Builder) WithTau(t float64) *Builder {
	b.cfg.Tau = t
	return b
}

// WithTauDiscrepancy sets the hysteresis margin around tau.
func (b *Builder) WithTauDiscrepancy(d float64) *Builder {
	b.cfg.TauDiscrepancy = d
	return b
}

// WithInitSampleCount sets the uniform pre-sampling floor.
func (b *Builder) WithInitSampleCount(n int) *Builder {
	b.cfg.InitSampleCount = n
	return b
}

// WithWorkers sets the sampling parallelism. Zero resolves to
// min(NumCPU, 8) at Build.
func (b *Builder) WithWorkers(n int) *Builder {
	b.cfg.Workers = n
	return b
}

// WithBalancedSampling toggles splitting requests into near-equal
// chunks across workers.
func (b *Builder) WithBalancedSampling(on bool) *Builder {
	b.cfg.BalancedSampling = on
	return b
}

// WithLazyCoverage toggles deferred coverage computation.
func (b *Builder) WithLazyCoverage(on bool) *Builder {
	b.cfg.LazyCoverage = on
	return b
}

// WithMaxValidityRounds caps the validity check's resample loop.
func (b *Builder) WithMaxValidityRounds(n int) *Builder {
	b.cfg.MaxValidityRounds = n
	return b
}

// WithLogger sets the logger. Defaults to slog.Default().
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Build validates all parameters and collaborators and assembles the
// engine.
//
// Outputs:
//
//	*Construction - The ready-to-run engine.
//	error - Non-nil if any collaborator is absent or any parameter
//	        is out of range; nothing is allocated in that case.
func (b *Builder) Build() (*Construction, error) {
	if err := validation.NotNil("classifier", b.classifier == nil); err != nil {
		return nil, err
	}
	if err := validation.NotNil("perturber", b.perturber == nil); err != nil {
		return nil, err
	}
	if err := validation.NotNil("coverage estimator", b.coverage == nil); err != nil {
		return nil, err
	}
	if err := validation.NotNil("best-arm identifier", b.bestArm == nil); err != nil {
		return nil, err
	}
	if err := validation.NotNil("sampler factory", b.factory == nil); err != nil {
		return nil, err
	}
	if err := validation.NotNil("explained instance", b.instance == nil); err != nil {
		return nil, err
	}
	if !b.labelSet {
		return nil, fmt.Errorf("explained instance label must be set")
	}
	if err := validation.NonNegative("explained instance label", b.label); err != nil {
		return nil, err
	}

	cfg := b.cfg
	if err := validation.NonNegative("max anchor size", cfg.MaxAnchorSize); err != nil {
		return nil, err
	}
	if err := validation.NonNegative("beam width", cfg.BeamWidth); err != nil {
		return nil, err
	}
	if err := validation.Fraction("delta", cfg.Delta); err != nil {
		return nil, err
	}
	if err := validation.Fraction("tau", cfg.Tau); err != nil {
		return nil, err
	}
	if err := validation.Fraction("tau discrepancy", cfg.TauDiscrepancy); err != nil {
		return nil, err
	}
	if err := validation.NonNegative("initial sample count", cfg.InitSampleCount); err != nil {
		return nil, err
	}
	if err := validation.NonNegative("workers", cfg.Workers); err != nil {
		return nil, err
	}
	if err := validation.NonNegative("max validity rounds", cfg.MaxValidityRounds); err != nil {
		return nil, err
	}

	featureCount := b.instance.FeatureCount()
	if err := validation.Positive("feature count", featureCount); err != nil {
		return nil, err
	}
	if cfg.MaxAnchorSize == 0 {
		cfg.MaxAnchorSize = featureCount
	}
	if cfg.Workers == 0 {
		cfg.Workers = min(runtime.NumCPU(), maxDefaultWorkers)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	construction := &Construction{
		classifier: b.classifier,
		perturber:  b.perturber,
		coverage:   b.coverage,
		bestArm:    b.bestArm,
		instance:   b.instance,
		label:      b.label,
		cfg:        cfg,
		logger:     logger,
	}
	construction.sampler = b.factory(construction.doSample)
	if construction.sampler == nil {
		return nil, fmt.Errorf("sampler factory returned nil service")
	}
	return construction, nil
}
