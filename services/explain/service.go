// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package explain exposes the anchor engine as an HTTP service:
// request validation, classifier wiring, search orchestration, and
// record persistence.
package explain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianExplain/services/explain/anchor"
	"github.com/AleutianAI/AleutianExplain/services/explain/store"
	"github.com/AleutianAI/AleutianExplain/services/explain/tabular"
)

// ServiceVersion is the explanation service version.
const ServiceVersion = "0.1.0"

var serviceTracer = otel.Tracer("aleutian.explain.service")

// Service orchestrates explanations: it builds the per-request search
// collaborators, runs the engine, and persists the outcome.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	cfg    Config
	store  *store.Store
	logger *slog.Logger
}

// NewService creates the service.
//
// Inputs:
//
//	cfg - Validated service configuration.
//	st - The record store. Must not be nil.
//	logger - Logger for orchestration events. Nil uses slog.Default().
//
// Outputs:
//
//	*Service - The ready service.
//	error - Non-nil when st is nil.
func NewService(cfg Config, st *store.Store, logger *slog.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("record store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, store: st, logger: logger}, nil
}

// ExplainTabular runs one anchor search for the request and persists
// the outcome.
//
// Description:
//
//	The explained row is held out of the submitted dataset; the
//	remaining rows become the perturbation background and the
//	empirical coverage population. The remote classifier first labels
//	the explained row, then serves as the black box during the search.
//	All three search outcomes produce a stored record: a confirmed
//	anchor, a best-effort candidate, or nothing found.
//
// Outputs:
//
//	*store.Record - The persisted record, in all three outcomes.
//	error - Non-nil on invalid input, classifier failure, store
//	        failure, or an aborted search.
func (s *Service) ExplainTabular(ctx context.Context, req *TabularExplainRequest) (*store.Record, error) {
	ctx, span := serviceTracer.Start(ctx, "explain.tabular")
	defer span.End()

	if len(req.Rows) > s.cfg.MaxRows {
		return nil, fmt.Errorf("%w: %d rows, limit %d", ErrDatasetTooLarge, len(req.Rows), s.cfg.MaxRows)
	}
	dataset, err := tabular.NewDataset(req.Columns, req.Rows)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	if req.RowIndex < 0 || req.RowIndex >= dataset.RowCount() {
		return nil, fmt.Errorf("%w: index %d, dataset has %d rows", ErrRowOutOfRange, req.RowIndex, dataset.RowCount())
	}
	explained, background, err := dataset.Holdout(req.RowIndex)
	if err != nil {
		return nil, fmt.Errorf("holdout: %w", err)
	}

	classifier, err := NewRemoteClassifier(req.ClassifierURL, s.cfg.ClassifierTimeout)
	if err != nil {
		return nil, err
	}
	labels, err := classifier.Predict(ctx, []anchor.Instance{explained})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "label explained row")
		return nil, fmt.Errorf("label explained row: %w", err)
	}
	label := labels[0]

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	params := req.Params
	if params == nil {
		params = &SearchParams{}
	}
	deps, err := newSearchDeps(explained, background, seed, params.Workers, s.logger)
	if err != nil {
		return nil, err
	}

	builder := anchor.NewBuilder().
		WithClassifier(classifier).
		WithPerturber(deps.perturber).
		WithCoverageEstimator(deps.coverage).
		WithBestArmIdentifier(deps.bestArm).
		WithSamplerFactory(deps.factory).
		WithInstance(explained, label).
		WithLogger(s.logger)
	applyParams(builder, params)

	construction, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build search: %w", err)
	}

	s.logger.Info("starting explanation",
		slog.Int("row_index", req.RowIndex),
		slog.Int("features", explained.FeatureCount()),
		slog.Int("background_rows", background.RowCount()),
		slog.Int("label", label))

	start := time.Now()
	result, err := construction.Construct(ctx)
	elapsed := time.Since(start)

	var record *store.Record
	switch {
	case err == nil:
		record = s.newRecord(store.StatusAnchorFound, result, req.Columns)

	default:
		var noAnchor *anchor.NoAnchorError
		if errors.As(err, &noAnchor) {
			record = s.newRecord(store.StatusBestEffort, noAnchor.BestEffort, req.Columns)
		} else if errors.Is(err, anchor.ErrNoCandidateFound) {
			record = store.NewRecord(store.StatusNotFound)
			record.Label = label
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, "search failed")
			return nil, fmt.Errorf("anchor search: %w", err)
		}
	}
	record.DurationMillis = elapsed.Milliseconds()

	if err := s.store.Put(ctx, record); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("persist record: %w", err)
	}

	span.SetAttributes(
		attribute.String("explain.record_id", record.ID),
		attribute.String("explain.status", record.Status),
		attribute.Float64("explain.precision", record.Precision),
		attribute.Float64("explain.coverage", record.Coverage),
	)
	s.logger.Info("explanation finished",
		slog.String("record_id", record.ID),
		slog.String("status", record.Status),
		slog.Float64("precision", record.Precision),
		slog.Float64("coverage", record.Coverage),
		slog.Duration("elapsed", elapsed))
	return record, nil
}

// newRecord converts a search result into a persistable record.
func (s *Service) newRecord(status string, result *anchor.Result, columns []string) *store.Record {
	record := store.NewRecord(status)
	record.Features = result.OrderedFeatures()
	record.Precision = result.Precision()
	record.Coverage = result.Coverage()
	record.Label = result.Label()
	record.SampleCount = result.SampledCount()
	if columns != nil {
		names := make([]string, len(record.Features))
		for i, f := range record.Features {
			names[i] = columns[f]
		}
		record.FeatureNames = names
	}
	return record
}

// applyParams copies the non-zero request overrides onto the builder.
func applyParams(b *anchor.Builder, p *SearchParams) {
	if p.BeamWidth > 0 {
		b.WithBeamWidth(p.BeamWidth)
	}
	if p.Delta > 0 {
		b.WithDelta(p.Delta)
	}
	if p.Tau > 0 {
		b.WithTau(p.Tau)
	}
	if p.TauDiscrepancy > 0 {
		b.WithTauDiscrepancy(p.TauDiscrepancy)
	}
	if p.InitSampleCount > 0 {
		b.WithInitSampleCount(p.InitSampleCount)
	}
	if p.MaxAnchorSize > 0 {
		b.WithMaxAnchorSize(p.MaxAnchorSize)
	}
	if p.Workers > 0 {
		b.WithWorkers(p.Workers)
	}
	if p.MaxValidityRounds > 0 {
		b.WithMaxValidityRounds(p.MaxValidityRounds)
	}
	if p.EagerCoverage {
		b.WithLazyCoverage(false)
	}
	b.WithBalancedSampling(true)
}

// GetResult loads a stored record by ID.
func (s *Service) GetResult(ctx context.Context, id string) (*store.Record, error) {
	return s.store.Get(ctx, id)
}

// ListResults returns up to limit records, newest first.
func (s *Service) ListResults(ctx context.Context, limit int) ([]*store.Record, error) {
	return s.store.List(ctx, limit)
}
