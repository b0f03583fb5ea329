// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianExplain/services/explain"
	"github.com/AleutianAI/AleutianExplain/services/explain/anchor"
	"github.com/AleutianAI/AleutianExplain/services/explain/coverage"
	"github.com/AleutianAI/AleutianExplain/services/explain/exploration"
	"github.com/AleutianAI/AleutianExplain/services/explain/sampling"
	"github.com/AleutianAI/AleutianExplain/services/explain/tabular"
)

// runExplain handles `anchorctl explain <csv_file>`.
func runExplain(cmd *cobra.Command, args []string) error {
	logger := setupLogging(logLevel, logFormat)
	defer logger.Close()

	dataset, err := tabular.FromCSV(args[0], csvHeader)
	if err != nil {
		return err
	}
	if rowIndex < 0 || rowIndex >= dataset.RowCount() {
		return fmt.Errorf("row %d outside [0, %d)", rowIndex, dataset.RowCount())
	}
	explained, background, err := dataset.Holdout(rowIndex)
	if err != nil {
		return err
	}

	classifier, err := explain.NewRemoteClassifier(classifierURL, 30*time.Second)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	labels, err := classifier.Predict(ctx, []anchor.Instance{explained})
	if err != nil {
		return fmt.Errorf("label row %d: %w", rowIndex, err)
	}

	slog.Info("explaining row",
		slog.Int("row", rowIndex),
		slog.Int("label", labels[0]),
		slog.Int("features", explained.FeatureCount()),
		slog.Int("background_rows", background.RowCount()))

	result, err := runSearch(ctx, classifier, explained, background, labels[0])
	return printOutcome(result, err, dataset.Columns())
}

// runSearch assembles the engine from the command flags and runs it.
func runSearch(ctx context.Context, classifier anchor.Classifier,
	explained *tabular.Instance, background *tabular.Dataset, label int) (*anchor.Result, error) {

	perturbSeed := seed
	if perturbSeed == 0 {
		perturbSeed = time.Now().UnixNano()
	}
	perturber, err := tabular.NewPerturber(explained, background, perturbSeed)
	if err != nil {
		return nil, err
	}
	empirical, err := tabular.NewCoverageEstimator(explained, background)
	if err != nil {
		return nil, err
	}
	cached, err := coverage.NewCached(empirical)
	if err != nil {
		return nil, err
	}

	builder := anchor.NewBuilder().
		WithClassifier(classifier).
		WithPerturber(perturber).
		WithCoverageEstimator(cached).
		WithBestArmIdentifier(exploration.NewKLLUCB(exploration.DefaultKLLUCBConfig())).
		WithSamplerFactory(sampling.PoolFactory(sampling.PoolConfig{Workers: workers, Balanced: true})).
		WithInstance(explained, label)
	if tau > 0 {
		builder.WithTau(tau)
	}
	if delta > 0 {
		builder.WithDelta(delta)
	}
	if beamWidth > 0 {
		builder.WithBeamWidth(beamWidth)
	}
	if workers > 0 {
		builder.WithWorkers(workers)
	}
	if initSamples > 0 {
		builder.WithInitSampleCount(initSamples)
	}
	if maxAnchorSize > 0 {
		builder.WithMaxAnchorSize(maxAnchorSize)
	}

	construction, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return construction.Construct(ctx)
}

// printOutcome renders any of the three search outcomes. Best-effort
// results print with a warning; an empty search is an error.
func printOutcome(result *anchor.Result, err error, columns []string) error {
	switch {
	case err == nil:
		printResult("anchor", result, columns)
		return nil

	default:
		var noAnchor *anchor.NoAnchorError
		if errors.As(err, &noAnchor) {
			slog.Warn("no anchor met the precision target, showing best candidate")
			printResult("best_effort", noAnchor.BestEffort, columns)
			return nil
		}
		if errors.Is(err, anchor.ErrNoCandidateFound) {
			return fmt.Errorf("no candidate ever matched the prediction; is the classifier deterministic?")
		}
		return err
	}
}

// printResult writes one result to stdout, as JSON or aligned text.
func printResult(status string, result *anchor.Result, columns []string) {
	features := result.OrderedFeatures()
	names := make([]string, len(features))
	for i, f := range features {
		if columns != nil && f < len(columns) {
			names[i] = columns[f]
		} else {
			names[i] = fmt.Sprintf("feature_%d", f)
		}
	}

	if outputJSON {
		out := map[string]any{
			"status":        status,
			"features":      features,
			"feature_names": names,
			"precision":     result.Precision(),
			"coverage":      result.Coverage(),
			"label":         result.Label(),
			"samples":       result.SampledCount(),
		}
		json.NewEncoder(os.Stdout).Encode(out)
		return
	}

	fmt.Printf("Status:    %s\n", status)
	fmt.Printf("Anchor:    %s\n", strings.Join(names, " AND "))
	fmt.Printf("Precision: %.4f\n", result.Precision())
	fmt.Printf("Coverage:  %.4f\n", result.Coverage())
	fmt.Printf("Label:     %d\n", result.Label())
	fmt.Printf("Samples:   %d\n", result.SampledCount())
}
