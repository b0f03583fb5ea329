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
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianExplain/services/explain/anchor"
	"github.com/AleutianAI/AleutianExplain/services/explain/tabular"
)

// demoColumns describe the synthetic dataset. The classifier only
// looks at the first feature, so the expected anchor is ["decisive"].
var demoColumns = []string{"decisive", "noise_a", "noise_b", "noise_c", "noise_d"}

// demoClassifier labels an instance by its first feature. It stands in
// for the remote model so the demo runs fully offline.
type demoClassifier struct{}

func (demoClassifier) Predict(_ context.Context, instances []anchor.Instance) ([]int, error) {
	labels := make([]int, len(instances))
	for i, inst := range instances {
		row, ok := inst.(*tabular.Instance)
		if !ok {
			return nil, fmt.Errorf("instance %d is %T, want *tabular.Instance", i, inst)
		}
		if row.Value(0) >= 0.5 {
			labels[i] = 1
		}
	}
	return labels, nil
}

// runDemo handles `anchorctl demo`.
func runDemo(cmd *cobra.Command, _ []string) error {
	logger := setupLogging(logLevel, logFormat)
	defer logger.Close()

	if demoRows < 2 {
		return fmt.Errorf("demo needs at least 2 rows, got %d", demoRows)
	}

	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, demoRows)
	for i := range rows {
		row := make([]float64, len(demoColumns))
		for j := range row {
			row[j] = float64(rng.Intn(2))
		}
		rows[i] = row
	}
	// Make sure the explained row is a positive example.
	rows[0][0] = 1

	dataset, err := tabular.NewDataset(demoColumns, rows)
	if err != nil {
		return err
	}
	explained, background, err := dataset.Holdout(0)
	if err != nil {
		return err
	}

	slog.Info("running demo search",
		slog.Int("rows", demoRows),
		slog.Int("features", len(demoColumns)),
		slog.Int64("seed", seed))

	result, err := runSearch(cmd.Context(), demoClassifier{}, explained, background, 1)
	return printOutcome(result, err, demoColumns)
}
