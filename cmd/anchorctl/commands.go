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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	logLevel  string
	logFormat string

	// explain flags
	rowIndex      int
	classifierURL string
	csvHeader     bool
	outputJSON    bool
	seed          int64
	tau           float64
	delta         float64
	beamWidth     int
	workers       int
	initSamples   int
	maxAnchorSize int

	// demo flags
	demoRows int

	rootCmd = &cobra.Command{
		Use:   "anchorctl",
		Short: "A cli for anchor explanations of black-box classifiers",
		Long: `Anchorctl finds anchors: minimal feature conjunctions that keep
a classifier's prediction stable under perturbation. It runs the
search in-process against a CSV dataset and an HTTP classifier,
or against a built-in demo classifier.`,
	}

	explainCmd = &cobra.Command{
		Use:   "explain [csv_file]",
		Short: "Explain one row of a CSV dataset against a remote classifier",
		Args:  cobra.ExactArgs(1),
		RunE:  runExplain, // Defined in cmd_explain.go
	}

	demoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Run the anchor search on a synthetic dataset with a built-in classifier",
		RunE:  runDemo, // Defined in cmd_demo.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto", "Log format (auto, text, json)")

	explainCmd.Flags().IntVar(&rowIndex, "row", 0, "Row index to explain")
	explainCmd.Flags().StringVar(&classifierURL, "classifier-url", "", "Classifier prediction endpoint (required)")
	explainCmd.Flags().BoolVar(&csvHeader, "header", true, "Treat the first CSV record as a header")
	explainCmd.Flags().BoolVar(&outputJSON, "json", false, "Print the result as JSON")
	explainCmd.Flags().Int64Var(&seed, "seed", 0, "Perturbation seed (0 derives one from the clock)")
	explainCmd.Flags().Float64Var(&tau, "tau", 0, "Target precision (0 uses engine default)")
	explainCmd.Flags().Float64Var(&delta, "delta", 0, "Error probability budget (0 uses engine default)")
	explainCmd.Flags().IntVar(&beamWidth, "beam-width", 0, "Beam width (0 uses engine default)")
	explainCmd.Flags().IntVar(&workers, "workers", 0, "Sampling workers (0 uses engine default)")
	explainCmd.Flags().IntVar(&initSamples, "init-samples", 0, "Uniform pre-sampling floor (0 uses engine default)")
	explainCmd.Flags().IntVar(&maxAnchorSize, "max-anchor-size", 0, "Largest conjunction explored (0 means all features)")
	explainCmd.MarkFlagRequired("classifier-url")

	demoCmd.Flags().IntVar(&demoRows, "rows", 200, "Synthetic dataset size")
	demoCmd.Flags().BoolVar(&outputJSON, "json", false, "Print the result as JSON")
	demoCmd.Flags().Int64Var(&seed, "seed", 1, "Dataset and perturbation seed")

	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(demoCmd)
}
