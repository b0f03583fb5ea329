// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command anchorctl runs anchor explanations from the terminal,
// without the API server: point it at a CSV file and a classifier
// endpoint, or run the built-in demo against a synthetic dataset.
package main

import (
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/AleutianExplain/pkg/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging wires slog from the persistent flags. Format "auto"
// picks text on a terminal and JSON when piped.
func setupLogging(level, format string) *logging.Logger {
	useJSON := format == "json"
	if format == "auto" {
		useJSON = !isatty.IsTerminal(os.Stderr.Fd())
	}
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(level),
		Service: "anchorctl",
		JSON:    useJSON,
	})
	slog.SetDefault(logger.Slog())
	return logger
}
