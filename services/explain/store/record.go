// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"time"

	"github.com/google/uuid"
)

// Record status values.
const (
	// StatusAnchorFound means a valid anchor met the precision target.
	StatusAnchorFound = "anchor_found"

	// StatusBestEffort means no candidate met the target; the record
	// carries the best candidate seen across all rounds.
	StatusBestEffort = "best_effort"

	// StatusNotFound means no candidate was ever sampled positively.
	StatusNotFound = "not_found"
)

// Record is the persisted outcome of one explanation request.
//
// Thread Safety: Plain data. Callers must not mutate a record after
// handing it to the store.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`

	// Features are the anchored feature indexes, in order of choice.
	// Empty for StatusNotFound.
	Features []int `json:"features,omitempty"`

	// FeatureNames are the column names for Features, when the input
	// carried a header.
	FeatureNames []string `json:"feature_names,omitempty"`

	Precision float64 `json:"precision"`
	Coverage  float64 `json:"coverage"`
	Label     int     `json:"label"`

	// SampleCount is the number of perturbed samples drawn for the
	// returned anchor.
	SampleCount int `json:"sample_count"`

	// DurationMillis is the wall time of the search.
	DurationMillis int64 `json:"duration_millis"`
}

// NewRecord creates a record with a fresh ID and timestamp.
func NewRecord(status string) *Record {
	return &Record{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Status:    status,
	}
}
