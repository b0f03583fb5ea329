// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package explain

import (
	"time"

	"github.com/AleutianAI/AleutianExplain/services/explain/store"
)

// SearchParams are the optional per-request overrides for the anchor
// search. Zero-valued fields fall back to the engine defaults.
type SearchParams struct {
	BeamWidth         int     `json:"beam_width" binding:"omitempty,min=1"`
	Delta             float64 `json:"delta" binding:"omitempty,gt=0,lt=1"`
	Tau               float64 `json:"tau" binding:"omitempty,gt=0,lte=1"`
	TauDiscrepancy    float64 `json:"tau_discrepancy" binding:"omitempty,gt=0,lt=1"`
	InitSampleCount   int     `json:"init_sample_count" binding:"omitempty,min=1"`
	MaxAnchorSize     int     `json:"max_anchor_size" binding:"omitempty,min=1"`
	Workers           int     `json:"workers" binding:"omitempty,min=1"`
	MaxValidityRounds int     `json:"max_validity_rounds" binding:"omitempty,min=1"`

	// EagerCoverage computes coverage for every generated candidate
	// instead of deferring it until a candidate is pruned or returned.
	EagerCoverage bool `json:"eager_coverage"`
}

// TabularExplainRequest asks for an anchor explanation of one row of
// the submitted dataset against a remote classifier.
type TabularExplainRequest struct {
	// Columns are optional column names for the dataset.
	Columns []string `json:"columns"`

	// Rows is the dataset, row-major. The explained row's siblings
	// become the perturbation background, so at least two rows are
	// needed.
	Rows [][]float64 `json:"rows" binding:"required,min=2"`

	// RowIndex selects the row to explain.
	RowIndex int `json:"row_index" binding:"min=0"`

	// ClassifierURL is the prediction endpoint of the model being
	// explained.
	ClassifierURL string `json:"classifier_url" binding:"required,url"`

	// Seed fixes the perturbation stream for reproducible runs. Zero
	// derives a seed from the clock.
	Seed int64 `json:"seed"`

	Params *SearchParams `json:"params"`
}

// ExplainResponse is the JSON rendering of a stored record.
type ExplainResponse struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Status         string    `json:"status"`
	Features       []int     `json:"features,omitempty"`
	FeatureNames   []string  `json:"feature_names,omitempty"`
	Precision      float64   `json:"precision"`
	Coverage       float64   `json:"coverage"`
	Label          int       `json:"label"`
	SampleCount    int       `json:"sample_count"`
	DurationMillis int64     `json:"duration_millis"`
}

// newExplainResponse converts a stored record to its wire form.
func newExplainResponse(r *store.Record) ExplainResponse {
	return ExplainResponse{
		ID:             r.ID,
		CreatedAt:      r.CreatedAt,
		Status:         r.Status,
		Features:       r.Features,
		FeatureNames:   r.FeatureNames,
		Precision:      r.Precision,
		Coverage:       r.Coverage,
		Label:          r.Label,
		SampleCount:    r.SampleCount,
		DurationMillis: r.DurationMillis,
	}
}

// ListResponse wraps a page of records.
type ListResponse struct {
	Records []ExplainResponse `json:"records"`
	Count   int               `json:"count"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
