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

import "errors"

// Sentinel errors for the anchor search engine.
var (
	// ErrNoCandidateFound indicates that not even the fallback query
	// over all rounds produced a candidate with a single matching
	// prediction. Retrying is pointless without changing the
	// perturber or the classifier.
	ErrNoCandidateFound = errors.New("no candidate with a precision greater than zero found")

	// ErrSessionDone indicates a sampling session was run twice.
	ErrSessionDone = errors.New("sampling session already ran")
)

// NoAnchorError reports that the search exhausted its budget without
// any candidate provably clearing the precision threshold. It carries
// the best candidate found so callers can inspect the closest attempt.
//
// Use errors.As to recover the payload:
//
//	var noAnchor *anchor.NoAnchorError
//	if errors.As(err, &noAnchor) {
//	    inspect(noAnchor.BestEffort)
//	}
type NoAnchorError struct {
	// BestEffort is the highest-precision candidate seen across all
	// rounds, with its coverage computed. Never nil.
	BestEffort *Result
}

// Error implements the error interface.
func (e *NoAnchorError) Error() string {
	return "no anchor satisfying the precision constraints found; best effort: " + e.BestEffort.String()
}
