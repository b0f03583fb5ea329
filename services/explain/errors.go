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

import "errors"

var (
	// ErrRowOutOfRange means the requested row index is not in the
	// submitted dataset.
	ErrRowOutOfRange = errors.New("row index out of range")

	// ErrDatasetTooLarge means the submitted dataset exceeds the
	// configured row limit.
	ErrDatasetTooLarge = errors.New("dataset exceeds configured row limit")

	// ErrClassifierFailed wraps failures reaching or decoding the
	// remote classifier.
	ErrClassifierFailed = errors.New("classifier call failed")
)
