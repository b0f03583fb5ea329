// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities.
//
// This package contains validators for construction-time parameters.
// All validators return descriptive errors naming the offending field so
// that misconfiguration is rejected synchronously, before any resource
// allocation occurs.
package validation

import "fmt"

// Fraction validates that value lies in the closed interval [0, 1].
//
// Returns an error naming the field if the value is out of range.
//
// Example:
//
//	if err := validation.Fraction("tau", tau); err != nil {
//	    return nil, err
//	}
func Fraction(field string, value float64) error {
	if value < 0 || value > 1 {
		return fmt.Errorf("%s must be in [0, 1], got %v", field, value)
	}
	return nil
}

// NonNegative validates that an integer parameter is >= 0.
func NonNegative(field string, value int) error {
	if value < 0 {
		return fmt.Errorf("%s must not be negative, got %d", field, value)
	}
	return nil
}

// Positive validates that an integer parameter is > 0.
func Positive(field string, value int) error {
	if value < 1 {
		return fmt.Errorf("%s must be positive, got %d", field, value)
	}
	return nil
}

// NotNil validates that a required collaborator is present.
//
// The check uses an explicit boolean rather than reflection so that typed
// nil interfaces are caught at the call site:
//
//	if err := validation.NotNil("classifier", classifier == nil); err != nil {
//	    return nil, err
//	}
func NotNil(field string, isNil bool) error {
	if isNil {
		return fmt.Errorf("%s must not be nil", field)
	}
	return nil
}
