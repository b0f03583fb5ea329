// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package coverage provides estimator wrappers: a cached decorator
// that deduplicates concurrent estimates per feature set, and a fixed
// estimator for tests and degenerate populations.
package coverage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/AleutianExplain/services/explain/anchor"
)

// Cached wraps an estimator with a result cache. Concurrent requests
// for the same feature set share one underlying call.
//
// Thread Safety: Safe for concurrent use.
type Cached struct {
	inner anchor.CoverageEstimator

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]float64
}

// NewCached creates a caching wrapper around the estimator.
func NewCached(inner anchor.CoverageEstimator) (*Cached, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner estimator must not be nil")
	}
	return &Cached{inner: inner, cache: make(map[string]float64)}, nil
}

// Coverage implements anchor.CoverageEstimator.
func (c *Cached) Coverage(ctx context.Context, features []int) (float64, error) {
	key := coverageKey(features)

	c.mu.RLock()
	v, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		estimate, err := c.inner.Coverage(ctx, features)
		if err != nil {
			return 0.0, err
		}
		c.mu.Lock()
		c.cache[key] = estimate
		c.mu.Unlock()
		return estimate, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(float64), nil
}

// Size returns the number of cached feature sets.
func (c *Cached) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// coverageKey canonicalizes a feature set so permutations share one
// cache entry.
func coverageKey(features []int) string {
	sorted := make([]int, len(features))
	copy(sorted, features)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, f := range sorted {
		parts[i] = strconv.Itoa(f)
	}
	return strings.Join(parts, ",")
}

// Fixed always returns the same estimate. Useful in tests and when no
// background population exists.
//
// Thread Safety: Safe for concurrent use. Immutable after creation.
type Fixed struct {
	value float64
}

// NewFixed creates a fixed estimator. The value must lie in [0, 1].
func NewFixed(value float64) (*Fixed, error) {
	if value < 0 || value > 1 {
		return nil, fmt.Errorf("fixed coverage %g outside [0, 1]", value)
	}
	return &Fixed{value: value}, nil
}

// Coverage implements anchor.CoverageEstimator.
func (f *Fixed) Coverage(_ context.Context, _ []int) (float64, error) {
	return f.value, nil
}
