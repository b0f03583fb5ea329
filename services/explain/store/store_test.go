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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_RequiresPathForPersistentStore(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	record := NewRecord(StatusAnchorFound)
	record.Features = []int{0, 3}
	record.FeatureNames = []string{"age", "income"}
	record.Precision = 0.97
	record.Coverage = 0.12
	record.Label = 1
	record.SampleCount = 4096
	record.DurationMillis = 1530
	require.NoError(t, s.Put(ctx, record))

	got, err := s.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, StatusAnchorFound, got.Status)
	assert.Equal(t, []int{0, 3}, got.Features)
	assert.Equal(t, []string{"age", "income"}, got.FeatureNames)
	assert.Equal(t, 0.97, got.Precision)
	assert.Equal(t, 1, got.Label)
	assert.Equal(t, 4096, got.SampleCount)
}

func TestStore_GetMissingRecord(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PutValidation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.Put(ctx, nil))

	record := NewRecord(StatusNotFound)
	record.ID = ""
	assert.Error(t, s.Put(ctx, record))
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var ids []string
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		record := NewRecord(StatusAnchorFound)
		record.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Put(ctx, record))
		ids = append(ids, record.ID)
	}

	records, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i := 0; i < len(records)-1; i++ {
		assert.False(t, records[i].CreatedAt.Before(records[i+1].CreatedAt),
			"records must be sorted newest first")
	}
	assert.Equal(t, ids[4], records[0].ID)

	limited, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, ids[4], limited[0].ID)
	assert.Equal(t, ids[3], limited[1].ID)
}

func TestStore_CancelledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.Put(ctx, NewRecord(StatusAnchorFound)))
	_, err := s.Get(ctx, "id")
	assert.Error(t, err)
	_, err = s.List(ctx, 0)
	assert.Error(t, err)
}

func TestNewRecord(t *testing.T) {
	record := NewRecord(StatusBestEffort)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, StatusBestEffort, record.Status)
	assert.WithinDuration(t, time.Now().UTC(), record.CreatedAt, time.Minute)

	other := NewRecord(StatusBestEffort)
	assert.NotEqual(t, record.ID, other.ID)
}
