// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDataset_Validation(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		rows    [][]float64
		wantErr bool
	}{
		{
			name: "valid headerless",
			rows: [][]float64{{1, 2}, {3, 4}},
		},
		{
			name:    "valid with header",
			columns: []string{"a", "b"},
			rows:    [][]float64{{1, 2}},
		},
		{
			name:    "empty rows",
			rows:    nil,
			wantErr: true,
		},
		{
			name:    "empty first row",
			rows:    [][]float64{{}},
			wantErr: true,
		},
		{
			name:    "ragged rows",
			rows:    [][]float64{{1, 2}, {3}},
			wantErr: true,
		},
		{
			name:    "header width mismatch",
			columns: []string{"a"},
			rows:    [][]float64{{1, 2}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := NewDataset(tt.columns, tt.rows)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.rows), ds.RowCount())
			assert.Equal(t, len(tt.rows[0]), ds.FeatureCount())
		})
	}
}

func TestFromCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	content := "age,income\n34,52000\n51,78000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	ds, err := FromCSV(path, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "income"}, ds.Columns())
	assert.Equal(t, 2, ds.RowCount())

	row, err := ds.Row(0)
	require.NoError(t, err)
	assert.Equal(t, 34.0, row.Value(0))
	assert.Equal(t, "income", row.Column(1))
}

func TestFromCSV_Headerless(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("1,2\n3,4\n"), 0600))

	ds, err := FromCSV(path, false)
	require.NoError(t, err)
	assert.Nil(t, ds.Columns())
	assert.Equal(t, 2, ds.RowCount())

	row, err := ds.Row(1)
	require.NoError(t, err)
	assert.Equal(t, "0", row.Column(0), "headerless columns fall back to index names")
}

func TestFromCSV_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := FromCSV(filepath.Join(dir, "absent.csv"), false)
		assert.Error(t, err)
	})

	t.Run("non numeric field", func(t *testing.T) {
		path := filepath.Join(dir, "bad.csv")
		require.NoError(t, os.WriteFile(path, []byte("1,oops\n"), 0600))
		_, err := FromCSV(path, false)
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.csv")
		require.NoError(t, os.WriteFile(path, nil, 0600))
		_, err := FromCSV(path, false)
		assert.Error(t, err)
	})
}

func TestDataset_Holdout(t *testing.T) {
	ds, err := NewDataset([]string{"a", "b"}, [][]float64{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)

	row, background, err := ds.Holdout(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, row.Values())
	assert.Equal(t, 2, background.RowCount())

	first, err := background.Row(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, first.Values(), "held-out row must not appear in the background")
}

func TestDataset_HoldoutErrors(t *testing.T) {
	ds, err := NewDataset(nil, [][]float64{{1}, {2}})
	require.NoError(t, err)

	_, _, err = ds.Holdout(5)
	assert.Error(t, err, "out-of-range index")

	single, err := NewDataset(nil, [][]float64{{1}})
	require.NoError(t, err)
	_, _, err = single.Holdout(0)
	assert.Error(t, err, "holdout of the only row leaves no background")
}

func TestNewInstance_Validation(t *testing.T) {
	_, err := NewInstance(nil, nil)
	assert.Error(t, err)

	_, err = NewInstance([]float64{1, 2}, []string{"a"})
	assert.Error(t, err)

	inst, err := NewInstance([]float64{1, 2}, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, inst.FeatureCount())

	// Values returns a copy; mutating it must not leak back.
	values := inst.Values()
	values[0] = 99
	assert.Equal(t, 1.0, inst.Value(0))
}
