// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tabular provides the default collaborators for explaining
// tabular classifiers: float-vector instances, background datasets,
// a draw-and-overwrite perturber, and an empirical coverage estimator.
package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// Instance is one tabular row. It implements anchor.Instance.
//
// Thread Safety: Immutable after creation.
type Instance struct {
	values  []float64
	columns []string
}

// NewInstance creates an instance from a value vector. The column
// names are optional and shared, not copied; pass the dataset's.
func NewInstance(values []float64, columns []string) (*Instance, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("instance needs at least one feature")
	}
	if columns != nil && len(columns) != len(values) {
		return nil, fmt.Errorf("column count %d does not match value count %d", len(columns), len(values))
	}
	owned := make([]float64, len(values))
	copy(owned, values)
	return &Instance{values: owned, columns: columns}, nil
}

// FeatureCount implements anchor.Instance.
func (i *Instance) FeatureCount() int {
	return len(i.values)
}

// Value returns the feature value at the index.
func (i *Instance) Value(idx int) float64 {
	return i.values[idx]
}

// Values returns a copy of the full value vector.
func (i *Instance) Values() []float64 {
	out := make([]float64, len(i.values))
	copy(out, i.values)
	return out
}

// Column returns the column name at the index, or its number when the
// instance carries no header.
func (i *Instance) Column(idx int) string {
	if i.columns == nil || idx >= len(i.columns) {
		return strconv.Itoa(idx)
	}
	return i.columns[idx]
}

// Dataset is a rectangular background population used for perturbation
// and empirical coverage.
//
// Thread Safety: Immutable after creation.
type Dataset struct {
	columns []string
	rows    [][]float64
}

// NewDataset creates a dataset and validates its shape.
//
// Inputs:
//
//	columns - Column names, optional (nil for headerless data).
//	rows - Row-major values. Must be non-empty and rectangular, and
//	       must match the column count when names are given.
//
// Outputs:
//
//	*Dataset - The validated dataset.
//	error - Non-nil on empty or ragged input.
func NewDataset(columns []string, rows [][]float64) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset needs at least one row")
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("dataset rows need at least one column")
	}
	if columns != nil && len(columns) != width {
		return nil, fmt.Errorf("header has %d columns, rows have %d", len(columns), width)
	}
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), width)
		}
	}
	return &Dataset{columns: columns, rows: rows}, nil
}

// FromCSV loads a dataset from a CSV file of numeric values.
//
// Inputs:
//
//	path - The CSV file.
//	hasHeader - Whether the first record is a header row.
//
// Outputs:
//
//	*Dataset - The parsed dataset.
//	error - Non-nil on IO, parse, or shape errors.
func FromCSV(path string, hasHeader bool) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}

	var columns []string
	if hasHeader {
		columns = records[0]
		records = records[1:]
	}

	rows := make([][]float64, 0, len(records))
	for i, record := range records {
		row := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %d: %w", path, i+1, j, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return NewDataset(columns, rows)
}

// Columns returns the column names, or nil for headerless datasets.
func (d *Dataset) Columns() []string {
	return d.columns
}

// RowCount returns the number of rows.
func (d *Dataset) RowCount() int {
	return len(d.rows)
}

// FeatureCount returns the number of columns.
func (d *Dataset) FeatureCount() int {
	return len(d.rows[0])
}

// Row returns the row at the index as an Instance.
func (d *Dataset) Row(idx int) (*Instance, error) {
	if idx < 0 || idx >= len(d.rows) {
		return nil, fmt.Errorf("row index %d outside [0, %d)", idx, len(d.rows))
	}
	return NewInstance(d.rows[idx], d.columns)
}

// Holdout returns the row at the index and a dataset of all other
// rows. Used to explain one row against the rest of the population.
func (d *Dataset) Holdout(idx int) (*Instance, *Dataset, error) {
	row, err := d.Row(idx)
	if err != nil {
		return nil, nil, err
	}
	rest := make([][]float64, 0, len(d.rows)-1)
	for i, r := range d.rows {
		if i == idx {
			continue
		}
		rest = append(rest, r)
	}
	background, err := NewDataset(d.columns, rest)
	if err != nil {
		return nil, nil, fmt.Errorf("holdout background: %w", err)
	}
	return row, background, nil
}
