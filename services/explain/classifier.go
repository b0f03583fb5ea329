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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AleutianAI/AleutianExplain/services/explain/anchor"
	"github.com/AleutianAI/AleutianExplain/services/explain/tabular"
)

// predictRequest is the wire form of a batch prediction call.
type predictRequest struct {
	Instances [][]float64 `json:"instances"`
}

// predictResponse is the classifier's reply.
type predictResponse struct {
	Labels []int `json:"labels"`
}

// RemoteClassifier calls an HTTP prediction endpoint. It implements
// anchor.Classifier for tabular instances.
//
// The endpoint takes POST {"instances": [[...], ...]} and replies
// {"labels": [...]} with one label per instance, in order.
//
// Thread Safety: Safe for concurrent use.
type RemoteClassifier struct {
	url    string
	client *http.Client
}

// NewRemoteClassifier creates a classifier client.
func NewRemoteClassifier(url string, timeout time.Duration) (*RemoteClassifier, error) {
	if url == "" {
		return nil, fmt.Errorf("classifier URL must not be empty")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("classifier timeout must be positive")
	}
	return &RemoteClassifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Predict implements anchor.Classifier.
func (r *RemoteClassifier) Predict(ctx context.Context, instances []anchor.Instance) ([]int, error) {
	rows := make([][]float64, len(instances))
	for i, inst := range instances {
		row, ok := inst.(*tabular.Instance)
		if !ok {
			return nil, fmt.Errorf("%w: instance %d is %T, want *tabular.Instance", ErrClassifierFailed, i, inst)
		}
		rows[i] = row.Values()
	}

	payload, err := json.Marshal(predictRequest{Instances: rows})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrClassifierFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrClassifierFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrClassifierFailed, resp.StatusCode, bytes.TrimSpace(body))
	}

	var decoded predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrClassifierFailed, err)
	}
	if len(decoded.Labels) != len(instances) {
		return nil, fmt.Errorf("%w: got %d labels for %d instances", ErrClassifierFailed, len(decoded.Labels), len(instances))
	}
	return decoded.Labels, nil
}
