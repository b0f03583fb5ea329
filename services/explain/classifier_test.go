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
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianExplain/services/explain/anchor"
	"github.com/AleutianAI/AleutianExplain/services/explain/tabular"
)

// bareInstance implements anchor.Instance without carrying values.
type bareInstance struct{}

func (bareInstance) FeatureCount() int { return 2 }

func TestNewRemoteClassifier_Validation(t *testing.T) {
	_, err := NewRemoteClassifier("", time.Second)
	assert.Error(t, err)
	_, err = NewRemoteClassifier("http://localhost/predict", 0)
	assert.Error(t, err)
}

func TestRemoteClassifier_Predict(t *testing.T) {
	server := decisiveClassifierServer(t)
	classifier, err := NewRemoteClassifier(server.URL, time.Second)
	require.NoError(t, err)

	low, err := tabular.NewInstance([]float64{0, 5}, nil)
	require.NoError(t, err)
	high, err := tabular.NewInstance([]float64{1, 5}, nil)
	require.NoError(t, err)

	labels, err := classifier.Predict(context.Background(), []anchor.Instance{low, high})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, labels)
}

func TestRemoteClassifier_RejectsForeignInstances(t *testing.T) {
	classifier, err := NewRemoteClassifier("http://127.0.0.1:1/predict", time.Second)
	require.NoError(t, err)

	_, err = classifier.Predict(context.Background(), []anchor.Instance{bareInstance{}})
	assert.ErrorIs(t, err, ErrClassifierFailed)
}

func TestRemoteClassifier_LabelCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"labels": [1, 2, 3]}`))
	}))
	t.Cleanup(server.Close)
	classifier, err := NewRemoteClassifier(server.URL, time.Second)
	require.NoError(t, err)

	inst, err := tabular.NewInstance([]float64{1}, nil)
	require.NoError(t, err)
	_, err = classifier.Predict(context.Background(), []anchor.Instance{inst})
	assert.ErrorIs(t, err, ErrClassifierFailed)
}

func TestRemoteClassifier_UnreachableEndpoint(t *testing.T) {
	classifier, err := NewRemoteClassifier("http://127.0.0.1:1/predict", 200*time.Millisecond)
	require.NoError(t, err)

	inst, err := tabular.NewInstance([]float64{1}, nil)
	require.NoError(t, err)
	_, err = classifier.Predict(context.Background(), []anchor.Instance{inst})
	assert.ErrorIs(t, err, ErrClassifierFailed)
}
