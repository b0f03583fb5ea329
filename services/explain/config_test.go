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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8092", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100000, cfg.MaxRows)
	assert.Equal(t, 30*time.Second, cfg.ClassifierTimeout)
	assert.Equal(t, "prometheus", cfg.MetricExporter)
}

func TestLoadConfig_FileOverlay(t *testing.T) {
	path := writeConfigFile(t, `
listen_addr: ":9000"
log_level: debug
store_in_memory: true
max_rows: 500
classifier_timeout: 5s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.StoreInMemory)
	assert.Equal(t, 500, cfg.MaxRows)
	assert.Equal(t, 5*time.Second, cfg.ClassifierTimeout)
	// Untouched fields keep their defaults.
	assert.Equal(t, 5, cfg.Burst)
}

func TestLoadConfig_EnvBeatsFile(t *testing.T) {
	path := writeConfigFile(t, "max_rows: 500\nlisten_addr: \":9000\"\n")
	t.Setenv("ALEUTIAN_EXPLAIN_MAX_ROWS", "123")
	t.Setenv("ALEUTIAN_EXPLAIN_ADDR", ":9100")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 123, cfg.MaxRows)
	assert.Equal(t, ":9100", cfg.ListenAddr)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadConfig(writeConfigFile(t, "listen_addr: [broken"))
		assert.Error(t, err)
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := LoadConfig(writeConfigFile(t, "log_level: loud"))
		assert.Error(t, err)
	})

	t.Run("non-positive max rows", func(t *testing.T) {
		_, err := LoadConfig(writeConfigFile(t, "max_rows: -1"))
		assert.Error(t, err)
	})

	t.Run("unknown exporter", func(t *testing.T) {
		_, err := LoadConfig(writeConfigFile(t, "metric_exporter: graphite"))
		assert.Error(t, err)
	})
}
