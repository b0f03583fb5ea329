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
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the service configuration.
//
// Precedence: defaults, then the YAML file, then ALEUTIAN_EXPLAIN_*
// environment variables.
type Config struct {
	// ListenAddr is the HTTP bind address.
	ListenAddr string `yaml:"listen_addr" validate:"required"`

	// LogLevel is the minimum log level: debug, info, warn, error.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// LogJSON forces JSON log output regardless of terminal detection.
	LogJSON bool `yaml:"log_json"`

	// StorePath is the directory for the record store. Ignored when
	// StoreInMemory is true.
	StorePath string `yaml:"store_path"`

	// StoreInMemory keeps records in memory only. Useful for testing.
	StoreInMemory bool `yaml:"store_in_memory"`

	// RecordTTL is how long records live. Zero keeps them forever.
	RecordTTL time.Duration `yaml:"record_ttl"`

	// MaxRows caps the dataset size a single request may submit.
	MaxRows int `yaml:"max_rows" validate:"gt=0"`

	// RequestsPerSecond throttles the explanation endpoint. Each
	// explanation fans out into many classifier calls, so this guards
	// the classifier as much as this service.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`

	// Burst is the rate limiter's burst allowance.
	Burst int `yaml:"burst" validate:"gt=0"`

	// ClassifierTimeout bounds each remote prediction call.
	ClassifierTimeout time.Duration `yaml:"classifier_timeout" validate:"gt=0"`

	// TraceExporter selects the trace exporter: "stdout" or "none".
	TraceExporter string `yaml:"trace_exporter" validate:"omitempty,oneof=stdout none"`

	// MetricExporter selects the metric exporter: "prometheus",
	// "stdout", or "none".
	MetricExporter string `yaml:"metric_exporter" validate:"omitempty,oneof=prometheus stdout none"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:        ":8092",
		LogLevel:          "info",
		StorePath:         "~/.aleutian/explain/records",
		RecordTTL:         30 * 24 * time.Hour,
		MaxRows:           100000,
		RequestsPerSecond: 2,
		Burst:             5,
		ClassifierTimeout: 30 * time.Second,
		TraceExporter:     "none",
		MetricExporter:    "prometheus",
	}
}

// LoadConfig builds the effective configuration.
//
// Description:
//
//	Starts from DefaultConfig, overlays the YAML file at path when
//	path is non-empty, overlays ALEUTIAN_EXPLAIN_* environment
//	variables, then validates the result.
//
// Inputs:
//
//	path - Optional YAML config file. Empty skips the file layer.
//
// Outputs:
//
//	Config - The validated configuration.
//	error - Non-nil on read, parse, or validation failure.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides overlays ALEUTIAN_EXPLAIN_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALEUTIAN_EXPLAIN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("ALEUTIAN_EXPLAIN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ALEUTIAN_EXPLAIN_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("ALEUTIAN_EXPLAIN_STORE_IN_MEMORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.StoreInMemory = b
		}
	}
	if v := os.Getenv("ALEUTIAN_EXPLAIN_MAX_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRows = n
		}
	}
	if v := os.Getenv("ALEUTIAN_EXPLAIN_CLASSIFIER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ClassifierTimeout = d
		}
	}
}
