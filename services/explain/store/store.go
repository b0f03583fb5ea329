// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists explanation records in BadgerDB.
//
// BadgerDB gives low-latency embedded storage with no external
// service, which fits the single-node deployment model. Records are
// JSON values under a fixed key prefix, optionally expiring via
// Badger's native TTL.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned by Get when no record has the given ID.
var ErrNotFound = errors.New("record not found")

// keyPrefix namespaces record keys inside the database.
const keyPrefix = "explain/record/"

// Config holds configuration for the record store.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// TTL is how long records live before Badger expires them.
	// Zero keeps records forever.
	TTL time.Duration

	// Logger receives BadgerDB's internal log output. If nil,
	// Badger's logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults: durable writes and a
// 30-day record TTL.
func DefaultConfig() Config {
	return Config{
		SyncWrites: true,
		TTL:        30 * 24 * time.Hour,
	}
}

// InMemoryConfig returns a configuration for testing: in-memory, no
// sync, no expiry.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is a BadgerDB-backed record store.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Open creates and opens a record store.
//
// Description:
//
//	Opens a BadgerDB database at the configured path, or in memory
//	when InMemory is set. Creates the directory if it doesn't exist.
//
// Inputs:
//
//	cfg - Store configuration. Path is required unless InMemory is true.
//
// Outputs:
//
//	*Store - The opened store. Caller must call Close() when done.
//	error - Non-nil if the path is invalid or the database cannot open.
//
// Thread Safety: The returned *Store is safe for concurrent use.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	return &Store{db: db, ttl: cfg.TTL}, nil
}

// Close closes the underlying database. Safe to call once.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put persists a record under its ID.
//
// Inputs:
//
//	ctx - Context for cancellation (checked before the transaction).
//	record - The record to persist. Must have a non-empty ID.
//
// Outputs:
//
//	error - Non-nil on encode or transaction failure.
func (s *Store) Put(ctx context.Context, record *Record) error {
	if record == nil {
		return errors.New("record must not be nil")
	}
	if record.ID == "" {
		return errors.New("record ID must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", record.ID, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(keyPrefix+record.ID), payload)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Get loads the record with the given ID.
//
// Outputs:
//
//	*Record - The stored record.
//	error - ErrNotFound when no record has the ID; other errors on
//	        decode or transaction failure.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	var record Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns up to limit records, newest first.
//
// Inputs:
//
//	ctx - Context for cancellation (checked before the scan).
//	limit - Maximum records to return. Non-positive means no limit.
//
// Outputs:
//
//	[]*Record - Records sorted by CreatedAt descending.
//	error - Non-nil on decode or transaction failure.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	var records []*Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var record Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			records = append(records, &record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
