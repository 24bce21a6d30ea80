// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const statusKeyPrefix = "task:"

// Record is the stored state of one task.
type Record struct {
	TaskID      string          `json:"task_id"`
	Name        string          `json:"name"`
	Status      Status          `json:"status"`
	Args        Args            `json:"args,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	SubmittedAt *time.Time      `json:"submitted_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

// StatusStore keeps task records in BadgerDB. Every write refreshes the
// record's TTL, so finished tasks disappear after the retention window.
type StatusStore struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenStatusStore opens (or creates) the store at path. An empty path keeps
// the records in memory.
func OpenStatusStore(path string, ttl time.Duration) (*StatusStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("create status directory: %w", err)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open status store: %w", err)
	}
	return &StatusStore{db: db, ttl: ttl}, nil
}

// Close releases the underlying database.
func (s *StatusStore) Close() error {
	return s.db.Close()
}

// Get returns the record for id, or ErrTaskNotFound.
func (s *StatusStore) Get(_ context.Context, id string) (*Record, error) {
	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = s.read(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrTaskNotFound
	}
	return rec, nil
}

// MarkPending records t as PENDING. A record that already reached a
// terminal status is left alone: the result may arrive before the
// submission is observed.
func (s *StatusStore) MarkPending(_ context.Context, t *Task) error {
	return s.db.Update(func(txn *badger.Txn) error {
		existing, err := s.read(txn, t.ID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status.Terminal() {
			if existing.SubmittedAt == nil && !t.SubmittedAt.IsZero() {
				submitted := t.SubmittedAt
				existing.SubmittedAt = &submitted
				existing.Args = t.Args
				return s.write(txn, existing)
			}
			return nil
		}

		rec := &Record{
			TaskID: t.ID,
			Name:   t.Name,
			Status: StatusPending,
			Args:   t.Args,
		}
		if !t.SubmittedAt.IsZero() {
			submitted := t.SubmittedAt
			rec.SubmittedAt = &submitted
		}
		return s.write(txn, rec)
	})
}

// Complete records a terminal result, keeping submission details already
// stored.
func (s *StatusStore) Complete(_ context.Context, r *Result) error {
	return s.db.Update(func(txn *badger.Txn) error {
		rec, err := s.read(txn, r.TaskID)
		if err != nil {
			return err
		}
		if rec == nil {
			rec = &Record{TaskID: r.TaskID}
		}
		if r.Name != "" {
			rec.Name = r.Name
		}
		rec.Status = r.Status
		rec.Result = r.Result
		rec.Error = r.Error
		if !r.FinishedAt.IsZero() {
			finished := r.FinishedAt
			rec.FinishedAt = &finished
		}
		return s.write(txn, rec)
	})
}

func (s *StatusStore) read(txn *badger.Txn, id string) (*Record, error) {
	item, err := txn.Get([]byte(statusKeyPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}

	var rec Record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return &rec, nil
}

func (s *StatusStore) write(txn *badger.Txn, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal task record: %w", err)
	}
	entry := badger.NewEntry([]byte(statusKeyPrefix+rec.TaskID), data)
	if s.ttl > 0 {
		entry = entry.WithTTL(s.ttl)
	}
	return txn.SetEntry(entry)
}
