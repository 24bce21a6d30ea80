// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package tasks

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
)

// Task names.
const (
	TaskImportMovie       = "catalog.import_movie"
	TaskCrawlPopular      = "catalog.crawl_popular"
	TaskRefreshOldest     = "catalog.refresh_oldest"
	TaskRefreshMovieStats = "catalog.refresh_movie_stats"
)

// Argument keys.
const (
	ArgTMDBID    = "tmdb_id"
	ArgStartPage = "start_page"
	ArgEndPage   = "end_page"
	ArgBatchSize = "batch_size"
)

// metadataTaskName carries the task name on the message so consumers can
// route without decoding the payload.
const metadataTaskName = "task_name"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// Args are the named integer arguments of a task.
type Args map[string]int64

// Int returns the argument and whether it was present.
func (a Args) Int(key string) (int64, bool) {
	v, ok := a[key]
	return v, ok
}

// Task is the envelope published on the tasks topic.
type Task struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Args        Args      `json:"args"`
	SubmittedAt time.Time `json:"submitted_at"`
	Source      string    `json:"source,omitempty"`
}

// Result is published on the results topic once a worker finishes a task.
type Result struct {
	TaskID     string          `json:"task_id"`
	Name       string          `json:"name"`
	Status     Status          `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Handle is what a submitter gets back.
type Handle struct {
	TaskID string `json:"task_id"`
	Status Status `json:"status"`
}

// KnownTask reports whether name is one of the registered task names.
func KnownTask(name string) bool {
	_, ok := requiredArgs[name]
	return ok
}

// Names returns all task names.
func Names() []string {
	return []string{TaskImportMovie, TaskCrawlPopular, TaskRefreshOldest, TaskRefreshMovieStats}
}

var requiredArgs = map[string][]string{
	TaskImportMovie:       {ArgTMDBID},
	TaskCrawlPopular:      {ArgStartPage, ArgEndPage},
	TaskRefreshOldest:     {},
	TaskRefreshMovieStats: {ArgTMDBID},
}

// ValidateArgs checks name and its arguments before anything is published,
// so malformed tasks fail at the submitter instead of on a worker.
func ValidateArgs(name string, args Args) error {
	required, ok := requiredArgs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}
	for _, key := range required {
		if _, ok := args[key]; !ok {
			return fmt.Errorf("%w: %s requires %s", ErrInvalidArgs, name, key)
		}
	}

	switch name {
	case TaskImportMovie, TaskRefreshMovieStats:
		if args[ArgTMDBID] <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidArgs, ArgTMDBID)
		}
	case TaskCrawlPopular:
		start, end := args[ArgStartPage], args[ArgEndPage]
		if start < 1 || end < start {
			return fmt.Errorf("%w: page range %d..%d", ErrInvalidArgs, start, end)
		}
	case TaskRefreshOldest:
		if b, ok := args[ArgBatchSize]; ok && b < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidArgs, ArgBatchSize)
		}
	}
	return nil
}

func encodeTask(t *Task) (*message.Message, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	msg := message.NewMessage(t.ID, data)
	msg.Metadata.Set(metadataTaskName, t.Name)
	return msg, nil
}

func decodeTask(msg *message.Message) (*Task, error) {
	var t Task
	if err := json.Unmarshal(msg.Payload, &t); err != nil {
		return nil, fmt.Errorf("unmarshal task %s: %w", msg.UUID, err)
	}
	if t.ID == "" {
		t.ID = msg.UUID
	}
	if t.Name == "" {
		t.Name = msg.Metadata.Get(metadataTaskName)
	}
	return &t, nil
}

func encodeResult(r *Result) (*message.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	// The result gets its own message id; JetStream deduplicates on it.
	msg := message.NewMessage(r.TaskID+":result", data)
	msg.Metadata.Set(metadataTaskName, r.Name)
	return msg, nil
}

func decodeResult(msg *message.Message) (*Result, error) {
	var r Result
	if err := json.Unmarshal(msg.Payload, &r); err != nil {
		return nil, fmt.Errorf("unmarshal result %s: %w", msg.UUID, err)
	}
	if r.TaskID == "" {
		return nil, fmt.Errorf("result %s has no task id", msg.UUID)
	}
	return &r, nil
}
