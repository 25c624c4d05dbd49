// Package rankerrors defines the typed error taxonomy surfaced at the
// feed-generation boundary (spec §6-7): configuration, storage,
// candidate-pool, and feed-length invariant failures.
package rankerrors

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Use errors.Is against these, never string matching.
var (
	// ErrInvalidConfig is returned when a Config value violates a
	// constraint at construction time.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrInvalidCandidatePool is returned when the Ranker is handed an
	// empty or missing candidate pool for a required condition.
	ErrInvalidCandidatePool = errors.New("invalid candidate pool")

	// ErrUnderlongFeed is returned when the Reranker cannot fill a feed
	// to max_feed_length after business-rule filtering.
	ErrUnderlongFeed = errors.New("underlong feed")
)

// StorageError wraps any failure from a repository or storage adapter
// (ScoresRepository, FeedStorageRepository, FeedTTLAdapter,
// SessionMetadataAdapter). The underlying cause is always preserved via
// Unwrap so callers can still errors.Is/As through it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err as a StorageError tagged with the
// operation that failed. Returns nil if err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// ConfigError reports which field violated its constraint.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
