// Package keystoneerr defines the sentinel errors shared across the
// analyzer, its collaborators, and the aggregator library.
package keystoneerr

import "errors"

var (
	// ErrReservedColumn is the error the builder panics with when a
	// caller tries to register a column named "id", which the builder
	// reserves for category-level aggregators.
	ErrReservedColumn = errors.New("keystone: column name \"id\" is reserved")

	// ErrUnknownAggregator is returned by FindAggregator when no
	// aggregator is registered under the requested id. Decoding a state
	// skips unknown aggregator ids silently and does not use it.
	ErrUnknownAggregator = errors.New("keystone: unknown aggregator id")

	// ErrFutureEvent is raised when an event's timestamp is not earlier
	// than the analyzer's clock. This is a programming error and must fail
	// eagerly rather than be swallowed.
	ErrFutureEvent = errors.New("keystone: event timestamp is in the future")

	// ErrDecodeFailed marks a whole-artifact decode failure, which is
	// treated as absence: the caller rebuilds from the backend.
	ErrDecodeFailed = errors.New("keystone: decode failed")
)
