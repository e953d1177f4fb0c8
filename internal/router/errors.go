// Package router implements the channel manager: per-session routing
// state, manual switches, and automatic failover over the fallback chain.
package router

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAllChannelsExhausted indicates the fallback chain was fully walked
	// without a successful send. Fatal to the send; surfaced to the caller.
	ErrAllChannelsExhausted = errors.New("all channels exhausted")

	// ErrSessionNotFound indicates an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnknownChannel indicates a target channel that is not registered.
	ErrUnknownChannel = errors.New("unknown channel")
)

// ExhaustedError carries the user-facing apology and retry estimate
// required when every channel in the chain has failed.
type ExhaustedError struct {
	Apology    string
	RetryAfter time.Duration
	LastErr    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all channels exhausted (retry in %s): %v", e.RetryAfter, e.LastErr)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrAllChannelsExhausted, e.LastErr}
}

func newExhaustedError(retryAfter time.Duration, lastErr error) *ExhaustedError {
	return &ExhaustedError{
		Apology:    "We're sorry, none of our assistants can respond right now. Please try again shortly.",
		RetryAfter: retryAfter,
		LastErr:    lastErr,
	}
}
