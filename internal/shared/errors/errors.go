// Package errors holds the sentinel errors shared across modules.
// Callers wrap them with oops for context and match them with errors.Is.
package errors

import "errors"

var (
	// ErrQuotaExceeded is reported when a charge would cross the daily ceiling
	// or when the upstream rejects a credential for budget reasons.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrAllCredentialsExhausted is terminal for the current run.
	ErrAllCredentialsExhausted = errors.New("all credentials exhausted")

	ErrUpstreamTransient = errors.New("transient upstream error")
	ErrMalformedResponse = errors.New("malformed upstream response")
	ErrNoData            = errors.New("no usable data")

	// ErrStorage marks failures of the persistent stores; they end the run.
	ErrStorage = errors.New("storage failure")

	ErrAlreadyRecorded  = errors.New("channel already recorded")
	ErrChannelNotFound  = errors.New("channel not found")
	ErrInvalidChannelID = errors.New("invalid channel id")

	ErrSubscriberNotFound = errors.New("subscriber not found")

	ErrNoCredentials = errors.New("at least one youtube api key is required")
	ErrInvalidConfig = errors.New("invalid configuration")
)
