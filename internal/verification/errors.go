package verification

import "errors"

var (
	// ErrNotFound is returned when no pair exists for an ID
	ErrNotFound = errors.New("document pair not found")
	// ErrIncomplete is returned when a pair lacks extracted data for one side
	ErrIncomplete = errors.New("document pair is missing extracted data")
	// ErrNotCompared is returned when verifying a pair that was never compared
	ErrNotCompared = errors.New("document pair has not been compared")
	// ErrInvalidInput is returned for malformed client input
	ErrInvalidInput = errors.New("invalid input")
)
