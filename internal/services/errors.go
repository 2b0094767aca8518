// Package services holds the listing business rules: creation and edits,
// the status state machine, soft-delete and restore, image retirement, the
// audit trail, and the read paths used by feeds and moderation.
//
// This file centralizes the service-level error values. Handlers translate
// them into HTTP status codes; nothing below the handler layer should depend
// on transport details.
package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates that the listing does not exist or is hidden from
	// the current actor.
	ErrNotFound = errors.New("listing not found")

	// ErrImageNotFound is returned when an image id does not belong to the
	// target listing.
	ErrImageNotFound = errors.New("image not found")

	// ErrUnauthorized is returned when the actor lacks the role or ownership
	// the operation requires.
	ErrUnauthorized = errors.New("not allowed")

	// ErrInvalidTransition is returned for status changes the state machine
	// does not define, including no-op transitions and operations on
	// soft-deleted listings.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrStorage wraps failures of the image storage backend.
	ErrStorage = errors.New("storage failure")

	// ErrPersistence wraps database and commit failures. Nothing was
	// committed when it is returned, so the call is safe to retry.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError carries field-level messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// orNil returns e when at least one field failed.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

var known = []error{
	ErrNotFound, ErrImageNotFound, ErrUnauthorized, ErrInvalidTransition,
	ErrValidation, ErrStorage, ErrPersistence,
}

// persistErr passes service errors through and wraps anything else as
// ErrPersistence.
func persistErr(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
