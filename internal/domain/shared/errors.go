// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNegativeValue = errors.New("value cannot be negative")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// Infrastructure errors
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrTimeout          = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "account", "badge", "ranking"
	Op      string // Operation that failed, e.g., "ApplyCompletion", "Award"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Account domain errors
var (
	ErrAccountNotFound      = NewDomainError("account", "Find", ErrNotFound, "account not found")
	ErrAccountAlreadyExists = NewDomainError("account", "Create", ErrAlreadyExists, "account already exists")
	ErrInvalidAccountID     = NewDomainError("account", "Validate", ErrInvalidID, "invalid account ID")
)

// Ledger errors. Contention means the bounded optimistic-retry budget was
// exhausted; the caller may retry the whole call.
var (
	ErrNegativePoints = NewDomainError("ledger", "Validate", ErrNegativeValue, "points awarded cannot be negative")
	ErrNegativeDelta  = NewDomainError("ledger", "Validate", ErrNegativeValue, "stat delta cannot be negative")
	ErrContention     = NewDomainError("ledger", "ApplyCompletion", ErrConcurrentModification, "retries exhausted under contention")
	ErrLedgerTimeout  = NewDomainError("ledger", "ApplyCompletion", ErrTimeout, "no commit occurred before deadline")
)

// Badge domain errors
var (
	ErrBadgeNotFound    = NewDomainError("badge", "Find", ErrNotFound, "badge definition not found")
	ErrUnknownCriterion = NewDomainError("badge", "Evaluate", ErrInvalidInput, "unknown criterion type")
	ErrDuplicateAward   = NewDomainError("badge", "Award", ErrAlreadyExists, "badge already awarded")
)

// Ranking domain errors
var (
	ErrAccountNotRanked  = NewDomainError("ranking", "GetRank", ErrNotFound, "account not present in ranking")
	ErrInvalidPageParams = NewDomainError("ranking", "GetPage", ErrInvalidInput, "invalid page parameters")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNegativeValue)
}

// IsTransient reports whether the caller may retry the whole call.
// Permanent errors (not found, validation) never become transient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrStoreUnavailable)
}
