// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// AccountID represents a unique account identifier (UUID format).
type AccountID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the account ID is a valid UUID.
func (a AccountID) IsValid() bool {
	return uuidRegex.MatchString(string(a))
}

// String returns the string representation.
func (a AccountID) String() string {
	return string(a)
}

// IsEmpty checks if the ID is empty.
func (a AccountID) IsEmpty() bool {
	return a == ""
}

// Validate returns ErrInvalidAccountID if the ID is not a valid UUID.
func (a AccountID) Validate() error {
	if !a.IsValid() {
		return ErrInvalidAccountID
	}
	return nil
}

// NewAccountID creates a new AccountID with validation.
func NewAccountID(id string) (AccountID, error) {
	aid := AccountID(strings.ToLower(strings.TrimSpace(id)))
	if !aid.IsValid() {
		return "", ErrInvalidAccountID
	}
	return aid, nil
}

// BadgeID represents a unique badge identifier.
type BadgeID string

// Badge ID format: lowercase words joined by underscores (e.g., "first_unit").
var badgeIDRegex = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)

// IsValid checks if the badge ID format is valid.
func (b BadgeID) IsValid() bool {
	s := string(b)
	return len(s) >= 3 && len(s) <= 50 && badgeIDRegex.MatchString(s)
}

// String returns the string representation.
func (b BadgeID) String() string {
	return string(b)
}

// Validate returns a validation error if the badge ID format is wrong.
func (b BadgeID) Validate() error {
	if !b.IsValid() {
		return NewDomainError("shared", "validate", ErrValidation,
			"badge id must be 3-50 lowercase snake_case chars")
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents offset/limit paging parameters for ranking reads.
type Pagination struct {
	Offset int
	Limit  int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps the parameters into their valid ranges.
func (p Pagination) Normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

// Validate rejects parameters that cannot be normalized meaningfully.
func (p Pagination) Validate() error {
	if p.Offset < 0 || p.Limit < 0 {
		return ErrInvalidPageParams
	}
	return nil
}
