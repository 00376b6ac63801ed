package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals a query that cannot be built (bad pagination, bad sort).
	ErrInvalidQuery = errors.New("invalid query")
	// ErrMalformedClause signals a filter or date row that fails validation.
	ErrMalformedClause = errors.New("malformed clause")
	// ErrResourceScopeEmpty signals that no requested resource type is searchable.
	ErrResourceScopeEmpty = errors.New("resource scope empty")
	// ErrBackendExecution signals that the backend rejected or failed a compiled request.
	ErrBackendExecution = errors.New("backend execution failed")
	// ErrClauseCountExceeded signals more compiled clauses than the backend accepts.
	ErrClauseCountExceeded = errors.New("clause count exceeded")
	// ErrUnknownEngine signals a reference to an engine that is not configured.
	ErrUnknownEngine = errors.New("unknown engine")
	// ErrUnknownPage signals a reference to a search page that is not configured.
	ErrUnknownPage = errors.New("unknown search page")
	// ErrNotSupported signals a clause the selected backend cannot express.
	ErrNotSupported = errors.New("not supported by backend")
)

// ClauseKind tells which row family a ClauseError came from.
type ClauseKind string

// Row families.
const (
	ClauseProperty ClauseKind = "property"
	ClauseDateTime ClauseKind = "datetime"
	ClauseFacet    ClauseKind = "facet"
)

// ClauseError wraps ErrMalformedClause with the offending row.
type ClauseError struct {
	Kind   ClauseKind
	Field  string
	Raw    string
	Reason string
}

func (e *ClauseError) Error() string {
	msg := fmt.Sprintf("%s: %s row", ErrMalformedClause.Error(), e.Kind)
	if e.Field != "" {
		msg += fmt.Sprintf(" on %q", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Raw != "" {
		msg += fmt.Sprintf(" (%q)", e.Raw)
	}
	return msg
}

func (e *ClauseError) Unwrap() error { return ErrMalformedClause }

// NewClauseError creates a malformed clause error.
func NewClauseError(kind ClauseKind, field, raw, reason string) error {
	return &ClauseError{Kind: kind, Field: field, Raw: raw, Reason: reason}
}
