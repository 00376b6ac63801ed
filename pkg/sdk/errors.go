package facetdex

import "github.com/kailas-cloud/facetdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery        = domain.ErrInvalidQuery
	ErrMalformedClause     = domain.ErrMalformedClause
	ErrResourceScopeEmpty  = domain.ErrResourceScopeEmpty
	ErrBackendExecution    = domain.ErrBackendExecution
	ErrClauseCountExceeded = domain.ErrClauseCountExceeded
	ErrUnknownEngine       = domain.ErrUnknownEngine
	ErrUnknownPage         = domain.ErrUnknownPage
	ErrNotSupported        = domain.ErrNotSupported
)
