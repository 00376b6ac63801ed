package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/facetdex/internal/domain"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest     ErrorCode = "bad_request"
	CodeInvalidQuery   ErrorCode = "invalid_query"
	CodeUnauthorized   ErrorCode = "unauthorized"
	CodePageNotFound   ErrorCode = "page_not_found"
	CodeEngineNotFound ErrorCode = "engine_not_found"
	CodeNotImplemented ErrorCode = "not_implemented"
	CodeBackendError   ErrorCode = "backend_error"
	CodeInternalError  ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// clientSentinels are the errors whose message may reach the client.
var clientSentinels = []error{
	domain.ErrInvalidQuery,
	domain.ErrMalformedClause,
	domain.ErrClauseCountExceeded,
	domain.ErrResourceScopeEmpty,
	domain.ErrUnknownPage,
	domain.ErrUnknownEngine,
	domain.ErrNotSupported,
	domain.ErrBackendExecution,
}

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery),
		sentinelHandler(domain.ErrMalformedClause, http.StatusBadRequest, CodeInvalidQuery),
		sentinelHandler(domain.ErrClauseCountExceeded, http.StatusBadRequest, CodeInvalidQuery),
		sentinelHandler(domain.ErrResourceScopeEmpty, http.StatusBadRequest, CodeInvalidQuery),
		sentinelHandler(domain.ErrUnknownPage, http.StatusNotFound, CodePageNotFound),
		sentinelHandler(domain.ErrUnknownEngine, http.StatusNotFound, CodeEngineNotFound),
		sentinelHandler(domain.ErrNotSupported, http.StatusNotImplemented, CodeNotImplemented),
		sentinelHandler(domain.ErrBackendExecution, http.StatusBadGateway, CodeBackendError),
	}
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range clientSentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
