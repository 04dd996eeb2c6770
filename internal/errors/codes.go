// Package errors provides the stable error kinds surfaced by the game engine.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeNotFound is returned for an unknown player id.
	CodeNotFound Code = "NOT_FOUND"
	// CodeInvalidState is returned when the loop or session state disallows the operation.
	CodeInvalidState Code = "INVALID_STATE"
	// CodeValidation is returned for a malformed choice reference.
	CodeValidation Code = "VALIDATION_ERROR"

	// Narrative collaborator errors
	CodeUpstream        Code = "UPSTREAM_ERROR"
	CodeUpstreamTimeout Code = "UPSTREAM_TIMEOUT"

	// CodePersistence is returned when the snapshot store fails.
	CodePersistence Code = "PERSISTENCE_ERROR"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState:
		return http.StatusConflict
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a caller may retry the same operation later.
func (c Code) Retryable() bool {
	switch c {
	case CodeUpstream, CodeUpstreamTimeout, CodePersistence:
		return true
	default:
		return false
	}
}
