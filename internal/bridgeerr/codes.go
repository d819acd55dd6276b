// Package bridgeerr defines the error taxonomy returned to host applications.
package bridgeerr

import "net/http"

// Code is a stable, machine-readable error code hosts can branch on.
type Code string

const (
	CodeInvalidArguments  Code = "INVALID_ARGUMENTS"
	CodeNotInitialized    Code = "NOT_INITIALIZED"
	CodeNotFound          Code = "NOT_FOUND"
	CodeSDKError          Code = "SDK_ERROR"
	CodeSDKUnavailable    Code = "SDK_UNAVAILABLE"
	CodeAlreadyInProgress Code = "ALREADY_IN_PROGRESS"
	CodeNotImplemented    Code = "NOT_IMPLEMENTED"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeUnexpected        Code = "UNEXPECTED"

	// CodeAlreadyResolved flags a vendor callback that fired twice for the
	// same attempt. Only the native side delivering the duplicate sees it.
	CodeAlreadyResolved Code = "ALREADY_RESOLVED"
)

// HTTPStatus maps a code to the status used by the loopback transport.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArguments:
		return http.StatusBadRequest
	case CodeNotInitialized:
		return http.StatusPreconditionFailed
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyInProgress:
		return http.StatusConflict
	case CodeSDKError:
		return http.StatusBadGateway
	case CodeSDKUnavailable:
		return http.StatusServiceUnavailable
	case CodeNotImplemented:
		return http.StatusNotImplemented
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
