package bridgeerr

import (
	"errors"
	"fmt"
)

// Error is the structured error every command failure is reported as.
type Error struct {
	Code    Code           // Machine-readable error code
	Message string         // Human-readable message
	Details map[string]any // Optional structured context for the host
	Cause   error          // Wrapped underlying error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Map renders the error in the {code, message, details} shape sent to hosts.
func (e *Error) Map() map[string]any {
	out := map[string]any{
		"code":    string(e.Code),
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		out["details"] = e.Details
	}
	return out
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func InvalidArguments(format string, args ...any) *Error {
	return Newf(CodeInvalidArguments, format, args...)
}

func NotInitialized() *Error {
	return New(CodeNotInitialized, "SDK not initialized, call init first")
}

func NotFound(kind, id string) *Error {
	return Newf(CodeNotFound, "%s %q not found", kind, id).
		WithDetails(map[string]any{"kind": kind, "id": id})
}

func SDK(message string, cause error) *Error {
	return Wrap(CodeSDKError, message, cause)
}

func SDKUnavailable(cause error) *Error {
	return Wrap(CodeSDKUnavailable, "payment SDK is not available", cause)
}

func AlreadyInProgress(kind, id string) *Error {
	return Newf(CodeAlreadyInProgress, "payment already in progress for %s %q", kind, id).
		WithDetails(map[string]any{"kind": kind, "id": id})
}

func NotImplemented(command string) *Error {
	return Newf(CodeNotImplemented, "command %q is not implemented", command)
}

func Unexpected(cause error) *Error {
	return Wrap(CodeUnexpected, "unexpected error", cause)
}

// From normalizes any error into an *Error. Foreign errors become UNEXPECTED.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	return Unexpected(err)
}

// CodeOf returns the code carried by err, or CodeUnexpected.
func CodeOf(err error) Code {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeUnexpected
}
