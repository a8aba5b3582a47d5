// Package errors provides the typed failures of the export pipeline.
//
// Every stage of an export reports failure through an *Error carrying a
// machine-readable Code, so callers can branch on the kind of failure
// without string matching:
//
//	res, err := exporter.Export(ctx, req)
//	if errors.Is(err, errors.ErrCodeCapture) {
//	    // the content could not be rasterized
//	}
//
// Codes:
//   - INVALID_INPUT: the request is malformed (quality, scale, content ref)
//   - CAPTURE_FAILED: the subtree is missing, has zero area, or the renderer failed
//   - GEOMETRY_INVALID: raster or page dimensions are degenerate
//   - ASSEMBLY_FAILED: encoding, serialization, verification or saving failed
//   - BUSY: the same content is already being exported
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

const (
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeCapture      Code = "CAPTURE_FAILED"
	ErrCodeGeometry     Code = "GEOMETRY_INVALID"
	ErrCodeAssembly     Code = "ASSEMBLY_FAILED"
	ErrCodeBusy         Code = "BUSY"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// The outermost *Error in the chain decides.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCapture reports whether err is a CaptureError.
func IsCapture(err error) bool { return Is(err, ErrCodeCapture) }

// IsGeometry reports whether err is a GeometryError.
func IsGeometry(err error) bool { return Is(err, ErrCodeGeometry) }

// IsAssembly reports whether err is an AssemblyError.
func IsAssembly(err error) bool { return Is(err, ErrCodeAssembly) }
