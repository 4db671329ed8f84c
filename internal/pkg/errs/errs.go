/*
Package errs provides custom error types and application-level error code constants.

This file defines CustomError, which carries a business code, a peer-facing message and the
HTTP status used when the error is reported through the operator API.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Quote121/threaded-sockets/internal/pkg/logx"
)

// CustomError is the error structure shared by the chat protocol and the operator API.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the peer-facing error description.
	Message string

	// Status is the HTTP status code corresponding to this error.
	Status int
}

// Error implements the error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Is matches any CustomError with the same code, so errors.Is works against templates
// built with NewError.
func (e *CustomError) Is(target error) bool {
	var other *CustomError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewError builds a *CustomError from a predefined code. The optional details are printf
// arguments for templates that contain a verb. Unknown codes fall back to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &CustomError{
			Code:    unknownErr.Code,
			Message: unknownErr.Message,
			Status:  unknownErr.Status,
		}
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusBadRequest
	}

	if code == ErrUnknown && len(details) > 0 {
		if originalErr, ok := details[0].(error); ok {
			logx.Error(
				originalErr,
				"Handling ErrUnknown with underlying error",
			)
		}
	} else if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
				"code", code,
			)
		}
	}

	return &customErr
}

// Reason returns the peer-facing message for code.
func Reason(code int) string {
	return NewError(code).Message
}
