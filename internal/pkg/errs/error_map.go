/*
Package errs provides custom error types and application-level error code constants.

This file maps every code to its CustomError template. For alias errors the Message is the
exact reason text carried by the deny packet.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Alias Negotiation Errors
	ErrAliasTaken:    {Code: ErrAliasTaken, Message: "alias taken", Status: http.StatusConflict},
	ErrAliasTooLong:  {Code: ErrAliasTooLong, Message: "alias too long"},
	ErrAliasEmpty:    {Code: ErrAliasEmpty, Message: "alias empty"},
	ErrAliasInvalid:  {Code: ErrAliasInvalid, Message: "alias invalid"},
	ErrAliasExpected: {Code: ErrAliasExpected, Message: "alias request expected"},
	ErrServerFull:    {Code: ErrServerFull, Message: "server is full", Status: http.StatusServiceUnavailable},

	// 3xxx: Operator and Session Errors
	ErrUnauthorized:          {Code: ErrUnauthorized, Message: "Operator token required.", Status: http.StatusUnauthorized},
	ErrUserNotFound:          {Code: ErrUserNotFound, Message: "No connected user with alias %q.", Status: http.StatusNotFound},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},

	// 5xxx: Internal System Errors
	ErrUnknown:      {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrShuttingDown: {Code: ErrShuttingDown, Message: "server is shutting down", Status: http.StatusServiceUnavailable},
}
