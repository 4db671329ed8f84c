/*
Package errs provides custom error types and application-level error code constants.

These codes identify policy and request errors both in the alias-deny reasons sent over the
chat protocol and in the operator API responses.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Alias Negotiation Errors
const (
	// ErrAliasTaken indicates that another connected user already holds the alias.
	ErrAliasTaken = 2101

	// ErrAliasTooLong indicates that the alias exceeds the maximum alias length.
	ErrAliasTooLong = 2102

	// ErrAliasEmpty indicates that the alias request carried no alias.
	ErrAliasEmpty = 2103

	// ErrAliasInvalid indicates that the alias is not printable UTF-8 text.
	ErrAliasInvalid = 2104

	// ErrAliasExpected indicates that the first packet of a session was not an alias request.
	ErrAliasExpected = 2105

	// ErrServerFull indicates that the server reached its maximum number of users.
	ErrServerFull = 2106
)

// 3xxx: Operator and Session Errors
const (
	// ErrUnauthorized indicates a missing or invalid operator token.
	ErrUnauthorized = 3001

	// ErrUserNotFound indicates that no connected user holds the requested alias.
	ErrUserNotFound = 3002

	// ErrMessageContentTooLong indicates that a message exceeds the maximum payload.
	ErrMessageContentTooLong = 3003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrShuttingDown indicates that the server is stopping and refuses new work.
	ErrShuttingDown = 5001
)
