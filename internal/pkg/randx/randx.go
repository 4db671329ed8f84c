/*
Package randx provides generators for unique identifiers.

Sessions are identified by UUID v4 strings from the moment their connection is accepted,
long before an alias exists for them.
*/
package randx

import (
	"github.com/google/uuid"
)

// SessionID generates a UUID v4 string identifying one accepted connection.
func SessionID() string {
	return uuid.New().String()
}

