/*
Package user contains the public representation of a connected chat participant.

It is the view of a registered user that is safe to log and to return from the operator API:
it carries no connection handle and the peer address is already anonymized.
*/
package user

import "time"

// User represents the identity information of an alias-confirmed participant.
type User struct {

	// ID is the session identifier assigned when the connection was accepted.
	ID string `json:"id"`

	// Alias is the unique display name the participant negotiated.
	Alias string `json:"alias"`

	// ConnectedAt is the time the connection was accepted.
	ConnectedAt time.Time `json:"connectedAt"`

	// Address is the anonymized peer network address.
	Address string `json:"address"`

	// Transport names the carrier of the session ("tcp" or "websocket").
	Transport string `json:"transport"`
}
