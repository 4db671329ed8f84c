package jwt

import "github.com/golang-jwt/jwt"

// RoleOperator is the only role allowed to use the operator API.
const RoleOperator = "operator"

// Payload defines the claims of an operator bearer token.
type Payload struct {
	// StandardClaims carries expiry, issue time and issuer.
	jwt.StandardClaims `json:"standard_claims"`

	// Name identifies the operator in logs.
	Name string `json:"name"`

	// Role must be RoleOperator for the token to be accepted by the operator API.
	Role string `json:"role"`
}
