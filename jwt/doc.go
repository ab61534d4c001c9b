// Package jwt issues and verifies principal tokens: signed JWTs that carry the
// roles, optional override rights and enabled state the decision engine
// evaluates. Parsed [PrincipalClaims] satisfy goRights.Principal directly.
//
// Tokens are minted by trusted tooling; this package never authenticates
// credentials.
package jwt
