// Package middleware adapts the decision engine to net/http.
//
// # Handlers
//
//   - [Authenticate] verifies an `Authorization: Bearer` principal token and
//     stores the principal in the request context.
//   - [Require] answers 403 unless the context principal is granted one
//     action on one resource.
//   - [RequireAny] answers 403 unless any of several actions is granted.
//
// A missing or invalid token leaves the request anonymous rather than
// rejecting it; the voter then denies every protected route. Decisions never
// fail, so these handlers never answer 500.
package middleware
