// Package filter provides the authentication filter chain consumed by the
// authorization gate.
//
// Filters establish a security.Authentication on the request context and
// hand the request on. They never decide authorization themselves:
//   - BearerFilter reads HS256 JWTs from the Authorization header
//   - BasicFilter checks HTTP Basic credentials against a user store
//
// A request that no filter could authenticate still reaches the end of the
// chain, where the gate denies it.
package filter
