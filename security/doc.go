// Package security carries the per-request security context.
//
// An authentication filter establishes the Authentication on the request's
// context.Context once credentials have been verified. Everything after the
// filter only reads it:
//   - the authorization gate checks granted authorities against allowed roles
//   - handlers can look up the principal for auditing
//
// The context is owned by the request. Nothing in this package is global.
package security
