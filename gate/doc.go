// Package gate decides, per request, whether an authenticated caller holds
// one of the roles allowed for an endpoint.
//
// Authentication is not performed here. The gate runs an accepted
// filter.Filter and performs the role check as the filter's terminal step,
// so it only observes requests the filter chose to pass on. On success the
// principal name is attached to the request's Exchange and can be emitted as
// PrincipalHeader for downstream handlers.
package gate
