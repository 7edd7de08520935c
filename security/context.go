package security

import (
	"context"
)

// Context key type to avoid collisions
type contextKey string

const authenticationKey contextKey = "authentication"

// Authentication is the outcome of a successful credential check.
// An Authentication missing from the context means the request is unauthenticated.
type Authentication struct {
	Principal   string
	Authorities []string
}

// Authenticated builds an Authentication for principal with the given authorities
func Authenticated(principal string, authorities ...string) Authentication {
	return Authentication{
		Principal:   principal,
		Authorities: authorities,
	}
}

// FirstGranted returns the first of the granted authorities, in grant order,
// that appears in roles
func (a Authentication) FirstGranted(roles []string) (string, bool) {
	for _, granted := range a.Authorities {
		for _, role := range roles {
			if granted == role {
				return granted, true
			}
		}
	}
	return "", false
}

// WithAuthentication adds the authentication result to the context
func WithAuthentication(ctx context.Context, auth Authentication) context.Context {
	return context.WithValue(ctx, authenticationKey, auth)
}

// FromContext retrieves the authentication result from the context.
// The boolean is false when no filter authenticated the request.
func FromContext(ctx context.Context) (Authentication, bool) {
	if val := ctx.Value(authenticationKey); val != nil {
		if auth, ok := val.(Authentication); ok {
			return auth, true
		}
	}
	return Authentication{}, false
}

// IsAuthenticated reports whether the context carries an authentication result
func IsAuthenticated(ctx context.Context) bool {
	_, ok := FromContext(ctx)
	return ok
}
