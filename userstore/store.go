package userstore

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrUserNotFound is returned when no user matches the username
	ErrUserNotFound = errors.New("user not found")
)

// User is a set of credentials with its granted authorities
type User struct {
	Username     string   `yaml:"username" validate:"required"`
	PasswordHash string   `yaml:"password_hash" validate:"required"`
	Authorities  []string `yaml:"authorities" validate:"dive,required"`
	Disabled     bool     `yaml:"disabled"`
}

// Store looks up users by name
type Store interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
}

// splitAuthorities parses a comma separated authority list
func splitAuthorities(value string) []string {
	authorities := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			authorities = append(authorities, part)
		}
	}
	return authorities
}
