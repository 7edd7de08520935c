package userstore

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/upb/authgate/utils"
	"gopkg.in/yaml.v3"
)

// MemoryStore keeps users in memory
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryStore creates a store holding users
func NewMemoryStore(users ...User) *MemoryStore {
	s := &MemoryStore{users: make(map[string]User, len(users))}
	for _, u := range users {
		s.Put(u)
	}
	return s
}

// InvalidUserError reports the fields that failed validation for one
// record of a users file
type InvalidUserError struct {
	Index  int
	Fields map[string]string
	err    error
}

func (e *InvalidUserError) Error() string {
	return fmt.Sprintf("invalid user at index %d: %v", e.Index, e.err)
}

func (e *InvalidUserError) Unwrap() error {
	return e.err
}

// usersFile is the on-disk layout read by LoadFile
type usersFile struct {
	Users []User `yaml:"users"`
}

// LoadFile reads a YAML users file into a MemoryStore.
//
//	users:
//	  - username: alice
//	    password_hash: $2a$10$...
//	    authorities: [admin]
func LoadFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var file usersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse users file %s: %w", path, err)
	}

	seen := make(map[string]bool, len(file.Users))
	for i := range file.Users {
		if err := utils.ValidateStruct(&file.Users[i]); err != nil {
			return nil, &InvalidUserError{Index: i, Fields: utils.GetValidationFields(err), err: err}
		}
		if seen[file.Users[i].Username] {
			return nil, fmt.Errorf("duplicate user %q", file.Users[i].Username)
		}
		seen[file.Users[i].Username] = true
	}

	return NewMemoryStore(file.Users...), nil
}

// FindByUsername implements Store
func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// Put adds or replaces a user
func (s *MemoryStore) Put(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u
}

// Count returns the number of users
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
