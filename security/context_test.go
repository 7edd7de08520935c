package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	t.Run("empty context is unauthenticated", func(t *testing.T) {
		auth, ok := FromContext(context.Background())
		assert.False(t, ok)
		assert.Empty(t, auth.Principal)
		assert.False(t, IsAuthenticated(context.Background()))
	})

	t.Run("authentication round trips through context", func(t *testing.T) {
		ctx := WithAuthentication(context.Background(), Authenticated("alice", "guest", "admin"))

		auth, ok := FromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, "alice", auth.Principal)
		assert.Equal(t, []string{"guest", "admin"}, auth.Authorities)
		assert.True(t, IsAuthenticated(ctx))
	})

	t.Run("foreign value under another key is ignored", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), "authentication", "alice")

		_, ok := FromContext(ctx)
		assert.False(t, ok)
	})
}

func TestFirstGranted(t *testing.T) {
	auth := Authenticated("bob", "auditor", "guest", "admin")

	granted, ok := auth.FirstGranted([]string{"admin", "guest"})
	assert.True(t, ok)
	assert.Equal(t, "guest", granted)

	_, ok = auth.FirstGranted([]string{"root"})
	assert.False(t, ok)

	_, ok = auth.FirstGranted(nil)
	assert.False(t, ok)

	_, ok = Authentication{}.FirstGranted([]string{""})
	assert.False(t, ok)
}
