package filter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/authgate/security"
	"github.com/upb/authgate/userstore"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

// MockStore is a mock implementation of userstore.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindByUsername(ctx context.Context, username string) (*userstore.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userstore.User), args.Error(1)
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestBasicFilter(t *testing.T) {
	store := userstore.NewMemoryStore(
		userstore.User{Username: "alice", PasswordHash: hashPassword(t, "wonderland"), Authorities: []string{"guest"}},
		userstore.User{Username: "root", PasswordHash: hashPassword(t, "toor"), Authorities: []string{"admin"}, Disabled: true},
	)
	f := NewBasicFilter(store, zap.NewNop())

	tests := []struct {
		name          string
		setAuth       func(*http.Request)
		wantPrincipal string
	}{
		{
			name:          "valid credentials",
			setAuth:       func(r *http.Request) { r.SetBasicAuth("alice", "wonderland") },
			wantPrincipal: "alice",
		},
		{
			name:    "wrong password",
			setAuth: func(r *http.Request) { r.SetBasicAuth("alice", "looking-glass") },
		},
		{
			name:    "unknown user",
			setAuth: func(r *http.Request) { r.SetBasicAuth("mallory", "wonderland") },
		},
		{
			name:    "disabled user",
			setAuth: func(r *http.Request) { r.SetBasicAuth("root", "toor") },
		},
		{
			name:    "no credentials",
			setAuth: func(*http.Request) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setAuth(req)

			var (
				auth    security.Authentication
				reached bool
			)
			require.NoError(t, f.DoFilter(httptest.NewRecorder(), req, captureChain(&auth, &reached)))
			assert.True(t, reached)
			assert.Equal(t, tt.wantPrincipal, auth.Principal)
			if tt.wantPrincipal != "" {
				assert.Equal(t, []string{"guest"}, auth.Authorities)
			}
		})
	}
}

func TestBasicFilterStoreFailure(t *testing.T) {
	storeErr := errors.New("connection reset")
	store := new(MockStore)
	store.On("FindByUsername", mock.Anything, "alice").Return(nil, storeErr)
	f := NewBasicFilter(store, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("alice", "wonderland")

	err := f.DoFilter(httptest.NewRecorder(), req, ChainFunc(func(http.ResponseWriter, *http.Request) error {
		t.Fatal("chain should not continue after a store failure")
		return nil
	}))
	assert.ErrorIs(t, err, storeErr)
	store.AssertExpectations(t)
}

func TestBasicFilterSkipsAuthenticatedRequests(t *testing.T) {
	store := new(MockStore)
	f := NewBasicFilter(store, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("alice", "wonderland")
	req = req.WithContext(security.WithAuthentication(req.Context(), security.Authenticated("token-user", "admin")))

	var (
		auth    security.Authentication
		reached bool
	)
	require.NoError(t, f.DoFilter(httptest.NewRecorder(), req, captureChain(&auth, &reached)))
	assert.Equal(t, "token-user", auth.Principal)
	store.AssertNotCalled(t, "FindByUsername")
}

func TestBasicFilterComparesOnEveryPath(t *testing.T) {
	store := userstore.NewMemoryStore(
		userstore.User{Username: "alice", PasswordHash: hashPassword(t, "wonderland"), Authorities: []string{"guest"}},
		userstore.User{Username: "root", PasswordHash: hashPassword(t, "toor"), Authorities: []string{"admin"}, Disabled: true},
	)

	tests := []struct {
		name     string
		username string
		password string
		wantHash func() []byte
	}{
		{name: "wrong password", username: "alice", password: "looking-glass"},
		{name: "unknown user", username: "mallory", password: "wonderland", wantHash: unknownUserHash},
		{name: "disabled user", username: "root", password: "toor", wantHash: unknownUserHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewBasicFilter(store, zap.NewNop())

			var hashes [][]byte
			f.compare = func(hash, password []byte) error {
				hashes = append(hashes, hash)
				return bcrypt.CompareHashAndPassword(hash, password)
			}

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetBasicAuth(tt.username, tt.password)

			var (
				auth    security.Authentication
				reached bool
			)
			require.NoError(t, f.DoFilter(httptest.NewRecorder(), req, captureChain(&auth, &reached)))
			assert.True(t, reached)
			assert.Empty(t, auth.Principal)

			require.Len(t, hashes, 1)
			if tt.wantHash != nil {
				assert.Equal(t, tt.wantHash(), hashes[0])
			}
		})
	}

	t.Run("unknown user hash uses the default cost", func(t *testing.T) {
		cost, err := bcrypt.Cost(unknownUserHash())
		require.NoError(t, err)
		assert.Equal(t, bcrypt.DefaultCost, cost)
	})
}

func TestBasicFilterLogsRejectionsAtDebug(t *testing.T) {
	store := userstore.NewMemoryStore(
		userstore.User{Username: "alice", PasswordHash: hashPassword(t, "wonderland")},
	)
	core, logs := observer.New(zapcore.DebugLevel)
	f := NewBasicFilter(store, zap.New(core))

	for _, user := range []string{"alice", "mallory"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.SetBasicAuth(user, "wrong")
		require.NoError(t, f.DoFilter(httptest.NewRecorder(), req, ChainFunc(func(http.ResponseWriter, *http.Request) error {
			return nil
		})))
	}

	assert.Equal(t, 0, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.DebugLevel).Len())
}
