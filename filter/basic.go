package filter

import (
	"errors"
	"net/http"
	"sync"

	"github.com/upb/authgate/security"
	"github.com/upb/authgate/userstore"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// unknownUserHash is compared against when there is no usable stored hash,
// so unknown and disabled users cost the same as a wrong password.
var unknownUserHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("authgate-unknown-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return hash
})

// BasicFilter authenticates HTTP Basic credentials against a user store
type BasicFilter struct {
	users   userstore.Store
	compare func(hash, password []byte) error
	logger  *zap.Logger
}

// NewBasicFilter creates a new BasicFilter
func NewBasicFilter(users userstore.Store, logger *zap.Logger) *BasicFilter {
	return &BasicFilter{
		users:   users,
		compare: bcrypt.CompareHashAndPassword,
		logger:  logger,
	}
}

// DoFilter establishes the authentication when the credentials match a stored user.
// Store failures other than an unknown user are returned to the caller.
func (f *BasicFilter) DoFilter(w http.ResponseWriter, r *http.Request, next Chain) error {
	if security.IsAuthenticated(r.Context()) {
		return next.DoFilter(w, r)
	}

	username, password, ok := r.BasicAuth()
	if !ok {
		return next.DoFilter(w, r)
	}

	user, err := f.users.FindByUsername(r.Context(), username)
	switch {
	case errors.Is(err, userstore.ErrUserNotFound):
		_ = f.compare(unknownUserHash(), []byte(password))
		f.logger.Debug("basic auth failed: unknown user", zap.String("username", username))
		return next.DoFilter(w, r)
	case err != nil:
		return err
	case user.Disabled:
		_ = f.compare(unknownUserHash(), []byte(password))
		f.logger.Debug("basic auth failed: user disabled", zap.String("username", username))
		return next.DoFilter(w, r)
	}

	if err := f.compare([]byte(user.PasswordHash), []byte(password)); err != nil {
		f.logger.Debug("basic auth failed: bad credentials", zap.String("username", username))
		return next.DoFilter(w, r)
	}

	ctx := security.WithAuthentication(r.Context(), security.Authenticated(user.Username, user.Authorities...))
	return next.DoFilter(w, r.WithContext(ctx))
}
