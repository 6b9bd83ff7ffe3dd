// Package identity reads the caller that the gateway authenticated.
package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/appetiteclub/apt"
)

const (
	HeaderUserID       = "X-User-ID"
	HeaderUserName     = "X-User-Name"
	HeaderUserPostcode = "X-User-Postcode"
)

type contextKey string

const contextKeyUser contextKey = "user"

// User is the opaque identity issued by the identity provider.
type User struct {
	ID       string
	Name     string
	Postcode string
}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, contextKeyUser, u)
}

// FromContext returns the caller, ok is false for anonymous requests.
func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(contextKeyUser).(User)
	if !ok || u.ID == "" {
		return User{}, false
	}
	return u, true
}

// Middleware puts the forwarded identity headers into the request context.
// Requests without a user id pass through anonymous.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		u := User{
			ID:       id,
			Name:     strings.TrimSpace(r.Header.Get(HeaderUserName)),
			Postcode: strings.TrimSpace(r.Header.Get(HeaderUserPostcode)),
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// Require responds 401 and returns false when the request carries no user.
func Require(w http.ResponseWriter, r *http.Request) (User, bool) {
	u, ok := FromContext(r.Context())
	if !ok {
		apt.RespondError(w, http.StatusUnauthorized, "Authentication required")
		return User{}, false
	}
	return u, true
}
