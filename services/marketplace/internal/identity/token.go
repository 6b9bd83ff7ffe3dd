package identity

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/auth"
)

// Token context keys carrying the display fields of the caller.
const (
	ClaimName     = "name"
	ClaimPostcode = "postcode"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier checks PASETO bearer tokens issued by the identity provider
// for one audience.
type TokenVerifier struct {
	publicKey ed25519.PublicKey
	audience  string
	now       func() time.Time
}

func NewTokenVerifier(publicKey ed25519.PublicKey, audience string) *TokenVerifier {
	return &TokenVerifier{
		publicKey: publicKey,
		audience:  audience,
		now:       time.Now,
	}
}

// ParsePublicKey decodes a base64 ed25519 public key, padded or raw URL form.
func ParsePublicKey(encoded string) (ed25519.PublicKey, error) {
	encoded = strings.TrimSpace(encoded)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key has %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// Verify returns the caller carried by token.
func (v *TokenVerifier) Verify(token string) (User, error) {
	claims, err := auth.VerifyPASETOToken(token, v.publicKey)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if problems := auth.ValidateTokenForService(*claims, v.audience, v.now()); problems.HasErrors() {
		return User{}, fmt.Errorf("%w: %s", ErrInvalidToken, problems.Error())
	}

	return User{
		ID:       claims.Subject,
		Name:     claims.Context[ClaimName],
		Postcode: claims.Context[ClaimPostcode],
	}, nil
}

// TokenMiddleware reads the caller from the Authorization bearer token.
// Forwarded identity headers are dropped, requests without a token pass
// through anonymous and a bad token is answered with 401.
func TokenMiddleware(v *TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Del(HeaderUserID)
			r.Header.Del(HeaderUserName)
			r.Header.Del(HeaderUserPostcode)

			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			u, err := v.Verify(token)
			if err != nil {
				apt.RespondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
