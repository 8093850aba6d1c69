package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthCookie is the cookie carrying the session token
const AuthCookie = "auth-token"

// userIDClaim names the JWT claim holding the owner's ID
const userIDClaim = "userId"

type ctxKey string

const ownerKey ctxKey = "owner"

var errUnauthenticated = errors.New("missing or invalid auth token")

// Authenticator verifies HS256 tokens and extracts the owner they name
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an Authenticator for the shared secret
func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{secret: secret}
}

// SignToken issues a token naming userID that expires after ttl
func SignToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIDClaim: userID,
		"exp":       time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}

// Owner returns the user ID named by the request's token. The cookie takes
// precedence over the Authorization header.
func (a *Authenticator) Owner(r *http.Request) (string, error) {
	raw := ""
	if c, err := r.Cookie(AuthCookie); err == nil {
		raw = c.Value
	} else if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		raw = strings.TrimPrefix(h, "Bearer ")
	}
	if raw == "" {
		return "", errUnauthenticated
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errUnauthenticated
	}
	// owners name storage path segments, so they cannot contain a slash
	owner, ok := claims[userIDClaim].(string)
	if !ok || owner == "" || strings.Contains(owner, "/") {
		return "", errUnauthenticated
	}
	return owner, nil
}

// withOwner stores the authenticated owner on ctx
func withOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// OwnerFromContext returns the owner set by the auth middleware
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey).(string)
	return owner, ok && owner != ""
}
