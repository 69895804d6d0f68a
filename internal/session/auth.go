package session

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/obinexus/polycall-core/internal/corectx"
)

// Claims is the token payload verified during the session's AUTH state.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string   `json:"sid"`
	Scopes    []string `json:"scopes"`
}

// TokenVerifier validates AUTH-state bearer tokens against an HMAC secret
// (teacher idiom: `internal/controlplane/api/auth/jwt_service.go`'s
// HS256-signed RegisteredClaims, narrowed here to verification only — the
// runtime consumes tokens minted by an external identity provider, it does
// not issue them).
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier constructs a TokenVerifier. secret must be at least 32
// bytes, matching the teacher's HMAC key-length floor.
func NewTokenVerifier(secret, issuer string) (*TokenVerifier, error) {
	if len(secret) < 32 {
		return nil, corectx.New("session", corectx.CodeInvalidParameter, "JWT secret must be at least 32 characters")
	}
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}, nil
}

// Verify parses and validates tokenString, returning its claims.
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, corectx.NewWithCause("session", corectx.CodePermissionDenied, "token expired", err)
		}
		return nil, corectx.NewWithCause("session", corectx.CodePermissionDenied, "invalid token", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, corectx.New("session", corectx.CodePermissionDenied, "invalid token")
	}
	return claims, nil
}
