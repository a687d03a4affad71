// Package jwtauth validates and issues the bearer credentials accepted by the
// identity resolver. The token subject is the canonical principal UUID; no
// other claim participates in authorization decisions.
package jwtauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "agora/pkg/domain"
)

// Claims is the validated content of a bearer token.
type Claims struct {
	PrincipalID id.PrincipalID
	ExpiresAt   time.Time
}

// Validator verifies HMAC-signed bearer tokens.
type Validator struct {
	signingKey []byte
	clock      func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock sets the clock used for expiry checks.
func WithClock(clock func() time.Time) Option {
	return func(v *Validator) {
		if clock != nil {
			v.clock = clock
		}
	}
}

// NewValidator constructs a Validator for the given signing key.
func NewValidator(signingKey string, opts ...Option) *Validator {
	v := &Validator{signingKey: []byte(signingKey), clock: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateToken parses and verifies a bearer token, returning the principal
// claims. Any failure (bad signature, expiry, malformed subject) is an error;
// the resolver degrades it to the anonymous principal.
func (v *Validator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return v.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.clock),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	principalID, err := id.ParsePrincipalID(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("token subject is not a principal id: %w", err)
	}

	out := &Claims{PrincipalID: principalID}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// IssueToken mints a bearer token for a principal. Used by operational
// tooling and tests; production tokens come from the external auth provider
// sharing the signing key.
func (v *Validator) IssueToken(principalID id.PrincipalID, ttl time.Duration) (string, error) {
	now := v.clock()
	claims := jwt.RegisteredClaims{
		Subject:   principalID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
