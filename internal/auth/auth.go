// Package auth is the identity boundary: it exchanges signed bearer tokens
// for user IDs. Tokens are HS256 JWTs whose subject is the user ID.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/ajayprem/cadence/internal/platform/errors"
)

// Verifier validates bearer tokens against a shared signing secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret []byte, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{secret: secret, now: now}
}

// Authenticate returns the user ID carried by a valid token.
func (v *Verifier) Authenticate(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeAuthInvalidToken, "invalid token", err)
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", apperrors.New(apperrors.CodeAuthInvalidToken, "token has no subject")
	}
	return subject, nil
}

// Issue mints a token for the user, valid for the given lifetime. Used by
// tests and provisioning tooling.
func (v *Verifier) Issue(userID string, lifetime time.Duration) (string, error) {
	now := v.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
