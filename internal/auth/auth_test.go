package auth

import (
	"testing"
	"time"

	apperrors "github.com/ajayprem/cadence/internal/platform/errors"
)

func TestIssueAuthenticateRoundTrip(t *testing.T) {
	t.Parallel()

	now := func() time.Time {
		return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	}
	v := NewVerifier([]byte("test-secret"), now)

	token, err := v.Issue("user-1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	userID, err := v.Authenticate(token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("user id = %q, want user-1", userID)
	}
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	issued := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewVerifier([]byte("test-secret"), func() time.Time { return issued })
	token, err := issuer.Issue("user-1", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	later := NewVerifier([]byte("test-secret"), func() time.Time { return issued.Add(time.Hour) })
	_, err = later.Authenticate(token)
	if !apperrors.IsCode(err, apperrors.CodeAuthInvalidToken) {
		t.Fatalf("err = %v, want invalid token", err)
	}
}

func TestAuthenticateRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	now := func() time.Time {
		return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	}
	token, err := NewVerifier([]byte("secret-a"), now).Issue("user-1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = NewVerifier([]byte("secret-b"), now).Authenticate(token)
	if !apperrors.IsCode(err, apperrors.CodeAuthInvalidToken) {
		t.Fatalf("err = %v, want invalid token", err)
	}
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	t.Parallel()

	v := NewVerifier([]byte("test-secret"), nil)
	_, err := v.Authenticate("not-a-token")
	if !apperrors.IsCode(err, apperrors.CodeAuthInvalidToken) {
		t.Fatalf("err = %v, want invalid token", err)
	}
}
