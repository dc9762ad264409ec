package security

import (
	"errors"
	"testing"
	"time"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	now := time.Now()
	token, err := IssueSessionToken("s3cret", "u1", true, time.Hour, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := ParseSessionToken("s3cret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UID != "u1" || !claims.IsAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestSessionTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	now := time.Now()
	token, err := IssueSessionToken("s3cret", "u1", false, time.Hour, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseSessionToken("other", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}

	expired, err := IssueSessionToken("s3cret", "u1", false, time.Minute, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseSessionToken("s3cret", expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
	if _, err := ParseSessionToken("s3cret", "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestIssueSessionTokenRequiresSecret(t *testing.T) {
	if _, err := IssueSessionToken(" ", "u1", false, time.Hour, time.Now()); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestGenerateRandomString(t *testing.T) {
	a, err := GenerateRandomString(16)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, _ := GenerateRandomString(16)
	if len(a) != 32 || a == b {
		t.Fatalf("unexpected random strings %q %q", a, b)
	}
}
