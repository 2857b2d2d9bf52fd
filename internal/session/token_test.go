package session

import (
	"errors"
	"testing"
	"time"
)

func setSecret(t *testing.T) {
	t.Helper()
	ResetSecretForTests()
	t.Setenv("RRSA_AUTH_SECRET", "unit-test-secret")
	t.Cleanup(ResetSecretForTests)
}

func TestGenerateAndParse(t *testing.T) {
	setSecret(t)

	token, err := GenerateToken("ref_ava", "sess-1", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "ref_ava" {
		t.Fatalf("Subject = %q", claims.Subject)
	}
	if claims.SessionID != "sess-1" {
		t.Fatalf("SessionID = %q", claims.SessionID)
	}
	if claims.Issuer != "rrsa" {
		t.Fatalf("Issuer = %q", claims.Issuer)
	}
}

func TestGenerateTokenValidation(t *testing.T) {
	setSecret(t)

	if _, err := GenerateToken("", "sess-1", time.Hour); err == nil {
		t.Fatal("empty username accepted")
	}
	if _, err := GenerateToken("ref_ava", "", time.Hour); err == nil {
		t.Fatal("empty session id accepted")
	}
	if _, err := GenerateToken("ref_ava", "sess-1", 0); err == nil {
		t.Fatal("zero ttl accepted")
	}
}

func TestParseRejectsGarbageAndWrongKey(t *testing.T) {
	setSecret(t)

	if _, err := ParseAndValidate(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty token err = %v", err)
	}
	if _, err := ParseAndValidate("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token err = %v", err)
	}

	token, err := GenerateToken("ref_ava", "sess-1", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	ResetSecretForTests()
	t.Setenv("RRSA_AUTH_SECRET", "another-secret")
	if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token signed with old key err = %v, want ErrInvalidToken", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	setSecret(t)

	token, err := GenerateToken("ref_ava", "sess-1", time.Millisecond)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token err = %v, want ErrInvalidToken", err)
	}
}

func TestMissingSecret(t *testing.T) {
	ResetSecretForTests()
	t.Setenv("RRSA_AUTH_SECRET", "")
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateToken("ref_ava", "sess-1", time.Hour); !errors.Is(err, errMissingSecret) {
		t.Fatalf("err = %v, want missing-secret", err)
	}
}
