package security

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	// Small params keep the test fast; production uses defaults.
	params := Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

	hash, err := HashPasswordWithParams("correct horse battery staple", params)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(string(hash), "$argon2id$v=19$") {
		t.Fatalf("unexpected hash encoding: %s", hash)
	}

	ok, err := VerifyPassword("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Error("correct password rejected")
	}

	ok, err = VerifyPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("verify wrong: %v", err)
	}
	if ok {
		t.Error("wrong password accepted")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not_argon", "$bcrypt$whatever"},
		{"truncated", "$argon2id$v=19$t=1,m=8192,p=1"},
		{"bad_salt", "$argon2id$v=19$t=1,m=8192,p=1$!!!$aaaa"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := VerifyPassword("anything", []byte(test.hash)); err == nil {
				t.Error("expected error for malformed hash")
			}
		})
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	const secret = "test-secret"

	token, err := GenerateAccessToken(secret, "user-1", "sess-1", "dev-1", "admin", 60*1e9)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseAccessToken(token, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.SessionID != "sess-1" || claims.DeviceID != "dev-1" || claims.Role != "admin" {
		t.Errorf("claims mismatch: %+v", claims)
	}

	if _, err := ParseAccessToken(token, "other-secret"); err == nil {
		t.Error("token validated with wrong secret")
	}
}

func TestRefreshTokenHashStable(t *testing.T) {
	token, hash, err := GenerateRefreshToken(64)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(HashRefreshToken(token)) != string(hash) {
		t.Error("hash of issued token does not match stored hash")
	}
}
