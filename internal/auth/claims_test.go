package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-jwt-signing!!"

func TestIssueAndParseToken(t *testing.T) {
	token, expires, err := IssueToken("lx", testSecret, 30*time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("IssueToken() returned empty token")
	}
	if d := time.Until(expires); d < 29*time.Minute || d > 30*time.Minute {
		t.Errorf("expiry in %v, want ~30m", d)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "lx" {
		t.Errorf("Subject = %q, want lx", claims.Subject)
	}
	if claims.Role != RoleOperator {
		t.Errorf("Role = %q, want %q", claims.Role, RoleOperator)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}
}

func TestIssueToken_DefaultTTL(t *testing.T) {
	_, expires, err := IssueToken("lx", testSecret, 0)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if d := time.Until(expires); d < DefaultTokenTTL-time.Minute || d > DefaultTokenTTL {
		t.Errorf("expiry in %v, want ~%v", d, DefaultTokenTTL)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	valid, _, err := IssueToken("lx", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	sign := func(method jwt.SigningMethod, key any, claims Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		return s
	}
	now := time.Now()
	base := jwt.RegisteredClaims{
		Subject:   "lx",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}

	expired := base
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	noExpiry := base
	noExpiry.ExpiresAt = nil
	noSubject := base
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-valid-jwt"},
		{name: "wrong secret", token: sign(jwt.SigningMethodHS256, []byte("another-secret"), Claims{RegisteredClaims: base, Role: RoleOperator})},
		{name: "wrong algorithm", token: sign(jwt.SigningMethodHS512, []byte(testSecret), Claims{RegisteredClaims: base, Role: RoleOperator})},
		{name: "expired", token: sign(jwt.SigningMethodHS256, []byte(testSecret), Claims{RegisteredClaims: expired, Role: RoleOperator})},
		{name: "no expiry", token: sign(jwt.SigningMethodHS256, []byte(testSecret), Claims{RegisteredClaims: noExpiry, Role: RoleOperator})},
		{name: "no subject", token: sign(jwt.SigningMethodHS256, []byte(testSecret), Claims{RegisteredClaims: noSubject, Role: RoleOperator})},
		{name: "wrong role", token: sign(jwt.SigningMethodHS256, []byte(testSecret), Claims{RegisteredClaims: base, Role: "viewer"})},
		{name: "tampered", token: valid + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, testSecret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}
