package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc", "abc", false},
		{"Bearer   ", "", true},
		{"Basic abc", "", true},
		{"abc", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ExtractToken(tt.header)
		if (err != nil) != tt.wantErr {
			t.Errorf("ExtractToken(%q) error = %v, wantErr %v", tt.header, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ExtractToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestNewLocalJWTAuth_RequiresSecret(t *testing.T) {
	if _, err := NewLocalJWTAuth("", time.Minute); err == nil {
		t.Fatal("Expected error for empty secret")
	}

	a, err := NewLocalJWTAuth("secret", 0)
	if err != nil {
		t.Fatalf("NewLocalJWTAuth failed: %v", err)
	}
	if a.AccessTokenExpiry != 15*time.Minute {
		t.Errorf("Expected default expiry of 15m, got %v", a.AccessTokenExpiry)
	}
}

func TestGenerateAndVerify(t *testing.T) {
	a, _ := NewLocalJWTAuth("test-secret", time.Minute)

	token, err := a.GenerateAccessToken("user-1", "user@example.com", "analyst")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	user, err := a.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken failed: %v", err)
	}
	if user.ID != "user-1" || user.Email != "user@example.com" || user.Role != "analyst" {
		t.Errorf("Unexpected user: %+v", user)
	}
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	signer, _ := NewLocalJWTAuth("secret-a", time.Minute)
	verifier, _ := NewLocalJWTAuth("secret-b", time.Minute)

	token, _ := signer.GenerateAccessToken("user-1", "", "")
	if _, err := verifier.VerifyAccessToken(token); err == nil {
		t.Fatal("Expected signature verification to fail")
	}
}

func TestVerify_RejectsExpired(t *testing.T) {
	a, _ := NewLocalJWTAuth("secret", time.Minute)

	claims := JWTClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.SecretKey)

	_, err := a.VerifyAccessToken(token)
	if err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("Expected expiry error, got %v", err)
	}
}

func TestVerify_RejectsMissingSubject(t *testing.T) {
	a, _ := NewLocalJWTAuth("secret", time.Minute)

	token, _ := a.GenerateAccessToken("", "nobody@example.com", "")
	if _, err := a.VerifyAccessToken(token); err == nil {
		t.Fatal("Expected token without subject to be rejected")
	}
}

func TestVerify_RejectsGarbage(t *testing.T) {
	a, _ := NewLocalJWTAuth("secret", time.Minute)

	if _, err := a.VerifyAccessToken("not-a-token"); err == nil {
		t.Fatal("Expected garbage token to be rejected")
	}
}
