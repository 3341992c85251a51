package service

import (
	"testing"

	"github.com/heater-labs/heater-cloud-proxy/internal/config"
	"golang.org/x/crypto/bcrypt"
)

func authConfig(password string) *config.Config {
	cfg := &config.Config{}
	cfg.Auth.Enabled = true
	cfg.Auth.Username = "admin"
	cfg.Auth.Password = password
	cfg.Auth.JWTSecret = "test-secret"
	return cfg
}

func TestAuthenticateAndValidateRoundTrip(t *testing.T) {
	svc := NewAuthService(authConfig("s3cret"))

	token, err := svc.Authenticate("admin", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Username != "admin" {
		t.Fatalf("claims username: got %q", claims.Username)
	}
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	svc := NewAuthService(authConfig("s3cret"))

	if _, err := svc.Authenticate("admin", "wrong"); err == nil {
		t.Fatal("expected error for wrong password")
	}
	if _, err := svc.Authenticate("root", "s3cret"); err == nil {
		t.Fatal("expected error for wrong username")
	}
}

func TestAuthenticateBcryptPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	svc := NewAuthService(authConfig(string(hash)))

	if _, err := svc.Authenticate("admin", "s3cret"); err != nil {
		t.Fatalf("expected bcrypt hash to match, got %v", err)
	}
	if _, err := svc.Authenticate("admin", "wrong"); err == nil {
		t.Fatal("expected error for wrong password against hash")
	}
}

func TestValidateRejectsForeignToken(t *testing.T) {
	issuer := NewAuthService(authConfig("s3cret"))
	token, err := issuer.Authenticate("admin", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	other := authConfig("s3cret")
	other.Auth.JWTSecret = "different-secret"
	if _, err := NewAuthService(other).Validate(token); err == nil {
		t.Fatal("expected token signed with another secret to fail")
	}
}

func TestDisabledAuthIsPermissive(t *testing.T) {
	cfg := authConfig("s3cret")
	cfg.Auth.Enabled = false
	svc := NewAuthService(cfg)

	token, err := svc.Authenticate("anyone", "anything")
	if err != nil || token != "" {
		t.Fatalf("disabled auth should return empty token, got %q err %v", token, err)
	}
	claims, err := svc.Validate("")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Username != "anonymous" {
		t.Fatalf("claims username: got %q", claims.Username)
	}
}
