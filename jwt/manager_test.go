package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"
)

func hsConfig() Config {
	return Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte(strings.Repeat("k", 32)),
		Issuer:        "authflow-test",
	}
}

func TestIssueAndParseHS256(t *testing.T) {
	m, err := NewManager(hsConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, exp, err := m.Issue("user-1", "a@b.com", "sid-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 || time.Until(exp) > time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "a@b.com" || claims.SessionID != "sid-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestIssueAndParseEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, _, err := m.Issue("user-2", "", "sid-2")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := m.Parse(token); err != nil {
		t.Fatalf("Parse: %v", err)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m, err := NewManager(hsConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	base := time.Now()
	m.now = func() time.Time { return base }
	token, _, err := m.Issue("user-1", "a@b.com", "sid-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	m, _ := NewManager(hsConfig())
	other := hsConfig()
	other.PrivateKey = []byte(strings.Repeat("z", 32))
	foreign, _ := NewManager(other)

	token, _, err := foreign.Issue("user-1", "", "sid")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected token signed with another key to be rejected")
	}
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	cfg := hsConfig()
	cfg.PrivateKey = []byte("short")
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected short hs256 secret to be rejected")
	}
}
