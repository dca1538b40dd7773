package password

import (
	"errors"
	"strings"
	"testing"
)

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(DefaultConfig())
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	encoded, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", encoded)
	}

	ok, err := h.Verify("secret1", encoded)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("expected password to verify")
	}

	ok, err = h.Verify("secret2", encoded)
	if err != nil {
		t.Fatalf("Verify wrong password: %v", err)
	}
	if ok {
		t.Fatal("expected wrong password to fail")
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	h := newTestHasher(t)
	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newTestHasher(t)
	for _, encoded := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=16$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$short$a2V5",
	} {
		if _, err := h.Verify("x", encoded); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("Verify(%q) err = %v, want ErrMalformedHash", encoded, err)
		}
	}
}

func TestNewHasherRejectsWeakConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Memory = 1024
	if _, err := NewHasher(cfg); err == nil {
		t.Fatal("expected weak memory to be rejected")
	}
	cfg = DefaultConfig()
	cfg.SaltLength = 8
	if _, err := NewHasher(cfg); err == nil {
		t.Fatal("expected short salt to be rejected")
	}
}

func TestHashRejectsOversizedPassword(t *testing.T) {
	h := newTestHasher(t)
	if _, err := h.Hash(strings.Repeat("a", maxPassBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("err = %v, want ErrPasswordTooLong", err)
	}
}
