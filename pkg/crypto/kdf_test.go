package crypto

import (
	"bytes"
	"testing"
)

func TestDeriveKeyArgon2id(t *testing.T) {
	secret := []byte("master key material")
	salt := bytes.Repeat([]byte{0x5}, 16)

	key, err := DeriveKeyArgon2id(secret, salt, DefaultArgon2Params())
	if err != nil {
		t.Fatalf("derive error: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(key))
	}

	again, err := DeriveKeyArgon2id(secret, salt, DefaultArgon2Params())
	if err != nil {
		t.Fatalf("derive error: %v", err)
	}
	if !bytes.Equal(key, again) {
		t.Fatal("expected derivation to be deterministic")
	}
}

func TestDeriveKeyArgon2idRejectsShortSalt(t *testing.T) {
	if _, err := DeriveKeyArgon2id([]byte("secret"), []byte("short"), DefaultArgon2Params()); err == nil {
		t.Fatal("expected short salt to be rejected")
	}
}

func TestArgon2ParametersValidate(t *testing.T) {
	params := DefaultArgon2Params()
	if err := params.Validate(); err != nil {
		t.Fatalf("expected default params to validate: %v", err)
	}

	params.KeyLength = 17
	if err := params.Validate(); err == nil {
		t.Fatal("expected odd key length to be rejected")
	}
}
