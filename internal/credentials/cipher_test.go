package credentials

import (
	"encoding/base64"
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	encrypted, err := c.Encrypt("sk-secret-value")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if strings.Contains(encrypted, "sk-secret-value") {
		t.Fatal("ciphertext leaks plaintext")
	}
	plain, err := c.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plain != "sk-secret-value" {
		t.Fatalf("plain = %q", plain)
	}
}

func TestCipherNonceVaries(t *testing.T) {
	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	a, _ := c.Encrypt("same")
	b, _ := c.Encrypt("same")
	if a == b {
		t.Fatal("identical ciphertexts for repeated plaintext")
	}
}

func TestCipherRejectsTampering(t *testing.T) {
	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	encrypted, err := c.Encrypt("sk-secret-value")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw[len(raw)-1] ^= 0x01
	if _, err := c.Decrypt(base64.StdEncoding.EncodeToString(raw)); err == nil {
		t.Fatal("tampered ciphertext accepted")
	}
}

func TestCipherRejectsGarbage(t *testing.T) {
	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	for _, input := range []string{"", "not base64!!!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		if _, err := c.Decrypt(input); err == nil {
			t.Fatalf("decrypt(%q) accepted", input)
		}
	}
}

func TestCipherKeyFormats(t *testing.T) {
	raw := []byte(testKey)
	for name, key := range map[string]string{
		"raw":    testKey,
		"base64": base64.StdEncoding.EncodeToString(raw),
		"hex":    "30313233343536373839616263646566" + "30313233343536373839616263646566",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := NewCipher(key); err != nil {
				t.Fatalf("NewCipher: %v", err)
			}
		})
	}
}

func TestCipherRejectsBadKey(t *testing.T) {
	for _, key := range []string{"", "   ", "too-short", strings.Repeat("x", 33)} {
		if _, err := NewCipher(key); err == nil {
			t.Fatalf("NewCipher(%q) accepted", key)
		}
	}
}
