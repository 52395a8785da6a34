package secrets_test

import (
	"strings"
	"testing"

	"mastothread/internal/adapters/secrets"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	codec := secrets.NewCodec("vault-name")

	blob, err := codec.Encrypt("an-access-token")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !strings.Contains(blob, ":") {
		t.Errorf("blob should be nonce:ciphertext, got %q", blob)
	}
	if strings.Contains(blob, "an-access-token") {
		t.Error("blob must not contain the plaintext")
	}

	got, err := codec.Decrypt(blob)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "an-access-token" {
		t.Errorf("got %q, want the original plaintext", got)
	}
}

func TestEncryptEmptyIsEmpty(t *testing.T) {
	codec := secrets.NewCodec("seed")

	blob, err := codec.Encrypt("")
	if err != nil || blob != "" {
		t.Errorf("got (%q, %v), want empty and nil", blob, err)
	}
	plain, err := codec.Decrypt("")
	if err != nil || plain != "" {
		t.Errorf("got (%q, %v), want empty and nil", plain, err)
	}
}

func TestNoncesDiffer(t *testing.T) {
	codec := secrets.NewCodec("seed")

	a, _ := codec.Encrypt("same")
	b, _ := codec.Encrypt("same")
	if a == b {
		t.Error("two encryptions of the same plaintext must differ")
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	blob, err := secrets.NewCodec("vault-a").Encrypt("secret")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := secrets.NewCodec("vault-b").Decrypt(blob); err == nil {
		t.Error("decrypting with a different seed should fail")
	}
}

func TestDecryptMalformed(t *testing.T) {
	codec := secrets.NewCodec("seed")

	for _, blob := range []string{"no-colon", "!!!:???", "YWJj:zzz"} {
		if _, err := codec.Decrypt(blob); err == nil {
			t.Errorf("Decrypt(%q) should fail", blob)
		}
	}
}

func TestDecryptTampered(t *testing.T) {
	codec := secrets.NewCodec("seed")
	blob, err := codec.Encrypt("secret")
	if err != nil {
		t.Fatal(err)
	}

	// Flip a character in the ciphertext part.
	tampered := blob[:len(blob)-2] + "AA"
	if tampered == blob {
		tampered = blob[:len(blob)-2] + "BB"
	}
	if _, err := codec.Decrypt(tampered); err == nil {
		t.Error("tampered blob should fail authentication")
	}
}
