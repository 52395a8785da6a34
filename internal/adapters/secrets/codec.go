// Package secrets encrypts persisted credentials at rest.
//
// The key is derived from a stable local identifier, so the scheme only
// protects settings files copied off the machine. It is not a security
// boundary against an attacker with local code execution, who can read
// the seed the same way this package does.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned when a ciphertext blob does not have the
// expected nonce:payload shape.
var ErrMalformed = errors.New("malformed secret blob")

// Codec encrypts and decrypts short secret strings with AES-GCM.
type Codec struct {
	key [sha256.Size]byte
}

// NewCodec derives the symmetric key from a stable local seed.
func NewCodec(seed string) *Codec {
	return &Codec{key: sha256.Sum256([]byte(seed))}
}

// Encrypt returns base64(nonce) ":" base64(ciphertext). Encrypting the
// empty string yields the empty string.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	gcm, err := c.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(nonce) + ":" +
		base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Tampered or foreign-key blobs fail.
func (c *Codec) Decrypt(blob string) (string, error) {
	if blob == "" {
		return "", nil
	}
	nonceB64, sealedB64, ok := strings.Cut(blob, ":")
	if !ok {
		return "", ErrMalformed
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil {
		return "", ErrMalformed
	}
	sealed, err := base64.StdEncoding.DecodeString(sealedB64)
	if err != nil {
		return "", ErrMalformed
	}
	gcm, err := c.aead()
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", ErrMalformed
	}
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt secret: %w", err)
	}
	return string(plain), nil
}

func (c *Codec) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
