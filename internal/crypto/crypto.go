// Package crypto seals files at rest with AES-GCM using a key derived from a
// passphrase.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	iterations = 100000
	keySize    = 32 // AES-256
)

// header marks sealed data so plaintext files can still be read
var header = []byte("f1cal-sealed:v1:")

var (
	ErrNotSealed = errors.New("data is not sealed")
	ErrWrongKey  = errors.New("cannot decrypt data: wrong passphrase or corrupted file")
)

// Sealer encrypts and decrypts whole files
type Sealer struct {
	passphrase []byte
}

// NewSealer creates a new sealer with the given passphrase. An empty
// passphrase yields nil, which leaves data unencrypted.
func NewSealer(passphrase string) *Sealer {
	if passphrase == "" {
		return nil
	}
	return &Sealer{passphrase: []byte(passphrase)}
}

// IsSealed reports whether data was produced by Seal
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, header)
}

// Seal encrypts plaintext. Each call uses a fresh salt and nonce, both
// stored in the output.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	if s == nil {
		return plaintext, nil
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	gcm, err := s.gcm(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	payload := append(salt, nonce...)
	payload = gcm.Seal(payload, nonce, plaintext, nil)

	out := make([]byte, 0, len(header)+base64.StdEncoding.EncodedLen(len(payload)))
	out = append(out, header...)
	return base64.StdEncoding.AppendEncode(out, payload), nil
}

// Open decrypts data produced by Seal
func (s *Sealer) Open(data []byte) ([]byte, error) {
	if !IsSealed(data) {
		return nil, ErrNotSealed
	}
	if s == nil {
		return nil, errors.New("data is sealed but no passphrase is configured")
	}

	payload, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(data[len(header):])))
	if err != nil {
		return nil, fmt.Errorf("decoding sealed data: %w", err)
	}
	if len(payload) < saltSize {
		return nil, ErrWrongKey
	}

	salt, rest := payload[:saltSize], payload[saltSize:]
	gcm, err := s.gcm(salt)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(rest) < nonceSize {
		return nil, ErrWrongKey
	}

	plaintext, err := gcm.Open(nil, rest[:nonceSize], rest[nonceSize:], nil)
	if err != nil {
		return nil, ErrWrongKey
	}
	return plaintext, nil
}

func (s *Sealer) gcm(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(s.passphrase, salt, iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
