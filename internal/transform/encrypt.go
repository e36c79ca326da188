package transform

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"medcache/internal/errors"
)

// Encryptor is the lossless encrypt/decrypt transform using AES-256-GCM.
// Each Encode uses a fresh random nonce, prepended to the ciphertext. The
// key is derived from the configured passphrase with PBKDF2 so any input
// length yields a proper 32-byte AES-256 key.
//
// The encryptor is safe for concurrent use by multiple goroutines.
type Encryptor struct {
	key []byte
}

// Static salt for deterministic key derivation
var encryptionSalt = []byte("medcache-salt")

// NewEncryptor derives the AES key from the given passphrase
func NewEncryptor(key string) (*Encryptor, error) {
	if key == "" {
		return nil, errors.ConfigError("encryption key cannot be empty")
	}

	derivedKey := pbkdf2.Key([]byte(key), encryptionSalt, 10000, 32, sha256.New)
	return &Encryptor{key: derivedKey}, nil
}

// Name returns the transform flag this implements
func (e *Encryptor) Name() string { return "encrypt" }

// Encode encrypts the payload
func (e *Encryptor) Encode(data []byte) ([]byte, error) {
	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.InternalError("failed to create nonce", err)
	}

	return gcm.Seal(nonce, nonce, data, nil), nil
}

// Decode decrypts and authenticates a payload produced by Encode. Tampered
// or corrupted payloads fail authentication and return an error.
func (e *Encryptor) Decode(data []byte) ([]byte, error) {
	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.SerializationError("ciphertext too short", nil)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.SerializationError("failed to decrypt", err)
	}
	return plaintext, nil
}

func (e *Encryptor) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, errors.InternalError("failed to create cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.InternalError("failed to create GCM", err)
	}
	return gcm, nil
}
