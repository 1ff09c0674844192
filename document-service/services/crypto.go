package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"loresmith-backend/shared/config"
)

// Supported ENCRYPTION_ALGORITHM values
const (
	AlgorithmAESGCM   = "aes-256-gcm"
	AlgorithmChaCha20 = "chacha20-poly1305"
)

// Encryptor seals document payloads at rest. The nonce and algorithm are
// recorded in the document's encryption metadata and in a sidecar file next
// to the stored object; the sidecar is removed together with the document.
type Encryptor struct {
	aead      cipher.AEAD
	algorithm string
}

// NewEncryptor builds an AEAD from the configured algorithm and key.
// Returns nil (no encryption) when encryption is disabled.
func NewEncryptor(cfg *config.Config) (*Encryptor, error) {
	if !cfg.EncryptionEnabled {
		return nil, nil
	}
	if cfg.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_ENABLED is set but ENCRYPTION_KEY is empty")
	}

	// Derive a fixed-length key from whatever was configured
	key := sha256.Sum256([]byte(cfg.EncryptionKey))

	var aead cipher.AEAD
	var err error
	switch cfg.EncryptionAlgorithm {
	case "", AlgorithmAESGCM:
		var block cipher.Block
		block, err = aes.NewCipher(key[:])
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case AlgorithmChaCha20:
		aead, err = chacha20poly1305.New(key[:])
	default:
		return nil, fmt.Errorf("unknown ENCRYPTION_ALGORITHM %q", cfg.EncryptionAlgorithm)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	algorithm := cfg.EncryptionAlgorithm
	if algorithm == "" {
		algorithm = AlgorithmAESGCM
	}

	return &Encryptor{aead: aead, algorithm: algorithm}, nil
}

// Algorithm returns the configured cipher name
func (e *Encryptor) Algorithm() string {
	return e.algorithm
}

// Seal encrypts a payload and returns the ciphertext plus the base64 nonce
func (e *Encryptor) Seal(plaintext []byte) ([]byte, string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, "", err
	}

	ciphertext := e.aead.Seal(nil, nonce, plaintext, nil)
	return ciphertext, base64.StdEncoding.EncodeToString(nonce), nil
}

// Open decrypts a payload sealed with the base64 nonce from Seal
func (e *Encryptor) Open(ciphertext []byte, encodedNonce string) ([]byte, error) {
	nonce, err := base64.StdEncoding.DecodeString(encodedNonce)
	if err != nil {
		return nil, fmt.Errorf("invalid nonce: %w", err)
	}
	return e.aead.Open(nil, nonce, ciphertext, nil)
}

// SidecarKey is the storage key of the encryption metadata file kept next to
// an encrypted object.
func SidecarKey(key string) string {
	return key + ".enc.json"
}
