package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
)

const (
	encryptionKeyEnv = "ENCRYPTION_KEY"
)

var encryptionKey []byte

func init() {
	key := os.Getenv(encryptionKeyEnv)
	if key == "" {
		return
	}
	if len(key) != 32 {
		log.Fatal("ENCRYPTION_KEY must be exactly 32 bytes (256 bits)")
	}
	encryptionKey = []byte(key)
}

// EncryptionEnabled reports whether stored credentials are sealed at rest.
func EncryptionEnabled() bool {
	return len(encryptionKey) == 32
}

// Encrypt seals a secret with AES-256-GCM. When no ENCRYPTION_KEY is
// configured the plaintext is returned unchanged.
func Encrypt(plaintext string) (string, error) {
	if !EncryptionEnabled() {
		return plaintext, nil
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(ciphertext), nil
}

// Decrypt is the inverse of Encrypt, passing the value through when no key
// is configured.
func Decrypt(encryptedText string) (string, error) {
	if !EncryptionEnabled() {
		return encryptedText, nil
	}

	ciphertext, err := hex.DecodeString(encryptedText)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// SetEncryptionKey overrides the key, for tests. An empty key disables
// encryption.
func SetEncryptionKey(key string) {
	if key == "" {
		encryptionKey = nil
		return
	}
	if len(key) != 32 {
		log.Fatal("Encryption key must be exactly 32 bytes (256 bits)")
	}
	encryptionKey = []byte(key)
}
