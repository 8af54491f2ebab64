// Package crypto, hassas alanları (ödeme sağlayıcı referansları gibi)
// veritabanında AES-256-GCM ile şifreli saklamak için kullanılır.
//
// Çıktı formatı: base64(nonce(12) || ciphertext || tag).
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrCiphertextTooShort, nonce'dan kısa input için döner.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// DeriveKey, 64 hex karakterlik string'den 32-byte anahtar çıkarır.
func DeriveKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid hex key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be exactly 32 bytes (64 hex chars), got %d bytes", len(key))
	}
	return key, nil
}

// Sealer, tek bir anahtar için hazırlanmış GCM instance'ı tutar.
// cipher.AEAD concurrent kullanım için güvenlidir.
type Sealer struct {
	gcm cipher.AEAD
}

// NewSealer, hex anahtardan Sealer oluşturur.
func NewSealer(hexKey string) (*Sealer, error) {
	key, err := DeriveKey(hexKey)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Sealer{gcm: gcm}, nil
}

// Seal, plaintext'i şifreler. Her çağrı yeni random nonce kullanır.
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce generation: %w", err)
	}
	out := s.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open, Seal çıktısını çözer. Yanlış anahtar veya bozuk veri hata döner.
func (s *Sealer) Open(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	n := s.gcm.NonceSize()
	if len(data) < n {
		return "", ErrCiphertextTooShort
	}

	plaintext, err := s.gcm.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}
	return string(plaintext), nil
}
