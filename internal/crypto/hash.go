package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// RefreshTokenSize - размер refresh token в байтах до кодирования
const RefreshTokenSize = 32

// HashToken хеширует refresh token с использованием SHA256.
// На сервере хранится только хеш; токен имеет высокую энтропию, поэтому соль не нужна.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// RandomToken генерирует случайный URL-safe токен
func RandomToken() (string, error) {
	tokenBytes := make([]byte, RefreshTokenSize)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(tokenBytes), nil
}
