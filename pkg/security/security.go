// Package security provides token generation, HMAC request signing and
// password hashing for upstream API access.
package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PasswordIterations is the PBKDF2 work factor.
	PasswordIterations = 100_000

	passwordKeyLen = 32
	saltBytes      = 16
)

// GenerateToken returns a URL-safe random token built from n random bytes.
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Sign returns the hex HMAC-SHA256 of data keyed by secret.
func Sign(data, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether sig is the signature of data under secret.
// The comparison is constant-time.
func VerifySignature(data, sig, secret string) bool {
	return hmac.Equal([]byte(sig), []byte(Sign(data, secret)))
}

// HashPassword derives a PBKDF2-SHA256 hash of password. An empty salt is
// replaced by a fresh random one. The hash is base64 encoded; the salt is
// returned so it can be stored alongside it.
func HashPassword(password, salt string) (hash, usedSalt string, err error) {
	if salt == "" {
		b := make([]byte, saltBytes)
		if _, err := rand.Read(b); err != nil {
			return "", "", fmt.Errorf("generate salt: %w", err)
		}
		salt = hex.EncodeToString(b)
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), PasswordIterations, passwordKeyLen, sha256.New)
	return base64.StdEncoding.EncodeToString(key), salt, nil
}

// VerifyPassword reports whether password matches a hash produced by
// [HashPassword] with salt.
func VerifyPassword(password, hash, salt string) bool {
	if salt == "" {
		return false
	}
	got, _, err := HashPassword(password, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(hash)) == 1
}
