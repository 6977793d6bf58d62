// Package cryptox holds the hashing helpers used by the server: bcrypt
// for the synthetic credential of provider-linked accounts and content
// fingerprints for favorite de-duplication.
package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/dmitrijs2005/recipebox/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// syntheticPasswordSize is the number of random bytes behind a generated password.
const syntheticPasswordSize = 32

// GeneratePassword returns a random URL-safe password.
func GeneratePassword() string {
	return base64.RawURLEncoding.EncodeToString(common.GenerateRandByteArray(syntheticPasswordSize))
}

// HashPassword hashes password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SyntheticPasswordHash hashes a freshly generated password that is never
// shown to anyone. Accounts created through an identity provider carry it
// so that password_hash is never empty.
func SyntheticPasswordHash() (string, error) {
	return HashPassword(GeneratePassword())
}

// ContentHash is the hex SHA-256 of content, used as a compact uniqueness key.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
