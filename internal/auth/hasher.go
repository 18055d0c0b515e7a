package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher produces and checks stored password digests.
type Hasher interface {
	Hash(password string) (string, error)
	// Matches reports whether password digests to stored.
	Matches(stored, password string) bool
}

// NewHasher returns the hasher registered under name ("sha256" or "bcrypt").
func NewHasher(name string) (Hasher, error) {
	switch name {
	case "", "sha256":
		return SHA256Hasher{}, nil
	case "bcrypt":
		return BcryptHasher{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown password hash %q", name)
	}
}

// SHA256Hasher stores lowercase hex SHA-256 digests.
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

func (h SHA256Hasher) Matches(stored, password string) bool {
	digest, _ := h.Hash(password)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(digest)) == 1
}

// BcryptMaxPasswordBytes is the longest password bcrypt accepts.
const BcryptMaxPasswordBytes = 72

// BcryptHasher stores bcrypt hashes.
type BcryptHasher struct {
	Cost int
}

// Hash returns ErrPasswordTooLong for passwords over BcryptMaxPasswordBytes.
func (h BcryptHasher) Hash(password string) (string, error) {
	if len(password) > BcryptMaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

func (BcryptHasher) Matches(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}
