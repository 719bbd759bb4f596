// Package password hashes and verifies user passwords with bcrypt.
// The salt and work factor are embedded in every hash, so a hash produced
// with one cost still verifies after the configured cost changes.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const maxPasswordBytes = 72

var (
	ErrEmptyPassword   = errors.New("password: empty input")
	ErrPasswordTooLong = errors.New("password: input exceeds 72 bytes")
)

// Hasher implements ports.PasswordHasher.
type Hasher struct {
	cost int
}

// New returns a Hasher using cost, falling back to bcrypt.DefaultCost when
// cost is outside bcrypt's accepted range.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Cost() int { return h.cost }

// Hash returns a salted bcrypt hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	if len(plaintext) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(out), nil
}

// Verify reports whether plaintext matches hash. Malformed hashes never match.
func (h *Hasher) Verify(plaintext, hash string) bool {
	if plaintext == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
