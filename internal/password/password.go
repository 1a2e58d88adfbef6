package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength is the longest plaintext bcrypt accepts without truncation.
const MaxLength = 72

// ErrTooLong is returned by Hash when the plaintext exceeds MaxLength bytes.
var ErrTooLong = errors.New("password exceeds 72 bytes")

// Hasher produces and checks salted bcrypt digests.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using the given bcrypt cost. Values outside the
// range bcrypt accepts fall back to bcrypt.DefaultCost.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Hasher{cost: cost}
}

// Default returns a Hasher at bcrypt.DefaultCost.
func Default() Hasher {
	return Hasher{cost: bcrypt.DefaultCost}
}

// Hash returns a new digest for plaintext. Every call uses a fresh salt.
func (h Hasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxLength {
		return "", ErrTooLong
	}
	cost := h.cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. Malformed digests do not
// match anything.
func (h Hasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
