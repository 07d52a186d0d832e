package sharecode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Alphabet omits characters that are easy to misread (0/O, 1/I/L).
const Alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// DefaultLength is the length of issued join codes.
const DefaultLength = 8

// Generate returns a random code of n characters drawn from Alphabet using crypto/rand.
func Generate(n int) (string, error) {
	if n < DefaultLength {
		n = DefaultLength
	}
	max := big.NewInt(int64(len(Alphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate share code: %w", err)
		}
		b.WriteByte(Alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// NewGenerator returns a generator bound to a fixed code length.
func NewGenerator(n int) func() (string, error) {
	return func() (string, error) { return Generate(n) }
}

// WellFormed reports whether s could have been issued by Generate. Join lookups use it to
// answer malformed codes without touching the store.
func WellFormed(s string) bool {
	if len(s) < DefaultLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(Alphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}
