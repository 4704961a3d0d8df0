// Package token issues and checks donation confirmation tokens.
//
// A token is 32 bytes from crypto/rand, hex encoded. It is bound to exactly one
// donation and is the only credential the donee needs to confirm receipt.
package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
)

// Length is the encoded token length in characters.
const Length = 64

// Service generates and validates confirmation tokens.
type Service struct {
	random io.Reader
}

// Option configures a Service.
type Option func(*Service)

// WithRandom swaps the entropy source. Tests use it to force collisions.
func WithRandom(r io.Reader) Option {
	return func(s *Service) {
		s.random = r
	}
}

func New(opts ...Option) *Service {
	s := &Service{random: rand.Reader}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate returns a fresh 64-character lowercase hex token.
func (s *Service) Generate() (string, error) {
	buf := make([]byte, Length/2)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", fmt.Errorf("read token entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Validate compares in constant time. An empty stored token never validates.
func (s *Service) Validate(stored, supplied string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
