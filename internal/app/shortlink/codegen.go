package shortlink

import (
	"crypto/rand"
	"io"
)

// Alphabet is the symbol set short codes are drawn from: 10 digits and 52 mixed-case letters.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	// DefaultCodeLength gives 62^6 (~5.68e10) possible codes.
	DefaultCodeLength = 6
	// MaxCodeLength bounds both generation and the codes accepted by Resolve.
	MaxCodeLength = 64
)

// Generator produces candidate short codes. Candidates are not unique on their own;
// uniqueness is enforced by Store.InsertIfAbsent.
type Generator interface {
	Generate(length int) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(length int) (string, error)

func (f GeneratorFunc) Generate(length int) (string, error) {
	return f(length)
}

// RandomGenerator draws every character independently and uniformly from Alphabet.
type RandomGenerator struct {
	src io.Reader
}

// NewRandomGenerator returns a generator backed by crypto/rand.
func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{src: rand.Reader}
}

// 62*4 = 248: bytes >= 248 are rejected so that b%62 stays uniform.
const rejectAbove = 256 - 256%len(Alphabet)

func (g *RandomGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	if length > MaxCodeLength {
		length = MaxCodeLength
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+1)
	for len(out) < length {
		if _, err := io.ReadFull(g.src, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

// IsCode reports whether s could have been produced by a Generator.
func IsCode(s string) bool {
	if s == "" || len(s) > MaxCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return true
}
