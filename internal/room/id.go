package room

import (
	"crypto/rand"
	"fmt"
)

// DefaultIDLength is the length of generated room identifiers.
const DefaultIDLength = 6

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// largest multiple of len(idAlphabet) that fits in a byte; bytes above it
// are rejected to keep the distribution uniform.
const idRejectAbove = 256 - 256%len(idAlphabet)

// IDGenerator returns a generator of random lowercase base36 tokens of the
// given length.
func IDGenerator(length int) func() (string, error) {
	if length <= 0 {
		length = DefaultIDLength
	}
	return func() (string, error) {
		return randomID(length)
	}
}

func randomID(length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate room id: %w", err)
		}
		for _, b := range buf {
			if int(b) >= idRejectAbove {
				continue
			}
			out = append(out, idAlphabet[int(b)%len(idAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
