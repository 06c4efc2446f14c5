package checkin

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	DefaultKeyLength = 16
	MinKeyLength     = 8
	MaxKeyLength     = 64
)

// RandomKeys generates lowercase hex keys of Length characters.
type RandomKeys struct {
	Length int
}

func (g RandomKeys) NewAPIKey() (string, error) {
	n := g.Length
	if n < MinKeyLength || n > MaxKeyLength {
		n = DefaultKeyLength
	}
	b := make([]byte, (n+1)/2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return hex.EncodeToString(b)[:n], nil
}
