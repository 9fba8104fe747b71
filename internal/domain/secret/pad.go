package secret

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	padSeparator = "\t"
	padLength    = 6
	padAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Pad appends a tab and six random alphanumeric characters so that equal
// short secrets do not produce ciphertexts of predictable length. Plaintext
// that already contains a tab is returned unchanged, since Unpad would cut it
// at that tab anyway.
func Pad(plaintext string) (string, error) {
	if strings.Contains(plaintext, padSeparator) {
		return plaintext, nil
	}
	suffix, err := randomAlphanumeric(padLength)
	if err != nil {
		return "", err
	}
	return plaintext + padSeparator + suffix, nil
}

// Unpad truncates s at its first tab character.
func Unpad(s string) string {
	if i := strings.Index(s, padSeparator); i >= 0 {
		return s[:i]
	}
	return s
}

func randomAlphanumeric(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	limit := big.NewInt(int64(len(padAlphabet)))
	for range n {
		i, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("rand padding: %w", err)
		}
		b.WriteByte(padAlphabet[i.Int64()])
	}
	return b.String(), nil
}
