package secret

import (
	"crypto/md5" //nolint:gosec // key stretching format shared with existing vault files
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// NormalizeKey turns a user supplied key into the 64 hex character form the
// cipher expects. A key of exactly 64 characters is used as is; anything
// else becomes md5hex(key) twice. Changing this breaks every existing vault.
func NormalizeKey(key string) string {
	if len(key) == 2*KeySize {
		return key
	}
	sum := md5.Sum([]byte(key)) //nolint:gosec // see above
	h := hex.EncodeToString(sum[:])
	return h + h
}

// GenerateKey returns a fresh random key in hex form.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("rand key: %w", err)
	}
	return hex.EncodeToString(key), nil
}
