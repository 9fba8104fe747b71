// Package secret encrypts individual vault field values.
//
// A token is the hex-encoded 16-byte IV immediately followed by the
// hex-encoded AES-256-CBC ciphertext (PKCS#7 padded). Decrypt always reads
// the first 32 hex characters as the IV, so the IV size is part of the vault
// format. The scheme provides confidentiality only: there is no integrity
// tag, and a tampered token either fails the padding check or decrypts to
// garbage.
package secret

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// KeySize is the number of key bytes used by the cipher.
const KeySize = 32

const (
	ivSize   = aes.BlockSize
	ivHexLen = 2 * ivSize
)

var (
	// ErrKeyFormat is returned when a key is not valid hex or decodes to
	// fewer than KeySize bytes.
	ErrKeyFormat = errors.New("invalid encryption key")

	// ErrDecryption is returned when a token is malformed or its padding is
	// rejected, which usually means the wrong key was used.
	ErrDecryption = errors.New("decryption failed")
)

// Encrypt encrypts plaintext under keyHex with a fresh random IV. When
// addPadding is set, the plaintext first passes through Pad.
func Encrypt(plaintext, keyHex string, addPadding bool) (string, error) {
	if addPadding {
		padded, err := Pad(plaintext)
		if err != nil {
			return "", err
		}
		plaintext = padded
	}
	return Seal(plaintext, keyHex)
}

// Decrypt recovers the plaintext of a token produced by Encrypt. Anything
// from the first tab character on is dropped, whether or not the token was
// padded.
func Decrypt(token, keyHex string) (string, error) {
	plaintext, err := Open(token, keyHex)
	if err != nil {
		return "", err
	}
	return Unpad(plaintext), nil
}

// Seal encrypts plaintext as is, without the padding stage.
func Seal(plaintext, keyHex string) (string, error) {
	key, err := parseKey(keyHex)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("rand iv: %w", err)
	}

	data := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(data, data)

	return hex.EncodeToString(iv) + hex.EncodeToString(data), nil
}

// Open decrypts a token without the unpadding stage. Invalid UTF-8 in the
// result is replaced with U+FFFD.
func Open(token, keyHex string) (string, error) {
	key, err := parseKey(keyHex)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryption, err)
	}
	if len(token) < ivHexLen {
		return "", fmt.Errorf("%w: token is %d characters, want at least %d", ErrDecryption, len(token), ivHexLen)
	}

	iv, err := hex.DecodeString(token[:ivHexLen])
	if err != nil {
		return "", fmt.Errorf("%w: iv is not hex: %v", ErrDecryption, err)
	}
	data, err := hex.DecodeString(token[ivHexLen:])
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not hex: %v", ErrDecryption, err)
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is %d bytes, not a positive multiple of %d", ErrDecryption, len(data), aes.BlockSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(data, data)

	plain, err := pkcs7Unpad(data, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	if !utf8.Valid(plain) {
		return strings.ToValidUTF8(string(plain), string(utf8.RuneError)), nil
	}
	return string(plain), nil
}

// parseKey decodes keyHex and returns its first KeySize bytes.
func parseKey(keyHex string) ([]byte, error) {
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: not hex (%d characters)", ErrKeyFormat, len(keyHex))
	}
	if len(raw) < KeySize {
		return nil, fmt.Errorf("%w: %d bytes, want at least %d", ErrKeyFormat, len(raw), KeySize)
	}
	return raw[:KeySize], nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(append(make([]byte, 0, len(b)+n), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("empty block")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errors.New("bad padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errors.New("bad padding")
		}
	}
	return b[:len(b)-n], nil
}
