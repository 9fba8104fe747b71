package launcher

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

// ErrInvalidKeyFile is returned by CheckKeyFile for files that are not
// private keys.
var ErrInvalidKeyFile = errors.New("not a private key")

// maxKeyFileSize bounds how much CheckKeyFile reads.
const maxKeyFileSize = 1 << 20

// CheckKeyFile verifies path exists and holds a PEM or OpenSSH private key.
// Passphrase-protected keys pass: ssh asks for the passphrase itself.
func CheckKeyFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("private key not exist: %s", path)
		}
		return fmt.Errorf("stat private key: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidKeyFile, path)
	}
	if info.Size() > maxKeyFileSize {
		return fmt.Errorf("%w: %s is %d bytes", ErrInvalidKeyFile, path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}

	_, err = ssh.ParseRawPrivateKey(data)
	var missing *ssh.PassphraseMissingError
	if err == nil || errors.As(err, &missing) {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrInvalidKeyFile, path, err)
}
