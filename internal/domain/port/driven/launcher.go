package driven

import "context"

// LoginRequest carries the decrypted account details handed to the login
// helper. PrivateKeyFile is already resolved to an absolute path.
type LoginRequest struct {
	Host           string
	Port           int
	Username       string
	Password       string
	PrivateKeyFile string
	Options        []string
}

// Launcher defines the driven port for the external login helper.
type Launcher interface {
	// ResolveKeyFile maps a stored key-file value to an absolute path and
	// verifies the file exists and holds a private key.
	ResolveKeyFile(path string) (string, error)

	// Login runs the interactive login helper and waits for it to exit.
	Login(ctx context.Context, req LoginRequest) error
}
