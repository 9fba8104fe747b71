package model

// DefaultPort is the SSH port assigned to freshly created accounts that do not
// specify one. The record codec never applies it; it is account-entry policy.
const DefaultPort = 22

// Account is one SSH connection profile. It is never persisted as an object:
// its only stored form is a single record line.
//
// Depending on where the Account came from, the secret carried by Auth is
// either a ciphertext token (decoded from a line) or plaintext (after the
// vault service decrypted it).
type Account struct {
	Protocol string
	Host     string
	Port     int
	Username string
	Auth     Auth
	Label    string
}

// Password returns the password secret, or "" for key-file and no-auth accounts.
func (a Account) Password() string {
	if p, ok := a.Auth.(PasswordAuth); ok {
		return p.Password
	}
	return ""
}

// PrivateKeyFile returns the key-file secret, or "" for password and no-auth accounts.
func (a Account) PrivateKeyFile() string {
	if k, ok := a.Auth.(KeyFileAuth); ok {
		return k.Path
	}
	return ""
}

// AuthKind names the variant held by an Auth value.
type AuthKind string

const (
	AuthKindNone     AuthKind = "none"
	AuthKindPassword AuthKind = "password"
	AuthKindKeyFile  AuthKind = "keyfile"
)

// Auth is the credential of an account: exactly one of PasswordAuth,
// KeyFileAuth or NoAuth. Password and key file are mutually exclusive by
// construction.
type Auth interface {
	Kind() AuthKind
	// Secret returns the value stored in the record's secret position.
	Secret() string

	withSecret(s string) Auth
}

// PasswordAuth authenticates with a password.
type PasswordAuth struct {
	Password string
}

func (PasswordAuth) Kind() AuthKind { return AuthKindPassword }
func (a PasswordAuth) Secret() string { return a.Password }
func (PasswordAuth) withSecret(s string) Auth { return PasswordAuth{Password: s} }

// KeyFileAuth authenticates with a private key file.
type KeyFileAuth struct {
	Path string
}

func (KeyFileAuth) Kind() AuthKind { return AuthKindKeyFile }
func (a KeyFileAuth) Secret() string { return a.Path }
func (KeyFileAuth) withSecret(s string) Auth { return KeyFileAuth{Path: s} }

// NoAuth is an account without a stored credential.
type NoAuth struct{}

func (NoAuth) Kind() AuthKind { return AuthKindNone }
func (NoAuth) Secret() string { return "" }
func (NoAuth) withSecret(_ string) Auth { return NoAuth{} }

// NewAuth builds the Auth variant for a password / key-file pair. A non-empty
// key file wins over the password; two empty values yield NoAuth.
func NewAuth(password, privateKeyFile string) Auth {
	switch {
	case privateKeyFile != "":
		return KeyFileAuth{Path: privateKeyFile}
	case password != "":
		return PasswordAuth{Password: password}
	default:
		return NoAuth{}
	}
}

// TransformSecret applies fn to the secret held by a, keeping the variant.
// NoAuth and a nil Auth are returned as NoAuth without calling fn.
func TransformSecret(a Auth, fn func(string) (string, error)) (Auth, error) {
	if a == nil || a.Kind() == AuthKindNone {
		return NoAuth{}, nil
	}
	s, err := fn(a.Secret())
	if err != nil {
		return nil, err
	}
	return a.withSecret(s), nil
}
