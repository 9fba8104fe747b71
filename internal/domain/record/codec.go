// Package record converts accounts to and from vault record lines.
//
// A record line looks like
//
//	ssh://username:password:privateKeyFile@host:port label words
//
// The codec transports the password and key-file positions as opaque strings.
// It never encrypts or decrypts: callers put ciphertext tokens in before
// encoding and decrypt them after decoding.
package record

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ericfisherdev/sshvault/internal/domain/model"
)

// ErrFormat is returned by DecodeLine for lines that cannot be parsed.
var ErrFormat = errors.New("malformed record line")

// Template is a line layout with {username}, {password}, {privateKeyFile},
// {host}, {port} and {label} placeholders.
type Template string

const (
	// StoreTemplate is the persisted line layout.
	StoreTemplate Template = "ssh://{username}:{password}:{privateKeyFile}@{host}:{port} {label}"

	// ViewTemplate omits credentials. Lines rendered with it are for display
	// only and are never decoded.
	ViewTemplate Template = "ssh://{username}@{host}:{port} {label}"
)

// Fields holds the raw values substituted into a Template.
type Fields struct {
	Username       string
	Password       string
	PrivateKeyFile string
	Host           string
	Port           int
	Label          string
}

// FieldsOf returns the template values of a.
func FieldsOf(a model.Account) Fields {
	return Fields{
		Username:       a.Username,
		Password:       a.Password(),
		PrivateKeyFile: a.PrivateKeyFile(),
		Host:           a.Host,
		Port:           a.Port,
		Label:          a.Label,
	}
}

// EncodeLine renders a with the template.
func EncodeLine(a model.Account, t Template) string {
	return EncodeFields(FieldsOf(a), t)
}

// EncodeFields substitutes f into the template verbatim. Nothing is escaped:
// a username containing ':' or a secret containing URL syntax produces a line
// that will not decode to the same values. Ciphertext tokens are hex and
// always safe.
func EncodeFields(f Fields, t Template) string {
	host := f.Host
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	r := strings.NewReplacer(
		"{username}", f.Username,
		"{password}", f.Password,
		"{privateKeyFile}", f.PrivateKeyFile,
		"{host}", host,
		"{port}", strconv.Itoa(f.Port),
		"{label}", f.Label,
	)
	return r.Replace(string(t))
}

// DecodeLine parses a line written with StoreTemplate. The userinfo carries
// username:password:privateKeyFile; a non-empty key file makes the account
// key-based and discards whatever sits in the password position. A line
// without userinfo decodes to an empty username with no authentication.
func DecodeLine(line string) (model.Account, error) {
	prefix, rest, found := strings.Cut(line, " ")
	if !found {
		return model.Account{}, fmt.Errorf("%w: no space between address and label (%d characters)", ErrFormat, len(line))
	}

	scheme, address, ok := strings.Cut(prefix, "://")
	if !ok || scheme == "" {
		return model.Account{}, fmt.Errorf("%w: %q is not an absolute url", ErrFormat, redact(prefix))
	}

	// The userinfo is split off by hand: the username is stored raw and only
	// the password:keyfile part is percent-encoded.
	authority := address
	if i := strings.IndexAny(address, "/?#"); i >= 0 {
		authority = address[:i]
	}
	var userinfo string
	if at := strings.LastIndex(authority, "@"); at >= 0 {
		userinfo = authority[:at]
		address = address[at+1:]
	}

	u, err := url.Parse(scheme + "://" + address)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return model.Account{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	host := u.Hostname()
	if host == "" {
		return model.Account{}, fmt.Errorf("%w: missing host", ErrFormat)
	}

	var port int
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return model.Account{}, fmt.Errorf("%w: port %q is not a number", ErrFormat, p)
		}
	}

	username, encoded, _ := strings.Cut(userinfo, ":")
	password, err := url.PathUnescape(encoded)
	if err != nil {
		return model.Account{}, fmt.Errorf("%w: password field is not percent-encoded", ErrFormat)
	}
	parts := strings.Split(password, ":")
	secret := parts[0]
	var keyFile string
	if len(parts) > 1 {
		keyFile = parts[1]
	}

	return model.Account{
		Protocol: u.Scheme,
		Host:     host,
		Port:     port,
		Username: username,
		Auth:     model.NewAuth(secret, keyFile),
		Label:    strings.TrimSpace(rest),
	}, nil
}

// redact keeps scheme and host of a url-like prefix and drops the userinfo,
// which may hold secrets.
func redact(prefix string) string {
	if i := strings.LastIndex(prefix, "@"); i >= 0 {
		return "…" + prefix[i:]
	}
	return prefix
}
