package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/ericfisherdev/sshvault/internal/domain/model"
	"github.com/ericfisherdev/sshvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Prompter = (*TerminalPrompter)(nil)

// maxAttempts bounds how often a question is repeated after invalid input.
const maxAttempts = 3

// Authentication choices offered by EditAccount.
const (
	authPassword = "password"
	authKey      = "key"
	authNone     = "none"
)

// TerminalPrompter asks questions on a terminal. Secrets are read without
// echo when input is a TTY and as plain lines otherwise.
type TerminalPrompter struct {
	in         *bufio.Reader
	out        io.Writer
	readSecret func() (string, error)
}

// NewTerminalPrompter creates a prompter reading from in and writing
// questions to out.
func NewTerminalPrompter(in *os.File, out io.Writer) *TerminalPrompter {
	p := newPrompter(in, out)
	fd := int(in.Fd()) //nolint:gosec // file descriptors fit in int
	if term.IsTerminal(fd) {
		p.readSecret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(p.out)
			if err != nil {
				return "", fmt.Errorf("read secret: %w", err)
			}
			return string(b), nil
		}
	}
	return p
}

func newPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	p := &TerminalPrompter{in: bufio.NewReader(in), out: out}
	p.readSecret = p.readLine
	return p
}

// Choose prints options as a numbered list and reads a 1-based answer.
func (p *TerminalPrompter) Choose(ctx context.Context, message string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("nothing to choose from")
	}
	for i, opt := range options {
		fmt.Fprintf(p.out, "%3d) %s\n", i+1, opt)
	}
	for range maxAttempts {
		answer, err := p.ask(ctx, fmt.Sprintf("%s [1-%d]", message, len(options)), "")
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(p.out, "Please enter a number between 1 and %d.\n", len(options))
	}
	return 0, driven.ErrPromptAborted
}

// Confirm asks a yes/no question defaulting to no.
func (p *TerminalPrompter) Confirm(ctx context.Context, message string) (bool, error) {
	answer, err := p.ask(ctx, message+" [y/N]", "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Secret reads a value without echo.
func (p *TerminalPrompter) Secret(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(p.out, "%s: ", message)
	return p.readSecret()
}

// EditAccount asks for every account field. An empty answer keeps the value
// from defaults. A new password is asked twice.
func (p *TerminalPrompter) EditAccount(ctx context.Context, defaults model.Account) (model.Account, error) {
	a := defaults

	var err error
	if a.Label, err = p.ask(ctx, "Label", defaults.Label); err != nil {
		return model.Account{}, err
	}
	if a.Host, err = p.ask(ctx, "Host", defaults.Host); err != nil {
		return model.Account{}, err
	}
	if a.Port, err = p.askPort(ctx, defaults.Port); err != nil {
		return model.Account{}, err
	}
	if a.Username, err = p.ask(ctx, "Username", defaults.Username); err != nil {
		return model.Account{}, err
	}
	// An existing account without credentials keeps "none" as its default.
	if a.Auth, err = p.askAuth(ctx, defaults.Auth, defaults.Host != ""); err != nil {
		return model.Account{}, err
	}
	return a, nil
}

func (p *TerminalPrompter) askPort(ctx context.Context, def int) (int, error) {
	if def == 0 {
		def = model.DefaultPort
	}
	for range maxAttempts {
		answer, err := p.ask(ctx, "Port", strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		port, err := strconv.Atoi(answer)
		if err == nil && port >= 1 && port <= 65535 {
			return port, nil
		}
		fmt.Fprintln(p.out, "Port must be a number between 1 and 65535.")
	}
	return 0, driven.ErrPromptAborted
}

func (p *TerminalPrompter) askAuth(ctx context.Context, current model.Auth, existing bool) (model.Auth, error) {
	if current == nil {
		current = model.NoAuth{}
	}
	def := authPassword
	switch {
	case current.Kind() == model.AuthKindKeyFile:
		def = authKey
	case current.Kind() == model.AuthKindNone && existing:
		def = authNone
	}

	for range maxAttempts {
		kind, err := p.ask(ctx, "Authentication (password/key/none)", def)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(kind) {
		case authPassword, "p":
			return p.askPassword(ctx, current)
		case authKey, "k":
			return p.askKeyFile(ctx, current)
		case authNone, "n":
			return model.NoAuth{}, nil
		}
		fmt.Fprintln(p.out, `Answer "password", "key" or "none".`)
	}
	return nil, driven.ErrPromptAborted
}

func (p *TerminalPrompter) askPassword(ctx context.Context, current model.Auth) (model.Auth, error) {
	message := "Password"
	if current.Kind() == model.AuthKindPassword {
		message = "Password (empty keeps the current one)"
	}

	for range maxAttempts {
		pw, err := p.Secret(ctx, message)
		if err != nil {
			return nil, err
		}
		if pw == "" {
			if current.Kind() == model.AuthKindPassword {
				return current, nil
			}
			fmt.Fprintln(p.out, "Password must not be empty.")
			continue
		}
		again, err := p.Secret(ctx, "Confirm password")
		if err != nil {
			return nil, err
		}
		if pw == again {
			return model.PasswordAuth{Password: pw}, nil
		}
		fmt.Fprintln(p.out, "Passwords do not match.")
	}
	return nil, driven.ErrPromptAborted
}

func (p *TerminalPrompter) askKeyFile(ctx context.Context, current model.Auth) (model.Auth, error) {
	var def string
	if current.Kind() == model.AuthKindKeyFile {
		def = current.Secret()
	}
	for range maxAttempts {
		path, err := p.ask(ctx, "Private key file (relative to the key dir)", def)
		if err != nil {
			return nil, err
		}
		if path != "" {
			return model.KeyFileAuth{Path: path}, nil
		}
		fmt.Fprintln(p.out, "Private key file must not be empty.")
	}
	return nil, driven.ErrPromptAborted
}

// ask prints a question with an optional default and returns the trimmed
// answer, or def when the answer is empty.
func (p *TerminalPrompter) ask(ctx context.Context, question, def string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}

	answer, err := p.readLine()
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// readLine returns one line without its terminator. End of input before any
// character is read aborts the prompt.
func (p *TerminalPrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		if errors.Is(err, io.EOF) {
			return "", driven.ErrPromptAborted
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
