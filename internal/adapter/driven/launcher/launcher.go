// Package launcher runs the external SSH login helper for a decrypted account.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ericfisherdev/sshvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Launcher = (*Launcher)(nil)

const (
	passwordHelper = "sshpass"
	passwordEnv    = "SSHPASS"
	helperPassEnv  = "SSHVAULT_PASSWORD"
)

// Launcher starts the login helper. When the helper is plain "ssh", password
// accounts go through sshpass with the password in the environment. Any other
// helper is invoked as
//
//	helper USER HOST PORT KEYFILE [OPTIONS...]
//
// with "-" for an absent key file and the password in SSHVAULT_PASSWORD.
// Secrets never appear on the command line.
type Launcher struct {
	helper string
	keyDir string
	home   string
	stdio  [3]*os.File

	lookPath func(file string) (string, error)
	run      func(cmd *exec.Cmd) error
}

// New creates a Launcher running helper. Relative key-file names resolve
// against keyDir.
func New(helper, keyDir string) (*Launcher, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home dir: %w", err)
	}
	return &Launcher{
		helper: helper,
		keyDir: keyDir,
		home:   home,
		stdio:  [3]*os.File{os.Stdin, os.Stdout, os.Stderr},

		lookPath: exec.LookPath,
		run:      func(cmd *exec.Cmd) error { return cmd.Run() },
	}, nil
}

// ResolveKeyFile maps a stored key-file value to an absolute path and checks
// the file holds a private key.
func (l *Launcher) ResolveKeyFile(path string) (string, error) {
	resolved := resolvePath(path, l.keyDir, l.home)
	if err := CheckKeyFile(resolved); err != nil {
		return "", err
	}
	return resolved, nil
}

// Login runs the helper attached to the terminal and waits for it to exit.
func (l *Launcher) Login(ctx context.Context, req driven.LoginRequest) error {
	cmd, err := l.Command(ctx, req)
	if err != nil {
		return err
	}
	if err := l.run(cmd); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("login helper exited with status %d", exitErr.ExitCode())
		}
		return fmt.Errorf("run login helper: %w", err)
	}
	return nil
}

// Command builds the helper invocation for req without running it.
func (l *Launcher) Command(ctx context.Context, req driven.LoginRequest) (*exec.Cmd, error) {
	if req.Host == "" {
		return nil, errors.New("login: host is required")
	}

	var (
		name string
		args []string
		env  []string
	)
	if filepath.Base(l.helper) == "ssh" {
		sshArgs := []string{"-p", strconv.Itoa(req.Port)}
		if req.PrivateKeyFile != "" {
			sshArgs = append(sshArgs, "-i", req.PrivateKeyFile)
		}
		sshArgs = append(sshArgs, req.Options...)
		sshArgs = append(sshArgs, destination(req))

		name, args = l.helper, sshArgs
		if req.PrivateKeyFile == "" && req.Password != "" {
			name = passwordHelper
			args = append([]string{"-e", l.helper}, sshArgs...)
			env = append(env, passwordEnv+"="+req.Password)
		}
	} else {
		keyFile := req.PrivateKeyFile
		if keyFile == "" {
			keyFile = "-"
		}
		name = l.helper
		args = append([]string{req.Username, req.Host, strconv.Itoa(req.Port), keyFile}, req.Options...)
		if req.Password != "" {
			env = append(env, helperPassEnv+"="+req.Password)
		}
	}

	path, err := l.lookPath(name)
	if err != nil {
		return nil, fmt.Errorf("login helper %q not found: %w", name, err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = l.stdio[0], l.stdio[1], l.stdio[2]
	return cmd, nil
}

func destination(req driven.LoginRequest) string {
	if req.Username == "" {
		return req.Host
	}
	return req.Username + "@" + req.Host
}

// resolvePath expands "~" and places bare names under keyDir.
func resolvePath(path, keyDir, home string) string {
	switch {
	case path == "~":
		return home
	case strings.HasPrefix(path, "~/"):
		return filepath.Join(home, path[2:])
	case filepath.IsAbs(path):
		return filepath.Clean(path)
	case keyDir == "":
		return filepath.Clean(path)
	default:
		return filepath.Join(resolvePath(keyDir, "", home), path)
	}
}
