package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/sshvault/internal/domain/model"
	"github.com/ericfisherdev/sshvault/internal/domain/port/driven"
	"github.com/ericfisherdev/sshvault/internal/domain/record"
	"github.com/ericfisherdev/sshvault/internal/domain/secret"
)

// Sentinel errors returned by VaultService.
var (
	// ErrInvalidAccount indicates account details that cannot be stored.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrNotConfirmed indicates the user declined a destructive operation.
	ErrNotConfirmed = errors.New("operation not confirmed")
)

// VaultService implements the vault commands on top of a RecordStore. Secrets
// are encrypted before a line is encoded and decrypted after it is decoded;
// the store only ever sees stored-form lines.
type VaultService struct {
	store      driven.RecordStore
	prompter   driven.Prompter
	launcher   driven.Launcher
	key        string
	padSecrets bool
	logger     *slog.Logger
}

// NewVaultService creates a VaultService. key is normalized with
// secret.NormalizeKey; an empty key is kept empty and every operation that
// needs the cipher fails with secret.ErrKeyFormat.
func NewVaultService(
	store driven.RecordStore,
	prompter driven.Prompter,
	launcher driven.Launcher,
	key string,
	padSecrets bool,
	logger *slog.Logger,
) *VaultService {
	if key != "" {
		key = secret.NormalizeKey(key)
	}
	return &VaultService{
		store:      store,
		prompter:   prompter,
		launcher:   launcher,
		key:        key,
		padSecrets: padSecrets,
		logger:     logger,
	}
}

// FilterRecords returns the lines containing every keyword as a substring.
// No keywords matches everything.
func FilterRecords(lines []string, keywords []string) []string {
	matched := make([]string, 0, len(lines))
	for _, line := range lines {
		if matchesAll(line, keywords) {
			matched = append(matched, line)
		}
	}
	return matched
}

func matchesAll(line string, keywords []string) bool {
	for _, kw := range keywords {
		if !strings.Contains(line, kw) {
			return false
		}
	}
	return true
}

// List returns the matching accounts rendered without credentials, in vault
// order. Lines that fail to decode are skipped.
func (s *VaultService) List(ctx context.Context, keywords []string) ([]string, error) {
	lines, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read vault: %w", err)
	}

	views := make([]string, 0, len(lines))
	for i, line := range lines {
		if !matchesAll(line, keywords) {
			continue
		}
		a, err := record.DecodeLine(line)
		if err != nil {
			s.logger.Warn("skipping malformed record", "index", i, "error", err)
			continue
		}
		views = append(views, record.EncodeLine(a, record.ViewTemplate))
	}
	return views, nil
}

// Add asks for a new account, encrypts its secret and appends it to the vault.
// It returns the display form of the stored account.
func (s *VaultService) Add(ctx context.Context) (string, error) {
	input, err := s.prompter.EditAccount(ctx, model.Account{
		Protocol: "ssh",
		Port:     model.DefaultPort,
		Auth:     model.NoAuth{},
	})
	if err != nil {
		return "", err
	}

	a, err := s.prepare(input)
	if err != nil {
		return "", err
	}
	line, err := s.sealLine(a)
	if err != nil {
		return "", err
	}

	unlock, err := s.store.Lock(ctx)
	if err != nil {
		return "", fmt.Errorf("lock vault: %w", err)
	}
	defer s.release(unlock)

	lines, err := s.store.ReadAll(ctx)
	if err != nil {
		return "", fmt.Errorf("read vault: %w", err)
	}
	if err := s.store.WriteAll(ctx, append(lines, line)); err != nil {
		return "", fmt.Errorf("write vault: %w", err)
	}

	s.logger.Info("account added", "host", a.Host, "label", a.Label)
	return record.EncodeLine(a, record.ViewTemplate), nil
}

// Edit selects one matching account, asks for new details with the current
// ones as defaults and replaces the record in place.
func (s *VaultService) Edit(ctx context.Context, keywords []string) (string, error) {
	unlock, err := s.store.Lock(ctx)
	if err != nil {
		return "", fmt.Errorf("lock vault: %w", err)
	}
	defer s.release(unlock)

	lines, err := s.store.ReadAll(ctx)
	if err != nil {
		return "", fmt.Errorf("read vault: %w", err)
	}
	idx, current, err := s.selectRecord(ctx, lines, keywords, "Select the account to edit")
	if err != nil {
		return "", err
	}
	plain, err := s.Open(current)
	if err != nil {
		return "", err
	}

	input, err := s.prompter.EditAccount(ctx, plain)
	if err != nil {
		return "", err
	}
	a, err := s.prepare(input)
	if err != nil {
		return "", err
	}
	line, err := s.sealLine(a)
	if err != nil {
		return "", err
	}

	lines[idx] = line
	if err := s.store.WriteAll(ctx, lines); err != nil {
		return "", fmt.Errorf("write vault: %w", err)
	}

	s.logger.Info("account updated", "host", a.Host, "label", a.Label)
	return record.EncodeLine(a, record.ViewTemplate), nil
}

// Delete selects one matching account and removes it after confirmation.
// Confirmation is asked even when a single record matches.
func (s *VaultService) Delete(ctx context.Context, keywords []string) (string, error) {
	unlock, err := s.store.Lock(ctx)
	if err != nil {
		return "", fmt.Errorf("lock vault: %w", err)
	}
	defer s.release(unlock)

	lines, err := s.store.ReadAll(ctx)
	if err != nil {
		return "", fmt.Errorf("read vault: %w", err)
	}
	idx, a, err := s.selectRecord(ctx, lines, keywords, "Select the account to delete")
	if err != nil {
		return "", err
	}

	view := record.EncodeLine(a, record.ViewTemplate)
	ok, err := s.prompter.Confirm(ctx, fmt.Sprintf("Delete %s?", view))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotConfirmed
	}

	remaining := make([]string, 0, len(lines)-1)
	remaining = append(remaining, lines[:idx]...)
	remaining = append(remaining, lines[idx+1:]...)
	if err := s.store.WriteAll(ctx, remaining); err != nil {
		return "", fmt.Errorf("write vault: %w", err)
	}

	s.logger.Info("account deleted", "host", a.Host, "label", a.Label)
	return view, nil
}

// Login selects one matching account, decrypts it, re-encrypts its secret
// with a fresh IV, rewrites the record and then runs the login helper with
// options appended to its arguments. The vault lock is released before the
// helper starts.
func (s *VaultService) Login(ctx context.Context, keywords []string, options []string) error {
	req, err := s.prepareLogin(ctx, keywords, options)
	if err != nil {
		return err
	}

	s.logger.Info("logging in", "host", req.Host, "port", req.Port, "user", req.Username)
	return s.launcher.Login(ctx, req)
}

func (s *VaultService) prepareLogin(ctx context.Context, keywords []string, options []string) (driven.LoginRequest, error) {
	unlock, err := s.store.Lock(ctx)
	if err != nil {
		return driven.LoginRequest{}, fmt.Errorf("lock vault: %w", err)
	}
	defer s.release(unlock)

	lines, err := s.store.ReadAll(ctx)
	if err != nil {
		return driven.LoginRequest{}, fmt.Errorf("read vault: %w", err)
	}
	idx, stored, err := s.selectRecord(ctx, lines, keywords, "Select the account to log in to")
	if err != nil {
		return driven.LoginRequest{}, err
	}
	plain, err := s.Open(stored)
	if err != nil {
		return driven.LoginRequest{}, err
	}

	req := driven.LoginRequest{
		Host:     plain.Host,
		Port:     plain.Port,
		Username: plain.Username,
		Password: plain.Password(),
		Options:  options,
	}
	if req.Port == 0 {
		req.Port = model.DefaultPort
	}
	if keyFile := plain.PrivateKeyFile(); keyFile != "" {
		resolved, err := s.launcher.ResolveKeyFile(keyFile)
		if err != nil {
			return driven.LoginRequest{}, err
		}
		req.PrivateKeyFile = resolved
	}

	// The stored key-file value stays as entered; only the ciphertext changes.
	line, err := s.sealLine(plain)
	if err != nil {
		return driven.LoginRequest{}, err
	}
	lines[idx] = line
	if err := s.store.WriteAll(ctx, lines); err != nil {
		return driven.LoginRequest{}, fmt.Errorf("write vault: %w", err)
	}

	return req, nil
}

// GenerateKey returns a fresh random key suitable for SSHVAULT_ENCRYPT_KEY.
// It needs no vault.
func GenerateKey() (string, error) {
	return secret.GenerateKey()
}

// Seal returns a copy of a with its plaintext secret encrypted.
func (s *VaultService) Seal(a model.Account) (model.Account, error) {
	auth, err := model.TransformSecret(a.Auth, func(plain string) (string, error) {
		return secret.Encrypt(plain, s.key, s.padSecrets)
	})
	if err != nil {
		return model.Account{}, fmt.Errorf("encrypt secret: %w", err)
	}
	a.Auth = auth
	return a, nil
}

// Open returns a copy of a with its secret token decrypted.
func (s *VaultService) Open(a model.Account) (model.Account, error) {
	auth, err := model.TransformSecret(a.Auth, func(token string) (string, error) {
		return secret.Decrypt(token, s.key)
	})
	if err != nil {
		return model.Account{}, fmt.Errorf("decrypt secret of %q: %w", a.Label, err)
	}
	a.Auth = auth
	return a, nil
}

func (s *VaultService) sealLine(a model.Account) (string, error) {
	sealed, err := s.Seal(a)
	if err != nil {
		return "", err
	}
	return record.EncodeLine(sealed, record.StoreTemplate), nil
}

// selectRecord narrows lines by keywords and picks one. A single match is
// used without asking.
func (s *VaultService) selectRecord(
	ctx context.Context,
	lines []string,
	keywords []string,
	message string,
) (int, model.Account, error) {
	if len(lines) == 0 {
		return 0, model.Account{}, driven.ErrNoAccounts
	}

	var (
		indexes  []int
		accounts []model.Account
		options  []string
	)
	for i, line := range lines {
		if !matchesAll(line, keywords) {
			continue
		}
		a, err := record.DecodeLine(line)
		if err != nil {
			s.logger.Warn("skipping malformed record", "index", i, "error", err)
			continue
		}
		indexes = append(indexes, i)
		accounts = append(accounts, a)
		options = append(options, record.EncodeLine(a, record.ViewTemplate))
	}

	switch {
	case len(indexes) == 0:
		return 0, model.Account{}, driven.ErrAccountNotFound
	case len(indexes) == 1:
		return indexes[0], accounts[0], nil
	}

	choice, err := s.prompter.Choose(ctx, message, options)
	if err != nil {
		return 0, model.Account{}, err
	}
	if choice < 0 || choice >= len(indexes) {
		return 0, model.Account{}, fmt.Errorf("choice %d out of range", choice)
	}
	return indexes[choice], accounts[choice], nil
}

// prepare validates user input and fills defaults. The record line has no
// escaping, so characters that would change how it decodes are rejected.
func (s *VaultService) prepare(a model.Account) (model.Account, error) {
	a.Label = strings.TrimSpace(a.Label)
	a.Host = strings.TrimSpace(a.Host)
	a.Username = strings.TrimSpace(a.Username)
	if a.Protocol == "" {
		a.Protocol = "ssh"
	}
	if a.Port == 0 {
		a.Port = model.DefaultPort
	}
	if a.Auth == nil {
		a.Auth = model.NoAuth{}
	}

	switch {
	case a.Label == "":
		return model.Account{}, fmt.Errorf("%w: label is required", ErrInvalidAccount)
	case strings.ContainsAny(a.Label, "\r\n"):
		return model.Account{}, fmt.Errorf("%w: label must be a single line", ErrInvalidAccount)
	case a.Host == "":
		return model.Account{}, fmt.Errorf("%w: host is required", ErrInvalidAccount)
	case strings.ContainsAny(a.Host, " /@?#[]\t\r\n"):
		return model.Account{}, fmt.Errorf("%w: host %q contains invalid characters", ErrInvalidAccount, a.Host)
	case a.Username == "":
		return model.Account{}, fmt.Errorf("%w: username is required", ErrInvalidAccount)
	case strings.ContainsAny(a.Username, " :/@?#%\t\r\n"):
		return model.Account{}, fmt.Errorf("%w: username %q contains invalid characters", ErrInvalidAccount, a.Username)
	case a.Port < 1 || a.Port > 65535:
		return model.Account{}, fmt.Errorf("%w: port %d out of range 1-65535", ErrInvalidAccount, a.Port)
	}

	if keyFile := a.PrivateKeyFile(); keyFile != "" {
		if _, err := s.launcher.ResolveKeyFile(keyFile); err != nil {
			s.logger.Warn("private key file is not usable yet", "path", keyFile, "error", err)
		}
	}
	return a, nil
}

func (s *VaultService) release(unlock func() error) {
	if err := unlock(); err != nil {
		s.logger.Warn("failed to release vault lock", "error", err)
	}
}
