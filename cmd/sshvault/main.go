package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/ericfisherdev/sshvault/internal/adapter/driven/launcher"
	sqliteadapter "github.com/ericfisherdev/sshvault/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/sshvault/internal/adapter/driven/vaultfile"
	"github.com/ericfisherdev/sshvault/internal/adapter/driving/cli"
	"github.com/ericfisherdev/sshvault/internal/application"
	"github.com/ericfisherdev/sshvault/internal/config"
	"github.com/ericfisherdev/sshvault/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		fail(err)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// 2. Parse the command line.
	var args cli.CLI
	kctx := kong.Parse(&args,
		kong.Name("sshvault"),
		kong.Description("Keep SSH accounts in an encrypted vault and log in to them by keyword."),
		kong.UsageOnError(),
	)
	slog.Debug("config loaded",
		"backend", cfg.Backend,
		"vault_path", cfg.VaultPath,
		"db_path", cfg.DBPath,
		"login_helper", cfg.LoginHelper,
		"key_dir", cfg.KeyDir,
	)

	// 3. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Wire adapters lazily: gen-key never opens the vault.
	prompter := cli.NewTerminalPrompter(os.Stdin, os.Stderr)
	var closers []func() error
	defer func() {
		for _, closeFn := range closers {
			if closeErr := closeFn(); closeErr != nil {
				slog.Error("error closing vault", "error", closeErr)
			}
		}
	}()

	openVault := func(ctx context.Context) (*application.VaultService, error) {
		store, closeFn, err := openStore(ctx, cfg, args.Vault)
		if err != nil {
			return nil, err
		}
		if closeFn != nil {
			closers = append(closers, closeFn)
		}

		login, err := launcher.New(cfg.LoginHelper, cfg.KeyDir)
		if err != nil {
			return nil, err
		}

		key, err := resolveKey(ctx, prompter, args.Key, cfg.EncryptKey)
		if err != nil {
			return nil, err
		}

		return application.NewVaultService(store, prompter, login, key, cfg.PadSecrets, logger), nil
	}

	// 5. Run the selected command.
	return kctx.Run(&cli.App{
		Ctx:   ctx,
		Out:   os.Stdout,
		Vault: openVault,
	})
}

// openStore opens the configured backend. override replaces the configured
// path of whichever backend is selected.
func openStore(ctx context.Context, cfg *config.Config, override string) (driven.RecordStore, func() error, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		path := cfg.DBPath
		if override != "" {
			path = override
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create vault dir: %w", err)
		}

		db, err := sqliteadapter.NewDB(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		version, err := sqliteadapter.RunMigrations(db.Writer)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		slog.Debug("vault opened", "backend", cfg.Backend, "path", path, "schema_version", version)
		return sqliteadapter.NewRecordRepo(db), db.Close, nil

	default:
		path := cfg.VaultPath
		if override != "" {
			path = override
		}
		slog.Debug("vault opened", "backend", cfg.Backend, "path", path)
		return vaultfile.NewStore(path), nil, nil
	}
}

// resolveKey picks the --key flag, then SSHVAULT_ENCRYPT_KEY, and asks on the
// terminal when both are empty.
func resolveKey(ctx context.Context, prompter driven.Prompter, flagKey, envKey string) (string, error) {
	switch {
	case flagKey != "":
		return flagKey, nil
	case envKey != "":
		return envKey, nil
	}

	key, err := prompter.Secret(ctx, "Encryption key")
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", errors.New("an encryption key is required: pass --key, set SSHVAULT_ENCRYPT_KEY or run `sshvault gen-key`")
	}
	return key, nil
}

func fail(err error) {
	// Remove the name of the failed method that kong prepends.
	msg := err.Error()
	if strings.HasPrefix(msg, "*cli.") {
		if _, reason, found := strings.Cut(msg, " "); found {
			msg = reason
		}
	}

	if !strings.HasPrefix(strings.ToLower(msg), "error") {
		msg = "Error: " + msg
	}
	out(os.Stderr, msg)
	os.Exit(1)
}

func out(dest io.Writer, s string) {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	_, _ = fmt.Fprint(dest, s)
}
