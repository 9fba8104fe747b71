// Package cli is the command-line driving adapter: kong command definitions
// and the terminal prompter used by the vault service.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ericfisherdev/sshvault/internal/application"
	"github.com/ericfisherdev/sshvault/internal/domain/port/driven"
)

// App carries what commands need at run time. Vault is called lazily so
// commands that never touch the vault do not ask for a key.
type App struct {
	Ctx   context.Context
	Out   io.Writer
	Vault func(ctx context.Context) (*application.VaultService, error)
}

// CLI is the kong command tree.
type CLI struct {
	Vault string `type:"path" placeholder:"PATH" help:"Vault file (default: $SSHVAULT_VAULT_PATH or ~/.sshvault/ssh-accounts)"`
	Key   string `placeholder:"KEY" help:"Encryption key (default: $SSHVAULT_ENCRYPT_KEY, asked for when empty)"`

	Add    AddCmd    `cmd:"" help:"Add an account"`
	Edit   EditCmd   `cmd:"" help:"Edit the account matching the keywords"`
	List   ListCmd   `cmd:"" aliases:"ls" help:"List accounts matching the keywords"`
	Delete DeleteCmd `cmd:"" help:"Delete the account matching the keywords"`
	Login  LoginCmd  `cmd:"" aliases:"to" help:"Log in to the account matching the keywords"`
	GenKey GenKeyCmd `cmd:"" name:"gen-key" help:"Print a new random encryption key"`
}

// AddCmd adds an account.
type AddCmd struct{}

func (c *AddCmd) Run(app *App) error {
	svc, err := app.Vault(app.Ctx)
	if err != nil {
		return err
	}
	view, err := svc.Add(app.Ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Added %s\n", view)
	return nil
}

// EditCmd edits an account.
type EditCmd struct {
	Keywords []string `arg:"" optional:"" help:"Keywords every matching record must contain"`
}

func (c *EditCmd) Run(app *App) error {
	svc, err := app.Vault(app.Ctx)
	if err != nil {
		return err
	}
	view, err := svc.Edit(app.Ctx, c.Keywords)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Updated %s\n", view)
	return nil
}

// ListCmd lists accounts.
type ListCmd struct {
	Keywords []string `arg:"" optional:"" help:"Keywords every listed record must contain"`
}

func (c *ListCmd) Run(app *App) error {
	svc, err := app.Vault(app.Ctx)
	if err != nil {
		return err
	}
	views, err := svc.List(app.Ctx, c.Keywords)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		return driven.ErrAccountNotFound
	}
	for _, v := range views {
		fmt.Fprintln(app.Out, v)
	}
	return nil
}

// DeleteCmd deletes an account.
type DeleteCmd struct {
	Keywords []string `arg:"" optional:"" help:"Keywords every matching record must contain"`
}

func (c *DeleteCmd) Run(app *App) error {
	svc, err := app.Vault(app.Ctx)
	if err != nil {
		return err
	}
	view, err := svc.Delete(app.Ctx, c.Keywords)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Deleted %s\n", view)
	return nil
}

// LoginCmd logs in to an account.
type LoginCmd struct {
	Opts     string   `placeholder:"OPTIONS" help:"Extra options for the login helper, e.g. --opts='-A -o ServerAliveInterval=30'"`
	Keywords []string `arg:"" optional:"" help:"Keywords every matching record must contain"`
}

func (c *LoginCmd) Run(app *App) error {
	svc, err := app.Vault(app.Ctx)
	if err != nil {
		return err
	}
	return svc.Login(app.Ctx, c.Keywords, strings.Fields(c.Opts))
}

// GenKeyCmd prints a fresh key.
type GenKeyCmd struct{}

func (c *GenKeyCmd) Run(app *App) error {
	key, err := application.GenerateKey()
	if err != nil {
		return err
	}
	fmt.Fprintln(app.Out, key)
	return nil
}
