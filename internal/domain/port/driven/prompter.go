package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/sshvault/internal/domain/model"
)

// ErrPromptAborted is returned by Prompter implementations when the user
// cancels input.
var ErrPromptAborted = errors.New("prompt aborted")

// Prompter defines the driven port for interactive input.
type Prompter interface {
	// Choose asks the user to pick one of options and returns its index.
	Choose(ctx context.Context, message string, options []string) (int, error)

	// Confirm asks a yes/no question. Anything but an explicit yes is false.
	Confirm(ctx context.Context, message string) (bool, error)

	// Secret reads a value without echoing it.
	Secret(ctx context.Context, message string) (string, error)

	// EditAccount collects account details, offering the fields of defaults
	// as pre-filled answers. The returned account holds a plaintext secret.
	EditAccount(ctx context.Context, defaults model.Account) (model.Account, error)
}
