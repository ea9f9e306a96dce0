package ports

import (
	"context"

	"github.com/mpm-dev/mpm/plugin/entities"
)

// Transaction is one convergence step for a server.
// Test must not mutate state. Run is only called after every Test in the batch succeeded.
type Transaction interface {
	// Test validates preconditions.
	Test(ctx context.Context) error

	// Run performs the mutation.
	Run(ctx context.Context) error

	// Server returns the name of the server the transaction applies to.
	Server() string

	// Action returns a short verb such as "install" or "remove".
	Action() string

	// Plugin returns the artifact the transaction acts on.
	Plugin() entities.Plugin

	String() string
}

// Stager is implemented by transactions that copy data before committing.
// Stage writes to temporary paths only; Commit makes the staged data visible;
// Discard removes whatever Stage created.
type Stager interface {
	Stage(ctx context.Context) error
	Commit(ctx context.Context) error
	Discard() error
}

// TransactionFactory builds the transactions the resolver emits.
type TransactionFactory interface {
	// Install copies plugin into the server and links it.
	Install(server Inventory, plugin entities.Plugin) Transaction

	// Link points the server's link at a plugin already in its versions directory.
	Link(server Inventory, plugin entities.Plugin) Transaction

	// Remove deletes an installed plugin from the server.
	Remove(server Inventory, plugin entities.Plugin) Transaction
}

// Prompter asks the user to approve an action.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}
