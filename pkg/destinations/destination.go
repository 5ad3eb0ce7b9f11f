// Package destinations defines the capability contract every destination
// store implements. The orchestrator never assumes anything about a
// destination beyond these methods.
package destinations

import (
	"context"
	"errors"

	"github.com/duesync/duesync/pkg/assignment"
)

// ErrAlreadyExists is returned by Create when the destination reports the
// item is already present. The orchestrator reacts by re-running Exists
// instead of failing the record.
var ErrAlreadyExists = errors.New("item already exists at destination")

// RemoteTask is a destination item in destination-neutral form.
type RemoteTask struct {
	RemoteID string
	Title    string
	SourceID string
	DueDate  string
	Course   string
	Status   assignment.Status
}

// Destination is the four-method capability set. Lookups key on the stable
// source identifier, never on the title alone: destinations truncate and
// reformat titles freely.
type Destination interface {
	Name() string
	// Create makes a new remote item and returns its id.
	Create(ctx context.Context, a *assignment.Assignment) (string, error)
	// Exists returns the remote id of the item for this record, or "" when
	// absent.
	Exists(ctx context.Context, a *assignment.Assignment) (string, error)
	// ListAll returns every item the destination holds for us.
	ListAll(ctx context.Context) ([]RemoteTask, error)
}

// Deleter is implemented by destinations that support removing an item.
// Matching goes through the shared title formatter, same as creation.
type Deleter interface {
	Delete(ctx context.Context, a *assignment.Assignment) error
}
