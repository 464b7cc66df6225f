package provider

import (
	"errors"
	"fmt"

	"github.com/poiesic/loom/core"
)

var (
	// ErrCredentialsNotFound indicates a credential reference id is not
	// present in the registry. It is always detected before any
	// connection attempt is made.
	ErrCredentialsNotFound = errors.New("credentials not found")

	// ErrNotASource indicates a backend cannot stream items out.
	ErrNotASource = errors.New("backend does not support reading")

	// ErrNotASink indicates a backend cannot persist items.
	ErrNotASink = errors.New("backend does not support writing")

	// ErrNoFactory indicates no factory is registered for a backend kind.
	ErrNoFactory = errors.New("no factory registered for backend")
)

// ConnectionError wraps a backend connect or verify failure with the
// backend kind that produced it.
type ConnectionError struct {
	Backend core.Backend
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connection: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError wraps err as a connection failure for backend.
func NewConnectionError(backend core.Backend, err error) error {
	if err == nil {
		return nil
	}
	return &ConnectionError{Backend: backend, Err: err}
}
