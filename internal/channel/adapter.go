package channel

import "context"

// Adapter is the interface for messaging transports.
type Adapter interface {
	// Start starts the adapter's receive loop
	Start(ctx context.Context) error

	// Stop stops the adapter
	Stop() error

	// Name returns the name of the adapter
	Name() string
}
