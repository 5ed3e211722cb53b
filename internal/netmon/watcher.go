package netmon

import (
	"context"
	"errors"
)

var (
	ErrInterfaceNotFound   = errors.New("interface not found")
	ErrSubscriptionClosed  = errors.New("address subscription closed")
	ErrUnsupportedPlatform = errors.New("address monitoring is not supported on this platform")
)

// Watcher delivers kernel address notifications.
type Watcher interface {
	// Start subscribes to address changes and calls callback for each
	// notification, in delivery order, from a single goroutine.
	// Blocks until ctx is cancelled or the subscription cannot be opened.
	Start(ctx context.Context, callback EventHandler) error
}
