//go:build !linux

package netmon

import (
	"context"
	"fmt"
	"net"
)

type unsupportedWatcher struct{}

// NewWatcher returns a watcher that fails to start; rtnetlink is Linux only.
func NewWatcher(listExisting bool) Watcher {
	return unsupportedWatcher{}
}

func (unsupportedWatcher) Start(ctx context.Context, callback EventHandler) error {
	return ErrUnsupportedPlatform
}

// ResolveInterface looks up the index of the named interface.
func ResolveInterface(name string) (Link, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return Link{}, fmt.Errorf("%w: %s", ErrInterfaceNotFound, name)
	}
	return Link{Name: name, Index: iface.Index}, nil
}
