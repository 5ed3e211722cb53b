//go:build linux

package netmon

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
)

const (
	// updateBuffer absorbs bursts while a hook round is running. Anything
	// beyond it backs up into the socket receive buffer.
	updateBuffer = 64

	receiveBufferSize = 1 << 20
	resubscribeDelay  = time.Second
)

type subscribeFunc func(ch chan<- netlink.AddrUpdate, done <-chan struct{}, opts netlink.AddrSubscribeOptions) error

type linuxWatcher struct {
	listExisting bool
	subscribe    subscribeFunc
	retryDelay   time.Duration
}

// NewWatcher creates a Linux watcher using rtnetlink address groups. With
// listExisting, the addresses already configured when the subscription is
// opened are delivered first as new-address events.
func NewWatcher(listExisting bool) Watcher {
	return &linuxWatcher{
		listExisting: listExisting,
		subscribe:    netlink.AddrSubscribeWithOptions,
		retryDelay:   resubscribeDelay,
	}
}

// Start blocks until ctx is cancelled. netlink closes the update channel on
// any receive error, ENOBUFS after a burst included, so a lost subscription
// is reopened with a dump of the current addresses to recover whatever the
// overflow swallowed. Only the first subscribe failure is returned.
func (w *linuxWatcher) Start(ctx context.Context, callback EventHandler) error {
	listExisting := w.listExisting
	for attempt := 0; ; attempt++ {
		err := w.watch(ctx, callback, listExisting)
		if ctx.Err() != nil {
			return nil
		}
		if attempt == 0 && !errors.Is(err, ErrSubscriptionClosed) {
			return err
		}

		log.WithError(err).WithField("retryIn", w.retryDelay).Warn("Address subscription lost, resubscribing")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.retryDelay):
		}
		listExisting = true
	}
}

// watch runs one subscription until ctx is done or netlink closes it.
func (w *linuxWatcher) watch(ctx context.Context, callback EventHandler, listExisting bool) error {
	addrCh := make(chan netlink.AddrUpdate, updateBuffer)
	addrDone := make(chan struct{})

	opts := netlink.AddrSubscribeOptions{
		ListExisting:      listExisting,
		ReceiveBufferSize: receiveBufferSize,
		ErrorCallback: func(err error) {
			select {
			case <-addrDone:
				// Receive fails once the socket is closed on shutdown.
				return
			default:
			}
			log.WithError(err).Warn("Netlink address subscription error")
		},
	}
	if err := w.subscribe(addrCh, addrDone, opts); err != nil {
		close(addrDone)
		return fmt.Errorf("subscribing to address updates: %w", err)
	}
	defer func() {
		close(addrDone)
		// The receive goroutine sends without watching done. Keep draining
		// so it is never stuck on a full channel and can exit.
		go func() {
			for range addrCh {
			}
		}()
	}()

	log.WithField("listExisting", listExisting).Debug("Linux address watcher subscribed")

	for {
		select {
		case <-ctx.Done():
			return nil

		case update, ok := <-addrCh:
			if !ok {
				return ErrSubscriptionClosed
			}

			ev, ok := toAddressEvent(update)
			if !ok {
				log.WithField("ifIndex", update.LinkIndex).Trace("Dropping address update without a usable address")
				continue
			}

			log.WithFields(log.Fields{
				"ifIndex": ev.LinkIndex,
				"address": ev.Address.String(),
				"new":     ev.New,
				"flags":   ev.Flags,
			}).Trace("Received address update")

			callback(ev)
		}
	}
}

func toAddressEvent(update netlink.AddrUpdate) (AddressEvent, bool) {
	a, ok := netip.AddrFromSlice(update.LinkAddress.IP)
	if !ok {
		return AddressEvent{}, false
	}
	ones, _ := update.LinkAddress.Mask.Size()

	return AddressEvent{
		LinkIndex: update.LinkIndex,
		Address:   a,
		PrefixLen: ones,
		Flags:     update.Flags,
		New:       update.NewAddr,
	}, true
}

// ResolveInterface looks up the kernel index of the named interface.
func ResolveInterface(name string) (Link, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		var notFound netlink.LinkNotFoundError
		if errors.As(err, &notFound) {
			return Link{}, fmt.Errorf("%w: %s", ErrInterfaceNotFound, name)
		}
		return Link{}, fmt.Errorf("looking up interface %s: %w", name, err)
	}
	return Link{Name: name, Index: link.Attrs().Index}, nil
}
