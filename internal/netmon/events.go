package netmon

import "net/netip"

// AddressEvent is an rtnetlink address notification reduced to the fields
// the daemon cares about.
type AddressEvent struct {
	LinkIndex int
	Address   netip.Addr
	PrefixLen int
	Flags     int
	// New is true for RTM_NEWADDR and false for RTM_DELADDR.
	New bool
}

type EventHandler func(event AddressEvent)

// Link is the monitored interface, resolved once at startup.
type Link struct {
	Name  string
	Index int
}
