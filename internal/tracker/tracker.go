// Package tracker remembers the last accepted global IPv6 address and
// decides whether a newly observed address is a genuine change.
package tracker

import (
	"net/netip"
	"time"

	"github.com/dmdmdm-nz/addrhookd/internal/addr"
)

// Update describes an accepted address transition. Previous is the zero
// netip.Addr when no address had been accepted before.
type Update struct {
	Previous netip.Addr
	Current  netip.Addr
	At       time.Time
}

// Tracker holds the current external address. The zero value is ready to
// use and starts with no address. It is owned by a single event loop and
// is not safe for concurrent use.
type Tracker struct {
	current netip.Addr
	now     func() time.Time
}

func New() *Tracker {
	return &Tracker{now: time.Now}
}

// Observe feeds a candidate address. It returns the resulting Update and
// true only when a is global-external and differs from the current
// address; every other candidate leaves the state untouched.
func (t *Tracker) Observe(a netip.Addr) (Update, bool) {
	a = a.WithZone("")
	if !addr.IsGlobalExternal(a) {
		return Update{}, false
	}
	if t.current.IsValid() && t.current == a {
		return Update{}, false
	}

	u := Update{Previous: t.current, Current: a, At: t.timestamp()}
	t.current = a
	return u, true
}

// Current returns the last accepted address, if any.
func (t *Tracker) Current() (netip.Addr, bool) {
	return t.current, t.current.IsValid()
}

func (t *Tracker) timestamp() time.Time {
	if t.now == nil {
		return time.Now()
	}
	return t.now()
}
