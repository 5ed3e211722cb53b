// Package netmon turns kernel address notifications for one interface into
// debounced external address changes and runs the hook round for each.
package netmon

import (
	"context"
	"net/netip"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/addrhookd/internal/hooks"
	"github.com/dmdmdm-nz/addrhookd/internal/runtime"
	"github.com/dmdmdm-nz/addrhookd/internal/tracker"
)

// subscriberBacklog bounds how many updates a slow subscriber may lag
// behind before the oldest are dropped.
const subscriberBacklog = 16

// Dispatcher runs the hooks for an accepted address.
type Dispatcher interface {
	Dispatch(ctx context.Context, a netip.Addr) hooks.Round
}

type Service struct {
	watcher    Watcher
	link       Link
	dispatcher Dispatcher

	// tracker is touched only from the watcher callback.
	tracker *tracker.Tracker

	// latest mirrors the last accepted update for readers outside the
	// event loop.
	mu     sync.RWMutex
	latest tracker.Update

	subsMu           sync.Mutex
	subs             map[int]*runtime.SubQueue[tracker.Update]
	nextSubscriberID int
	closed           bool
}

func NewService(watcher Watcher, link Link, dispatcher Dispatcher) *Service {
	return &Service{
		watcher:    watcher,
		link:       link,
		dispatcher: dispatcher,
		tracker:    tracker.New(),
		subs:       make(map[int]*runtime.SubQueue[tracker.Update]),
	}
}

// Link returns the monitored interface.
func (s *Service) Link() Link { return s.link }

// Current returns the last accepted update, if any.
func (s *Service) Current() (tracker.Update, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest.Current.IsValid()
}

// Subscribe returns a channel of accepted updates. The current address,
// if any, is delivered first.
func (s *Service) Subscribe() (<-chan tracker.Update, func()) {
	sub := runtime.NewSubQueue[tracker.Update](1, subscriberBacklog)

	// Register paused so live updates queue up behind the snapshot.
	s.subsMu.Lock()
	if s.closed {
		s.subsMu.Unlock()
		sub.Close()
		return sub.Chan(), func() {}
	}
	id := s.nextSubscriberID
	s.nextSubscriberID++
	s.subs[id] = sub
	s.subsMu.Unlock()

	if u, ok := s.Current(); ok {
		sub.Prime(u)
	}
	sub.SetPaused(false)

	unsub := func() {
		s.subsMu.Lock()
		if q, ok := s.subs[id]; ok {
			delete(s.subs, id)
			q.Close()
		}
		s.subsMu.Unlock()
	}
	return sub.Chan(), unsub
}

// Start runs the event loop until ctx is cancelled or the watcher fails.
func (s *Service) Start(ctx context.Context) error {
	log.WithFields(log.Fields{
		"interface": s.link.Name,
		"ifIndex":   s.link.Index,
	}).Info("Starting IPv6 address monitoring service")
	defer log.Info("Stopping IPv6 address monitoring service")

	return s.watcher.Start(ctx, func(ev AddressEvent) {
		s.handleWatcherEvent(ctx, ev)
	})
}

func (s *Service) Close() error {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for id, q := range s.subs {
		q.Close()
		delete(s.subs, id)
	}
	return nil
}

// handleWatcherEvent classifies and tracks ev. On a genuine change it runs
// the hook round, then publishes the update to subscribers. Irrelevant
// events are dropped silently.
func (s *Service) handleWatcherEvent(ctx context.Context, ev AddressEvent) {
	if !ev.New || ev.LinkIndex != s.link.Index || !ev.Address.Is6() {
		return
	}

	u, accepted := s.tracker.Observe(ev.Address)
	if !accepted {
		log.WithFields(log.Fields{
			"interface": s.link.Name,
			"address":   ev.Address.String(),
		}).Trace("Ignoring address, not a new external address")
		return
	}

	fields := log.Fields{
		"interface": s.link.Name,
		"address":   u.Current.String(),
	}
	if u.Previous.IsValid() {
		fields["previous"] = u.Previous.String()
	}
	log.WithFields(fields).Info("IPv6 address changed")

	round := s.dispatcher.Dispatch(ctx, u.Current)

	log.WithFields(log.Fields{
		"round":   round.ID,
		"address": u.Current.String(),
		"hooks":   len(round.Outcomes),
	}).Debug("Hook round complete")

	// Subscribers only see an address once its hook round has finished.
	s.mu.Lock()
	s.latest = u
	s.mu.Unlock()
	s.broadcast(u)
}

func (s *Service) broadcast(u tracker.Update) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, sub := range s.subs {
		sub.Enqueue(u)
	}
}
