// Package api serves a small local status endpoint for the daemon.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/addrhookd/internal/tracker"
)

// StateSource exposes the accepted address state. netmon.Service
// implements it.
type StateSource interface {
	Current() (tracker.Update, bool)
	Subscribe() (<-chan tracker.Update, func())
}

type Service struct {
	address string
	iface   string
	src     StateSource
	mu      sync.Mutex
	srv     *http.Server
	closed  bool
	addr    net.Addr
}

func NewService(address, iface string, src StateSource) *Service {
	return &Service{
		address: address,
		iface:   iface,
		src:     src,
	}
}

// Start serves the API until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.srv = srv
	s.addr = ln.Addr()
	s.mu.Unlock()

	log.Infof("Starting status API at %s", ln.Addr())
	defer log.Info("Stopping status API")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Status API did not shut down cleanly")
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Addr returns the bound listen address, or nil before Start has bound it.
func (s *Service) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.srv != nil {
		return s.srv.Close()
	}
	return nil
}

// Handler returns the API routes.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/address", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Add("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(s.addressState()); err != nil {
				http.Error(w, fmt.Sprintf("Failed to encode address state: %v", err), http.StatusInternalServerError)
			}
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/ws/updates", s.streamUpdates)
	return mux
}

func (s *Service) addressState() AddressState {
	state := AddressState{Interface: s.iface}

	u, ok := s.src.Current()
	if !ok {
		return state
	}

	current := u.Current.String()
	state.Address = &current
	if u.Previous.IsValid() {
		previous := u.Previous.String()
		state.Previous = &previous
	}
	at := u.At
	state.UpdatedAt = &at
	return state
}

func (s *Service) updateMessage(u tracker.Update) UpdateMessage {
	msg := UpdateMessage{
		Interface: s.iface,
		Current:   u.Current.String(),
		At:        u.At,
	}
	if u.Previous.IsValid() {
		msg.Previous = u.Previous.String()
	}
	return msg
}
