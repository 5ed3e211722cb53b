package runtime

import (
	"context"
	"fmt"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type worker struct {
	name   string
	run    func(context.Context) error
	closeF func() error
}

// Supervisor runs named workers under a shared context. The first worker
// to fail cancels the others.
type Supervisor struct {
	mu      sync.Mutex
	workers []worker
}

func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

func (s *Supervisor) Add(name string, run func(context.Context) error, closeF func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker{name: name, run: run, closeF: closeF})
}

// Run starts every worker added so far and blocks until ctx is cancelled
// or a worker returns an error. Close functions then run in reverse order
// of registration and Run returns the first worker error, if any.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	workers := slices.Clone(s.workers)
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error {
			log.WithField("worker", w.name).Debug("Starting worker")
			if err := w.run(gctx); err != nil {
				return fmt.Errorf("%s: %w", w.name, err)
			}
			log.WithField("worker", w.name).Debug("Worker exited")
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	// gctx is cancelled by a failing worker, by the parent, or once every
	// worker has returned.
	<-gctx.Done()

	for i := len(workers) - 1; i >= 0; i-- {
		if workers[i].closeF == nil {
			continue
		}
		if err := workers[i].closeF(); err != nil {
			log.WithField("worker", workers[i].name).WithError(err).Warn("Failed to close worker")
		}
	}

	return <-done
}
