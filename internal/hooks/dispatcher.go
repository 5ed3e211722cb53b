// Package hooks discovers executables in a directory and runs them, one at
// a time, whenever the external IPv6 address changes.
package hooks

import (
	"context"
	"net/netip"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Executor runs a single hook. Runner is the production implementation.
type Executor interface {
	Run(ctx context.Context, h Hook, a netip.Addr) Outcome
}

type Dispatcher struct {
	dir  string
	exec Executor
}

func NewDispatcher(dir string, exec Executor) *Dispatcher {
	return &Dispatcher{dir: dir, exec: exec}
}

// Dir returns the hook directory scanned on every round.
func (d *Dispatcher) Dir() string { return d.dir }

// Dispatch runs every hook in the directory with a, sequentially and in
// name order. No failure of an individual hook or of the directory scan
// is returned; everything is logged and the round always completes.
func (d *Dispatcher) Dispatch(ctx context.Context, a netip.Addr) Round {
	round := Round{ID: uuid.NewString(), Address: a}
	logger := log.WithFields(log.Fields{
		"round":   round.ID,
		"address": a.String(),
	})

	hooks, err := Discover(d.dir)
	if err != nil {
		logger.WithField("dir", d.dir).WithError(err).Error("Failed to read hook directory")
		return round
	}

	logger.WithField("hooks", len(hooks)).Debug("Starting hook round")

	for _, h := range hooks {
		if ctx.Err() != nil {
			logger.Warn("Abandoning hook round, shutting down")
			break
		}

		logger.WithField("hook", h.Path).Debug("Executing hook")

		o := d.exec.Run(ctx, h, a)
		round.Outcomes = append(round.Outcomes, o)
		logOutcome(logger, o)
	}

	return round
}

func logOutcome(logger *log.Entry, o Outcome) {
	entry := logger.WithFields(log.Fields{
		"hook":     o.Hook.Path,
		"status":   o.Status,
		"duration": o.Duration.String(),
	})
	if o.Output != "" {
		entry.WithField("output", o.Output).Debug("Hook output")
	}

	switch o.Status {
	case StatusSuccess:
		entry.Info("Hook completed")
	case StatusExitError:
		entry.WithField("exitCode", o.ExitCode).Warn("Hook exited with non-zero status")
	case StatusTimeout:
		entry.Warn("Hook timed out, abandoned")
	case StatusCanceled:
		entry.Warn("Hook canceled")
	default:
		entry.WithError(o.Err).Error("Failed to execute hook")
	}
}
