package hooks

import (
	"net/netip"
	"time"
)

// Hook is an executable discovered in the hook directory.
type Hook struct {
	Name string
	Path string
}

type Status string

const (
	StatusSuccess     Status = "SUCCESS"
	StatusExitError   Status = "EXIT_ERROR"
	StatusSpawnFailed Status = "SPAWN_FAILED"
	StatusTimeout     Status = "TIMEOUT"
	// StatusCanceled is reported when the daemon is shutting down while a
	// hook is still running.
	StatusCanceled Status = "CANCELED"
)

// Outcome is the result of one hook invocation. It is only used for
// logging and never feeds back into address tracking.
type Outcome struct {
	Hook     Hook
	Status   Status
	ExitCode int
	Duration time.Duration
	Output   string
	Err      error
}

// Round is one pass over the hook directory for a single address change.
type Round struct {
	ID       string
	Address  netip.Addr
	Outcomes []Outcome
}
