package hooks

import (
	"context"
	"errors"
	"net/netip"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second

	// defaultWaitDelay bounds how long Run waits for output pipes after
	// the hook has exited or been killed. Hooks that leave a background
	// child holding stdout would otherwise keep Wait open.
	defaultWaitDelay = 2 * time.Second

	maxOutput = 64 << 10
)

// Runner executes a single hook with a wall-clock limit.
type Runner struct {
	Timeout   time.Duration
	WaitDelay time.Duration
}

func NewRunner(timeout time.Duration) *Runner {
	return &Runner{Timeout: timeout, WaitDelay: defaultWaitDelay}
}

// Run invokes h with the text form of a as its only argument. It returns
// once the hook exits, fails to start, or its timeout expires; on expiry
// the hook's process group is killed.
func (r *Runner) Run(ctx context.Context, h Hook, a netip.Addr) Outcome {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := &cappedBuffer{limit: maxOutput}
	cmd := exec.CommandContext(runCtx, h.Path, a.WithZone("").String())
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = r.WaitDelay
	configureProcess(cmd)

	start := time.Now()
	err := cmd.Run()

	o := Outcome{
		Hook:     h,
		Duration: time.Since(start),
		Output:   strings.TrimSpace(out.String()),
		Err:      err,
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		o.Status = StatusSuccess
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		o.Status = StatusTimeout
		o.ExitCode = -1
	case ctx.Err() != nil:
		o.Status = StatusCanceled
		o.ExitCode = -1
	case errors.Is(err, exec.ErrWaitDelay):
		// Exited cleanly but left something holding its output open.
		o.Status = StatusSuccess
	case errors.As(err, &exitErr):
		o.Status = StatusExitError
		o.ExitCode = exitErr.ExitCode()
	default:
		o.Status = StatusSpawnFailed
		o.ExitCode = -1
	}

	return o
}

// cappedBuffer keeps the first limit bytes written to it and discards the
// rest without reporting a short write.
type cappedBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - len(b.buf); room > 0 {
		if len(p) > room {
			b.buf = append(b.buf, p[:room]...)
		} else {
			b.buf = append(b.buf, p...)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
