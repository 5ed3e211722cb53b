package hooks

import (
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var testAddr = netip.MustParseAddr("2606:4700:4700::1111")

func writeFile(t *testing.T, dir, name, body string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), mode))
	require.NoError(t, os.Chmod(path, mode))
	return path
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	return writeFile(t, dir, name, "#!/bin/sh\n"+body+"\n", 0o755)
}

// captureLogs installs a test hook on the standard logger for the
// duration of the test.
func captureLogs(t *testing.T) *logtest.Hook {
	t.Helper()
	hook := logtest.NewGlobal()
	t.Cleanup(func() {
		log.StandardLogger().ReplaceHooks(make(log.LevelHooks))
	})
	return hook
}

// recordingExecutor records which hooks ran without spawning anything.
type recordingExecutor struct {
	mu    sync.Mutex
	calls []Hook
	addrs []netip.Addr
}

func (r *recordingExecutor) Run(ctx context.Context, h Hook, a netip.Addr) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, h)
	r.addrs = append(r.addrs, a)
	return Outcome{Hook: h, Status: StatusSuccess}
}

func (r *recordingExecutor) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.calls))
	for _, h := range r.calls {
		names = append(names, h.Name)
	}
	return names
}
