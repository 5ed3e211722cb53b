//go:build !unix

package hooks

import "os/exec"

// configureProcess keeps the exec default of killing only the hook
// process on timeout.
func configureProcess(cmd *exec.Cmd) {}
