package hooks

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Discover lists the executable regular files in dir in lexicographic
// order. Symlinks are followed; entries that cannot be stat'ed are
// skipped. The directory is read fresh on every call.
func Discover(dir string) ([]Hook, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading hook directory: %w", err)
	}

	hooks := make([]Hook, 0, len(entries))
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		info, err := os.Stat(path)
		if err != nil {
			log.WithField("path", path).WithError(err).Debug("Skipping unreadable hook entry")
			continue
		}

		if !info.Mode().IsRegular() {
			log.WithField("path", path).Trace("Skipping non-regular hook entry")
			continue
		}

		if info.Mode().Perm()&0o111 == 0 {
			log.WithField("path", path).Trace("Skipping non-executable hook entry")
			continue
		}

		hooks = append(hooks, Hook{Name: entry.Name(), Path: path})
	}

	return hooks, nil
}
