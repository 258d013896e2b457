package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the canonical runtime folder layout under the DB path.
type Paths struct {
	Store string
	State string
	Locks string
	Audit string
}

// Layout returns the runtime paths under dbPath without creating anything.
func Layout(dbPath string) Paths {
	statePath := filepath.Join(dbPath, "state")
	return Paths{
		Store: filepath.Join(dbPath, "store"),
		State: statePath,
		Locks: filepath.Join(statePath, "locks"),
		Audit: filepath.Join(statePath, "audit"),
	}
}

// EnsureStateDirs ensures the runtime folder layout exists under the
// provided DB path. It verifies paths are not symlinks, have restrictive
// permissions, and are writable by the process.
func EnsureStateDirs(dbPath string) (Paths, error) {
	p := Layout(dbPath)
	for _, dir := range []string{p.Store, p.Locks, p.Audit, filepath.Join(p.State, "tmp")} {
		if err := os.MkdirAll(filepath.Dir(dir), 0o700); err != nil {
			return p, fmt.Errorf("cannot create parent for %s: %w", dir, err)
		}

		// if path exists, reject symlinks and non-directories
		if fi, err := os.Lstat(dir); err == nil {
			if fi.Mode()&os.ModeSymlink != 0 {
				return p, fmt.Errorf("path is a symlink: %s", dir)
			}
			if !fi.IsDir() {
				return p, fmt.Errorf("path exists and is not a directory: %s", dir)
			}
			if fi.Mode().Perm()&0o022 != 0 {
				return p, fmt.Errorf("path has permissive mode (group/other write): %s", dir)
			}
		}

		if err := os.MkdirAll(dir, 0o700); err != nil {
			return p, fmt.Errorf("cannot create path %s: %w", dir, err)
		}

		// writability check: create and remove a temp file
		tmp, err := os.CreateTemp(dir, ".validate-*")
		if err != nil {
			return p, fmt.Errorf("path not writable: %s: %w", dir, err)
		}
		tmp.Close()
		_ = os.Remove(tmp.Name())
	}
	return p, nil
}
