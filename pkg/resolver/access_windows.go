//go:build windows

package resolver

import (
	"fmt"
	"os"
)

// checkAccess verifies the directory can be listed and, if write is set,
// that a file can be created in it.
func checkAccess(dir string, write bool) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	f.Close()

	if !write {
		return nil
	}
	tmp, err := os.CreateTemp(dir, ".strict-dir-sync-writetest-*.tmp")
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	name := tmp.Name()
	tmp.Close()
	_ = os.Remove(name)
	return nil
}
