//go:build !windows

package resolver

import "golang.org/x/sys/unix"

// checkAccess verifies the directory can be listed and, if write is set,
// that entries can be created in it.
func checkAccess(dir string, write bool) error {
	mode := uint32(unix.R_OK | unix.X_OK)
	if write {
		mode |= unix.W_OK
	}
	return unix.Access(dir, mode)
}
