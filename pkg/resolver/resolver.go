// Package resolver answers whether a tree root is reachable before a run
// touches it.
package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Credentials are handed to resolvers that need to authenticate to make a
// path reachable, such as a network share.
type Credentials struct {
	User     string
	Password string
}

// Empty reports whether no credentials were given.
func (c *Credentials) Empty() bool {
	return c == nil || (c.User == "" && c.Password == "")
}

// PathResolver reports whether path can be used. A false result or an error
// both mean the run must not start.
type PathResolver interface {
	Ready(ctx context.Context, path string, creds *Credentials) (bool, error)
}

// Func adapts a plain function to PathResolver.
type Func func(ctx context.Context, path string, creds *Credentials) (bool, error)

func (f Func) Ready(ctx context.Context, path string, creds *Credentials) (bool, error) {
	return f(ctx, path, creds)
}

// LocalResolver checks paths on locally mounted filesystems. It never mounts
// anything; credentials are ignored.
type LocalResolver struct {
	// Writable requires write access. A missing path is accepted when its
	// deepest existing ancestor is a writable directory, since the run
	// creates it.
	Writable bool
}

func (r *LocalResolver) Ready(ctx context.Context, path string, creds *Credentials) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		if !r.Writable {
			return false, nil
		}
		ancestor, err := deepestExistingAncestor(abs)
		if err != nil {
			return false, err
		}
		return checkAccess(ancestor, true) == nil, nil
	} else if err != nil {
		return false, fmt.Errorf("cannot access %s: %w", abs, err)
	}

	// a non-directory is reported by the caller as a structural problem
	if !info.IsDir() {
		return true, nil
	}

	return checkAccess(abs, r.Writable) == nil, nil
}

// deepestExistingAncestor walks up from path until it finds a directory that exists.
func deepestExistingAncestor(path string) (string, error) {
	ancestor := path
	for {
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return "", fmt.Errorf("no existing ancestor for %s", path)
		}
		info, err := os.Stat(parent)
		if err == nil {
			if !info.IsDir() {
				return "", fmt.Errorf("ancestor %s is not a directory", parent)
			}
			return parent, nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("cannot access %s: %w", parent, err)
		}
		ancestor = parent
	}
}
