package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileInfo represents a local file
type FileInfo struct {
	Path    string // Absolute path
	RelPath string // Relative path from root, forward slashes
	Size    int64
	ModTime int64 // Unix timestamp
	Mode    os.FileMode
}

// Result is everything a single walk found under the root.
type Result struct {
	Files []FileInfo
	Dirs  []string // relative, forward slashes, root excluded
	// Errors holds entries that could not be read; the walk continued past them.
	Errors []error
	// Unreadable lists the relative paths behind Errors.
	Unreadable []string
	// Leftovers are files matching the leftover pattern, kept out of Files.
	Leftovers []string
}

// Walker walks local files with exclude pattern support
type Walker struct {
	root     string
	excludes []string
	skipDirs map[string]struct{}
	leftover string
}

// NewWalker creates a new file walker. skipDirs are relative directory paths
// whose whole subtree is left out of the walk. A symlinked root is followed;
// symlinks below it are not.
func NewWalker(root string, excludes []string, skipDirs []string) (*Walker, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("get absolute path: %w", err)
	}

	// Validate root exists and is a directory
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	// WalkDir does not descend into a symlinked root
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	for _, pattern := range excludes {
		if !doublestar.ValidatePattern(strings.TrimSuffix(pattern, "/")) {
			return nil, fmt.Errorf("invalid exclude pattern: %q", pattern)
		}
	}

	skip := make(map[string]struct{}, len(skipDirs))
	for _, d := range skipDirs {
		skip[filepath.ToSlash(filepath.Clean(d))] = struct{}{}
	}

	return &Walker{
		root:     absRoot,
		excludes: excludes,
		skipDirs: skip,
	}, nil
}

// CollectLeftovers makes Walk report regular files whose base name matches
// pattern (path.Match syntax) in Result.Leftovers instead of Files.
func (w *Walker) CollectLeftovers(pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid leftover pattern %q: %w", pattern, err)
	}
	w.leftover = pattern
	return nil
}

// Root returns the absolute root of the walk.
func (w *Walker) Root() string {
	return w.root
}

// Walk walks the file tree. check is called before every entry is visited;
// a non-nil error from it aborts the walk and is returned unchanged.
func (w *Walker) Walk(check func() error) (*Result, error) {
	result := &Result{}
	var checkErr error

	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if check != nil {
			if checkErr = check(); checkErr != nil {
				return checkErr
			}
		}

		if err != nil {
			if p == w.root {
				return err
			}
			result.Errors = append(result.Errors, fmt.Errorf("read %s: %w", p, err))
			if rel, relErr := filepath.Rel(w.root, p); relErr == nil {
				result.Unreadable = append(result.Unreadable, filepath.ToSlash(rel))
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if p == w.root {
			return nil
		}

		// Get relative path
		relPath, err := filepath.Rel(w.root, p)
		if err != nil {
			return fmt.Errorf("get relative path: %w", err)
		}

		// Convert to forward slashes for pattern matching
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if _, ok := w.skipDirs[relPath]; ok {
				return fs.SkipDir
			}
			if IsExcludedDir(relPath, w.excludes) {
				return fs.SkipDir
			}
			result.Dirs = append(result.Dirs, relPath)
			return nil
		}

		// Symlinks, devices, sockets and pipes are not mirrored
		if !d.Type().IsRegular() {
			return nil
		}

		if w.leftover != "" {
			if matched, _ := path.Match(w.leftover, d.Name()); matched {
				result.Leftovers = append(result.Leftovers, relPath)
				return nil
			}
		}

		if w.IsExcluded(relPath) {
			return nil
		}

		// Get file info
		info, err := d.Info()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("get file info %s: %w", p, err))
			result.Unreadable = append(result.Unreadable, relPath)
			return nil
		}

		result.Files = append(result.Files, FileInfo{
			Path:    p,
			RelPath: relPath,
			Size:    info.Size(),
			ModTime: info.ModTime().Unix(),
			Mode:    info.Mode(),
		})

		return nil
	})

	if checkErr != nil {
		return nil, checkErr
	}
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	return result, nil
}

// IsExcluded checks if a file path matches any exclude pattern.
//
// A pattern without a slash is matched against the base name (so "*.tmp"
// hides temp files at any depth), a pattern with a slash against the whole
// relative path, and a pattern ending in "/" hides everything below a
// matching directory.
func (w *Walker) IsExcluded(relPath string) bool {
	return IsExcluded(relPath, w.excludes)
}

// IsExcluded is the pattern test used by Walker, exported for callers that
// need the same decision without walking.
func IsExcluded(relPath string, patterns []string) bool {
	base := path.Base(relPath)
	for _, pattern := range patterns {
		switch {
		case strings.HasSuffix(pattern, "/"):
			// Check if any parent directory matches
			dirPattern := strings.TrimSuffix(pattern, "/")
			parts := strings.Split(relPath, "/")
			for i := 1; i < len(parts); i++ {
				subPath := strings.Join(parts[:i], "/")
				if matchDir(dirPattern, subPath, parts[i-1]) {
					return true
				}
			}
		case strings.Contains(pattern, "/"):
			if matched, _ := doublestar.Match(pattern, relPath); matched {
				return true
			}
		default:
			if matched, _ := doublestar.Match(pattern, base); matched {
				return true
			}
		}
	}
	return false
}

// IsExcludedDir reports whether a directory pattern (one ending in "/")
// matches the directory relPath itself, so the whole subtree can be pruned.
func IsExcludedDir(relPath string, patterns []string) bool {
	name := path.Base(relPath)
	for _, pattern := range patterns {
		if !strings.HasSuffix(pattern, "/") {
			continue
		}
		if matchDir(strings.TrimSuffix(pattern, "/"), relPath, name) {
			return true
		}
	}
	return false
}

func matchDir(pattern, subPath, name string) bool {
	if strings.Contains(pattern, "/") {
		matched, _ := doublestar.Match(pattern, subPath)
		return matched
	}
	matched, _ := doublestar.Match(pattern, name)
	return matched
}
