package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yuya-takeyama/strict-dir-sync/internal/worker"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/cancel"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/fingerprint"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/syncerr"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func keys(m map[string]fingerprint.Fingerprint) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.txt":            "hello",
		"b.tmp":            "scratch",
		"sub/c.txt":        "world",
		"sub/deep/d.txt":   "deep",
		".trash/x/old.txt": "old",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))

	for _, parallel := range []bool{false, true} {
		for _, mode := range []fingerprint.Mode{fingerprint.Accurate, fingerprint.Hybrid} {
			t.Run(fmt.Sprintf("%s/parallel=%v", mode, parallel), func(t *testing.T) {
				s := New(worker.NewPool(4), nil)
				inv, err := s.Scan(root, Options{
					Excludes: []string{"*.tmp"},
					Mode:     mode,
					Parallel: parallel,
					SkipDirs: []string{".trash"},
				}, cancel.New())
				require.NoError(t, err)

				require.Equal(t, []string{"a.txt", "sub/c.txt", "sub/deep/d.txt"}, keys(inv.Files))
				require.True(t, inv.HasDir("empty"))
				require.True(t, inv.HasDir("sub/deep"))
				require.False(t, inv.HasDir(".trash"))
				require.Zero(t, inv.Errors)

				fp := inv.Files["a.txt"]
				switch mode {
				case fingerprint.Accurate:
					require.Equal(t, fingerprint.KindExactHash, fp.Kind)
					require.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", fp.Digest)
				case fingerprint.Hybrid:
					require.Equal(t, fingerprint.KindQuickStat, fp.Kind)
					require.EqualValues(t, 5, fp.Size)
				}
			})
		}
	}
}

func TestScanParallelMatchesSequential(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for i := 0; i < 50; i++ {
		files[fmt.Sprintf("d%d/f%d.txt", i%5, i)] = fmt.Sprintf("content %d", i)
	}
	writeFiles(t, root, files)

	s := New(worker.NewPool(8), nil)
	seq, err := s.Scan(root, Options{Mode: fingerprint.Accurate}, nil)
	require.NoError(t, err)
	par, err := s.Scan(root, Options{Mode: fingerprint.Accurate, Parallel: true}, nil)
	require.NoError(t, err)

	require.Equal(t, seq.Files, par.Files)
}

func TestScanCancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": "a", "b.txt": "b"})

	tok := cancel.New()
	tok.Cancel()

	for _, parallel := range []bool{false, true} {
		inv, err := New(worker.NewPool(2), nil).Scan(root, Options{Parallel: parallel}, tok)
		require.Nil(t, inv)
		require.ErrorIs(t, err, syncerr.ErrCancelled)
	}
}

func TestScanMissingRoot(t *testing.T) {
	_, err := New(nil, nil).Scan(filepath.Join(t.TempDir(), "missing"), Options{}, nil)
	require.Error(t, err)
	require.Equal(t, syncerr.KindStructural, syncerr.KindOf(err))
}

func TestScanUnreadableFileIsOmitted(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced here")
	}
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"ok.txt": "ok", "locked.txt": "secret"})
	require.NoError(t, os.Chmod(filepath.Join(root, "locked.txt"), 0000))
	t.Cleanup(func() { _ = os.Chmod(filepath.Join(root, "locked.txt"), 0644) })

	inv, err := New(nil, nil).Scan(root, Options{Mode: fingerprint.Accurate}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"ok.txt"}, keys(inv.Files))
	require.Equal(t, 1, inv.Errors)
	require.Contains(t, inv.Unreadable, "locked.txt")
}

func TestScanUnreadableDirIsRecorded(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced here")
	}
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"ok.txt": "ok", "private/a.txt": "a"})
	require.NoError(t, os.Chmod(filepath.Join(root, "private"), 0000))
	t.Cleanup(func() { _ = os.Chmod(filepath.Join(root, "private"), 0755) })

	inv, err := New(nil, nil).Scan(root, Options{}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"ok.txt"}, keys(inv.Files))
	require.Equal(t, 1, inv.Errors)
	require.Contains(t, inv.Unreadable, "private")
}
