package planner

import (
	"sort"
	"strings"

	"github.com/yuya-takeyama/strict-dir-sync/pkg/fingerprint"
)

// Phase1Compare classifies every path of source and dest by fingerprint alone.
// Deleted paths are only collected when deleteEnabled is set.
func Phase1Compare(source, dest map[string]fingerprint.Fingerprint, deleteEnabled bool) Phase1Result {
	result := Phase1Result{
		NewItems:     []ItemRef{},
		DeletedItems: []ItemRef{},
		Changed:      []ItemRef{},
		NeedChecksum: []ItemRef{},
		Identical:    []ItemRef{},
	}

	for path, srcFP := range source {
		destFP, exists := dest[path]
		if !exists {
			result.NewItems = append(result.NewItems, ItemRef{Path: path})
			continue
		}

		ref := ItemRef{Path: path}
		switch {
		case srcFP.Equal(destFP):
			// In hybrid mode equal size and whole-second mtime are trusted
			// without reading content.
			result.Identical = append(result.Identical, ref)
		case srcFP.Kind == fingerprint.KindExactHash && destFP.Kind == fingerprint.KindExactHash:
			result.Changed = append(result.Changed, ref)
		default:
			result.NeedChecksum = append(result.NeedChecksum, ref)
		}
	}

	if deleteEnabled {
		for path := range dest {
			if _, exists := source[path]; !exists {
				result.DeletedItems = append(result.DeletedItems, ItemRef{Path: path})
			}
		}
	}

	sortPhase1Result(&result)
	return result
}

// Phase3GeneratePlan turns the phase 1 classification and the phase 2
// checksums into file actions ordered by path.
func Phase3GeneratePlan(phase1 Phase1Result, checksums []ChecksumData, opts Options) []Item {
	items := []Item{}

	changed := func(ref ItemRef, reason string) Item {
		if opts.NoOverwrite {
			return Item{Action: ActionSkip, Path: ref.Path, Reason: "overwrite disabled (" + reason + ")"}
		}
		return Item{Action: ActionUpdate, Path: ref.Path, Reason: reason}
	}

	for _, ref := range phase1.NewItems {
		items = append(items, Item{Action: ActionCopy, Path: ref.Path, Reason: "new file"})
	}

	for _, ref := range phase1.Changed {
		items = append(items, changed(ref, "checksum differs"))
	}

	checksumMap := make(map[string]ChecksumData)
	for _, cs := range checksums {
		checksumMap[cs.ItemRef.Path] = cs
	}

	for _, ref := range phase1.NeedChecksum {
		cs, exists := checksumMap[ref.Path]
		if !exists {
			continue
		}
		if cs.Err != nil {
			items = append(items, Item{Action: ActionSkip, Path: ref.Path, Reason: "checksum failed", Err: cs.Err})
			continue
		}
		if cs.SourceChecksum != cs.DestChecksum {
			items = append(items, changed(ref, "checksum differs"))
		}
	}

	deleteAction := ActionDelete
	if opts.UseTrash {
		deleteAction = ActionTrash
	}
	for _, ref := range phase1.DeletedItems {
		items = append(items, Item{Action: deleteAction, Path: ref.Path, Reason: "not in source"})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Path != items[j].Path {
			return items[i].Path < items[j].Path
		}
		return items[i].Action < items[j].Action
	})

	return items
}

// PlanCreateDirs returns a mkdir item for every source directory missing at
// the destination, parents before children.
func PlanCreateDirs(sourceDirs, destDirs map[string]struct{}) []Item {
	var missing []string
	for dir := range sourceDirs {
		if _, exists := destDirs[dir]; !exists {
			missing = append(missing, dir)
		}
	}
	sortShallowFirst(missing)

	items := make([]Item, 0, len(missing))
	for _, dir := range missing {
		items = append(items, Item{Action: ActionCreateDir, Path: dir, Reason: "directory missing"})
	}
	return items
}

// StaleDirs returns destination directories without a source counterpart,
// deepest first, so a parent is only considered after its children.
func StaleDirs(sourceDirs, destDirs map[string]struct{}) []string {
	var stale []string
	for dir := range destDirs {
		if _, exists := sourceDirs[dir]; !exists {
			stale = append(stale, dir)
		}
	}
	sortShallowFirst(stale)
	for i, j := 0, len(stale)-1; i < j; i, j = i+1, j-1 {
		stale[i], stale[j] = stale[j], stale[i]
	}
	return stale
}

func depth(rel string) int {
	return strings.Count(rel, "/")
}

func sortShallowFirst(dirs []string) {
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := depth(dirs[i]), depth(dirs[j])
		if di != dj {
			return di < dj
		}
		return dirs[i] < dirs[j]
	})
}

func sortPhase1Result(result *Phase1Result) {
	sortItemRefs := func(refs []ItemRef) {
		sort.Slice(refs, func(i, j int) bool {
			return refs[i].Path < refs[j].Path
		})
	}

	sortItemRefs(result.NewItems)
	sortItemRefs(result.DeletedItems)
	sortItemRefs(result.Changed)
	sortItemRefs(result.NeedChecksum)
	sortItemRefs(result.Identical)
}

// Shadowed reports whether rel or one of its parent directories is in unreadable.
func Shadowed(rel string, unreadable map[string]struct{}) bool {
	if len(unreadable) == 0 {
		return false
	}
	for p := rel; ; {
		if _, ok := unreadable[p]; ok {
			return true
		}
		i := strings.LastIndex(p, "/")
		if i < 0 {
			return false
		}
		p = p[:i]
	}
}

// WithoutShadowed returns the entries of m not shadowed by unreadable. m is
// returned as is when there is nothing to drop.
func WithoutShadowed[V any](m map[string]V, unreadable map[string]struct{}) map[string]V {
	if len(unreadable) == 0 {
		return m
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		if !Shadowed(k, unreadable) {
			out[k] = v
		}
	}
	return out
}
