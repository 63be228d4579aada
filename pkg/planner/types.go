package planner

import (
	"github.com/yuya-takeyama/strict-dir-sync/pkg/fingerprint"
)

type Action string

const (
	ActionCopy      Action = "copy"
	ActionUpdate    Action = "update"
	ActionSkip      Action = "skip"
	ActionDelete    Action = "delete"
	ActionTrash     Action = "trash"
	ActionCreateDir Action = "mkdir"
)

type Options struct {
	Mode          fingerprint.Mode
	NoOverwrite   bool
	DeleteRemoved bool
	UseTrash      bool
	SyncEmptyDirs bool
}

// Item is one planned action on one relative path.
type Item struct {
	Action Action
	Path   string // relative to both roots, forward slashes
	Reason string
	// Err is set on skip items whose comparison could not be completed.
	Err error
}

// Plan is the full set of actions for one run. Dirs are applied before
// Files; StaleDirs are removal candidates for the cleanup pass, deepest first.
type Plan struct {
	Dirs      []Item
	Files     []Item
	StaleDirs []string
}

// Counts tallies actions by kind across Dirs and Files.
func (p *Plan) Counts() map[Action]int {
	counts := make(map[Action]int)
	for _, item := range p.Dirs {
		counts[item.Action]++
	}
	for _, item := range p.Files {
		counts[item.Action]++
	}
	return counts
}

// Empty reports whether applying the plan would change nothing.
func (p *Plan) Empty() bool {
	if len(p.Dirs) > 0 || len(p.StaleDirs) > 0 {
		return false
	}
	for _, item := range p.Files {
		if item.Action != ActionSkip {
			return false
		}
	}
	return true
}
