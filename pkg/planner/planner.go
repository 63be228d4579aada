package planner

import (
	"path/filepath"

	"github.com/yuya-takeyama/strict-dir-sync/internal/checksum"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/logger"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/scanner"
)

// HashFunc returns the content digest of the file at path.
type HashFunc func(path string) (string, error)

type Planner struct {
	hash   HashFunc
	logger logger.Logger
}

// NewPlanner creates a Planner. A nil hash defaults to streaming SHA-256.
func NewPlanner(hash HashFunc, log logger.Logger) *Planner {
	if hash == nil {
		hash = checksum.CalculateFileSHA256
	}
	if log == nil {
		log = &logger.NullLogger{}
	}
	return &Planner{hash: hash, logger: log}
}

// Plan compares two inventories built with the same mode and returns the
// actions that converge dest toward source.
func (p *Planner) Plan(source, dest *scanner.Inventory, opts Options) *Plan {
	p.logger.PhaseStart("plan", len(source.Files)+len(dest.Files))

	// paths unreadable on either side are left alone on both
	sourceFiles := WithoutShadowed(source.Files, dest.Unreadable)
	destFiles := WithoutShadowed(dest.Files, source.Unreadable)
	sourceDirs := WithoutShadowed(source.Dirs, dest.Unreadable)
	destDirs := WithoutShadowed(dest.Dirs, source.Unreadable)

	phase1Result := Phase1Compare(sourceFiles, destFiles, opts.DeleteRemoved)
	p.logger.Debug("compared fingerprints",
		"new", len(phase1Result.NewItems),
		"changed", len(phase1Result.Changed),
		"need_checksum", len(phase1Result.NeedChecksum),
		"identical", len(phase1Result.Identical),
		"removed", len(phase1Result.DeletedItems),
	)

	checksums := p.Phase2CollectChecksums(phase1Result.NeedChecksum, source.Root, dest.Root)

	plan := &Plan{
		Files: Phase3GeneratePlan(phase1Result, checksums, opts),
	}
	if opts.SyncEmptyDirs {
		plan.Dirs = PlanCreateDirs(sourceDirs, destDirs)
	}
	if opts.DeleteRemoved {
		plan.StaleDirs = StaleDirs(sourceDirs, destDirs)
	}

	p.logger.PhaseComplete("plan", len(plan.Dirs)+len(plan.Files))
	return plan
}

// Phase2CollectChecksums hashes both sides of every path whose metadata
// differed. A failure on either side is kept on the item rather than
// aborting the plan.
func (p *Planner) Phase2CollectChecksums(items []ItemRef, sourceBase, destBase string) []ChecksumData {
	var checksums []ChecksumData
	for _, item := range items {
		data := ChecksumData{ItemRef: item}

		sourcePath := filepath.Join(sourceBase, filepath.FromSlash(item.Path))
		sourceChecksum, err := p.hash(sourcePath)
		if err != nil {
			p.logger.Error("checksum", sourcePath, err)
			data.Err = err
			checksums = append(checksums, data)
			continue
		}

		destPath := filepath.Join(destBase, filepath.FromSlash(item.Path))
		destChecksum, err := p.hash(destPath)
		if err != nil {
			p.logger.Error("checksum", destPath, err)
			data.Err = err
			checksums = append(checksums, data)
			continue
		}

		data.SourceChecksum = sourceChecksum
		data.DestChecksum = destChecksum
		checksums = append(checksums, data)
	}

	return checksums
}
