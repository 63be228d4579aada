package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yuya-takeyama/strict-dir-sync/pkg/executor"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/planner"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/session"
)

// PlanResult represents the planned operations before execution
type PlanResult struct {
	Files   []PlanFile  `json:"files"`
	Summary PlanSummary `json:"summary"`
}

type PlanFile struct {
	Action string `json:"action"` // "copy", "update", "skip", "delete", "trash", "mkdir"
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

type PlanSummary struct {
	Copy   int `json:"copy"`
	Update int `json:"update"`
	Skip   int `json:"skip"`
	Delete int `json:"delete"`
	Trash  int `json:"trash"`
	Mkdir  int `json:"mkdir"`
}

// SyncResult represents the actual execution results
type SyncResult struct {
	RunID    string         `json:"run_id"`
	Outcome  string         `json:"outcome"`
	Error    string         `json:"error,omitempty"`
	Duration string         `json:"duration"`
	Files    []ResultFile   `json:"files"`
	Errors   []ErrorFile    `json:"errors"`
	Summary  executor.Stats `json:"summary"`
}

type ResultFile struct {
	Action string `json:"action"`
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
}

type ErrorFile struct {
	Action string `json:"action"`
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
	Error  string `json:"error"`
}

func buildPlanResult(plan *planner.Plan, sourceRoot, destRoot string) PlanResult {
	result := PlanResult{Files: []PlanFile{}}

	items := append(append([]planner.Item{}, plan.Dirs...), plan.Files...)
	for _, item := range items {
		file := PlanFile{
			Action: string(item.Action),
			Target: joinPath(destRoot, item.Path),
			Reason: item.Reason,
		}
		if hasSource(item.Action) {
			file.Source = joinPath(sourceRoot, item.Path)
		}
		result.Files = append(result.Files, file)

		switch item.Action {
		case planner.ActionCopy:
			result.Summary.Copy++
		case planner.ActionUpdate:
			result.Summary.Update++
		case planner.ActionSkip:
			result.Summary.Skip++
		case planner.ActionDelete:
			result.Summary.Delete++
		case planner.ActionTrash:
			result.Summary.Trash++
		case planner.ActionCreateDir:
			result.Summary.Mkdir++
		}
	}

	return result
}

func buildSyncResult(res *session.Result, sourceRoot, destRoot string) SyncResult {
	result := SyncResult{
		RunID:    res.RunID,
		Outcome:  string(res.Outcome),
		Duration: res.Duration.String(),
		Files:    []ResultFile{},
		Errors:   []ErrorFile{},
		Summary:  res.Stats,
	}
	if res.Err != nil {
		result.Error = res.Err.Error()
	}

	for _, r := range res.Results {
		var source string
		if hasSource(r.Item.Action) {
			source = joinPath(sourceRoot, r.Item.Path)
		}
		target := joinPath(destRoot, r.Item.Path)

		if r.Error != nil {
			result.Errors = append(result.Errors, ErrorFile{
				Action: string(r.Item.Action),
				Source: source,
				Target: target,
				Error:  r.Error.Error(),
			})
			continue
		}
		result.Files = append(result.Files, ResultFile{
			Action: pastTense(r.Item.Action),
			Source: source,
			Target: target,
		})
	}

	return result
}

func hasSource(action planner.Action) bool {
	switch action {
	case planner.ActionCopy, planner.ActionUpdate, planner.ActionSkip, planner.ActionCreateDir:
		return true
	}
	return false
}

func pastTense(action planner.Action) string {
	switch action {
	case planner.ActionCopy:
		return "copied"
	case planner.ActionUpdate:
		return "updated"
	case planner.ActionSkip:
		return "skipped"
	case planner.ActionDelete:
		return "deleted"
	case planner.ActionTrash:
		return "trashed"
	case planner.ActionCreateDir:
		return "created"
	default:
		return "unknown"
	}
}

func joinPath(root, rel string) string {
	abs, err := filepath.Abs(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return filepath.Join(root, filepath.FromSlash(rel))
	}
	return abs
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
