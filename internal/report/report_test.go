package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yuya-takeyama/strict-dir-sync/pkg/executor"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatBytes(tt.bytes); got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestRender(t *testing.T) {
	base := Summary{
		RunID:       "run-1",
		Source:      "/src",
		Destination: "/dst",
		Stats: executor.Stats{
			Copied:      3,
			Updated:     1,
			Skipped:     2,
			Errors:      1,
			BytesCopied: 2048,
		},
		Duration: 1500 * time.Millisecond,
	}

	tests := []struct {
		name     string
		outcome  string
		dryRun   bool
		err      error
		contains []string
		excludes []string
	}{
		{
			name:     "succeeded",
			outcome:  "succeeded",
			contains: []string{"Sync completed", "`/src`", "`/dst`", "1.5s", "Copied", "2.0 KB", "run-1"},
			excludes: []string{"Error:", "dry run"},
		},
		{
			name:     "cancelled",
			outcome:  "cancelled",
			contains: []string{"Sync cancelled"},
			excludes: []string{"Sync completed", "Sync failed"},
		},
		{
			name:     "failed with error",
			outcome:  "failed",
			err:      errors.New("destination unreachable"),
			contains: []string{"Sync failed", "*Error:* `destination unreachable`"},
		},
		{
			name:     "dry run",
			outcome:  "succeeded",
			dryRun:   true,
			contains: []string{"Sync completed* (dry run)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			s.Outcome = tt.outcome
			s.DryRun = tt.dryRun
			s.Err = tt.err

			got := Render(s)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Render() missing %q in:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("Render() unexpectedly contains %q in:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestPlain(t *testing.T) {
	got := Plain("*Source:* `/src`")
	if got != "Source: /src" {
		t.Errorf("Plain() = %q", got)
	}
}
