package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/yuya-takeyama/strict-dir-sync/pkg/executor"
)

// Summary is everything the end-of-run message is built from.
type Summary struct {
	RunID       string
	Source      string
	Destination string
	// Outcome is "succeeded", "cancelled" or "failed".
	Outcome  string
	DryRun   bool
	Stats    executor.Stats
	Duration time.Duration
	Err      error
}

// Render formats s as Markdown text with the counters in a fixed-width
// table. The same text goes to the log and to every notifier.
func Render(s Summary) string {
	var b strings.Builder

	switch s.Outcome {
	case "succeeded":
		b.WriteString("✅ *Sync completed*")
	case "cancelled":
		b.WriteString("⚠️ *Sync cancelled*")
	default:
		b.WriteString("❌ *Sync failed*")
	}
	if s.DryRun {
		b.WriteString(" (dry run)")
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "*Source:* `%s`\n", s.Source)
	fmt.Fprintf(&b, "*Destination:* `%s`\n", s.Destination)
	fmt.Fprintf(&b, "*Duration:* `%s`\n", s.Duration.Round(time.Millisecond))
	if s.RunID != "" {
		fmt.Fprintf(&b, "*Run:* `%s`\n", s.RunID)
	}
	if s.Err != nil {
		fmt.Fprintf(&b, "*Error:* `%s`\n", s.Err)
	}

	b.WriteString("\n```\n")
	b.WriteString(statsTable(s.Stats))
	b.WriteString("\n```")

	return b.String()
}

func statsTable(st executor.Stats) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight},
	})
	t.AppendHeader(table.Row{"Counter", "Value"})
	t.AppendRows([]table.Row{
		{"Copied", st.Copied},
		{"Updated", st.Updated},
		{"Skipped", st.Skipped},
		{"Deleted", st.Deleted},
		{"Trashed", st.Trashed},
		{"Dirs created", st.DirsCreated},
		{"Dirs removed", st.DirsRemoved},
		{"Errors", st.Errors},
	})
	t.AppendFooter(table.Row{"Transferred", FormatBytes(st.BytesCopied)})
	return t.Render()
}

// Plain strips the Markdown markers for log output.
func Plain(summary string) string {
	return strings.NewReplacer("*", "", "`", "").Replace(summary)
}

// FormatBytes formats bytes in human readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
