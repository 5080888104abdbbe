// Package report renders simulation results as tables.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

// Format selects how tables are rendered.
type Format int

// Table formats.
const (
	FormatText Format = iota
	FormatCSV
	FormatMarkdown
)

// ParseFormat parses "text", "csv" or "markdown".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "text":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return FormatText, fmt.Errorf("unknown report format %q", s)
}

func render(w io.Writer, t table.Writer, title string, format Format) error {
	var out string
	switch format {
	case FormatCSV:
		out = t.RenderCSV()
	case FormatMarkdown:
		t.SetTitle(title)
		out = t.RenderMarkdown()
	default:
		t.SetTitle(title)
		out = t.Render()
	}

	_, err := fmt.Fprintln(w, out)
	return err
}

func stamp(cycle uint64) string {
	if cycle == 0 {
		return "-"
	}
	return strconv.FormatUint(cycle, 10)
}

// WriteTimeline writes one row per instruction with its four timestamps.
// Skipped instructions show "-" for every stage they never reached.
func WriteTimeline(w io.Writer, trace insts.Trace, format Format) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Class", "Dst", "Src",
		"Dispatch", "Issue", "Execute", "CDB"})

	for i := 0; i < trace.Len(); i++ {
		inst := trace.Get(i)
		if inst == nil {
			continue
		}

		t.AppendRow(table.Row{
			inst.Index,
			inst.Class,
			fmt.Sprint(inst.Destinations()),
			fmt.Sprint(inst.Sources()),
			stamp(inst.Timing.DispatchCycle),
			stamp(inst.Timing.IssueCycle),
			stamp(inst.Timing.ExecuteCycle),
			stamp(inst.Timing.CDBCycle),
		})
	}

	return render(w, t, "Timeline", format)
}

// WriteSummary writes the run statistics.
func WriteSummary(w io.Writer, stats pipeline.Statistics, format Format) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})

	t.AppendRows([]table.Row{
		{"Cycles", stats.Cycles},
		{"Instructions", stats.Instructions},
		{"CPI", fmt.Sprintf("%.3f", stats.CPI())},
		{"Nops skipped", stats.NopsSkipped},
		{"Control discarded", stats.ControlDiscarded},
		{"CDB broadcasts", stats.Broadcasts},
		{"Silent retires", stats.SilentRetires},
		{"Dispatch stalls", stats.DispatchStalls},
		{"Queue full cycles", stats.QueueFullCycles},
		{"Issue stalls", stats.IssueStalls},
		{"CDB conflicts", stats.CDBConflicts},
		{"Peak int stations", stats.PeakIntStations},
		{"Peak fp stations", stats.PeakFPStations},
		{"Peak queue", stats.PeakQueue},
	})

	return render(w, t, "Summary", format)
}
