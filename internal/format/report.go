// Package format renders occupancy reports.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"phytime/internal/occupancy"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"
)

// Options controls how reports are written.
type Options struct {
	Format string
	// Header adds a column header line to plain output.
	Header bool
	// Labels prefixes plain output with the trace path and observer.
	Labels bool
}

// WriteReports writes reports to w in the requested format.
func WriteReports(w io.Writer, reports []occupancy.Report, opts Options) error {
	switch strings.ToLower(opts.Format) {
	case "", "plain":
		return writeReportsPlain(w, reports, opts)
	case "table":
		return writeReportsTable(w, reports)
	case "json":
		return writeReportsJSON(w, reports)
	case "jsonl":
		return writeReportsJSONL(w, reports)
	default:
		return fmt.Errorf("unsupported format: %s", opts.Format)
	}
}

// Seconds formats a duration with the shortest exact representation.
func Seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeReportsPlain(w io.Writer, reports []occupancy.Report, opts Options) error {
	const labelHeader = "trace observer"

	labels := make([]string, len(reports))
	labelWidth := 0
	if opts.Labels {
		if opts.Header {
			labelWidth = runewidth.StringWidth(labelHeader)
		}
		for i, r := range reports {
			labels[i] = r.Path + " " + r.Observer
			labelWidth = max(labelWidth, runewidth.StringWidth(labels[i]))
		}
	}

	if opts.Header {
		header := "lte_seconds wifi_seconds span_seconds"
		if opts.Labels {
			header = runewidth.FillRight(labelHeader, labelWidth) + " " + header
		}
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
	}

	for i, r := range reports {
		line := fmt.Sprintf("%s %s %s", Seconds(r.Result.LTE), Seconds(r.Result.WiFi), Seconds(r.Result.Span))
		if opts.Labels {
			line = runewidth.FillRight(labels[i], labelWidth) + " " + line
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeReportsJSON(w io.Writer, reports []occupancy.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(reports) == 1 {
		return enc.Encode(reports[0])
	}
	return enc.Encode(reports)
}

func writeReportsJSONL(w io.Writer, reports []occupancy.Report) error {
	enc := json.NewEncoder(w)
	for _, r := range reports {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func writeReportsTable(w io.Writer, reports []occupancy.Report) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 7, Align: text.AlignRight, AlignHeader: text.AlignCenter},
	})
	tw.AppendHeader(table.Row{"Trace", "Observer", "Events", "LTE (s)", "WiFi (s)", "Span (s)", "Busy %"})

	for _, r := range reports {
		tw.AppendRow(table.Row{
			r.Path,
			r.Observer,
			r.Result.Events,
			fmt.Sprintf("%.9f", r.Result.LTE),
			fmt.Sprintf("%.9f", r.Result.WiFi),
			fmt.Sprintf("%.9f", r.Result.Span),
			busyPercent(r.Result),
		})
	}

	if len(reports) == 0 {
		tw.AppendRow(table.Row{"-", "(no traces)", 0, "-", "-", "-", "-"})
	}

	_ = tw.Render()
	return nil
}

// busyPercent is the share of the span covered by either technology. The
// final interval can run past the last event start, so the value may
// exceed 100 on short traces.
func busyPercent(r occupancy.Result) string {
	if r.Span <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", 100*(r.LTE+r.WiFi)/r.Span)
}
