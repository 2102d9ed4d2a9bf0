// Package view renders the accepted events and reconstructed occupancy
// intervals of one observer.
package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"phytime/internal/format"
	"phytime/internal/logging"
	"phytime/internal/occupancy"
	"phytime/internal/trace"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// Options defines the configurable parameters for rendering a view.
type Options struct {
	Path         string
	Observer     string
	Format       string
	MaxRows      int
	Tech         string
	ForceColor   bool
	ForceNoColor bool
	Logger       logging.Logger
	Out          io.Writer
	OutFile      *os.File
}

// RunEvents lists the events accepted for the observer.
func RunEvents(ctx context.Context, opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	techs, err := parseTechArg(opts.Tech)
	if err != nil {
		return err
	}

	formatMode := strings.ToLower(opts.Format)
	if formatMode == "" {
		formatMode = "text"
	}
	switch formatMode {
	case "text", "table", "raw":
	default:
		return fmt.Errorf("unsupported format: %s", opts.Format)
	}

	tail := newRing[trace.Event](opts.MaxRows)
	var events []trace.Event
	stats, err := trace.IterateEvents(opts.Path, opts.Observer, func(event trace.Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !techs.matches(event.Tech) {
			return nil
		}
		if opts.MaxRows > 0 {
			tail.push(event)
		} else {
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if opts.MaxRows > 0 {
		events = tail.slice()
	}

	switch formatMode {
	case "raw":
		for _, event := range events {
			if _, err := fmt.Fprintln(opts.Out, event.Raw); err != nil {
				return err
			}
		}
		return nil
	case "table":
		return writeEventsTable(opts, events, stats)
	default:
		useColor := resolveColorChoice(opts)
		for idx, event := range events {
			printEvent(opts.Out, event, idx+1, useColor)
		}
		fmt.Fprintf(opts.Out, "-- %s\n", describeStats(stats)) //nolint:errcheck
		return nil
	}
}

// RunIntervals reconstructs occupancy for the observer and lists every
// interval as it closes, followed by the totals.
func RunIntervals(ctx context.Context, opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	techs, err := parseTechArg(opts.Tech)
	if err != nil {
		return err
	}

	formatMode := strings.ToLower(opts.Format)
	if formatMode == "" {
		formatMode = "text"
	}
	if formatMode != "text" && formatMode != "table" {
		return fmt.Errorf("unsupported format: %s", opts.Format)
	}

	tail := newRing[occupancy.Interval](opts.MaxRows)
	var intervals []occupancy.Interval
	report, err := occupancy.Analyze(ctx, opts.Path, opts.Observer, occupancy.Options{
		Logger: opts.Logger,
		OnInterval: func(iv occupancy.Interval) {
			if !techs.matches(iv.Tech) {
				return
			}
			if opts.MaxRows > 0 {
				tail.push(iv)
				return
			}
			intervals = append(intervals, iv)
		},
	})
	if err != nil {
		return err
	}
	if opts.MaxRows > 0 {
		intervals = tail.slice()
	}

	if formatMode == "table" {
		return writeIntervalsTable(opts, intervals, report)
	}

	useColor := resolveColorChoice(opts)
	for idx, iv := range intervals {
		fmt.Fprintf(opts.Out, "[#%04d] %s %s -> %s (%s s) %s\n", //nolint:errcheck
			idx+1,
			techLabel(iv.Tech, useColor),
			format.Seconds(iv.Start),
			format.Seconds(iv.End),
			format.Seconds(iv.Duration()),
			colorize(useColor, ansiMuted, string(iv.Reason)),
		)
	}
	fmt.Fprintf(opts.Out, "-- lte %s s, wifi %s s, span %s s\n", //nolint:errcheck
		format.Seconds(report.Result.LTE),
		format.Seconds(report.Result.WiFi),
		format.Seconds(report.Result.Span),
	)
	return nil
}

type techFilter map[trace.Technology]struct{}

func (f techFilter) matches(tech trace.Technology) bool {
	if f == nil {
		return true
	}
	_, ok := f[tech]
	return ok
}

func parseTechArg(arg string) (techFilter, error) {
	values := parseCSV(arg)
	if len(values) == 0 {
		return nil, nil
	}
	if len(values) == 1 && values[0] == "all" {
		return nil, nil
	}

	set := make(techFilter, len(values))
	for _, token := range values {
		tech, err := trace.ParseTechnology(token)
		if err != nil {
			return nil, fmt.Errorf("invalid --tech value: %w", err)
		}
		set[tech] = struct{}{}
	}
	return set, nil
}

func parseCSV(arg string) []string {
	if strings.TrimSpace(arg) == "" {
		return nil
	}
	parts := strings.Split(arg, ",")
	output := make([]string, 0, len(parts))
	for _, part := range parts {
		token := strings.TrimSpace(strings.ToLower(part))
		if token != "" {
			output = append(output, token)
		}
	}
	return output
}

// ring keeps the last N values pushed into it.
type ring[T any] struct {
	data   []T
	start  int
	length int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		return &ring[T]{}
	}
	return &ring[T]{data: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	if len(r.data) == 0 {
		return
	}
	idx := (r.start + r.length) % len(r.data)
	r.data[idx] = v
	if r.length < len(r.data) {
		r.length++
		return
	}
	r.start = (r.start + 1) % len(r.data)
}

func (r *ring[T]) slice() []T {
	if r.length == 0 {
		return nil
	}
	result := make([]T, r.length)
	for i := 0; i < r.length; i++ {
		result[i] = r.data[(r.start+i)%len(r.data)]
	}
	return result
}

func printEvent(out io.Writer, event trace.Event, index int, useColor bool) {
	indexText := fmt.Sprintf("#%04d", index)
	separator := "|"
	if useColor {
		indexText = colorize(true, ansiBoldWhite, indexText)
		separator = colorize(true, ansiSeparator, "|")
	}

	fmt.Fprintf(out, "[%s] %s %s %s -> %s %s sender %s %s line %d\n", //nolint:errcheck
		indexText,
		techLabel(event.Tech, useColor),
		separator,
		format.Seconds(event.Time),
		format.Seconds(event.End),
		separator,
		event.Sender,
		separator,
		event.Line,
	)
}

func writeEventsTable(opts Options, events []trace.Event, stats trace.Stats) error {
	tw := newTable(opts)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignCenter, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignCenter},
	})
	tw.AppendHeader(table.Row{"Line", "Tech", "Sender", "Start (s)", "End (s)", "Length (s)"})

	for _, event := range events {
		tw.AppendRow(table.Row{
			event.Line,
			event.Tech.String(),
			event.Sender,
			format.Seconds(event.Time),
			format.Seconds(event.End),
			format.Seconds(event.End - event.Time),
		})
	}
	if len(events) == 0 {
		tw.AppendRow(table.Row{"-", "-", "(no events)", "-", "-", "-"})
	}
	tw.SetCaption(describeStats(stats))

	_ = tw.Render()
	return nil
}

func writeIntervalsTable(opts Options, intervals []occupancy.Interval, report occupancy.Report) error {
	tw := newTable(opts)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignCenter, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 6, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
	})
	tw.AppendHeader(table.Row{"#", "Tech", "Start (s)", "End (s)", "Credited (s)", "Closed By"})

	for idx, iv := range intervals {
		tw.AppendRow(table.Row{
			idx + 1,
			iv.Tech.String(),
			format.Seconds(iv.Start),
			format.Seconds(iv.End),
			format.Seconds(iv.Duration()),
			string(iv.Reason),
		})
	}
	if len(intervals) == 0 {
		tw.AppendRow(table.Row{"-", "-", "-", "-", "-", "(no intervals)"})
	}
	tw.AppendFooter(table.Row{
		"",
		"",
		"lte " + format.Seconds(report.Result.LTE),
		"wifi " + format.Seconds(report.Result.WiFi),
		"span " + format.Seconds(report.Result.Span),
		"",
	})

	_ = tw.Render()
	return nil
}

func newTable(opts Options) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(opts.Out)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true
	if width := determineWidth(opts.OutFile); width > 0 {
		tw.SetAllowedRowLength(width)
	}
	return tw
}

func describeStats(stats trace.Stats) string {
	return fmt.Sprintf("%d lines, %d accepted, %d foreign, %d malformed, %d comments",
		stats.Lines, stats.Accepted, stats.Foreign, stats.Malformed, stats.Comments)
}

// determineWidth returns the width tables may use on out, or 0 for no
// limit.
func determineWidth(out *os.File) int {
	if out == nil {
		return 0
	}
	if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 {
		return w
	}
	if colsStr := os.Getenv("COLUMNS"); colsStr != "" {
		if v, err := strconv.Atoi(colsStr); err == nil && v > 0 {
			return v
		}
	}
	return 0
}

const (
	ansiReset     = "\x1b[0m"
	ansiBoldWhite = "\x1b[1;97m"
	ansiSeparator = "\x1b[38;5;240m"
	ansiMuted     = "\x1b[38;5;245m"
	ansiLTE       = "\x1b[38;5;220m"
	ansiWiFi      = "\x1b[38;5;44m"
)

func colorize(enabled bool, code string, s string) string {
	if !enabled {
		return s
	}
	return code + s + ansiReset
}

func techLabel(tech trace.Technology, useColor bool) string {
	label := fmt.Sprintf("%-4s", tech.String())
	if tech == trace.TechLTE {
		return colorize(useColor, ansiLTE, label)
	}
	return colorize(useColor, ansiWiFi, label)
}

func resolveColorChoice(opts Options) bool {
	if opts.ForceColor {
		return true
	}
	if opts.ForceNoColor {
		return false
	}
	return shouldUseColorAuto(opts.Out)
}

func shouldUseColorAuto(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
