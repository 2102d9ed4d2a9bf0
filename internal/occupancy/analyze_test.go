package occupancy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"phytime/internal/trace"
)

func fixturePath(parts ...string) string {
	elems := append([]string{"..", "..", "testdata", "traces"}, parts...)
	return filepath.Join(elems...)
}

func TestAnalyzeSampleTrace(t *testing.T) {
	report, err := Analyze(context.Background(), fixturePath("sample.txt"), "4", Options{})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	assertClose(t, "lte", report.Result.LTE, 0.000214285)
	assertClose(t, "wifi", report.Result.WiFi, 0.5)
	assertClose(t, "span", report.Result.Span, 3.0-2.011)
	if report.Stats.Accepted != 5 || report.Result.Events != 5 {
		t.Fatalf("unexpected counts: stats=%+v result=%+v", report.Stats, report.Result)
	}
}

func TestAnalyzeIgnoresForeignObservers(t *testing.T) {
	// Observer 5 lines interleave with observer 4 and would preempt its WiFi
	// interval if they leaked into the reconstruction.
	report, err := Analyze(context.Background(), fixturePath("sample.txt"), "5", Options{})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	assertClose(t, "lte", report.Result.LTE, 0.3)
	assertClose(t, "wifi", report.Result.WiFi, 0.489+0.5)
	assertClose(t, "span", report.Result.Span, 3.1-2.011)
}

func TestAnalyzeTruncatedTraceFlushesOpenInterval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "truncated.txt")
	content := strings.Join([]string{
		"1.000 4 lte 0 1.250 250.0 -40.0",
		"1.500 4 wifi 2 2.000 500.0 -50.0",
		"1.750 4 wifi 3 2.200 450.0 -52.0",
	}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write trace: %v", err)
	}

	var intervals []Interval
	report, err := Analyze(context.Background(), path, "4", Options{
		OnInterval: func(iv Interval) { intervals = append(intervals, iv) },
	})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	assertClose(t, "lte", report.Result.LTE, 0.25)
	assertClose(t, "wifi", report.Result.WiFi, 0.7)
	if len(intervals) != 2 || intervals[1].Reason != ReasonFinal {
		t.Fatalf("expected final flush interval, got %+v", intervals)
	}
}

func TestAnalyzeUnknownObserver(t *testing.T) {
	_, err := Analyze(context.Background(), fixturePath("sample.txt"), "99", Options{})
	if !errors.Is(err, ErrNoSignals) {
		t.Fatalf("expected ErrNoSignals, got %v", err)
	}
}

func TestAnalyzePropagatesFatalParseErrors(t *testing.T) {
	_, err := Analyze(context.Background(), fixturePath("bad-tech.txt"), "4", Options{})
	if !errors.Is(err, trace.ErrUnknownTechnology) {
		t.Fatalf("expected ErrUnknownTechnology, got %v", err)
	}
}

func TestAnalyzeObserversKeepsArgumentOrder(t *testing.T) {
	reports, err := AnalyzeObservers(context.Background(), fixturePath("sample.txt"), []string{"5", "4"}, Options{Workers: 1})
	if err != nil {
		t.Fatalf("AnalyzeObservers returned error: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].Observer != "5" || reports[1].Observer != "4" {
		t.Fatalf("unexpected order: %s, %s", reports[0].Observer, reports[1].Observer)
	}
	assertClose(t, "observer 4 wifi", reports[1].Result.WiFi, 0.5)
}

func TestAnalyzeObserversFailsOnAnyError(t *testing.T) {
	_, err := AnalyzeObservers(context.Background(), fixturePath("sample.txt"), []string{"4", "42"}, Options{})
	if !errors.Is(err, ErrNoSignals) {
		t.Fatalf("expected ErrNoSignals, got %v", err)
	}
}
