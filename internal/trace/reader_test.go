package trace

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func fixturePath(parts ...string) string {
	elems := append([]string{"..", "..", "testdata", "traces"}, parts...)
	return filepath.Join(elems...)
}

func TestParseTechnology(t *testing.T) {
	cases := map[string]Technology{
		"lte":  TechLTE,
		"1":    TechLTE,
		"wifi": TechWiFi,
		"0":    TechWiFi,
	}
	for token, want := range cases {
		got, err := ParseTechnology(token)
		if err != nil {
			t.Fatalf("ParseTechnology(%q) returned error: %v", token, err)
		}
		if got != want {
			t.Fatalf("ParseTechnology(%q) = %v, want %v", token, got, want)
		}
	}

	for _, token := range []string{"LTE", "2", "nr", ""} {
		if _, err := ParseTechnology(token); !errors.Is(err, ErrUnknownTechnology) {
			t.Fatalf("ParseTechnology(%q) error = %v, want ErrUnknownTechnology", token, err)
		}
	}
}

func TestIterateEvents_FiltersObserver(t *testing.T) {
	var events []Event
	stats, err := IterateEvents(fixturePath("sample.txt"), "4", func(e Event) error {
		events = append(events, e)
		return nil
	})
	if err != nil {
		t.Fatalf("IterateEvents returned error: %v", err)
	}

	if len(events) != 5 {
		t.Fatalf("expected 5 events for observer 4, got %d", len(events))
	}
	for _, e := range events {
		if e.Observer != "4" {
			t.Fatalf("foreign observer leaked through: %+v", e)
		}
	}
	if events[0].Tech != TechLTE || events[4].Tech != TechWiFi {
		t.Fatalf("unexpected technologies: first=%v last=%v", events[0].Tech, events[4].Tech)
	}
	if events[4].Time != 3.0 || events[4].End != 3.5 {
		t.Fatalf("unexpected wifi times: %+v", events[4])
	}
	if events[0].Line != 2 {
		t.Fatalf("expected first event on line 2, got %d", events[0].Line)
	}

	want := Stats{Lines: 10, Comments: 1, Malformed: 1, Foreign: 3, Accepted: 5}
	if stats != want {
		t.Fatalf("unexpected stats: %+v, want %+v", stats, want)
	}
}

func TestIterateEvents_NumericCodes(t *testing.T) {
	var techs []Technology
	_, err := IterateEvents(fixturePath("numeric.txt"), "7", func(e Event) error {
		techs = append(techs, e.Tech)
		return nil
	})
	if err != nil {
		t.Fatalf("IterateEvents returned error: %v", err)
	}
	if len(techs) != 2 || techs[0] != TechLTE || techs[1] != TechWiFi {
		t.Fatalf("unexpected technologies: %v", techs)
	}
}

func TestIterateEvents_UnknownTechnologyIsFatal(t *testing.T) {
	count := 0
	_, err := IterateEvents(fixturePath("bad-tech.txt"), "4", func(Event) error {
		count++
		return nil
	})
	if !errors.Is(err, ErrUnknownTechnology) {
		t.Fatalf("expected ErrUnknownTechnology, got %v", err)
	}
	var lineErr *LineError
	if !errors.As(err, &lineErr) || lineErr.Line != 2 {
		t.Fatalf("expected LineError on line 2, got %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event before the failure, got %d", count)
	}
}

func TestIterateEvents_BadNumberIsFatal(t *testing.T) {
	_, err := IterateEvents(fixturePath("bad-number.txt"), "4", func(Event) error { return nil })
	if !errors.Is(err, ErrNumericParse) {
		t.Fatalf("expected ErrNumericParse, got %v", err)
	}
}

func TestIterateEvents_MissingFile(t *testing.T) {
	_, err := IterateEvents(fixturePath("does-not-exist.txt"), "4", func(Event) error { return nil })
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReader_SkipsBeforeValidating(t *testing.T) {
	input := strings.Join([]string{
		"  # 1.0 4 bogus 0 1.5 500.0 -40.0",
		"1.0 4 bogus 0 1.5",
		"1.0 9 bogus 0 1.5 500.0 -40.0",
		"1.0 4 wifi 0 1.5 500.0 -40.0",
	}, "\n")

	r := NewReader(strings.NewReader(input), "4")
	event, err := r.Next()
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if event.Tech != TechWiFi || event.Line != 4 {
		t.Fatalf("unexpected event: %+v", event)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}

	want := Stats{Lines: 4, Comments: 1, Malformed: 1, Foreign: 1, Accepted: 1}
	if got := r.Stats(); got != want {
		t.Fatalf("unexpected stats: %+v, want %+v", got, want)
	}
}

func TestReader_ObserverComparedAsText(t *testing.T) {
	input := "1.0 04 lte 0 1.5 500.0 -40.0\n1.0 4 lte 0 1.5 500.0 -40.0\n"

	r := NewReader(strings.NewReader(input), "4")
	event, err := r.Next()
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if event.Line != 2 {
		t.Fatalf("observer 04 should not match 4, got event on line %d", event.Line)
	}
}
