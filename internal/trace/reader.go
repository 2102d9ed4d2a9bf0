package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// fieldCount is the number of whitespace separated columns in a record:
// time, observer, technology, sender, end time, duration (ms), power (dBm).
const fieldCount = 7

var (
	// ErrUnknownTechnology is returned when the technology column is not a
	// recognized token.
	ErrUnknownTechnology = errors.New("unknown technology")
	// ErrNumericParse is returned when a time column is not a valid float.
	ErrNumericParse = errors.New("invalid numeric field")
)

// LineError ties a fatal parse failure to its position in the trace.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Reader yields the events of one observer from a line-oriented trace.
type Reader struct {
	scanner  *bufio.Scanner
	observer string
	stats    Stats
}

// NewReader wraps r. Observer ids are compared as text.
func NewReader(r io.Reader, observer string) *Reader {
	return &Reader{scanner: newScanner(r), observer: observer}
}

// Next returns the next accepted event. It returns io.EOF once the input is
// exhausted. Lines with the wrong shape or for another observer are skipped;
// content errors are returned as *LineError and end the scan.
func (r *Reader) Next() (Event, error) {
	for r.scanner.Scan() {
		r.stats.Lines++
		line := r.scanner.Text()

		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			r.stats.Comments++
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != fieldCount {
			r.stats.Malformed++
			continue
		}
		if fields[1] != r.observer {
			r.stats.Foreign++
			continue
		}

		event, err := parseFields(fields)
		if err != nil {
			return Event{}, &LineError{Line: r.stats.Lines, Err: err}
		}
		event.Line = r.stats.Lines
		event.Raw = line
		r.stats.Accepted++
		return event, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("scan trace: %w", err)
	}
	return Event{}, io.EOF
}

// Stats reports the counters accumulated so far.
func (r *Reader) Stats() Stats { return r.stats }

// IterateEvents opens path and calls fn for every event recorded by observer,
// in file order. The returned Stats are valid even when an error occurs.
func IterateEvents(path, observer string, fn func(Event) error) (Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open trace file: %w", err)
	}
	defer file.Close()

	reader := NewReader(file, observer)
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return reader.Stats(), nil
		}
		if err != nil {
			return reader.Stats(), err
		}
		if err := fn(event); err != nil {
			return reader.Stats(), err
		}
	}
}

func parseFields(fields []string) (Event, error) {
	start, err := parseSeconds(fields[0])
	if err != nil {
		return Event{}, err
	}
	tech, err := ParseTechnology(fields[2])
	if err != nil {
		return Event{}, err
	}
	end, err := parseSeconds(fields[4])
	if err != nil {
		return Event{}, err
	}

	return Event{
		Time:     start,
		Observer: fields[1],
		Tech:     tech,
		Sender:   fields[3],
		End:      end,
	}, nil
}

func parseSeconds(value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNumericParse, value)
	}
	return v, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	// Traces from long simulations can carry very wide comment headers.
	const maxCapacity = 1024 * 1024
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxCapacity)
	return scanner
}
