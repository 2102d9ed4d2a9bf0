// Package trace reads PHY transmission traces recorded by the coexistence
// simulator and normalizes them into typed events for one observing node.
package trace

import "fmt"

// Technology identifies the radio technology that generated a signal.
type Technology int

const (
	// TechWiFi is the contention-based technology (numeric code 0).
	TechWiFi Technology = iota
	// TechLTE is the cellular technology (numeric code 1).
	TechLTE
)

// String returns the symbolic spelling used in trace files.
func (t Technology) String() string {
	switch t {
	case TechWiFi:
		return "wifi"
	case TechLTE:
		return "lte"
	default:
		return fmt.Sprintf("technology(%d)", int(t))
	}
}

// MarshalText lets technologies appear by name in JSON output.
func (t Technology) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseTechnology accepts both the symbolic and the numeric spelling.
func ParseTechnology(token string) (Technology, error) {
	switch token {
	case "lte", "1":
		return TechLTE, nil
	case "wifi", "0":
		return TechWiFi, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTechnology, token)
	}
}

// Event is one transmission as seen by a single observer.
type Event struct {
	Time     float64    `json:"time"`
	Observer string     `json:"observer"`
	Tech     Technology `json:"technology"`
	Sender   string     `json:"sender"`
	End      float64    `json:"end_time"`
	Line     int        `json:"line"`
	Raw      string     `json:"-"`
}

// Stats counts what happened to each line of a trace during a scan.
type Stats struct {
	Lines     int `json:"lines"`
	Comments  int `json:"comments"`
	Malformed int `json:"malformed"`
	Foreign   int `json:"foreign"`
	Accepted  int `json:"accepted"`
}
