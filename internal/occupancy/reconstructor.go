// Package occupancy reconstructs how long each radio technology held the
// shared channel, as perceived by one observer.
//
// Overlap handling is asymmetric: an LTE signal that starts inside an open
// WiFi interval preempts it, cutting the WiFi interval at the LTE start time,
// while a WiFi signal that starts inside an open LTE interval is masked and
// leaves the LTE interval untouched.
package occupancy

import (
	"errors"

	"phytime/internal/trace"
)

// ErrNoSignals is returned when no event was accepted for the observer.
var ErrNoSignals = errors.New("no signals processed")

// State is the channel state of the reconstructor.
type State int

const (
	StateIdle State = iota
	StateLTEOpen
	StateWiFiOpen
)

func (s State) String() string {
	switch s {
	case StateLTEOpen:
		return "lte-open"
	case StateWiFiOpen:
		return "wifi-open"
	default:
		return "idle"
	}
}

// CloseReason records why an occupancy interval ended.
type CloseReason string

const (
	// ReasonGap means a later event of either technology started after the
	// interval ended.
	ReasonGap CloseReason = "gap"
	// ReasonPreempted means an LTE event cut an open WiFi interval short.
	ReasonPreempted CloseReason = "preempted"
	// ReasonFinal means the interval was still open when the trace ended.
	ReasonFinal CloseReason = "final"
)

// Interval is one closed occupancy interval. Duration is what was credited
// to the technology, which is End-Start for every reason.
type Interval struct {
	Tech   trace.Technology `json:"technology"`
	Start  float64          `json:"start"`
	End    float64          `json:"end"`
	Reason CloseReason      `json:"reason"`
}

// Duration returns the seconds credited for the interval.
func (iv Interval) Duration() float64 { return iv.End - iv.Start }

// Result is the output of one reconstruction: LTE seconds, WiFi seconds and
// the span between the first and the last accepted event start times.
type Result struct {
	LTE    float64 `json:"lte_seconds"`
	WiFi   float64 `json:"wifi_seconds"`
	Span   float64 `json:"span_seconds"`
	Events int     `json:"events"`
}

// Reconstructor consumes the events of one observer in arrival order.
// A Reconstructor is owned by a single analysis and is not safe for
// concurrent use.
type Reconstructor struct {
	// OnInterval, when set, is called for every interval as it closes.
	OnInterval func(Interval)

	state     State
	openStart float64
	openEnd   float64

	lte  float64
	wifi float64

	firstTime float64
	lastTime  float64
	events    int
}

// New returns a reconstructor in the idle state.
func New() *Reconstructor {
	return &Reconstructor{}
}

// State reports the current channel state.
func (r *Reconstructor) State() State { return r.state }

// Observe applies one event to the state machine.
func (r *Reconstructor) Observe(e trace.Event) {
	if r.events == 0 {
		r.firstTime = e.Time
	}
	r.lastTime = e.Time
	r.events++

	switch r.state {
	case StateIdle:
		r.open(e)
	case StateLTEOpen:
		switch {
		case e.Time > r.openEnd:
			r.close(r.openEnd, ReasonGap)
			r.open(e)
		case e.Tech == trace.TechLTE:
			r.extend(e.End)
		default:
			// WiFi inside an open LTE interval is masked.
		}
	case StateWiFiOpen:
		switch {
		case e.Time > r.openEnd:
			r.close(r.openEnd, ReasonGap)
			r.open(e)
		case e.Tech == trace.TechWiFi:
			r.extend(e.End)
		default:
			r.close(e.Time, ReasonPreempted)
			r.open(e)
		}
	}
}

// Finish flushes the interval still open after the last event and returns
// the accumulated durations.
func (r *Reconstructor) Finish() (Result, error) {
	if r.state != StateIdle {
		r.close(r.openEnd, ReasonFinal)
	}
	if r.events == 0 {
		return Result{}, ErrNoSignals
	}
	return Result{
		LTE:    r.lte,
		WiFi:   r.wifi,
		Span:   r.lastTime - r.firstTime,
		Events: r.events,
	}, nil
}

func (r *Reconstructor) open(e trace.Event) {
	r.openStart = e.Time
	r.openEnd = e.End
	if e.Tech == trace.TechLTE {
		r.state = StateLTEOpen
	} else {
		r.state = StateWiFiOpen
	}
}

func (r *Reconstructor) extend(end float64) {
	r.openEnd = max(r.openEnd, end)
}

func (r *Reconstructor) close(end float64, reason CloseReason) {
	iv := Interval{Start: r.openStart, End: end, Reason: reason}
	if r.state == StateLTEOpen {
		iv.Tech = trace.TechLTE
		r.lte += iv.Duration()
	} else {
		iv.Tech = trace.TechWiFi
		r.wifi += iv.Duration()
	}
	r.state = StateIdle
	if r.OnInterval != nil {
		r.OnInterval(iv)
	}
}
