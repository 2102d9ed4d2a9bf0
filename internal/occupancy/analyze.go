package occupancy

import (
	"context"
	"fmt"

	"phytime/internal/logging"
	"phytime/internal/trace"

	"golang.org/x/sync/errgroup"
)

// Options controls an analysis run.
type Options struct {
	Logger logging.Logger
	// OnInterval is forwarded to the reconstructor.
	OnInterval func(Interval)
	// Workers bounds concurrent observers in AnalyzeObservers (0 means one
	// worker per observer).
	Workers int
}

// Report is the result of analyzing one observer in one trace file.
type Report struct {
	Path     string      `json:"path"`
	Observer string      `json:"observer"`
	Result   Result      `json:"result"`
	Stats    trace.Stats `json:"stats"`
}

// Analyze runs a single reconstruction of observer over the trace at path.
func Analyze(ctx context.Context, path, observer string, opts Options) (Report, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	log = log.With(logging.String("trace", path), logging.String("observer", observer))

	rec := New()
	rec.OnInterval = opts.OnInterval

	stats, err := trace.IterateEvents(path, observer, func(e trace.Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec.Observe(e)
		return nil
	})
	log.Debug(ctx, "trace scanned",
		logging.Int("lines", stats.Lines),
		logging.Int("comments", stats.Comments),
		logging.Int("malformed", stats.Malformed),
		logging.Int("foreign", stats.Foreign),
		logging.Int("accepted", stats.Accepted),
	)
	if err != nil {
		return Report{}, err
	}

	finalState := rec.State()
	result, err := rec.Finish()
	if err != nil {
		return Report{}, fmt.Errorf("observer %s: %w", observer, err)
	}
	log.Debug(ctx, "occupancy reconstructed",
		logging.String("final_state", finalState.String()),
		logging.Float("lte_seconds", result.LTE),
		logging.Float("wifi_seconds", result.WiFi),
		logging.Float("span_seconds", result.Span),
	)

	return Report{Path: path, Observer: observer, Result: result, Stats: stats}, nil
}

// AnalyzeObservers runs one independent reconstruction per observer and
// returns the reports in the order the observers were given. The first
// failure cancels the remaining runs.
func AnalyzeObservers(ctx context.Context, path string, observers []string, opts Options) ([]Report, error) {
	reports := make([]Report, len(observers))

	g, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	runOpts := opts
	runOpts.OnInterval = nil

	for i, observer := range observers {
		i, observer := i, observer
		g.Go(func() error {
			report, err := Analyze(ctx, path, observer, runOpts)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
