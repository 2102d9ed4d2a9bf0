// Package main provides the phytime CLI, which measures how long LTE and
// WiFi occupied the channel at one node of a coexistence simulation trace.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"phytime/internal/config"
	"phytime/internal/format"
	"phytime/internal/logging"
	"phytime/internal/occupancy"
	"phytime/internal/store"
	"phytime/internal/trace"
	"phytime/internal/view"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath string
	logLevel   string
)

// errMissingArgument is returned before any file access when the trace path
// or observer id is absent.
var errMissingArgument = errors.New("missing argument")

const (
	exitFailure         = 1
	exitMissingArgument = 2
	exitUnknownTech     = 3
	exitNumericParse    = 4
	exitNoSignals       = 5
)

var rootCmd = &cobra.Command{
	Use:           "phytime",
	Short:         "Measure LTE and WiFi channel occupancy from PHY traces",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (yaml, toml or json; env: PHYTIME_* overrides)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level: debug, info, warn, error (env: PHYTIME_LOGGING_LEVEL)")

	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newIntervalsCmd())
	rootCmd.AddCommand(newScanCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "phytime: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps each fatal condition to its own exit status.
func exitCode(err error) int {
	switch {
	case errors.Is(err, errMissingArgument):
		return exitMissingArgument
	case errors.Is(err, trace.ErrUnknownTechnology):
		return exitUnknownTech
	case errors.Is(err, trace.ErrNumericParse):
		return exitNumericParse
	case errors.Is(err, occupancy.ErrNoSignals):
		return exitNoSignals
	default:
		return exitFailure
	}
}

// traceArgs requires a trace path (or directory) followed by at least one
// observer id.
func traceArgs(what string, maxObservers int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < 1 || strings.TrimSpace(args[0]) == "" {
			return fmt.Errorf("%w: %s not provided", errMissingArgument, what)
		}
		if len(args) < 2 {
			return fmt.Errorf("%w: observing node number not provided", errMissingArgument)
		}
		if maxObservers > 0 && len(args)-1 > maxObservers {
			return fmt.Errorf("accepts at most %d observer(s), received %d", maxObservers, len(args)-1)
		}
		return nil
	}
}

// loadSettings resolves configuration and builds the logger for a command.
func loadSettings(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger := logging.New(logging.Config{
		Level:  level,
		Format: cfg.Logging.Format,
		Out:    cmd.ErrOrStderr(),
	})
	return cfg, logger, nil
}

func newExtractCmd() *cobra.Command {
	var (
		formatFlag string
		header     bool
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "extract <trace-file> <observer> [observer...]",
		Short: "Report LTE seconds, WiFi seconds and observed span for each observer",
		Args:  traceArgs("filename", 0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("format") {
				formatFlag = cfg.Format
			}
			if !cmd.Flags().Changed("workers") {
				workers = cfg.Workers
			}

			path, observers := args[0], args[1:]
			reports, err := occupancy.AnalyzeObservers(commandContext(cmd), path, observers, occupancy.Options{
				Logger:  logger,
				Workers: workers,
			})
			if err != nil {
				return err
			}

			return format.WriteReports(cmd.OutOrStdout(), reports, format.Options{
				Format: formatFlag,
				Header: header,
				Labels: len(reports) > 1,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formatFlag, "format", "plain", "output format: plain, table, json, or jsonl")
	flags.BoolVar(&header, "header", false, "print a header row for plain output")
	flags.IntVar(&workers, "workers", 0, "maximum observers analyzed concurrently (0 means one per observer)")

	return cmd
}

func newEventsCmd() *cobra.Command {
	var (
		formatFlag   string
		maxRows      int
		techArg      string
		forceColor   bool
		forceNoColor bool
	)

	cmd := &cobra.Command{
		Use:   "events <trace-file> <observer>",
		Short: "List the transmissions recorded by one observer",
		Args:  traceArgs("filename", 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if forceColor && forceNoColor {
				return errors.New("--color and --no-color cannot be used together")
			}
			_, logger, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			outFile, _ := out.(*os.File)
			return view.RunEvents(commandContext(cmd), view.Options{
				Path:         args[0],
				Observer:     args[1],
				Format:       formatFlag,
				MaxRows:      maxRows,
				Tech:         techArg,
				ForceColor:   forceColor,
				ForceNoColor: forceNoColor,
				Logger:       logger,
				Out:          out,
				OutFile:      outFile,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formatFlag, "format", "text", "output format: text, table, or raw")
	flags.IntVar(&maxRows, "max", 0, "show only the last N events (0 means no limit)")
	flags.StringVar(&techArg, "tech", "", "comma-separated technologies to include: lte, wifi, 1, 0 (default: all)")
	flags.BoolVar(&forceColor, "color", false, "force-enable ANSI colors even when stdout is not a TTY")
	flags.BoolVar(&forceNoColor, "no-color", false, "disable ANSI colors regardless of terminal detection")

	return cmd
}

func newIntervalsCmd() *cobra.Command {
	var (
		formatFlag   string
		maxRows      int
		techArg      string
		forceColor   bool
		forceNoColor bool
	)

	cmd := &cobra.Command{
		Use:   "intervals <trace-file> <observer>",
		Short: "List reconstructed occupancy intervals and how each one closed",
		Args:  traceArgs("filename", 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if forceColor && forceNoColor {
				return errors.New("--color and --no-color cannot be used together")
			}
			_, logger, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			outFile, _ := out.(*os.File)
			return view.RunIntervals(commandContext(cmd), view.Options{
				Path:         args[0],
				Observer:     args[1],
				Format:       formatFlag,
				MaxRows:      maxRows,
				Tech:         techArg,
				ForceColor:   forceColor,
				ForceNoColor: forceNoColor,
				Logger:       logger,
				Out:          out,
				OutFile:      outFile,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formatFlag, "format", "text", "output format: text or table")
	flags.IntVar(&maxRows, "max", 0, "show only the last N intervals (0 means no limit)")
	flags.StringVar(&techArg, "tech", "", "comma-separated technologies to include: lte, wifi, 1, 0 (default: all)")
	flags.BoolVar(&forceColor, "color", false, "force-enable ANSI colors even when stdout is not a TTY")
	flags.BoolVar(&forceNoColor, "no-color", false, "disable ANSI colors regardless of terminal detection")

	return cmd
}

func newScanCmd() *cobra.Command {
	var (
		formatFlag string
		extArg     string
		workers    int
		noHeader   bool
	)

	cmd := &cobra.Command{
		Use:   "scan <dir> <observer>",
		Short: "Analyze every trace file under a directory for one observer",
		Args:  traceArgs("directory", 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("format") {
				formatFlag = cfg.Format
			}
			if !cmd.Flags().Changed("workers") {
				workers = cfg.Workers
			}
			exts := cfg.Scan.Extensions
			if extArg != "" {
				exts = splitExtensions(extArg)
			}

			result, err := store.ScanTraces(commandContext(cmd), store.ScanOptions{
				Root:       args[0],
				Observer:   args[1],
				Extensions: exts,
				Workers:    workers,
				Logger:     logger,
			})
			if err != nil {
				return err
			}

			errs := cmd.ErrOrStderr()
			for _, warn := range result.Warnings {
				fmt.Fprintf(errs, "warning: %v\n", warn) //nolint:errcheck
			}

			return format.WriteReports(cmd.OutOrStdout(), result.Reports, format.Options{
				Format: formatFlag,
				Header: !noHeader,
				Labels: true,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formatFlag, "format", "plain", "output format: plain, table, json, or jsonl")
	flags.StringVar(&extArg, "ext", "", "comma-separated trace file extensions (default from config: .txt,.tr)")
	flags.IntVar(&workers, "workers", 0, "maximum traces analyzed concurrently (0 means no limit)")
	flags.BoolVar(&noHeader, "no-header", false, "omit header row for plain output")

	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func splitExtensions(arg string) []string {
	var exts []string
	for _, part := range strings.Split(arg, ",") {
		ext := strings.TrimSpace(part)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return exts
}
