package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/philipcardiff/snek5000/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("snek", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
snek - a stage pipeline runner for Nek5000-style simulation cases.

Usage:
  snek [options] [STAGE...]

Arguments:
  STAGE
    Ordered stage names to execute: mesh, compile, run, archive, clean.
    With no stages given, the full canonical order (mesh compile run
    archive) is executed. Dependencies are checked, never auto-inserted:
    requesting "run" alone fails unless compile was requested before it.

Options:
`)
		flagSet.PrintDefaults()
	}

	caseFlag := flagSet.String("case", ".", "Path to the simulation case directory.")
	cFlag := flagSet.String("c", "", "Path to the simulation case directory (shorthand).")
	paramsFlag := flagSet.String("params", "", "Path to an HCL parameter override file.")
	var sets stringList
	flagSet.Var(&sets, "set", "Parameter override as key=value (repeatable), e.g. -set run.nproc=8.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Report the resolved command plan without executing anything.")
	backgroundFlag := flagSet.Bool("background", false, "Detach the run stage instead of blocking on it.")
	npFlag := flagSet.Int("np", 0, "Shorthand for -set run.nproc=N. 0 leaves the parameter alone.")
	restartFlag := flagSet.Bool("restart", false, "Load parameters for a restart in a new session.")
	startFromFlag := flagSet.String("use-start-from", "", "Field file to restart from. Implies -restart.")
	checkpointFlag := flagSet.Int("use-checkpoint", 0, "Multi-file checkpoint set (1 or 2) to restart from. Implies -restart.")
	historyFlag := flagSet.Int("history", 0, "List the N most recent runs of this case and exit. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	caseDir := *caseFlag
	if *cFlag != "" {
		caseDir = *cFlag
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		CaseDir:       caseDir,
		ParamsFile:    *paramsFlag,
		Sets:          sets,
		Stages:        flagSet.Args(),
		DryRun:        *dryRunFlag,
		Background:    *backgroundFlag,
		Nproc:         *npFlag,
		Restart:       *restartFlag,
		StartFrom:     *startFromFlag,
		UseCheckpoint: *checkpointFlag,
		HistoryLimit:  *historyFlag,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}
