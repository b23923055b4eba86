package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/philipcardiff/snek5000/internal/app"
	"github.com/philipcardiff/snek5000/internal/cli"
)

// main is the entrypoint for the snek executable.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// The app panics on critical startup errors (unreadable case files,
	// bad overrides); recover into a clean exit message.
	defer func() {
		if r := recover(); r != nil {
			err = &cli.ExitError{Code: 1, Message: fmt.Sprintf("A critical startup error occurred: %v", r)}
		}
	}()

	snekApp := app.NewApp(outW, appConfig)
	return snekApp.Run(context.Background(), appConfig)
}
