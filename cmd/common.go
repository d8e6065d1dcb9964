package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"infometis/internal/app"
	"infometis/internal/formatting"
	"infometis/pkg/logging"
)

// newApplication bootstraps the application for a command. Logs go to
// stderr so stdout stays parseable.
func newApplication(cmd *cobra.Command, server bool) (*app.Application, error) {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	if quiet && level < logging.LevelWarn {
		level = logging.LevelWarn
	}
	cfg := app.NewConfig(configDir, level, cmd.ErrOrStderr())
	cfg.Server = server

	application, err := app.NewApplication(cmd.Context(), cfg, appOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

func newFormatter(w io.Writer) (formatting.Formatter, error) {
	format, err := formatting.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return formatting.New(formatting.Options{Format: format, Quiet: quiet, Color: isTerminal(w)}), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// withSpinner runs fn with a spinner on terminals unless --quiet is set.
func withSpinner[T any](cmd *cobra.Command, message string, fn func(ctx context.Context) (T, error)) (T, error) {
	out := cmd.ErrOrStderr()
	if quiet || !isTerminal(out) {
		return fn(cmd.Context())
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " " + message
	s.Start()
	defer s.Stop()
	return fn(cmd.Context())
}

// printBanner writes the success or failure line above a JSON payload.
func printBanner(w io.Writer, ok bool, message string) {
	if quiet {
		return
	}
	color := isTerminal(w)
	mark := "✅"
	if !ok {
		mark = "❌"
	}
	if color {
		c := text.FgGreen
		if !ok {
			c = text.FgRed
		}
		message = c.Sprint(message)
	}
	fmt.Fprintf(w, "%s %s\n", mark, message)
}

// printResult writes the payload as indented JSON.
func printResult(w io.Writer, payload any) {
	fmt.Fprintln(w, formatting.PrettyJSON(payload))
}
