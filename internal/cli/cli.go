package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/vk/buildall/internal/app"
)

// UsageExitCode is the exit status for invalid command lines.
const UsageExitCode = 2

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := pflag.NewFlagSet("buildall", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.SortFlags = false

	flagSet.Usage = func() {
		fmt.Fprint(output, `
buildall - Build every recipe that is not yet published, in dependency order.

Usage:
  buildall [options] RECIPE...

Arguments:
  RECIPE
    A recipe directory, a directory of recipes, or a glob matching either.

Options:
`)
		flagSet.PrintDefaults()
	}

	checkAgainst := flagSet.StringSlice("check-against", nil, "Channel to check for already published artifacts. Repeatable or comma separated.")
	dryRun := flagSet.Bool("dry-run", false, "Report what would be built without building.")
	upload := flagSet.String("upload", "", "Upload built artifacts to this user or organisation.")
	force := flagSet.Bool("force", false, "Build even when the artifact is already published, and overwrite on upload.")
	dev := flagSet.Bool("dev", false, "Upload everything under the dev label. Requires --force.")
	noTest := flagSet.Bool("no-test", false, "Skip the recipe tests when building.")
	python := flagSet.StringSlice("python", nil, "Python versions to build for, e.g. 2.7,3.5.")
	numpy := flagSet.StringSlice("numpy", nil, "Numpy versions to build for, e.g. 1.9,1.10.")
	verbose := flagSet.CountP("verbose", "v", "Increase verbosity. Repeat up to three times.")
	configPath := flagSet.String("config", "", "Path to an HCL settings file.")
	outputDir := flagSet.String("output-dir", "", "Directory the builder writes artifacts to. Defaults to the builder's own.")
	blocklist := flagSet.String("blocklist", "", "File of package names whose pre-releases keep their normal labels.")
	metricsFile := flagSet.String("metrics-file", "", "Write run metrics to this file in Prometheus text format.")
	logFormat := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: UsageExitCode, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No recipe paths provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(app.Config{
		RecipePatterns: flagSet.Args(),
		SettingsPath:   *configPath,
		CheckAgainst:   nonEmpty(*checkAgainst),
		DryRun:         *dryRun,
		UploadUser:     *upload,
		Force:          *force,
		Dev:            *dev,
		NoTest:         *noTest,
		Python:         nonEmpty(*python),
		Numpy:          nonEmpty(*numpy),
		OutputDir:      *outputDir,
		Blocklist:      *blocklist,
		MetricsFile:    *metricsFile,
		Verbosity:      *verbose,
		LogFormat:      strings.ToLower(*logFormat),
	})
	if err != nil {
		return nil, false, &ExitError{Code: UsageExitCode, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// nonEmpty trims list entries and drops blank ones.
func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
