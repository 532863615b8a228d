package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/section-installer/internal/config"
	"github.com/oshokin/section-installer/internal/version"
)

const (
	// exitFatal is returned when a command started and failed.
	exitFatal = 255
	// exitUsage is returned for unknown commands and bad arguments.
	exitUsage = 1
)

var errNoCommand = errors.New("no command given")

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command of the installer.
	rootCmd = &cobra.Command{
		Use:   "section-installer",
		Short: "Install software packages section by section from a manifest.",
		Long: `Installs software packages described by an INI manifest.

Each section names a zip package and an install script inside it. Sections run
one by one in manifest order and the run stops at the first failure. Every
section is recorded in a ledger before its work begins, so a resumed run skips
sections that were already started.

The installer registers itself as a background service that executes the
installed manifest, and can also validate or run a manifest directly.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return errNoCommand
		},
	}
)

// fatalError marks failures of a command that started, as opposed to usage errors.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }

func (e *fatalError) Unwrap() error { return e.err }

// fatal wraps a command failure so Execute exits with exitFatal.
func fatal(err error) error {
	if err == nil {
		return nil
	}

	return &fatalError{err: err}
}

// signalContext is canceled on SIGTERM or SIGINT.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// Execute runs the section-installer CLI and exits with a non-zero status on error.
func Execute() {
	os.Exit(execute(os.Args[1:]))
}

// execute runs the command line and returns the process exit code.
func execute(args []string) int {
	if args == nil {
		args = []string{}
	}

	rootCmd.SetArgs(args)

	cmd, err := rootCmd.ExecuteC()
	if err == nil {
		return 0
	}

	errOutput := rootCmd.ErrOrStderr()

	var fatalErr *fatalError
	if errors.As(err, &fatalErr) {
		_, _ = fmt.Fprintln(errOutput, "Error:", fatalErr.err)

		return exitFatal
	}

	_, _ = fmt.Fprintln(errOutput, "Error:", err)
	_, _ = fmt.Fprint(errOutput, cmd.UsageString())

	return exitUsage
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error), overrides the configuration")
}
