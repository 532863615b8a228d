package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oshokin/section-installer/internal/service/installer"
	"github.com/oshokin/section-installer/internal/service/runner"
)

var (
	// manifestPath overrides the installed manifest for the run command.
	manifestPath string

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the installed service.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return fatal(installer.Start(ctx, serviceOptions()))
		},
	}

	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop the installed service.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return fatal(installer.Stop(ctx, serviceOptions()))
		},
	}

	deinstallCmd = &cobra.Command{
		Use:   "deinstall",
		Short: "Stop and remove the service with its ledger, manifest and workspace.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return fatal(installer.Deinstall(ctx, serviceOptions()))
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the service state and the sections started so far.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			report, err := installer.Status(ctx, serviceOptions())
			if err != nil {
				return fatal(err)
			}

			started := "none"
			if len(report.Started) > 0 {
				started = strings.Join(report.Started, ", ")
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "service: %s\nstarted sections: %s\n", report.Service, started)

			return nil
		},
	}

	// runCmd is what the service manager launches.
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Execute the installed manifest, skipping sections that were already started.",
		Long: `Executes the manifest section by section. Under the service manager this is
the service body; from a terminal it runs in the foreground until the manifest
is done or a section fails.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			options := &runner.Options{
				ConfigPath:   configPath,
				ManifestPath: manifestPath,
				LogLevel:     logLevel,
			}

			return fatal(installer.Serve(ctx, options))
		},
	}
)

func serviceOptions() *installer.Options {
	return &installer.Options{
		ConfigPath: configPath,
		LogLevel:   logLevel,
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	runCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "manifest file to run instead of the installed one")

	rootCmd.AddCommand(startCmd, stopCmd, deinstallCmd, statusCmd, runCmd)
}
