package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/section-installer/internal/service/installer"
)

var (
	// installCmd registers the service without starting it.
	installCmd = &cobra.Command{
		Use:   "install <manifestURL>",
		Short: "Download the manifest and register the installer as a service.",
		Long: `Creates the data folders, downloads and validates the manifest, copies the
executable next to it, creates the ledger and registers a service that runs the
manifest. An invalid manifest aborts the installation.

Supported manifest locations: http(s)://, file:// and s3://bucket/key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return fatal(installer.Install(ctx, installOptions(args[0])))
		},
	}

	// installAndStartCmd registers the service and starts it.
	installAndStartCmd = &cobra.Command{
		Use:   "install_and_start <manifestURL>",
		Short: "Install the service and start it immediately.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return fatal(installer.InstallAndStart(ctx, installOptions(args[0])))
		},
	}
)

func installOptions(manifestURL string) *installer.Options {
	return &installer.Options{
		ConfigPath:  configPath,
		ManifestURL: manifestURL,
		LogLevel:    logLevel,
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(installCmd, installAndStartCmd)
}
