package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/section-installer/internal/manifest"
)

// validateCmd checks a manifest without executing anything.
var validateCmd = &cobra.Command{
	Use:   "validate <manifest file>",
	Short: "Check a manifest for duplicate sections, malformed lines and missing settings.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := manifest.ReadFile(args[0])
		if err != nil {
			return fatal(err)
		}

		sections, err := manifest.Parse(src)
		if err != nil {
			return fatal(err)
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "%s: %d sections\n", args[0], len(sections))

		var firstErr error

		for _, sec := range sections {
			status := "ok"
			if err = sec.Validate(); err != nil {
				status = err.Error()

				if firstErr == nil {
					firstErr = err
				}
			}

			_, _ = fmt.Fprintf(out, "  [%s] %s\n", sec.Name, status)
		}

		return fatal(firstErr)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(validateCmd)
}
