package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/section-installer/internal/config"
	"github.com/oshokin/section-installer/internal/domain/section"
	"github.com/oshokin/section-installer/internal/fetcher"
	"github.com/oshokin/section-installer/internal/logger"
	"github.com/oshokin/section-installer/internal/manifest"
	"github.com/oshokin/section-installer/internal/repository/ledger"
	"github.com/oshokin/section-installer/internal/service/common"
	"github.com/oshokin/section-installer/internal/service/executor"
)

var errExecutorIsNotSet = errors.New("section executor is not set")

// SectionExecutor runs a single section.
type SectionExecutor interface {
	ExecuteSection(ctx context.Context, sec *section.Section) (section.State, error)
}

// Summary counts what a run did.
type Summary struct {
	// Executed is the number of sections whose script finished successfully.
	Executed int
	// Skipped is the number of sections started by an earlier run.
	Skipped int
}

// Runner executes manifests section by section.
type Runner struct {
	executor SectionExecutor
}

// Options are inputs accepted by the runner entry point.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// ManifestPath overrides the installed manifest file.
	ManifestPath string
	// LogLevel overrides the configured log level.
	LogLevel string
}

// New creates a Runner delegating each section to executor.
func New(executor SectionExecutor) *Runner {
	return &Runner{executor: executor}
}

// Run loads settings, wires the ledger, fetcher and executor and runs the installed manifest.
// It is the public entry point for the CLI and the service.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return err
	}

	closeLog, err := common.SetupLogger(cfg, opts.LogLevel)
	if err != nil {
		return err
	}

	defer func() {
		_ = closeLog()
	}()

	// Set context with logger name for tracking, once the log sinks are in place.
	ctx = logger.WithName(ctx, "runner")

	manifestPath := opts.ManifestPath
	if manifestPath == "" {
		manifestPath = cfg.ManifestFile
	}

	src, err := manifest.ReadFile(manifestPath)
	if err != nil {
		logger.ErrorKV(ctx, "Unable to read manifest", "path", manifestPath, "error", err)

		return err
	}

	checkpoints := ledger.NewFileLedger(cfg.LedgerFile)

	exec := executor.New(
		cfg.WorkspaceDir,
		checkpoints,
		fetcher.New(
			fetcher.WithTimeout(cfg.DownloadTimeout),
			fetcher.WithS3(cfg.S3),
		),
	)

	logger.InfoKV(ctx, "Running manifest", "manifest", manifestPath, "ledger", checkpoints.Path())

	if _, err = New(exec).Run(ctx, src); err != nil {
		logger.ErrorKV(ctx, "Run failed", "error", err)

		return err
	}

	return nil
}

// Run validates the manifest and executes its sections in declaration order.
// The first failing section stops the run and its error is returned.
func (r *Runner) Run(ctx context.Context, src []byte) (*Summary, error) {
	summary := new(Summary)

	if r.executor == nil {
		return summary, errExecutorIsNotSet
	}

	m, err := manifest.Open(src)
	if err != nil {
		return summary, fmt.Errorf("invalid manifest: %w", err)
	}

	names := m.SectionNames()
	logger.InfoKV(ctx, "Manifest accepted", "sections", len(names))

	for _, name := range names {
		if err = ctx.Err(); err != nil {
			return summary, err
		}

		var sec *section.Section

		sec, err = m.Section(name)
		if err != nil {
			return summary, err
		}

		var state section.State

		state, err = r.executor.ExecuteSection(ctx, sec)
		if err != nil {
			return summary, fmt.Errorf("execute section %q: %w", name, err)
		}

		if state == section.StateSkipped {
			summary.Skipped++
		} else {
			summary.Executed++
		}
	}

	logger.Record(ctx, fmt.Sprintf("Installation finished: %d executed, %d skipped",
		summary.Executed, summary.Skipped))

	return summary, nil
}
