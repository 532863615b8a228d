package installer

import (
	"context"
	"fmt"

	"github.com/kardianos/service"

	"github.com/oshokin/section-installer/internal/config"
	"github.com/oshokin/section-installer/internal/logger"
	"github.com/oshokin/section-installer/internal/service/common"
	"github.com/oshokin/section-installer/internal/service/runner"
)

// Install is the CLI entry point of the install command.
func Install(ctx context.Context, opts *Options) error {
	return withInstaller(ctx, "installer", opts, func(ctx context.Context, i *Installer) error {
		return i.Install(ctx, opts.ManifestURL)
	})
}

// InstallAndStart is the CLI entry point of the install_and_start command.
func InstallAndStart(ctx context.Context, opts *Options) error {
	return withInstaller(ctx, "installer", opts, func(ctx context.Context, i *Installer) error {
		return i.InstallAndStart(ctx, opts.ManifestURL)
	})
}

// Start is the CLI entry point of the start command.
func Start(ctx context.Context, opts *Options) error {
	return withInstaller(ctx, "service", opts, func(ctx context.Context, i *Installer) error {
		return i.Start(ctx)
	})
}

// Stop is the CLI entry point of the stop command.
func Stop(ctx context.Context, opts *Options) error {
	return withInstaller(ctx, "service", opts, func(ctx context.Context, i *Installer) error {
		return i.Stop(ctx)
	})
}

// Deinstall is the CLI entry point of the deinstall command.
func Deinstall(ctx context.Context, opts *Options) error {
	return withInstaller(ctx, "installer", opts, func(ctx context.Context, i *Installer) error {
		return i.Deinstall(ctx)
	})
}

// Status is the CLI entry point of the status command.
func Status(ctx context.Context, opts *Options) (*StatusReport, error) {
	var report *StatusReport

	err := withInstaller(ctx, "service", opts, func(ctx context.Context, i *Installer) error {
		var err error

		report, err = i.Status(ctx)

		return err
	})

	return report, err
}

// server holds the collaborators of Serve.
type server struct {
	// interactive reports whether the process runs outside a service manager.
	interactive func() bool
	// processes lists running processes for the single-engine guard.
	processes common.ProcessLister
	// foreground runs the engine in the current process.
	foreground func(ctx context.Context, opts *runner.Options) error
	// background hands the engine to the service manager.
	background func(ctx context.Context, opts *runner.Options) error
}

// Serve runs the engine. Under the service manager the engine is started by
// the service program; in a terminal it runs in the foreground.
func Serve(ctx context.Context, opts *runner.Options) error {
	s := &server{
		interactive: service.Interactive,
		foreground:  runner.Run,
		background:  runAsService,
	}

	return s.serve(ctx, opts)
}

// serve refuses a second foreground engine. The service manager keeps a single
// service instance itself, and the CLI that started it may still be alive, so
// the guard does not apply to the service side.
func (s *server) serve(ctx context.Context, opts *runner.Options) error {
	if !s.interactive() {
		return s.background(ctx, opts)
	}

	others, err := common.OtherInstances(s.processes)
	if err != nil {
		logger.WarnKV(logger.WithName(ctx, "service"), "Unable to scan running processes", "error", err)
	}

	if len(others) > 0 {
		return fmt.Errorf("pids %v: %w", others, ErrAlreadyRunning)
	}

	return s.foreground(ctx, opts)
}

// runAsService lets the service manager drive the engine through program.
func runAsService(ctx context.Context, opts *runner.Options) error {
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return err
	}

	prg := newProgram(ctx, func(ctx context.Context) error {
		return runner.Run(ctx, opts)
	})

	s, err := service.New(prg, newServiceConfig(cfg, "", opts.ConfigPath))
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	return s.Run()
}

// withInstaller loads settings, wires the log sinks and calls fn.
func withInstaller(ctx context.Context, name string, opts *Options, fn func(context.Context, *Installer) error) error {
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

	ctx = logger.WithName(ctx, name)

	if err = fn(ctx, New(cfg)); err != nil {
		logger.ErrorKV(ctx, "Command failed", "error", err)

		return err
	}

	return nil
}
