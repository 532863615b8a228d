package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/kardianos/service"

	"github.com/oshokin/section-installer/internal/config"
	"github.com/oshokin/section-installer/internal/fetcher"
	"github.com/oshokin/section-installer/internal/logger"
	"github.com/oshokin/section-installer/internal/manifest"
	"github.com/oshokin/section-installer/internal/repository/ledger"
	"github.com/oshokin/section-installer/internal/service/common"
)

var (
	// ErrNoManifestURL is returned when install is called without a manifest location.
	ErrNoManifestURL = errors.New("manifest url is empty")
	// ErrAlreadyRunning is returned by Serve when another engine process is found.
	ErrAlreadyRunning = errors.New("another engine process is already running")
)

// Downloader fetches a single file.
type Downloader interface {
	Download(ctx context.Context, rawURL, destDir string) (string, error)
}

// Options are inputs accepted by the installer entry points.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// ManifestURL is the manifest location used by Install.
	ManifestURL string
	// LogLevel overrides the configured log level.
	LogLevel string
}

// StatusReport describes the registration and the progress of the installation.
type StatusReport struct {
	// Service is the state reported by the service manager.
	Service string
	// Started lists sections recorded in the ledger, in the order they were started.
	Started []string
}

// Installer performs the service management operations for one configuration.
type Installer struct {
	cfg         *config.Config
	downloader  Downloader
	controllers ControllerFactory
	// executable returns the path of the binary to install.
	executable func() (string, error)
}

// Option configures an Installer.
type Option func(*Installer)

// WithDownloader replaces the manifest downloader.
func WithDownloader(downloader Downloader) Option {
	return func(i *Installer) {
		i.downloader = downloader
	}
}

// WithControllerFactory replaces the platform service manager.
func WithControllerFactory(factory ControllerFactory) Option {
	return func(i *Installer) {
		i.controllers = factory
	}
}

// WithExecutable overrides the binary copied into the data folder.
func WithExecutable(executable func() (string, error)) Option {
	return func(i *Installer) {
		i.executable = executable
	}
}

// New creates an Installer for the configuration.
func New(cfg *config.Config, opts ...Option) *Installer {
	i := &Installer{
		cfg: cfg,
		downloader: fetcher.New(
			fetcher.WithTimeout(cfg.DownloadTimeout),
			fetcher.WithS3(cfg.S3),
		),
		controllers: defaultControllerFactory,
		executable:  os.Executable,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// EnsureDirectories creates every folder the engine writes to.
func EnsureDirectories(paths []string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}

		if err := os.MkdirAll(path, config.DefaultDirPermissions); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}

	return nil
}

// Install prepares the data folder and registers the service.
func (i *Installer) Install(ctx context.Context, manifestURL string) error {
	manifestURL = strings.TrimSpace(manifestURL)
	if manifestURL == "" {
		return ErrNoManifestURL
	}

	if actor, err := common.DetectActor(); err == nil {
		logger.InfoKV(ctx, "Installing", "actor", actor.String(), "manifest", manifestURL)
	}

	if err := EnsureDirectories(i.cfg.Directories()); err != nil {
		return err
	}

	if err := i.installManifest(ctx, manifestURL); err != nil {
		return err
	}

	executable, err := i.installExecutable(ctx)
	if err != nil {
		return err
	}

	if err = ledger.NewFileLedger(i.cfg.LedgerFile).Create(ctx); err != nil {
		return err
	}

	configPath := i.cfg.ConfigPath()
	if err = config.Save(configPath, i.cfg); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Settings saved", "path", configPath)

	controller, err := i.controllers(newServiceConfig(i.cfg, executable, configPath))
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	if err = controller.Install(); err != nil {
		return fmt.Errorf("install service: %w", err)
	}

	logger.InfoKV(ctx, "Service registered", "name", i.cfg.ProgramName)

	return nil
}

// InstallAndStart installs the service and starts it right away.
func (i *Installer) InstallAndStart(ctx context.Context, manifestURL string) error {
	if err := i.Install(ctx, manifestURL); err != nil {
		return err
	}

	return i.Start(ctx)
}

// Start starts the registered service.
func (i *Installer) Start(ctx context.Context) error {
	controller, err := i.controller()
	if err != nil {
		return err
	}

	if err = controller.Start(); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	logger.InfoKV(ctx, "Service started", "name", i.cfg.ProgramName)

	return nil
}

// Stop stops the registered service.
func (i *Installer) Stop(ctx context.Context) error {
	controller, err := i.controller()
	if err != nil {
		return err
	}

	if err = controller.Stop(); err != nil {
		return fmt.Errorf("stop service: %w", err)
	}

	logger.InfoKV(ctx, "Service stopped", "name", i.cfg.ProgramName)

	return nil
}

// Deinstall stops and deregisters the service and removes the ledger, the
// installed manifest and the workspace. Every step is attempted; the failures
// are returned together.
func (i *Installer) Deinstall(ctx context.Context) error {
	var result *multierror.Error

	controller, err := i.controller()
	if err != nil {
		result = multierror.Append(result, err)
	} else {
		if err = controller.Stop(); err != nil {
			logger.DebugKV(ctx, "Service was not stopped", "error", err)
		}

		if err = controller.Uninstall(); err != nil && !errors.Is(err, service.ErrNotInstalled) {
			result = multierror.Append(result, fmt.Errorf("uninstall service: %w", err))
		}
	}

	if err = ledger.NewFileLedger(i.cfg.LedgerFile).Remove(ctx); err != nil {
		result = multierror.Append(result, err)
	}

	if err = os.Remove(i.cfg.ManifestFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		result = multierror.Append(result, fmt.Errorf("remove manifest: %w", err))
	}

	if err = os.RemoveAll(i.cfg.WorkspaceDir); err != nil {
		result = multierror.Append(result, fmt.Errorf("remove workspace: %w", err))
	}

	if err = result.ErrorOrNil(); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Service removed", "name", i.cfg.ProgramName)

	return nil
}

// Status reports the service state and the sections started so far.
func (i *Installer) Status(ctx context.Context) (*StatusReport, error) {
	report := new(StatusReport)

	controller, err := i.controller()
	if err != nil {
		return nil, err
	}

	report.Service = statusText(controller.Status())

	report.Started, err = ledger.NewFileLedger(i.cfg.LedgerFile).Entries(ctx)
	if err != nil {
		return nil, err
	}

	return report, nil
}

// controller binds to an existing registration.
func (i *Installer) controller() (Controller, error) {
	executable, err := i.installedExecutable()
	if err != nil {
		return nil, err
	}

	controller, err := i.controllers(newServiceConfig(i.cfg, executable, i.cfg.ConfigPath()))
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	return controller, nil
}

// installManifest downloads the manifest and keeps it only when it is valid.
func (i *Installer) installManifest(ctx context.Context, manifestURL string) error {
	tempDir, err := os.MkdirTemp(i.cfg.DataDir, "manifest-")
	if err != nil {
		return fmt.Errorf("create download folder: %w", err)
	}

	defer func() {
		_ = os.RemoveAll(tempDir)
	}()

	downloaded, err := i.downloader.Download(ctx, manifestURL, tempDir)
	if err != nil {
		return fmt.Errorf("download manifest: %w", err)
	}

	src, err := manifest.ReadFile(downloaded)
	if err != nil {
		return err
	}

	// Open runs the same checks and settings load as every later run.
	installed, err := manifest.Open(src)
	if err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}

	if err = os.Rename(downloaded, i.cfg.ManifestFile); err != nil {
		return fmt.Errorf("store manifest: %w", err)
	}

	logger.InfoKV(ctx, "Manifest installed",
		"path", i.cfg.ManifestFile,
		"sections", len(installed.SectionNames()))

	return nil
}

// installedExecutable is where Install places the binary.
func (i *Installer) installedExecutable() (string, error) {
	executable, err := i.executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}

	return filepath.Join(i.cfg.DataDir, filepath.Base(executable)), nil
}
