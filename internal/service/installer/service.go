package installer

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/kardianos/service"

	"github.com/oshokin/section-installer/internal/config"
	"github.com/oshokin/section-installer/internal/logger"
)

// Controller is the part of service.Service used by the installer.
type Controller interface {
	Install() error
	Uninstall() error
	Start() error
	Stop() error
	Status() (service.Status, error)
}

// ControllerFactory creates a Controller for the service configuration.
type ControllerFactory func(svcConfig *service.Config) (Controller, error)

// program runs the engine when started by the service manager.
type program struct {
	ctx    context.Context //nolint:containedctx // The service manager owns the lifecycle, not the caller.
	cancel context.CancelFunc
	run    func(ctx context.Context) error
	done   chan struct{}
	once   sync.Once
}

func newProgram(ctx context.Context, run func(ctx context.Context) error) *program {
	ctx, cancel := context.WithCancel(ctx)

	return &program{
		ctx:    ctx,
		cancel: cancel,
		run:    run,
		done:   make(chan struct{}),
	}
}

// Start must not block, so the engine runs in its own goroutine.
func (p *program) Start(_ service.Service) error {
	logger.Info(p.ctx, "Starting service")

	go func() {
		defer p.once.Do(func() { close(p.done) })

		if err := p.run(p.ctx); err != nil {
			logger.ErrorKV(p.ctx, "Installation stopped", "error", err)

			return
		}

		logger.Info(p.ctx, "Installation complete, waiting for the service manager")
	}()

	return nil
}

// Stop cancels the engine and waits for the current step to return.
func (p *program) Stop(_ service.Service) error {
	logger.Info(p.ctx, "Stopping service")
	p.cancel()
	<-p.done

	return nil
}

// newServiceConfig describes the registration of the engine.
func newServiceConfig(cfg *config.Config, executable, configPath string) *service.Config {
	svcConfig := &service.Config{
		Name:        cfg.ProgramName,
		DisplayName: cfg.ProgramName,
		Description: "Installs software packages section by section from a manifest",
		Executable:  executable,
		Arguments:   []string{"run", "--config", configPath},
		Option:      make(service.KeyValue),
	}

	switch runtime.GOOS {
	case "linux":
		// Respected only by systemd systems.
		svcConfig.Dependencies = []string{"After=network-online.target"}
	case "windows":
		svcConfig.Option["DelayedAutoStart"] = true
	}

	return svcConfig
}

// defaultControllerFactory binds the configuration to the platform service manager.
func defaultControllerFactory(svcConfig *service.Config) (Controller, error) {
	s, err := service.New(newProgram(context.Background(), nil), svcConfig)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// statusText renders a service status for humans.
func statusText(status service.Status, err error) string {
	if errors.Is(err, service.ErrNotInstalled) {
		return "not installed"
	}

	if err != nil {
		return "unknown (" + err.Error() + ")"
	}

	switch status {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
