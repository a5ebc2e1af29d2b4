package app

import (
	"fmt"
	"os"

	"github.com/richinsley/namedsem"
	"github.com/richinsley/namedsem/config"
	"github.com/richinsley/namedsem/internal/logger"
	"github.com/rs/zerolog"
	"github.com/samber/do"
)

// ConfigFileEnv names the variable holding the config file path.
const ConfigFileEnv = "SEMCTL_CONFIG"

func ProvideCommonDeps(i *do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
}

func ProvideBindingDeps(i *do.Injector) {
	do.Provide(i, NewBinding)
}

func NewConfig(_ *do.Injector) (*config.Config, error) {
	cfg := config.Default()
	if err := config.LoadServiceConfig(&cfg, os.Getenv(ConfigFileEnv)); err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	return &cfg, nil
}

func NewLogger(i *do.Injector) (*zerolog.Logger, error) {
	cfg, err := do.Invoke[*config.Config](i)
	if err != nil {
		return nil, fmt.Errorf("invoke config error: %w", err)
	}

	log := logger.NewLogger(cfg)

	return &log, nil
}

// NewBinding builds the binding served to hosts. Its Shutdown runs when the
// injector shuts down.
func NewBinding(i *do.Injector) (*namedsem.Binding, error) {
	cfg, err := do.Invoke[*config.Config](i)
	if err != nil {
		return nil, fmt.Errorf("invoke config error: %w", err)
	}

	log, err := do.Invoke[*zerolog.Logger](i)
	if err != nil {
		return nil, fmt.Errorf("invoke logger error: %w", err)
	}

	return namedsem.NewBinding(SemaphoreOptions(cfg, *log)...), nil
}

// SemaphoreOptions translates config into options for Open and NewBinding.
func SemaphoreOptions(cfg *config.Config, log zerolog.Logger) []namedsem.Option {
	return []namedsem.Option{
		namedsem.WithLogger(log),
		namedsem.WithWaitPollInterval(cfg.Semaphore.WaitPollInterval),
		namedsem.WithMaxPendingWaits(cfg.Session.MaxPendingWaits),
	}
}
