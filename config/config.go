package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/rs/zerolog"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

type Config struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"env"`

	Log struct {
		Level  string `koanf:"level"`
		Pretty bool   `koanf:"pretty"`
	} `koanf:"log"`

	Semaphore struct {
		// NamePrefix is prepended to names given on the command line.
		NamePrefix       string        `koanf:"namePrefix"`
		DefaultMode      int           `koanf:"defaultMode"`
		WaitPollInterval time.Duration `koanf:"waitPollInterval"`
	} `koanf:"semaphore"`

	Session struct {
		MaxPendingWaits int64 `koanf:"maxPendingWaits"`
		MaxFrameSize    int   `koanf:"maxFrameSize"`
	} `koanf:"session"`
}

// Default returns the configuration used when no file or environment sets a key.
func Default() Config {
	var c Config
	c.Name = "semctl"
	c.Version = "0.1.0"
	c.Environment = EnvDev
	c.Log.Level = zerolog.InfoLevel.String()
	c.Semaphore.NamePrefix = "/"
	c.Semaphore.DefaultMode = 0o600
	c.Semaphore.WaitPollInterval = 50 * time.Millisecond
	c.Session.MaxPendingWaits = 64
	c.Session.MaxFrameSize = 1 << 20
	return c
}

func (c Config) Validate() error {
	if err := validation.ValidateStruct(
		&c.Log,
		validation.Field(&c.Log.Level, validation.Required, validation.By(validLevel)),
	); err != nil {
		return fmt.Errorf("failed to validate log options: %w", err)
	}

	if err := validation.ValidateStruct(
		&c.Semaphore,
		validation.Field(&c.Semaphore.DefaultMode, validation.Min(0), validation.Max(0o7777)),
		validation.Field(&c.Semaphore.WaitPollInterval, validation.Required, validation.Min(time.Millisecond)),
	); err != nil {
		return fmt.Errorf("failed to validate semaphore options: %w", err)
	}

	if err := validation.ValidateStruct(
		&c.Session,
		validation.Field(&c.Session.MaxPendingWaits, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.Session.MaxFrameSize, validation.Required, validation.Min(64)),
	); err != nil {
		return fmt.Errorf("failed to validate session options: %w", err)
	}

	if err := validation.ValidateStruct(
		&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Version, validation.Required, is.Semver),
		validation.Field(&c.Environment, validation.Required, validation.In(EnvDev, EnvStage, EnvProd)),
	); err != nil {
		return fmt.Errorf("failed to validate config options: %w", err)
	}

	return nil
}

func validLevel(value interface{}) error {
	s, _ := value.(string)
	if _, err := zerolog.ParseLevel(s); err != nil {
		return err
	}
	return nil
}
