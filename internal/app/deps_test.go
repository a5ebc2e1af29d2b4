package app

import (
	"testing"
	"time"

	"github.com/richinsley/namedsem"
	"github.com/richinsley/namedsem/config"
	"github.com/rs/zerolog"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvidersWireBinding(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	t.Setenv("SEMCTL__LOG__LEVEL", "error")

	i := do.New()
	ProvideCommonDeps(i)
	ProvideBindingDeps(i)

	cfg, err := do.Invoke[*config.Config](i)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)

	log, err := do.Invoke[*zerolog.Logger](i)
	require.NoError(t, err)
	assert.Equal(t, zerolog.ErrorLevel, log.GetLevel())

	binding, err := do.Invoke[*namedsem.Binding](i)
	require.NoError(t, err)
	assert.Equal(t, 0, binding.Len())

	require.NoError(t, i.Shutdown())
	_, err = binding.Call(t.Context(), namedsem.OpConstants)
	assert.NoError(t, err, "constants need no open handles")
	_, err = binding.Call(t.Context(), namedsem.OpPost, make([]byte, namedsem.HandleSize))
	assert.ErrorIs(t, err, namedsem.ErrBindingClosed)
}

func TestNewConfigRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	t.Setenv("SEMCTL__ENV", "qa")

	_, err := NewConfig(do.New())
	assert.ErrorContains(t, err, "error loading config")
}

func TestSemaphoreOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Semaphore.WaitPollInterval = 7 * time.Millisecond

	opts := SemaphoreOptions(&cfg, zerolog.Nop())
	assert.Len(t, opts, 3)
}
