package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/richinsley/namedsem/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerFields(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "debug"

	var buf bytes.Buffer
	log := newLogger(&cfg, &buf)
	log.Debug().Str("name", "/sem").Msg("semaphore opened")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "semctl", entry["serviceName"])
	assert.Equal(t, cfg.Version, entry["ver"])
	assert.Equal(t, cfg.Environment, entry["env"])
	assert.Equal(t, "/sem", entry["name"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "caller")
}

func TestNewLoggerLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	log := newLogger(&cfg, &buf)
	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("kept")
	assert.NotZero(t, buf.Len())
}

func TestNewLoggerPretty(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Pretty = true

	var buf bytes.Buffer
	log := newLogger(&cfg, &buf)
	log.Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(buf.Bytes()), "pretty output is not JSON")
}
