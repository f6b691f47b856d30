package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aanand-mishra/students-api/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevelPerEnv(t *testing.T) {
	for env, level := range map[string]zerolog.Level{
		"dev":     zerolog.DebugLevel,
		"staging": zerolog.DebugLevel,
		"prod":    zerolog.InfoLevel,
	} {
		t.Run(env, func(t *testing.T) {
			log := newWithWriter(&config.Config{Env: env}, &bytes.Buffer{})
			assert.Equal(t, level, log.GetLevel())
		})
	}
}

func TestNewProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&config.Config{Env: "prod"}, &buf)

	log.Debug().Msg("hidden")
	log.Info().Str("id", "abc").Msg("student created")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "student created", line["message"])
	assert.Equal(t, "abc", line["id"])
	assert.Equal(t, "students-api", line["service"])
	assert.Equal(t, "info", line["level"])
}

func TestNewDevWritesConsole(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&config.Config{Env: "dev"}, &buf)

	log.Debug().Msg("decoding body")

	assert.Contains(t, buf.String(), "decoding body")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestNewLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{Env: "dev", Log: config.Log{Level: "error"}}
	log := newWithWriter(cfg, &buf)

	log.Info().Msg("dropped")
	assert.Empty(t, buf.String())
	assert.Equal(t, zerolog.ErrorLevel, log.GetLevel())
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "students-api.log")
	cfg := &config.Config{
		Env: "prod",
		Log: config.Log{File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1},
	}

	var buf bytes.Buffer
	log := newWithWriter(cfg, &buf)
	log.Info().Msg("to both")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.Contains(t, buf.String(), "to both")
}
