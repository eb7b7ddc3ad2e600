package common

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogging(t *testing.T) {
	originalLogger := log.Logger
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = originalLogger
		zerolog.SetGlobalLevel(originalLevel)
	})

	t.Run("json output", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ConfigureLogging("debug", "json", &buf))

		log.Info().Str("channel_handle", "IGN").Msg("hello")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "hello", entry["message"])
		assert.Equal(t, "IGN", entry["channel_handle"])
		assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	})

	t.Run("level filters output", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ConfigureLogging("warn", "json", &buf))

		log.Info().Msg("suppressed")
		assert.Empty(t, buf.String())
	})

	t.Run("invalid level", func(t *testing.T) {
		assert.Error(t, ConfigureLogging("loud", "json", &bytes.Buffer{}))
	})

	t.Run("invalid format", func(t *testing.T) {
		assert.Error(t, ConfigureLogging("info", "xml", &bytes.Buffer{}))
	})
}
