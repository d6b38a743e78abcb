package internal

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	var buf bytes.Buffer
	require.NoError(t, ConfigureLogger("warn", "json", &buf))

	log.Info().Msg("hidden")
	log.Warn().Str("file", "a.yar").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"file":"a.yar"`)
}

func TestConfigureLoggerErrors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, ConfigureLogger("loud", "json", &buf))
	assert.Error(t, ConfigureLogger("info", "xml", &buf))
}
