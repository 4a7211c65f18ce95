package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jhoicas/facturacion-sri/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONConCampos(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "info", Service: "facturacion-sri", Output: &buf})

	comp := l.Component("sri")
	comp.Info().Str("document_id", "abc").Msg("hola")
	comp.Debug().Msg("no se escribe")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "facturacion-sri", entry["service"])
	assert.Equal(t, "sri", entry["component"])
	assert.Equal(t, "abc", entry["document_id"])
	assert.Equal(t, "hola", entry["message"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, logger.ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, logger.ParseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel("verboso"))
}
