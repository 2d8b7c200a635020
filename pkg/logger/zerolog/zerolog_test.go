package zerolog

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/raykavin/pairwatch/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	zl, err := New(Options{Level: "info", JSON: true, Output: &buf})
	require.NoError(t, err)

	log := NewAdapter(zl)
	assert.Equal(t, logger.InfoLevel, log.GetLevel())

	log.Debug("hidden")
	log.WithField("pair", "BTC/USDT").Info("signal triggered")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "BTC/USDT", entry["pair"])
	assert.Equal(t, "signal triggered", entry["message"])
}

func TestAdapter_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	zl, err := New(Options{Level: "info", JSON: true, Output: &buf})
	require.NoError(t, err)

	log := NewAdapter(zl)
	log.SetLevel(logger.ErrorLevel)
	log.Warn("dropped")
	assert.Zero(t, buf.Len())
	assert.Equal(t, logger.ErrorLevel, log.GetLevel())
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	require.Error(t, err)
}

func TestFormatMessage(t *testing.T) {
	assert.Equal(t, ">", formatMessage(""))
	assert.Contains(t, formatMessage("a\nb"), "a | b")
}
