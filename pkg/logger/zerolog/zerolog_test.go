package zerolog

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/raykavin/trailstop/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", JSON: true, Out: &buf})
	require.NoError(t, err)

	log.WithFields(map[string]any{"market": "ETH-USDC"}).
		WithError(errors.New("boom")).
		Infof("[ORDER %s]", "PLACED")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "ETH-USDC", line["market"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "[ORDER PLACED]", line["message"])
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	require.Error(t, err)
}

func TestAdapter_Levels(t *testing.T) {
	log := Nop()
	for _, level := range []logger.Level{logger.TraceLevel, logger.DebugLevel, logger.InfoLevel,
		logger.WarnLevel, logger.ErrorLevel} {
		assert.Equal(t, toZerologLevel(level), levels[level])
		assert.Equal(t, level, toLevel(levels[level]))
	}
	assert.Equal(t, logger.Disabled, log.GetLevel())
}
