package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/logger"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithOutput(config.LogConfig{Level: "info", Format: "json"}, &buf)

	log.WithField("document_id", "abc").Info("document emitted")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "document emitted", entry["msg"])
	assert.Equal(t, "abc", entry["document_id"])
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithOutput(config.LogConfig{Level: "warn"}, &buf)
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	log.Info("hidden")
	assert.Empty(t, buf.String())

	fallback := logger.NewWithOutput(config.LogConfig{Level: "loud"}, &buf)
	assert.Equal(t, logrus.InfoLevel, fallback.GetLevel())
}
