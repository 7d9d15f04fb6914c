package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "debug", "json", "braincraft")
	log.WithField("quiz_id", 7).Debug("loaded")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "loaded", line["message"])
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "braincraft", line["service"])
	assert.Contains(t, line, "timestamp")
}

func TestNewFallsBackToInfo(t *testing.T) {
	log := NewWithOutput(&bytes.Buffer{}, "loud", "", "braincraft")
	assert.Equal(t, logrus.InfoLevel, log.Logger.GetLevel())
}
