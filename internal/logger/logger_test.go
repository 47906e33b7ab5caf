package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init("debug", "json", &buf)
	defer Init("info", "text", nil)

	For("scope").WithField("entity_id", "hero").Debug("repaired")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "scope", line["component"])
	assert.Equal(t, "hero", line["entity_id"])
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
}

func TestInitInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	Init("loud", "text", &buf)
	defer Init("info", "text", nil)

	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
	Log.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
