package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupDisabled(t *testing.T) {
	client, err := Setup(context.Background(), "polyreduce", "reduce", "")
	require.NoError(t, err)
	assert.Nil(t, client)

	assert.NoError(t, client.Flush(context.Background()))
	assert.NoError(t, client.Shutdown(context.Background()))
}

func TestLoggingThroughLogrus(t *testing.T) {
	prevOut := logrus.StandardLogger().Out
	prevDefault := slog.Default()
	defer func() {
		logrus.SetOutput(prevOut)
		slog.SetDefault(prevDefault)
		SetLevel(slog.LevelInfo)
	}()

	buf := new(bytes.Buffer)
	logrus.SetOutput(buf)
	SetupLogging(nil)

	SetLevel(slog.LevelWarn)
	slog.Info("hidden message")
	slog.Warn("erosion round limit reached", "rounds", 100)
	assert.NotContains(t, buf.String(), "hidden message")
	assert.Contains(t, buf.String(), "erosion round limit reached")

	SetLevel(slog.LevelDebug)
	slog.Debug("erosion round", "round", 1)
	assert.Contains(t, buf.String(), "erosion round")
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)

	assert.Equal(t, logrus.WarnLevel, logrusLevel(slog.LevelWarn))
	assert.Equal(t, logrus.DebugLevel, logrusLevel(slog.LevelDebug))
	assert.Equal(t, logrus.ErrorLevel, logrusLevel(slog.LevelError+4))
}
