package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg := ParseConfig("routing=debug, flood=warn ,error", "JSON", "1")

	assert.Equal(t, slog.LevelError, cfg.DefaultLevel)
	assert.Equal(t, slog.LevelDebug, cfg.LevelForSubsystem("routing"))
	assert.Equal(t, slog.LevelWarn, cfg.LevelForSubsystem("flood"))
	assert.Equal(t, slog.LevelError, cfg.LevelForSubsystem("peerstore"))
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.True(t, cfg.AddSource)
}

func TestParseConfig_IgnoresUnknownLevels(t *testing.T) {
	cfg := ParseConfig("routing=loud,verbose", "", "")

	assert.Equal(t, slog.LevelInfo, cfg.DefaultLevel)
	assert.Empty(t, cfg.SubsystemLevels)
	assert.Equal(t, FormatText, cfg.Format)
}

func TestSetOutput_ExistingLogger(t *testing.T) {
	log := Logger("logger-test")

	buf := &bytes.Buffer{}
	SetOutput(buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	log.Info("after switch", "key", "value")

	out := buf.String()
	assert.Contains(t, out, "after switch")
	assert.Contains(t, out, "key=value")
	assert.Contains(t, out, "subsystem=logger-test")
}

func TestSetLevel_AppliesToDerivedLoggers(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	derived := Logger("logger-level").With("peer", "p1")
	SetLevel("logger-level", slog.LevelError)

	derived.Info("hidden")
	require.NotContains(t, buf.String(), "hidden")

	SetLevel("logger-level", slog.LevelDebug)
	derived.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "peer=p1")
}

func TestLogger_SameInstance(t *testing.T) {
	assert.Same(t, Logger("same"), Logger("same"))
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(context.Background(), slog.LevelError))
}
