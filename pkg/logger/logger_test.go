package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestInitNilConfigIsNoop(t *testing.T) {
	require.NoError(t, Init(nil))
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init(&Config{Level: "not-a-level"})
	require.Error(t, err)
}

func TestInitAppliesDebugOverLevel(t *testing.T) {
	require.NoError(t, Init(&Config{Level: "error", Debug: true}))
	require.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())
}

func TestSetLevelAdjustsGlobalLogger(t *testing.T) {
	require.NoError(t, Init(&Config{Level: "info"}))
	SetLevel(zerolog.WarnLevel)
	require.Equal(t, zerolog.WarnLevel, GetLogger().GetLevel())
}

func TestWithComponentTagsComponentField(t *testing.T) {
	var buf bytes.Buffer
	globalLogger = zerolog.New(&buf)

	l := WithComponent("device-relay")
	l.Info().Msg("hello")

	require.Contains(t, buf.String(), `"component":"device-relay"`)
}

func TestNewTestLoggerDiscardsOutput(t *testing.T) {
	l := NewTestLogger()
	require.NotPanics(t, func() {
		l.Info().Str("k", "v").Msg("ignored")
	})
}
