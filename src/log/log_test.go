package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofmeright/droidplan/src/log"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		in   string
		want slog.Level
		err  error
	}{
		"error":   {in: "error", want: slog.LevelError},
		"warning": {in: "WARNING", want: slog.LevelWarn},
		"empty":   {in: "", want: slog.LevelInfo},
		"debug":   {in: "debug", want: slog.LevelDebug},
		"unknown": {in: "trace", err: log.ErrUnknownLogLevel},
	}
	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := log.ParseLevel(tc.in)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCreateHandlerWithStrings(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h, err := log.CreateHandlerWithStrings(&buf, "info", "json")
	require.NoError(t, err)

	logger := slog.New(h)
	logger.Debug("hidden")
	logger.Info("resolved", "application_id", "com.example.app")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "resolved", rec["msg"])
	assert.Equal(t, "com.example.app", rec["application_id"])
}

func TestCreateHandlerText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h, err := log.CreateHandlerWithStrings(&buf, "debug", "text")
	require.NoError(t, err)

	slog.New(h).Debug("loading descriptor", "path", "build.gradle.kts")
	assert.Contains(t, buf.String(), "loading descriptor")
	assert.Contains(t, buf.String(), "build.gradle.kts")
}

func TestCreateHandlerInvalid(t *testing.T) {
	t.Parallel()

	_, err := log.CreateHandlerWithStrings(&bytes.Buffer{}, "info", "xml")
	require.ErrorIs(t, err, log.ErrInvalidArgument)
	require.ErrorIs(t, err, log.ErrUnknownLogFormat)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]log.Format{
		"":       log.FormatText,
		"JSON":   log.FormatJSON,
		"logfmt": log.FormatLogfmt,
	} {
		got, err := log.ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := log.ParseFormat("xml")
	require.ErrorIs(t, err, log.ErrUnknownLogFormat)
}
