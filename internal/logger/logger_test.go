package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextFieldsReachOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "info", Format: "json", Output: &buf, ServiceName: "promptvault-test"})

	ctx := l.WithContext(context.Background())
	ctx = SetSource(ctx, "civitai")
	ctx = SetRunID(ctx, "run-1")

	With(Fields{FieldCount: 3}).Info(ctx, "fetched %d records", 3)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "fetched 3 records", line["message"])
	assert.Equal(t, "civitai", line[FieldSource])
	assert.Equal(t, "run-1", line[FieldRunID])
	assert.Equal(t, "promptvault-test", line["service"])
	assert.EqualValues(t, 3, line[FieldCount])

	assert.Equal(t, "civitai", GetSource(ctx))
	assert.Equal(t, "run-1", GetRunID(ctx))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, GetDefault(), FromContext(context.Background()))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "warn", Format: "text", Output: &buf})

	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}
