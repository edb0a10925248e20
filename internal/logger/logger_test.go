package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"hireflow-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestWithRequest_JSON(t *testing.T) {
	prev := defaultLogger
	defer func() { defaultLogger = prev }()

	var buf bytes.Buffer
	SetDefault(New("info", "json", &buf))

	WithRequest(domain.RequestContext{ActorID: 7, OrganizationID: 10, RequestID: "req-1"}).Info("denied")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "denied", line["msg"])
	assert.Equal(t, float64(7), line["actorID"])
	assert.Equal(t, float64(10), line["orgID"])
	assert.Equal(t, "req-1", line["requestID"])
}

func TestTransition_DebugOnly(t *testing.T) {
	prev := defaultLogger
	defer func() { defaultLogger = prev }()

	var buf bytes.Buffer
	SetDefault(New("info", "text", &buf))
	Transition("i9", "complete_section1")
	assert.Empty(t, buf.String())

	SetDefault(New("debug", "text", &buf))
	Transition("i9", "complete_section1")
	assert.Contains(t, buf.String(), "workflow=i9")
	assert.Contains(t, buf.String(), "event=complete_section1")
}
