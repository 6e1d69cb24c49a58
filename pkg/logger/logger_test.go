package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLevels(t *testing.T) {
	defer Setup("info", "json", nil)

	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"WARN", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"nonsense", logrus.InfoLevel},
	}
	for _, tt := range tests {
		Setup(tt.in, "json", &bytes.Buffer{})
		assert.Equal(t, tt.want, logrus.GetLevel(), tt.in)
	}
}

func TestWithContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	Setup("info", "json", &buf)
	defer Setup("info", "json", nil)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	WithContext(ctx).WithField("component_id", "card").Info("resolved")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "card", entry["component_id"])
	assert.Equal(t, "resolved", entry["msg"])
}

func TestWithContextWithoutRequestID(t *testing.T) {
	l := WithContext(context.Background())
	_, ok := l.Data["request_id"]
	assert.False(t, ok)
	assert.Equal(t, "", RequestID(context.Background()))
}
