package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(DEBUG)
	SetRedactPII(true)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(INFO)
		SetRedactPII(true)
	})
	return &buf
}

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"not-an-email", "***@***"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactEmail(tt.in))
		})
	}
}

func TestLogRedactsRecipientFields(t *testing.T) {
	buf := capture(t)

	Info("send failed", "email", "alice@example.com", "reason", "mailbox of bob@example.org full")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "send failed", entry["msg"])
	assert.Equal(t, "al***@example.com", entry["email"])
	assert.Equal(t, "mailbox of bo***@example.org full", entry["reason"])
}

func TestLogRespectsLevel(t *testing.T) {
	buf := capture(t)
	SetLevel(WARN)

	Info("hidden")
	Warn("shown", "count", 3)

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "3", entry["count"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" Warning "))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestRedactEmailMultibyte(t *testing.T) {
	assert.Equal(t, "jö***@example.com", RedactEmail("jörg@example.com"))
}

func TestLogLeavesNonAddressFieldsAlone(t *testing.T) {
	buf := capture(t)

	Info("dispatch complete", "recipients", 3, "elapsed", "1.2s")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "3", entry["recipients"])
	assert.Equal(t, "1.2s", entry["elapsed"])
}
