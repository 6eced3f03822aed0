package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	lgr := NewWithWriter("api-service", &buf)

	lgr.Error("stock_reduce_failed", "Failed to reduce stock", "req-1",
		map[string]interface{}{"stock_id": "s1"}, errors.New("boom"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "api-service", entry["service"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "stock_reduce_failed", entry["action"])
	assert.Equal(t, "Failed to reduce stock", entry["message"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, map[string]interface{}{"stock_id": "s1"}, entry["details"])
}

func TestJSONLoggerOmitsEmptyRequestID(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("svc", &buf).Info("started", "ok", "", nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "request_id")
	assert.NotContains(t, entry, "details")
}
