package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogger_EmitsActionAndUser(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLogger(NewLoggerTo(&buf, "production"))

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	before := testutil.ToFloat64(AuditEvents.WithLabelValues("post_create", "INFO"))

	audit.Info(ctx, "Creating post", "post_create", 7)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "Creating post", record["msg"])
	assert.Equal(t, "post_create", record["action"])
	assert.Equal(t, float64(7), record["user"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, before+1, testutil.ToFloat64(AuditEvents.WithLabelValues("post_create", "INFO")))
}

func TestAuditLogger_AnonymousAndWarn(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLogger(NewLoggerTo(&buf, "production"))

	audit.Warn(context.Background(), "Deleting post permission denied", "post_delete", 0, "post_id", uint(3))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Nil(t, record["user"])
	assert.Equal(t, float64(3), record["post_id"])
}

func TestContextHandler_AddsUserID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "production").With("component", "test")

	logger.InfoContext(WithUserID(context.Background(), 42), "hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, float64(42), record["user_id"])
	assert.Equal(t, "test", record["component"])
}
