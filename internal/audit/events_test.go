package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rlmodels "veritrail/internal/ratelimit/models"
)

func TestRecordRateLimitDenied(t *testing.T) {
	svc, err := NewService([]Sink{&fakeSink{}})
	require.NoError(t, err)

	svc.RecordRateLimitDenied(context.Background(), "auth", "10.0.0.1", &rlmodels.Result{
		Allowed:    false,
		RetryAfter: 11500 * time.Millisecond,
	})

	require.Equal(t, 1, svc.BufferLen())
	require.NoError(t, svc.Flush(context.Background()))

	entries, err := svc.Query(context.Background(), Filter{Actions: []Action{ActionRateLimitExceeded}}, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, CategorySecurity, entry.Category)
	assert.Equal(t, SeverityError, entry.Severity, "a denial is a failed action")
	assert.False(t, entry.Success)
	assert.Equal(t, "auth", entry.Metadata["profile"])
	assert.Equal(t, "10.0.0.1", entry.Metadata["identity"])
	assert.Equal(t, 12, entry.Metadata["retry_after"])
}

func TestRecordLoginFailed(t *testing.T) {
	svc, err := NewService([]Sink{&fakeSink{}})
	require.NoError(t, err)

	entry := svc.RecordLoginFailed(context.Background(), "dana@example.com", "bad password")

	assert.Equal(t, ActionAuthLoginFailed, entry.Action)
	assert.Equal(t, CategoryAuthentication, entry.Category)
	assert.Equal(t, SeverityError, entry.Severity)
	assert.False(t, entry.Success)
}

func TestRecordEvidenceDeleted(t *testing.T) {
	svc, err := NewService([]Sink{&fakeSink{}})
	require.NoError(t, err)

	entry := svc.RecordEvidenceDeleted(context.Background(), "ev-1", "SOC2 policy")

	assert.Equal(t, ActionEvidenceDeleted, entry.Action)
	assert.Equal(t, SeverityWarning, entry.Severity, "destructive but successful")
	assert.Equal(t, "evidence", entry.ResourceType)
	assert.Equal(t, "ev-1", entry.ResourceID)
}
