package utils

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ReturnsLastError(t *testing.T) {
	sentinel := errors.New("still down")
	err := Retry(context.Background(), fastRetry(), func() error { return sentinel })

	assert.ErrorIs(t, err, sentinel)
}

func TestRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, fastRetry(), func() error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	rejected := errors.New("rejected")
	calls := 0
	err := Retry(context.Background(), fastRetry(), func() error {
		calls++
		return Permanent(rejected)
	})

	assert.Equal(t, rejected, err)
	assert.Equal(t, 1, calls)
	assert.Nil(t, Permanent(nil))
}

func TestRetry_AlwaysTriesOnce(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{}, func() error {
		calls++
		return errors.New("down")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, backoff(cfg, 0))
	assert.Equal(t, 400*time.Millisecond, backoff(cfg, 2))
	assert.Equal(t, time.Second, backoff(cfg, 5))
}

func TestRetryWithResult(t *testing.T) {
	calls := 0
	got, err := RetryWithResult(context.Background(), fastRetry(), func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("once")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestWithTempFile_RemovesFileOnEveryPath(t *testing.T) {
	dir := t.TempDir()
	var seen string

	err := WithTempFile(dir, "doc-*.pdf", []byte("%PDF-1.4"), func(path string) error {
		seen = path
		data, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, "%PDF-1.4", string(data))
		return nil
	})
	require.NoError(t, err)
	assert.NoFileExists(t, seen)

	failure := errors.New("render failed")
	err = WithTempFile(dir, "doc-*.pdf", []byte("x"), func(path string) error {
		seen = path
		return failure
	})
	assert.ErrorIs(t, err, failure)
	assert.NoFileExists(t, seen)
}

func TestIDs(t *testing.T) {
	id := NewID()
	canonical, ok := CanonicalID(id)
	assert.True(t, ok)
	assert.Equal(t, id, canonical)
	assert.NotEqual(t, id, NewID())

	canonical, ok = CanonicalID("{6BA7B810-9DAD-11D1-80B4-00C04FD430C8}")
	assert.True(t, ok)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", canonical)

	_, ok = CanonicalID("not-a-uuid")
	assert.False(t, ok)

	trace := NewTraceID()
	assert.Len(t, trace, 32)
	assert.Regexp(t, "^[0-9a-f]{32}$", trace)
}
