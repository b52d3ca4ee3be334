package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/service"
)

func fastRetryOpts() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetrySucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return ErrBackendConnection
		}
		return nil
	}, fastRetryOpts())

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return ErrBackendConnection
	}, fastRetryOpts())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	permanent := &RetryableError{Err: errors.New("bad request"), Retryable: false}
	err := WithRetry(context.Background(), func() error {
		attempts++
		return permanent
	}, fastRetryOpts())

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

// rejectionError mimics a remote-call error that classifies itself, the way
// the backend client's request errors do.
type rejectionError struct {
	msg       string
	retryable bool
}

func (e *rejectionError) Error() string   { return e.msg }
func (e *rejectionError) Retryable() bool { return e.retryable }

func TestWithRetryStopsOnSelfClassifiedRejection(t *testing.T) {
	attempts := 0
	rejected := &rejectionError{msg: "organization id is required", retryable: false}
	err := WithRetry(context.Background(), func() error {
		attempts++
		return rejected
	}, fastRetryOpts())

	require.Error(t, err)
	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryRetriesSelfClassifiedTransient(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 2 {
			return &rejectionError{msg: "backend returned 502", retryable: true}
		}
		return nil
	}, fastRetryOpts())

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, func() error {
		return ErrBackendConnection
	}, fastRetryOpts())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(ErrBackendConnection))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("x"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("x"), Retryable: false}))
	assert.True(t, IsRetryable(&rejectionError{msg: "x", retryable: true}))
	assert.False(t, IsRetryable(&rejectionError{msg: "x", retryable: false}))
	assert.False(t, IsRetryable(errors.New("plain")))
}
