package provider_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crag-dev/crag/internal/provider"
)

func fastRetryConfig(maxRetries int) provider.RetryConfig {
	return provider.RetryConfig{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	result, err := provider.WithRetry(context.Background(), fastRetryConfig(3), func() (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRetriesRateLimit(t *testing.T) {
	calls := 0
	result, err := provider.WithRetry(context.Background(), fastRetryConfig(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", &provider.ProviderError{Code: provider.ErrCodeRateLimit, Provider: "mock"}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnAuthenticationError(t *testing.T) {
	calls := 0
	_, err := provider.WithRetry(context.Background(), fastRetryConfig(3), func() (string, error) {
		calls++
		return "", &provider.ProviderError{Code: provider.ErrCodeAuthentication, Provider: "mock"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, provider.ErrAuthentication))
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := provider.WithRetry(context.Background(), fastRetryConfig(2), func() (string, error) {
		calls++
		return "", &provider.ProviderError{Code: provider.ErrCodeTimeout, Provider: "mock"}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls) // first call + 2 retries
	assert.True(t, errors.Is(err, provider.ErrTimeout))
}

func TestWithRetryZeroRetriesCallsOnce(t *testing.T) {
	calls := 0
	_, err := provider.WithRetry(context.Background(), provider.RetryConfig{}, func() (string, error) {
		calls++
		return "", &provider.ProviderError{Code: provider.ErrCodeRateLimit, Provider: "mock"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRetriesPlainErrors(t *testing.T) {
	calls := 0
	result, err := provider.WithRetry(context.Background(), fastRetryConfig(1), func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, calls)
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.WithRetry(ctx, provider.RetryConfig{
		MaxRetries:      5,
		InitialInterval: time.Hour,
		MaxInterval:     time.Hour,
		Multiplier:      2.0,
	}, func() (string, error) {
		return "", &provider.ProviderError{Code: provider.ErrCodeRateLimit, Provider: "mock"}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWrapsValuelessOperations(t *testing.T) {
	calls := 0
	err := provider.Retry(context.Background(), fastRetryConfig(3), func() error {
		calls++
		if calls < 2 {
			return &provider.ProviderError{Code: provider.ErrCodeProviderUnavailable}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
