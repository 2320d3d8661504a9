package provider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crag-dev/crag/internal/provider"
)

// mockProvider is a test double that satisfies AIProvider.
type mockProvider struct {
	name string
}

func (m *mockProvider) Info() provider.ProviderInfo {
	return provider.ProviderInfo{
		Name:        m.name,
		DisplayName: "Mock " + m.name,
	}
}

func (m *mockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (*provider.CompletionResponse, error) {
	return &provider.CompletionResponse{
		ID:      "mock-id",
		Content: "mock response from " + m.name,
	}, nil
}

func (m *mockProvider) Validate(ctx context.Context) error {
	return nil
}

func mockFactory(name string) provider.Factory {
	return func(v *viper.Viper) (provider.AIProvider, error) {
		return &mockProvider{name: name}, nil
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register("test-provider", mockFactory("test-provider"))

	p, err := reg.Get("test-provider", viper.New())
	require.NoError(t, err)
	assert.Equal(t, "test-provider", p.Info().Name)
}

func TestRegistryGetUnknownProvider(t *testing.T) {
	reg := provider.NewRegistry()
	_, err := reg.Get("nonexistent", viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestRegistryDuplicateRegistrationPanics(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register("dup", mockFactory("dup"))
	assert.Panics(t, func() {
		reg.Register("dup", mockFactory("dup"))
	})
}

func TestRegistryNames(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register("beta", mockFactory("beta"))
	reg.Register("alpha", mockFactory("alpha"))
	reg.Register("gamma", mockFactory("gamma"))

	names := reg.Names()
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, names)
}

func TestProviderErrorIs(t *testing.T) {
	err := &provider.ProviderError{
		Code:       provider.ErrCodeRateLimit,
		Message:    "too many requests",
		Provider:   "openai",
		StatusCode: 429,
	}

	assert.True(t, errors.Is(err, provider.ErrRateLimit))
	assert.False(t, errors.Is(err, provider.ErrAuthentication))
}

func TestProviderErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &provider.ProviderError{
		Code:     provider.ErrCodeProviderUnavailable,
		Message:  "upstream down",
		Provider: "anthropic",
		Cause:    cause,
	}

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "connection reset")
}
