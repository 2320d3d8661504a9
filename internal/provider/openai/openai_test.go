package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crag-dev/crag/internal/provider"
)

func mockOpenAIServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
			return
		}

		if r.URL.Path == "/chat/completions" {
			resp := apiResponse{
				ID:    "chatcmpl-test",
				Model: "gpt-4o",
				Choices: []apiChoice{
					{
						Index:        0,
						Message:      apiMessage{Role: "assistant", Content: "Test response"},
						FinishReason: "stop",
					},
				},
				Usage: apiUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(resp)
			return
		}

		w.WriteHeader(http.StatusNotFound)
	}))
}

func newTestProvider(t *testing.T, baseURL string) provider.AIProvider {
	t.Helper()
	v := viper.New()
	v.Set("api_key", "test-key")
	v.Set("base_url", baseURL)
	v.Set("model", "gpt-4o")
	v.Set("max_tokens", 100)
	v.Set("timeout", "10s")

	p, err := NewProvider(v)
	require.NoError(t, err)
	return p
}

func TestOpenAIComplete(t *testing.T) {
	server := mockOpenAIServer(t)
	defer server.Close()

	p := newTestProvider(t, server.URL)

	resp, err := p.Complete(context.Background(), provider.CompletionRequest{
		Messages: []provider.Message{
			{Role: provider.RoleUser, Content: "Hello"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Test response", resp.Content)
	assert.Equal(t, "chatcmpl-test", resp.ID)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestOpenAIComplete_AuthenticationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"message": "Invalid API key",
				"type":    "authentication_error",
			},
		})
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL)

	_, err := p.Complete(context.Background(), provider.CompletionRequest{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "Hello"}},
	})
	require.Error(t, err)

	var pe *provider.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, provider.ErrCodeAuthentication, pe.Code)
	assert.Contains(t, pe.Message, "Invalid API key")
}

func TestOpenAIComplete_SingleAttempt(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL)

	// Retry policy lives with the callers; the client itself makes
	// exactly one request.
	_, err := p.Complete(context.Background(), provider.CompletionRequest{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "Hello"}},
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	var pe *provider.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, provider.ErrCodeRateLimit, pe.Code)
}

func TestOpenAIValidate(t *testing.T) {
	server := mockOpenAIServer(t)
	defer server.Close()

	p := newTestProvider(t, server.URL)
	assert.NoError(t, p.Validate(context.Background()))
}

func TestOpenAIValidate_MissingKey(t *testing.T) {
	t.Setenv("CRAG_LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	v := viper.New()
	v.Set("base_url", "http://localhost:1")

	p, err := NewProvider(v)
	require.NoError(t, err)

	err = p.Validate(context.Background())
	require.Error(t, err)

	var pe *provider.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, provider.ErrCodeAuthentication, pe.Code)
}

func TestClassifyHTTPError(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   provider.ErrorCode
	}{
		{http.StatusUnauthorized, "", provider.ErrCodeAuthentication},
		{http.StatusForbidden, "", provider.ErrCodeAuthentication},
		{http.StatusTooManyRequests, "", provider.ErrCodeRateLimit},
		{http.StatusBadRequest, `{"error":{"message":"maximum context length exceeded"}}`, provider.ErrCodeContextLength},
		{http.StatusBadRequest, `{"error":{"message":"unknown field"}}`, provider.ErrCodeInvalidRequest},
		{http.StatusInternalServerError, "", provider.ErrCodeProviderUnavailable},
		{http.StatusTeapot, "", provider.ErrCodeUnknown},
	}

	for _, tc := range cases {
		pe := classifyHTTPError("openai", tc.status, []byte(tc.body))
		assert.Equal(t, tc.want, pe.Code, "status %d", tc.status)
	}
}
