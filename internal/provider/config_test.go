package provider_test

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crag-dev/crag/internal/provider"
)

func TestResolveReadsProviderBlock(t *testing.T) {
	root := viper.New()
	root.Set("providers.openai.api_key", "sk-test")
	root.Set("providers.openai.model", "gpt-4o-mini")

	cfg := provider.Resolve(root, "openai")
	assert.Equal(t, "openai", cfg.Name)
	require.NotNil(t, cfg.Viper)
	assert.Equal(t, "sk-test", cfg.Viper.GetString("api_key"))
	assert.Equal(t, "gpt-4o-mini", cfg.Viper.GetString("model"))
}

func TestResolveDefaultsToOpenAI(t *testing.T) {
	cfg := provider.Resolve(viper.New(), "")
	assert.Equal(t, "openai", cfg.Name)
}

func TestResolveNormalizesName(t *testing.T) {
	cfg := provider.Resolve(viper.New(), "  Anthropic ")
	assert.Equal(t, "anthropic", cfg.Name)
}

func TestResolveEnvOverride(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	cfg := provider.Resolve(viper.New(), "openai")
	assert.Equal(t, "sk-from-env", cfg.Viper.GetString("api_key"))
}

func TestResolveConfigWinsOverEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	root := viper.New()
	root.Set("providers.openai.api_key", "sk-from-config")

	cfg := provider.Resolve(root, "openai")
	assert.Equal(t, "sk-from-config", cfg.Viper.GetString("api_key"))
}
