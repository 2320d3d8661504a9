package provider

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ProviderConfig holds the resolved configuration for instantiating a
// provider. It is used by Resolve so that the CLI layer does not need to
// know about config paths.
type ProviderConfig struct {
	// Name is the provider name as it appears in the registry (e.g. "openai").
	Name string

	// Viper is a sub-tree scoped to the provider's config block.
	Viper *viper.Viper
}

// Resolve reads the given provider's config block from the root store and
// binds well-known environment variables. The returned sub-tree is what
// provider factories consume:
//
//	providers:
//	  openai:
//	    api_key: ...
//	    model: gpt-4o
func Resolve(v *viper.Viper, name string) ProviderConfig {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "openai"
	}

	sub := v.Sub(fmt.Sprintf("providers.%s", name))
	if sub == nil {
		// No config file entry; an empty viper still picks up env overrides.
		sub = viper.New()
	}
	bindProviderEnvVars(name, sub)

	return ProviderConfig{Name: name, Viper: sub}
}

// bindProviderEnvVars sets up well-known environment variables for each
// provider so that users can configure crag entirely through the shell.
func bindProviderEnvVars(name string, v *viper.Viper) {
	switch name {
	case "openai":
		overrideFromEnv(v, "api_key", "OPENAI_API_KEY")
		overrideFromEnv(v, "model", "OPENAI_API_MODEL")
		overrideFromEnv(v, "base_url", "OPENAI_API_BASE")
	case "anthropic", "claude":
		overrideFromEnv(v, "api_key", "ANTHROPIC_API_KEY")
		overrideFromEnv(v, "model", "ANTHROPIC_MODEL")
		overrideFromEnv(v, "base_url", "ANTHROPIC_API_BASE")
	default:
		// Generic / OpenAI-compatible: try CRAG_<PROVIDER>_* env vars.
		prefix := strings.ToUpper(name)
		overrideFromEnv(v, "api_key", fmt.Sprintf("CRAG_%s_API_KEY", prefix))
		overrideFromEnv(v, "model", fmt.Sprintf("CRAG_%s_MODEL", prefix))
		overrideFromEnv(v, "base_url", fmt.Sprintf("CRAG_%s_BASE_URL", prefix))
	}
	// Shared fallback key used by all providers.
	overrideFromEnv(v, "api_key", "CRAG_LLM_API_KEY")
}

func overrideFromEnv(v *viper.Viper, key, envName string) {
	if v.GetString(key) != "" {
		return
	}
	if value := strings.TrimSpace(os.Getenv(envName)); value != "" {
		v.Set(key, value)
	}
}
