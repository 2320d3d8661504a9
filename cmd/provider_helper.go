package cmd

import (
	"fmt"

	"github.com/crag-dev/crag/internal/config"
	"github.com/crag-dev/crag/internal/provider"
)

// resolveProvider instantiates the AI provider named on the command
// line, falling back to the configured default. The returned provider
// is already validated against the registry but not against the
// network.
func resolveProvider(conf config.Config, override string) (provider.AIProvider, error) {
	name := override
	if name == "" {
		name = conf.Provider
	}

	pc := provider.Resolve(conf.Viper, name)
	p, err := provider.Get(pc.Name, pc.Viper)
	if err != nil {
		return nil, fmt.Errorf("resolving provider %q: %w", name, err)
	}
	return p, nil
}

// modelFor picks the model for one pipeline stage: the --model flag
// wins, then the per-stage config entry, then the provider's default.
func modelFor(override, configured string) string {
	if override != "" {
		return override
	}
	return configured
}
